package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/myphotos/backend/internal/logging"
	"github.com/myphotos/backend/internal/models"
)

// FriendHandler provides friend request, confirmation, withdrawal and listing endpoints.
type FriendHandler struct {
	Friends FriendService
}

// List handles GET /api/v1/friends: the caller's confirmed friendships.
func (h FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.Friends.Confirmed)
}

// Sent handles GET /api/v1/friends/requests/sent.
func (h FriendHandler) Sent(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.Friends.PendingSentBy)
}

// Received handles GET /api/v1/friends/requests/received.
func (h FriendHandler) Received(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.Friends.PendingReceivedBy)
}

// Request handles POST /api/v1/friends: sends a request or accepts the reverse one.
func (h FriendHandler) Request(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req friendRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondMessage(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	transition, err := h.Friends.RequestOrConfirm(ctx, caller.UserID, strings.TrimSpace(req.FriendID))
	if err != nil {
		respondDomainError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, transitionResponse{Result: string(transition)})
}

// Withdraw handles DELETE /api/v1/friends/{friendID}: cancels a sent request or
// revokes a friendship.
func (h FriendHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := currentUser(w, r)
	if !ok {
		return
	}

	friendID := strings.TrimSpace(r.PathValue("friendID"))
	if friendID == "" {
		respondMessage(ctx, w, http.StatusBadRequest, "friendID is required")
		return
	}

	transition, err := h.Friends.Withdraw(ctx, caller.UserID, friendID)
	if err != nil {
		respondDomainError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, transitionResponse{Result: string(transition)})
}

func (h FriendHandler) list(w http.ResponseWriter, r *http.Request, query func(ctx context.Context, userID string) ([]models.Friendship, error)) {
	ctx := r.Context()
	caller, ok := currentUser(w, r)
	if !ok {
		return
	}

	edges, err := query(ctx, caller.UserID)
	if err != nil {
		logging.FromContext(ctx).Error("list friendships failed", "error", err)
		respondMessage(ctx, w, http.StatusInternalServerError, "unable to load friendships")
		return
	}

	out := make([]friendshipResponse, 0, len(edges))
	for _, edge := range edges {
		out = append(out, newFriendshipResponse(edge, caller.UserID))
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"friendships": out})
}

type friendRequest struct {
	FriendID string `json:"friendId" validate:"required"`
}

type transitionResponse struct {
	Result string `json:"result"`
}

type friendshipResponse struct {
	ID          string    `json:"id"`
	InitiatorID string    `json:"initiatorId"`
	TargetID    string    `json:"targetId"`
	FriendID    string    `json:"friendId"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newFriendshipResponse(edge models.Friendship, viewerID string) friendshipResponse {
	status := "pending"
	if edge.Status == models.FriendshipConfirmed {
		status = "confirmed"
	}
	return friendshipResponse{
		ID:          edge.ID,
		InitiatorID: edge.InitiatorID,
		TargetID:    edge.TargetID,
		FriendID:    edge.Counterpart(viewerID),
		Status:      status,
		CreatedAt:   edge.CreatedAt,
		UpdatedAt:   edge.UpdatedAt,
	}
}
