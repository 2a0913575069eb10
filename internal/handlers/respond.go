package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/myphotos/backend/internal/auth"
	"github.com/myphotos/backend/internal/friendships"
	"github.com/myphotos/backend/internal/logging"
	"github.com/myphotos/backend/internal/photos"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

func respondMessage(ctx context.Context, w http.ResponseWriter, status int, message string) {
	respondJSON(ctx, w, status, map[string]string{"error": message})
}

// respondDomainError translates relationship and photo errors into HTTP responses.
func respondDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	status, message := classify(err)
	if status == http.StatusInternalServerError {
		logging.FromContext(ctx).Error("unexpected domain error", "error", err)
	}
	respondMessage(ctx, w, status, message)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, friendships.ErrUnknownUser):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, photos.ErrUnknownOwner):
		return http.StatusNotFound, "photo owner not found"
	case errors.Is(err, photos.ErrPhotoNotFound):
		return http.StatusNotFound, "photo not found"
	case errors.Is(err, friendships.ErrDuplicateRequest):
		return http.StatusConflict, "friend request already sent"
	case errors.Is(err, photos.ErrDuplicatePhoto):
		return http.StatusConflict, "a photo with this name already exists"
	case errors.Is(err, friendships.ErrNoRelationship):
		return http.StatusBadRequest, "no relationship with this user"
	case errors.Is(err, friendships.ErrSelfRequest):
		return http.StatusBadRequest, "cannot befriend yourself"
	case errors.Is(err, photos.ErrInvalidFileName):
		return http.StatusBadRequest, "invalid file name"
	case errors.Is(err, friendships.ErrForbiddenDelete):
		return http.StatusForbidden, "only the sender may cancel a pending request"
	case errors.Is(err, photos.ErrAccessDenied):
		return http.StatusForbidden, "photos are visible to friends only"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func decodeAndValidate(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return errors.New(validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", field))
		case "email":
			parts = append(parts, fmt.Sprintf("%s must be an email address", field))
		case "min":
			parts = append(parts, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(parts, "; ")
}

// currentUser returns the authenticated caller or writes a 401.
func currentUser(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondMessage(r.Context(), w, http.StatusUnauthorized, "authentication required")
		return auth.Identity{}, false
	}
	return identity, true
}
