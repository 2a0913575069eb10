package handlers

import (
	"context"
	"io"

	"github.com/myphotos/backend/internal/auth"
	"github.com/myphotos/backend/internal/friendships"
	"github.com/myphotos/backend/internal/models"
	"github.com/myphotos/backend/internal/photos"
)

// UserStore captures the persistence operations required by the auth handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByLogin(ctx context.Context, login string) (models.User, error)
}

// SessionManager issues, refreshes and revokes authentication tokens for users.
type SessionManager interface {
	Issue(ctx context.Context, identity auth.Identity) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Revoke(ctx context.Context, refreshToken string)
}

// FriendService captures the relationship operations exposed over HTTP.
type FriendService interface {
	RequestOrConfirm(ctx context.Context, requesterID, targetID string) (friendships.Transition, error)
	Withdraw(ctx context.Context, actorID, otherID string) (friendships.Transition, error)
	PendingSentBy(ctx context.Context, userID string) ([]models.Friendship, error)
	PendingReceivedBy(ctx context.Context, userID string) ([]models.Friendship, error)
	Confirmed(ctx context.Context, userID string) ([]models.Friendship, error)
}

// PhotoService captures the photo operations exposed over HTTP.
type PhotoService interface {
	ListVisiblePhotos(ctx context.Context, viewerID, ownerID string) ([]photos.Photo, error)
	Upload(ctx context.Context, ownerID, fileName string, r io.Reader) (photos.Photo, error)
	Open(ctx context.Context, viewerID, ownerID, fileName string) (io.ReadCloser, error)
}
