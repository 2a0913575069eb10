package repositories

import (
	"context"

	"github.com/myphotos/backend/internal/models"
)

// UserRepository defines the data access contract for users.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByLogin(ctx context.Context, login string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
}

// ImageRepository defines the data access contract for photo records.
type ImageRepository interface {
	Create(ctx context.Context, image models.Image) error
	ListByOwner(ctx context.Context, ownerID string) ([]models.Image, error)
	Find(ctx context.Context, ownerID, fileName string) (models.Image, error)
	Delete(ctx context.Context, id string) error
}
