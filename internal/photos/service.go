package photos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/myphotos/backend/internal/logging"
	"github.com/myphotos/backend/internal/models"
	"github.com/myphotos/backend/internal/repositories"
)

const maxFileNameLength = 256

// UserLookup resolves users by id. It returns repositories.ErrNotFound for unknown ids.
type UserLookup interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// ImageStore persists image records. Create returns repositories.ErrConflict when the
// owner already has an image with the same file name.
type ImageStore interface {
	Create(ctx context.Context, image models.Image) error
	ListByOwner(ctx context.Context, ownerID string) ([]models.Image, error)
	Find(ctx context.Context, ownerID, fileName string) (models.Image, error)
	Delete(ctx context.Context, id string) error
}

// BlobStorage stores raw image bytes under an opaque key. Open reports a missing
// object with an error wrapping fs.ErrNotExist.
type BlobStorage interface {
	Save(ctx context.Context, key string, r io.Reader) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Location(key string) string
}

// Photo is an image record paired with the location its bytes can be fetched from.
type Photo struct {
	models.Image
	Location string
}

// Service exposes photo listing, upload and download gated by the visibility policy.
type Service struct {
	policy *Policy
	users  UserLookup
	images ImageStore
	blobs  BlobStorage
	now    func() time.Time
}

// NewService wires a Service from its collaborators.
func NewService(policy *Policy, users UserLookup, images ImageStore, blobs BlobStorage) *Service {
	return &Service{
		policy: policy,
		users:  users,
		images: images,
		blobs:  blobs,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ListVisiblePhotos returns every photo owned by owner when viewer may see them.
func (s *Service) ListVisiblePhotos(ctx context.Context, viewerID, ownerID string) ([]Photo, error) {
	ctx, span := logging.StartSpan(ctx, "photos.list_visible")
	defer span.End()

	owner, err := s.lookupOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, viewerID, owner.ID); err != nil {
		return nil, err
	}

	images, err := s.images.ListByOwner(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}

	out := make([]Photo, 0, len(images))
	for _, image := range images {
		out = append(out, Photo{Image: image, Location: s.blobs.Location(blobKey(owner.Login, image.FileName))})
	}
	return out, nil
}

// Upload stores the bytes from r as a new photo owned by ownerID.
func (s *Service) Upload(ctx context.Context, ownerID, fileName string, r io.Reader) (Photo, error) {
	ctx, span := logging.StartSpan(ctx, "photos.upload")
	defer span.End()

	fileName, err := cleanFileName(fileName)
	if err != nil {
		return Photo{}, err
	}

	owner, err := s.lookupOwner(ctx, ownerID)
	if err != nil {
		return Photo{}, err
	}

	if _, err := s.images.Find(ctx, owner.ID, fileName); err == nil {
		return Photo{}, ErrDuplicatePhoto
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return Photo{}, fmt.Errorf("check existing photo: %w", err)
	}

	image := models.Image{
		ID:        uuid.NewString(),
		OwnerID:   owner.ID,
		FileName:  fileName,
		CreatedAt: s.now(),
	}
	// The record claims the name before any bytes are written.
	if err := s.images.Create(ctx, image); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return Photo{}, ErrDuplicatePhoto
		}
		return Photo{}, fmt.Errorf("record photo: %w", err)
	}

	key := blobKey(owner.Login, fileName)
	location, err := s.blobs.Save(ctx, key, r)
	if err != nil {
		if delErr := s.images.Delete(ctx, image.ID); delErr != nil {
			logging.FromContext(ctx).Error("release photo record", "imageId", image.ID, "error", delErr)
		}
		return Photo{}, fmt.Errorf("store photo bytes: %w", err)
	}

	logging.FromContext(ctx).Info("photo uploaded", "ownerId", owner.ID, "fileName", fileName)
	return Photo{Image: image, Location: location}, nil
}

// Open streams the bytes of owner's photo when viewer may see it.
func (s *Service) Open(ctx context.Context, viewerID, ownerID, fileName string) (io.ReadCloser, error) {
	ctx, span := logging.StartSpan(ctx, "photos.open")
	defer span.End()

	owner, err := s.lookupOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, viewerID, owner.ID); err != nil {
		return nil, err
	}

	image, err := s.images.Find(ctx, owner.ID, fileName)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPhotoNotFound
		}
		return nil, fmt.Errorf("find photo: %w", err)
	}

	rc, err := s.blobs.Open(ctx, blobKey(owner.Login, image.FileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logging.FromContext(ctx).Error("photo record has no stored bytes", "imageId", image.ID)
			return nil, ErrPhotoNotFound
		}
		return nil, fmt.Errorf("open photo bytes: %w", err)
	}
	return rc, nil
}

func (s *Service) authorize(ctx context.Context, viewerID, ownerID string) error {
	allowed, err := s.policy.CanView(ctx, viewerID, ownerID)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrAccessDenied
	}
	return nil
}

func (s *Service) lookupOwner(ctx context.Context, ownerID string) (models.User, error) {
	owner, err := s.users.FindByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, ErrUnknownOwner
		}
		return models.User{}, fmt.Errorf("lookup owner: %w", err)
	}
	return owner, nil
}

func cleanFileName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxFileNameLength {
		return "", ErrInvalidFileName
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." || path.Base(name) != name {
		return "", ErrInvalidFileName
	}
	return name, nil
}

func blobKey(login, fileName string) string {
	return path.Join(login, fileName)
}
