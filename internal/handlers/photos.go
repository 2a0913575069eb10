package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/myphotos/backend/internal/logging"
	"github.com/myphotos/backend/internal/photos"
)

const uploadField = "file"

// PhotoHandler provides photo listing, upload and download endpoints.
type PhotoHandler struct {
	Photos         PhotoService
	MaxUploadBytes int64
}

// ListOwn handles GET /api/v1/photos.
func (h PhotoHandler) ListOwn(w http.ResponseWriter, r *http.Request) {
	caller, ok := currentUser(w, r)
	if !ok {
		return
	}
	h.listFor(w, r, caller.UserID, caller.UserID)
}

// ListForOwner handles GET /api/v1/photos/{ownerID}.
func (h PhotoHandler) ListForOwner(w http.ResponseWriter, r *http.Request) {
	caller, ok := currentUser(w, r)
	if !ok {
		return
	}
	h.listFor(w, r, caller.UserID, r.PathValue("ownerID"))
}

// Upload handles multipart POST /api/v1/photos with the image in the "file" field.
func (h PhotoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := currentUser(w, r)
	if !ok {
		return
	}

	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}

	reader, err := r.MultipartReader()
	if err != nil {
		respondMessage(ctx, w, http.StatusBadRequest, "expected a multipart/form-data body")
		return
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			respondMessage(ctx, w, http.StatusBadRequest, "missing file field")
			return
		}
		if err != nil {
			h.respondReadError(w, r, err)
			return
		}

		if part.FormName() != uploadField {
			_ = part.Close()
			continue
		}

		photo, err := h.Photos.Upload(ctx, caller.UserID, part.FileName(), part)
		_ = part.Close()
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				h.respondReadError(w, r, err)
				return
			}
			respondDomainError(ctx, w, err)
			return
		}

		respondJSON(ctx, w, http.StatusCreated, newPhotoResponse(photo))
		return
	}
}

// Download handles GET /api/v1/photos/{ownerID}/files/{fileName}.
func (h PhotoHandler) Download(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := currentUser(w, r)
	if !ok {
		return
	}

	fileName := r.PathValue("fileName")
	rc, err := h.Photos.Open(ctx, caller.UserID, r.PathValue("ownerID"), fileName)
	if err != nil {
		respondDomainError(ctx, w, err)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(path.Ext(fileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, no-store")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, rc); err != nil {
		logging.FromContext(ctx).Warn("photo download interrupted", "fileName", fileName, "error", err)
	}
}

func (h PhotoHandler) listFor(w http.ResponseWriter, r *http.Request, viewerID, ownerID string) {
	ctx := r.Context()

	list, err := h.Photos.ListVisiblePhotos(ctx, viewerID, strings.TrimSpace(ownerID))
	if err != nil {
		respondDomainError(ctx, w, err)
		return
	}

	out := make([]photoResponse, 0, len(list))
	for _, photo := range list {
		out = append(out, newPhotoResponse(photo))
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"photos": out})
}

func (h PhotoHandler) respondReadError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondMessage(r.Context(), w, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
		return
	}
	respondMessage(r.Context(), w, http.StatusBadRequest, "malformed multipart body")
}

type photoResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	FileName  string    `json:"fileName"`
	URL       string    `json:"url"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"createdAt"`
}

func newPhotoResponse(photo photos.Photo) photoResponse {
	return photoResponse{
		ID:        photo.ID,
		OwnerID:   photo.OwnerID,
		FileName:  photo.FileName,
		URL:       "/api/v1/photos/" + url.PathEscape(photo.OwnerID) + "/files/" + url.PathEscape(photo.FileName),
		Location:  photo.Location,
		CreatedAt: photo.CreatedAt,
	}
}
