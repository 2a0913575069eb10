package photos

import "errors"

var (
	// ErrAccessDenied indicates the viewer is neither the owner nor a confirmed friend.
	ErrAccessDenied = errors.New("access denied")
	// ErrUnknownOwner indicates the requested photo owner does not exist.
	ErrUnknownOwner = errors.New("unknown photo owner")
	// ErrDuplicatePhoto indicates the owner already has a photo with the same file name.
	ErrDuplicatePhoto = errors.New("photo already exists")
	// ErrInvalidFileName indicates the uploaded file name is empty or not a plain base name.
	ErrInvalidFileName = errors.New("invalid file name")
	// ErrPhotoNotFound indicates the owner has no photo with the requested file name.
	ErrPhotoNotFound = errors.New("photo not found")
)
