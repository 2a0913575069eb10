package models

import "time"

// User is the identity anchor for photos and friendships.
type User struct {
	ID           string
	Login        string
	Nickname     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FriendshipStatus is the status carried by a directed friendship edge.
// The numeric values match the rows seeded into friendship_statuses.
type FriendshipStatus int

const (
	// FriendshipPending marks a request that was never accepted or a friendship that was revoked.
	FriendshipPending FriendshipStatus = 1
	// FriendshipConfirmed marks a mutual friendship.
	FriendshipConfirmed FriendshipStatus = 2
)

// String returns the label stored in friendship_statuses.
func (s FriendshipStatus) String() string {
	switch s {
	case FriendshipPending:
		return "ignored"
	case FriendshipConfirmed:
		return "friend"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the two known statuses.
func (s FriendshipStatus) Valid() bool {
	return s == FriendshipPending || s == FriendshipConfirmed
}

// Friendship is a directed edge from the user who sent a request to the user who received it.
type Friendship struct {
	ID          string
	InitiatorID string
	TargetID    string
	Status      FriendshipStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Counterpart returns the other end of the edge as seen from userID.
func (f Friendship) Counterpart(userID string) string {
	if f.InitiatorID == userID {
		return f.TargetID
	}
	return f.InitiatorID
}

// Image is a photo owned by exactly one user.
type Image struct {
	ID        string
	OwnerID   string
	FileName  string
	CreatedAt time.Time
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
