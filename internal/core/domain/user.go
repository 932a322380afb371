package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                     int64     `json:"id"`
	WorldID                string    `json:"worldID"`
	Name                   string    `json:"name"`
	ProfilePicture         *string   `json:"profilePicture,omitempty"`
	IsAdmin                bool      `json:"-"`
	PollsCreatedCount      int       `json:"pollsCreatedCount"`
	PollsParticipatedCount int       `json:"pollsParticipatedCount"`
	CreatedAt              time.Time `json:"createdAt"`
}

type RefreshToken struct {
	ID        uuid.UUID `json:"id"`
	UserID    int64     `json:"user_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}

// UserData is the public summary of a user's activity counters.
type UserData struct {
	WorldID           string `json:"worldID"`
	PollsCreated      int    `json:"pollsCreated"`
	PollsParticipated int    `json:"pollsParticipated"`
}
