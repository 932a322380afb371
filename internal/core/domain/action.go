package domain

import (
	"time"

	"github.com/google/uuid"
)

type ActionType string

const (
	ActionCreated ActionType = "CREATED"
	ActionVoted   ActionType = "VOTED"
)

// UserAction is an append-only log entry. Denormalized counters on users and
// polls are always recomputed from these rows.
type UserAction struct {
	ID        uuid.UUID  `json:"id"`
	UserID    int64      `json:"userId"`
	PollID    int64      `json:"pollId"`
	Type      ActionType `json:"type"`
	CreatedAt time.Time  `json:"createdAt"`
}

type ActivityFilter string

const (
	ActivityAll          ActivityFilter = ""
	ActivityActive       ActivityFilter = "active"
	ActivityInactive     ActivityFilter = "inactive"
	ActivityCreated      ActivityFilter = "created"
	ActivityParticipated ActivityFilter = "participated"
)

func (f ActivityFilter) Valid() bool {
	switch f {
	case ActivityAll, ActivityActive, ActivityInactive, ActivityCreated, ActivityParticipated:
		return true
	}
	return false
}

// Activity is a user action joined with the poll it refers to.
type Activity struct {
	Type               string     `json:"type"`
	PollID             int64      `json:"pollId"`
	PollTitle          string     `json:"pollTitle"`
	PollDescription    string     `json:"pollDescription"`
	EndDate            *time.Time `json:"endDate"`
	IsActive           bool       `json:"isActive"`
	VotersParticipated int        `json:"votersParticipated"`
	AuthorUserID       int64      `json:"authorUserId"`
}
