package domain

import (
	"time"
)

type PollStatus string

const (
	PollStatusDraft     PollStatus = "DRAFT"
	PollStatusPublished PollStatus = "PUBLISHED"
)

type Poll struct {
	ID               int64      `json:"pollId"`
	AuthorUserID     int64      `json:"authorUserId"`
	Author           *User      `json:"author,omitempty"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Options          []string   `json:"options"`
	StartDate        *time.Time `json:"startDate"`
	EndDate          *time.Time `json:"endDate"`
	Tags             []string   `json:"tags"`
	IsAnonymous      bool       `json:"isAnonymous"`
	Status           PollStatus `json:"status"`
	ParticipantCount int        `json:"participantCount"`
	CreatedAt        time.Time  `json:"creationDate"`
}

// IsActive reports whether now falls within [StartDate, EndDate).
func (p *Poll) IsActive(now time.Time) bool {
	if p.StartDate == nil || p.EndDate == nil {
		return false
	}
	return !now.Before(*p.StartDate) && now.Before(*p.EndDate)
}

// PollView is a listed poll annotated for the requesting user.
type PollView struct {
	Poll
	HasVoted bool `json:"hasVoted"`
}

type PollPage struct {
	Polls []PollView `json:"polls"`
	Total int        `json:"total"`
}

type PollDetails struct {
	Poll              *Poll   `json:"poll"`
	IsActive          bool    `json:"isActive"`
	OptionsTotalVotes Weights `json:"optionsTotalVotes"`
	TotalVotes        Weight  `json:"totalVotes"`
}

type PollVoteEntry struct {
	Username         string  `json:"username"`
	QuadraticWeights Weights `json:"quadraticWeights"`
	TotalWeights     Weight  `json:"totalQuadraticWeights"`
}

type PollVotes struct {
	Votes     []PollVoteEntry `json:"votes"`
	PollTitle string          `json:"pollTitle"`
	PollID    int64           `json:"pollId"`
}
