package domain

import (
	"time"

	"github.com/google/uuid"
)

type Vote struct {
	ID                 uuid.UUID `json:"voteID"`
	UserID             int64     `json:"userId"`
	PollID             int64     `json:"pollId"`
	VotingPower        Weight    `json:"votingPower"`
	WeightDistribution Weights   `json:"weightDistribution"`
	Proof              *string   `json:"proof,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// UserVote is a user's vote on a poll together with the options it was cast against.
type UserVote struct {
	Options            []string `json:"options"`
	VotingPower        Weight   `json:"votingPower"`
	WeightDistribution Weights  `json:"weightDistribution"`
}
