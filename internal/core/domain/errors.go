package domain

import "errors"

var (
	ErrUserNotFound = errors.New("user not found")
	ErrPollNotFound = errors.New("poll not found or not active")
	ErrVoteNotFound = errors.New("vote not found")

	ErrAlreadyVoted   = errors.New("user has already voted in this poll")
	ErrInvalidWeights = errors.New("invalid vote option")

	ErrNotPollAuthor = errors.New("you are not authorized to perform this action")
	ErrNotVoteOwner  = errors.New("you are not the owner of this vote")

	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidProof = errors.New("signature verification failed")
	ErrInternal     = errors.New("internal server error")
)
