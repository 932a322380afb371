package domain

import (
	"fmt"
	"math"
)

type PollSortBy string

const (
	SortByCreationDate     PollSortBy = "creationDate"
	SortByEndDate          PollSortBy = "endDate"
	SortByParticipantCount PollSortBy = "participantCount"
	SortByClosestEndDate   PollSortBy = "closestEndDate"
)

// Bucketed reports whether listing by this key places active polls before
// every other poll.
func (s PollSortBy) Bucketed() bool {
	switch s {
	case SortByEndDate, SortByParticipantCount, SortByClosestEndDate:
		return true
	}
	return false
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

type ListPollsParams struct {
	Page        int
	Limit       int
	IsActive    *bool
	UserVoted   bool
	UserCreated bool
	Search      string
	SortBy      PollSortBy
	SortOrder   SortOrder
}

// Normalize fills defaults and rejects out of range values.
func (p *ListPollsParams) Normalize() error {
	if p.Page == 0 {
		p.Page = DefaultPage
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if p.SortBy == "" {
		p.SortBy = SortByEndDate
	}
	if p.SortOrder == "" {
		p.SortOrder = SortAsc
	}

	if p.Page < 1 {
		return fmt.Errorf("%w: page must be a positive integer", ErrInvalidInput)
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidInput, MaxLimit)
	}
	// Skip must stay within a 32-bit offset.
	if p.Page > math.MaxInt32/p.Limit {
		return fmt.Errorf("%w: page out of range", ErrInvalidInput)
	}
	switch p.SortBy {
	case SortByCreationDate, SortByEndDate, SortByParticipantCount, SortByClosestEndDate:
	default:
		return fmt.Errorf("%w: unsupported sortBy %q", ErrInvalidInput, p.SortBy)
	}
	if p.SortOrder != SortAsc && p.SortOrder != SortDesc {
		return fmt.Errorf("%w: sortOrder must be asc or desc", ErrInvalidInput)
	}
	return nil
}

func (p *ListPollsParams) Skip() int {
	return (p.Page - 1) * p.Limit
}
