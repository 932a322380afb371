package ports

import (
	"context"
	"time"

	"github.com/vncsmyrnk/quadratic-poll/internal/core/domain"
)

// PollWindow restricts polls by their position relative to now.
type PollWindow int

const (
	WindowAny PollWindow = iota
	// WindowActive matches start_date <= now < end_date.
	WindowActive
	// WindowInactive matches start_date > now OR end_date <= now.
	WindowInactive
)

// PollCriteria describes which polls a listing matches. All set fields are
// combined with AND, except AuthorID and VotedIDs when AuthoredOrVoted is set.
type PollCriteria struct {
	Status domain.PollStatus
	Now    time.Time
	Window PollWindow
	Bucket PollWindow

	AuthorID        int64
	VotedIDs        []int64
	AuthoredOrVoted bool

	// SearchIDs restricts the listing when non-nil, even if empty.
	SearchIDs []int64
}

type PollOrder struct {
	SortBy domain.PollSortBy
	Desc   bool
}

type PollRepository interface {
	Create(ctx context.Context, poll *domain.Poll) error
	Update(ctx context.Context, poll *domain.Poll) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Poll, error)
	// DraftsByAuthor returns the author's drafts, newest first.
	DraftsByAuthor(ctx context.Context, authorID int64) ([]*domain.Poll, error)
	DeleteDrafts(ctx context.Context, authorID int64) error
	SetParticipantCount(ctx context.Context, pollID int64, count int) error
	Find(ctx context.Context, c PollCriteria, order PollOrder, limit, offset int, viewerID int64) ([]domain.PollView, error)
	Count(ctx context.Context, c PollCriteria) (int, error)
	// Search returns published poll ids ranked by full-text relevance.
	Search(ctx context.Context, query string) ([]int64, error)
	CountCreatedBetween(ctx context.Context, r DateRange) (int, error)
	ListIDs(ctx context.Context) ([]int64, error)
}

type CreatePollInput struct {
	Title       string
	Description string
	Options     []string
	StartDate   time.Time
	EndDate     time.Time
	Tags        []string
	IsAnonymous bool
}

// DraftPollInput carries a partial draft. Nil fields are left unchanged.
type DraftPollInput struct {
	PollID      *int64
	Title       *string
	Description *string
	Options     []string
	StartDate   *time.Time
	EndDate     *time.Time
	Tags        []string
	IsAnonymous *bool
}

type PollService interface {
	Create(ctx context.Context, worldID string, input CreatePollInput) (*domain.Poll, error)
	PatchDraft(ctx context.Context, worldID string, input DraftPollInput) (*domain.Poll, error)
	GetDraft(ctx context.Context, worldID string) (*domain.Poll, error)
	ListPolls(ctx context.Context, worldID string, params domain.ListPollsParams) (*domain.PollPage, error)
	GetDetails(ctx context.Context, id int64) (*domain.PollDetails, error)
	GetVotes(ctx context.Context, id int64) (*domain.PollVotes, error)
	Delete(ctx context.Context, worldID string, id int64) (*domain.Poll, error)
	Count(ctx context.Context, r DateRange) (int, error)
}
