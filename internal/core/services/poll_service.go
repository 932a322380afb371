package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/domain"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/ports"
)

// startDateGrace tolerates the delay between the client picking a start date
// and the request reaching the server.
const startDateGrace = time.Minute

type pollService struct {
	tx       ports.Transactor
	polls    ports.PollRepository
	votes    ports.VoteRepository
	users    ports.UserRepository
	actions  ports.ActionRepository
	counters ports.CounterService
	log      *logrus.Entry
	now      func() time.Time
}

func NewPollService(
	tx ports.Transactor,
	polls ports.PollRepository,
	votes ports.VoteRepository,
	users ports.UserRepository,
	actions ports.ActionRepository,
	counters ports.CounterService,
	logger *logrus.Logger,
) ports.PollService {
	return &pollService{
		tx:       tx,
		polls:    polls,
		votes:    votes,
		users:    users,
		actions:  actions,
		counters: counters,
		log:      logger.WithField("component", "poll_service"),
		now:      time.Now,
	}
}

// Create publishes a new poll, replacing any draft the author had.
func (s *pollService) Create(ctx context.Context, worldID string, input ports.CreatePollInput) (*domain.Poll, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}

	options, err := normalizeOptions(input.Options)
	if err != nil {
		return nil, err
	}

	if input.StartDate.Add(startDateGrace).Before(s.now()) {
		return nil, fmt.Errorf("%w: start date cannot be in the past", domain.ErrInvalidInput)
	}
	if !input.EndDate.After(input.StartDate) {
		return nil, fmt.Errorf("%w: end date must be after start date", domain.ErrInvalidInput)
	}

	user, err := resolveUser(ctx, s.users, worldID)
	if err != nil {
		return nil, err
	}

	startDate, endDate := input.StartDate, input.EndDate
	poll := &domain.Poll{
		AuthorUserID: user.ID,
		Title:        title,
		Description:  input.Description,
		Options:      options,
		StartDate:    &startDate,
		EndDate:      &endDate,
		Tags:         nonNilStrings(input.Tags),
		IsAnonymous:  input.IsAnonymous,
		Status:       domain.PollStatusPublished,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.polls.DeleteDrafts(ctx, user.ID); err != nil {
			return fmt.Errorf("failed to delete drafts: %w", err)
		}
		if err := s.polls.Create(ctx, poll); err != nil {
			return fmt.Errorf("failed to create poll: %w", err)
		}

		action := &domain.UserAction{UserID: user.ID, PollID: poll.ID, Type: domain.ActionCreated}
		if err := s.actions.Append(ctx, action); err != nil {
			return fmt.Errorf("failed to record poll creation: %w", err)
		}

		return s.counters.Recount(ctx, user.ID, domain.ActionCreated)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"poll_id": poll.ID, "user_id": user.ID}).Info("poll created")
	return poll, nil
}

// PatchDraft updates the given draft, or the author's single draft when no id
// is supplied, creating it if needed.
func (s *pollService) PatchDraft(ctx context.Context, worldID string, input ports.DraftPollInput) (*domain.Poll, error) {
	user, err := resolveUser(ctx, s.users, worldID)
	if err != nil {
		return nil, err
	}

	if input.PollID != nil {
		poll, err := s.polls.GetByID(ctx, *input.PollID)
		if err != nil {
			return nil, err
		}
		if poll.AuthorUserID != user.ID {
			return nil, domain.ErrNotPollAuthor
		}
		if poll.Status != domain.PollStatusDraft {
			return nil, fmt.Errorf("%w: cannot update a published poll", domain.ErrPollNotFound)
		}

		applyDraft(poll, input)
		if err := s.polls.Update(ctx, poll); err != nil {
			return nil, fmt.Errorf("failed to update draft: %w", err)
		}
		return poll, nil
	}

	var draft *domain.Poll
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		drafts, err := s.polls.DraftsByAuthor(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to get drafts: %w", err)
		}

		// Only the newest draft survives.
		for i := 1; i < len(drafts); i++ {
			if err := s.polls.Delete(ctx, drafts[i].ID); err != nil {
				return fmt.Errorf("failed to delete stale draft: %w", err)
			}
		}

		if len(drafts) > 0 {
			draft = drafts[0]
			applyDraft(draft, input)
			return s.polls.Update(ctx, draft)
		}

		draft = &domain.Poll{
			AuthorUserID: user.ID,
			Options:      []string{},
			Tags:         []string{},
			Status:       domain.PollStatusDraft,
		}
		applyDraft(draft, input)
		return s.polls.Create(ctx, draft)
	})
	if err != nil {
		return nil, err
	}

	return draft, nil
}

func (s *pollService) GetDraft(ctx context.Context, worldID string) (*domain.Poll, error) {
	user, err := resolveUser(ctx, s.users, worldID)
	if err != nil {
		return nil, err
	}

	drafts, err := s.polls.DraftsByAuthor(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get drafts: %w", err)
	}
	if len(drafts) == 0 {
		return nil, domain.ErrPollNotFound
	}
	return drafts[0], nil
}

// ListPolls returns one page of published polls matching params.
//
// For the end date, participant count and closest end date orderings, active
// polls are always listed before the rest: each group is fetched up to the end
// of the requested page, the groups are concatenated and the page is cut from
// the result. Total counts every matching poll regardless of grouping.
func (s *pollService) ListPolls(ctx context.Context, worldID string, params domain.ListPollsParams) (*domain.PollPage, error) {
	if err := params.Normalize(); err != nil {
		return nil, err
	}

	user, err := resolveUser(ctx, s.users, worldID)
	if err != nil {
		return nil, err
	}

	criteria := ports.PollCriteria{
		Status: domain.PollStatusPublished,
		Now:    s.now(),
	}
	if params.IsActive != nil {
		if *params.IsActive {
			criteria.Window = ports.WindowActive
		} else {
			criteria.Window = ports.WindowInactive
		}
	}

	page := &domain.PollPage{}
	err = s.tx.WithinReadTx(ctx, func(ctx context.Context) error {
		if params.UserCreated {
			criteria.AuthorID = user.ID
		}
		if params.UserVoted {
			ids, err := s.votes.PollIDsByUser(ctx, user.ID)
			if err != nil {
				return fmt.Errorf("failed to get voted polls: %w", err)
			}
			criteria.VotedIDs = nonNilIDs(ids)
		}
		criteria.AuthoredOrVoted = params.UserCreated && params.UserVoted

		if search := strings.TrimSpace(params.Search); search != "" {
			ids, err := s.polls.Search(ctx, search)
			if err != nil {
				return fmt.Errorf("failed to search polls: %w", err)
			}
			criteria.SearchIDs = nonNilIDs(ids)
		}

		total, err := s.polls.Count(ctx, criteria)
		if err != nil {
			return fmt.Errorf("failed to count polls: %w", err)
		}
		page.Total = total

		if params.SortBy.Bucketed() {
			page.Polls, err = s.listActiveFirst(ctx, criteria, params, user.ID)
		} else {
			order := ports.PollOrder{SortBy: params.SortBy, Desc: params.SortOrder == domain.SortDesc}
			page.Polls, err = s.polls.Find(ctx, criteria, order, params.Limit, params.Skip(), user.ID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	if page.Polls == nil {
		page.Polls = []domain.PollView{}
	}
	return page, nil
}

func (s *pollService) listActiveFirst(ctx context.Context, criteria ports.PollCriteria, params domain.ListPollsParams, viewerID int64) ([]domain.PollView, error) {
	activeOrder, restOrder := bucketOrders(params)
	take := params.Skip() + params.Limit

	active := criteria
	active.Bucket = ports.WindowActive
	activePolls, err := s.polls.Find(ctx, active, activeOrder, take, 0, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active polls: %w", err)
	}

	// Upcoming polls belong to the second bucket so the pages add up to total.
	rest := criteria
	rest.Bucket = ports.WindowInactive
	restPolls, err := s.polls.Find(ctx, rest, restOrder, take, 0, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inactive polls: %w", err)
	}

	combined := make([]domain.PollView, 0, len(activePolls)+len(restPolls))
	combined = append(combined, activePolls...)
	combined = append(combined, restPolls...)
	return paginate(combined, params.Skip(), params.Limit), nil
}

func bucketOrders(params domain.ListPollsParams) (ports.PollOrder, ports.PollOrder) {
	if params.SortBy == domain.SortByClosestEndDate {
		// Soonest to close first, then most recently closed.
		return ports.PollOrder{SortBy: domain.SortByEndDate},
			ports.PollOrder{SortBy: domain.SortByEndDate, Desc: true}
	}

	order := ports.PollOrder{SortBy: params.SortBy, Desc: params.SortOrder == domain.SortDesc}
	return order, order
}

func paginate(polls []domain.PollView, skip, limit int) []domain.PollView {
	if skip >= len(polls) {
		return []domain.PollView{}
	}
	end := skip + limit
	if end > len(polls) {
		end = len(polls)
	}
	return polls[skip:end]
}

func (s *pollService) GetDetails(ctx context.Context, id int64) (*domain.PollDetails, error) {
	poll, err := s.polls.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if poll.Status != domain.PollStatusPublished {
		return nil, domain.ErrPollNotFound
	}

	weights, err := s.votes.WeightsByPoll(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get poll votes: %w", err)
	}

	totals := domain.Aggregate(poll.Options, weights)
	return &domain.PollDetails{
		Poll:              poll,
		IsActive:          poll.IsActive(s.now()),
		OptionsTotalVotes: totals,
		TotalVotes:        domain.TotalWeight(totals),
	}, nil
}

// GetVotes lists every vote of a published, non-anonymous poll.
func (s *pollService) GetVotes(ctx context.Context, id int64) (*domain.PollVotes, error) {
	poll, err := s.polls.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if poll.Status != domain.PollStatusPublished || poll.IsAnonymous {
		return nil, domain.ErrPollNotFound
	}

	entries, err := s.votes.ListByPoll(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get poll votes: %w", err)
	}
	for i := range entries {
		entries[i].TotalWeights = domain.TotalWeight(entries[i].QuadraticWeights)
	}
	if entries == nil {
		entries = []domain.PollVoteEntry{}
	}

	return &domain.PollVotes{
		Votes:     entries,
		PollTitle: poll.Title,
		PollID:    poll.ID,
	}, nil
}

// Delete removes a poll. Deleting a published poll recounts the author's
// created polls and the participated polls of everyone who voted on it.
func (s *pollService) Delete(ctx context.Context, worldID string, id int64) (*domain.Poll, error) {
	user, err := resolveUser(ctx, s.users, worldID)
	if err != nil {
		return nil, err
	}

	poll, err := s.polls.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin && poll.AuthorUserID != user.ID {
		return nil, domain.ErrNotPollAuthor
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if poll.Status != domain.PollStatusPublished {
			return s.polls.Delete(ctx, id)
		}

		voters, err := s.actions.DistinctUsers(ctx, id, domain.ActionVoted)
		if err != nil {
			return fmt.Errorf("failed to get poll participants: %w", err)
		}

		if err := s.polls.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete poll: %w", err)
		}

		if err := s.counters.Recount(ctx, poll.AuthorUserID, domain.ActionCreated); err != nil {
			return err
		}
		for _, voterID := range voters {
			if err := s.counters.Recount(ctx, voterID, domain.ActionVoted); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"poll_id": id, "user_id": user.ID, "status": poll.Status}).Info("poll deleted")
	return poll, nil
}

func (s *pollService) Count(ctx context.Context, r ports.DateRange) (int, error) {
	count, err := s.polls.CountCreatedBetween(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("failed to count polls: %w", err)
	}
	return count, nil
}

func normalizeOptions(raw []string) ([]string, error) {
	options := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, opt := range raw {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			continue
		}
		if _, dup := seen[opt]; dup {
			return nil, fmt.Errorf("%w: duplicate option %q", domain.ErrInvalidInput, opt)
		}
		seen[opt] = struct{}{}
		options = append(options, opt)
	}

	if len(options) < 2 {
		return nil, fmt.Errorf("%w: at least two valid options are required", domain.ErrInvalidInput)
	}
	return options, nil
}

func applyDraft(poll *domain.Poll, input ports.DraftPollInput) {
	if input.Title != nil {
		poll.Title = *input.Title
	}
	if input.Description != nil {
		poll.Description = *input.Description
	}
	if input.Options != nil {
		poll.Options = input.Options
	}
	if input.StartDate != nil {
		startDate := *input.StartDate
		poll.StartDate = &startDate
	}
	if input.EndDate != nil {
		endDate := *input.EndDate
		poll.EndDate = &endDate
	}
	if input.Tags != nil {
		poll.Tags = input.Tags
	}
	if input.IsAnonymous != nil {
		poll.IsAnonymous = *input.IsAnonymous
	}
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
