package services

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/domain"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/ports"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.Out = io.Discard
	return logger
}

// memStore is an in-memory implementation of every repository port.
type memStore struct {
	mu sync.Mutex

	users   map[int64]*domain.User
	polls   map[int64]*domain.Poll
	votes   map[uuid.UUID]*domain.Vote
	actions []domain.UserAction
	tokens  map[string]*domain.RefreshToken
	nonces  map[string]time.Time

	nextUserID int64
	nextPollID int64
	clock      time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:  map[int64]*domain.User{},
		polls:  map[int64]*domain.Poll{},
		votes:  map[uuid.UUID]*domain.Vote{},
		tokens: map[string]*domain.RefreshToken{},
		nonces: map[string]time.Time{},
		clock:  testNow,
	}
}

// tick returns a strictly increasing creation time.
func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) addUser(worldID string) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUserID++
	u := &domain.User{ID: s.nextUserID, WorldID: worldID, Name: "user " + worldID, CreatedAt: s.tick()}
	s.users[u.ID] = u
	return u
}

// addPublished stores a published poll running over [start, end) relative to testNow.
func (s *memStore) addPublished(authorID int64, title string, start, end time.Duration) *domain.Poll {
	startDate, endDate := testNow.Add(start), testNow.Add(end)
	p := &domain.Poll{
		AuthorUserID: authorID,
		Title:        title,
		Options:      []string{"A", "B"},
		Tags:         []string{},
		StartDate:    &startDate,
		EndDate:      &endDate,
		Status:       domain.PollStatusPublished,
	}
	_ = (&memPolls{s}).Create(context.Background(), p)
	_ = (&memActions{s}).Append(context.Background(), &domain.UserAction{UserID: authorID, PollID: p.ID, Type: domain.ActionCreated})
	return p
}

func (s *memStore) addVote(userID, pollID int64, weights domain.Weights) {
	v := &domain.Vote{ID: uuid.New(), UserID: userID, PollID: pollID, VotingPower: decimal.NewFromInt(100), WeightDistribution: weights}
	_ = (&memVotes{s}).Create(context.Background(), v)
	_ = (&memActions{s}).Append(context.Background(), &domain.UserAction{UserID: userID, PollID: pollID, Type: domain.ActionVoted})
}

type fakeTx struct{}

func (fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (fakeTx) WithinReadTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memUsers struct{ s *memStore }

func (r *memUsers) GetByWorldID(ctx context.Context, worldID string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.WorldID == worldID {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memUsers) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (r *memUsers) Upsert(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.WorldID == user.WorldID {
			u.Name = user.Name
			if user.ProfilePicture != nil {
				u.ProfilePicture = user.ProfilePicture
			}
			*user = *u
			return nil
		}
	}
	r.s.nextUserID++
	user.ID = r.s.nextUserID
	user.CreatedAt = r.s.tick()
	c := *user
	r.s.users[user.ID] = &c
	return nil
}

func (r *memUsers) SetActionCount(ctx context.Context, userID int64, action domain.ActionType, count int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	switch action {
	case domain.ActionCreated:
		u.PollsCreatedCount = count
	case domain.ActionVoted:
		u.PollsParticipatedCount = count
	}
	return nil
}

func (r *memUsers) ListIDs(ctx context.Context) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := make([]int64, 0, len(r.s.users))
	for id := range r.s.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type memPolls struct{ s *memStore }

func (r *memPolls) Create(ctx context.Context, poll *domain.Poll) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextPollID++
	poll.ID = r.s.nextPollID
	poll.CreatedAt = r.s.tick()
	c := *poll
	r.s.polls[poll.ID] = &c
	return nil
}

func (r *memPolls) Update(ctx context.Context, poll *domain.Poll) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.polls[poll.ID]; !ok {
		return domain.ErrPollNotFound
	}
	c := *poll
	r.s.polls[poll.ID] = &c
	return nil
}

func (r *memPolls) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.polls[id]; !ok {
		return domain.ErrPollNotFound
	}
	delete(r.s.polls, id)
	for vid, v := range r.s.votes {
		if v.PollID == id {
			delete(r.s.votes, vid)
		}
	}
	kept := r.s.actions[:0]
	for _, a := range r.s.actions {
		if a.PollID != id {
			kept = append(kept, a)
		}
	}
	r.s.actions = kept
	return nil
}

func (r *memPolls) GetByID(ctx context.Context, id int64) (*domain.Poll, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.polls[id]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	c := *p
	return &c, nil
}

func (r *memPolls) DraftsByAuthor(ctx context.Context, authorID int64) ([]*domain.Poll, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var drafts []*domain.Poll
	for _, p := range r.s.polls {
		if p.AuthorUserID == authorID && p.Status == domain.PollStatusDraft {
			c := *p
			drafts = append(drafts, &c)
		}
	}
	sort.Slice(drafts, func(i, j int) bool { return drafts[i].CreatedAt.After(drafts[j].CreatedAt) })
	return drafts, nil
}

func (r *memPolls) DeleteDrafts(ctx context.Context, authorID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.polls {
		if p.AuthorUserID == authorID && p.Status == domain.PollStatusDraft {
			delete(r.s.polls, id)
		}
	}
	return nil
}

func (r *memPolls) SetParticipantCount(ctx context.Context, pollID int64, count int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.polls[pollID]; ok {
		p.ParticipantCount = count
	}
	return nil
}

func inWindow(p *domain.Poll, w ports.PollWindow, now time.Time) bool {
	if w == ports.WindowAny {
		return true
	}
	if p.StartDate == nil || p.EndDate == nil {
		return false
	}
	active := !p.StartDate.After(now) && p.EndDate.After(now)
	if w == ports.WindowActive {
		return active
	}
	return !active
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func matches(p *domain.Poll, c ports.PollCriteria) bool {
	if c.Status != "" && p.Status != c.Status {
		return false
	}
	if !inWindow(p, c.Window, c.Now) || !inWindow(p, c.Bucket, c.Now) {
		return false
	}
	if c.AuthoredOrVoted {
		if p.AuthorUserID != c.AuthorID && !containsID(c.VotedIDs, p.ID) {
			return false
		}
	} else {
		if c.AuthorID != 0 && p.AuthorUserID != c.AuthorID {
			return false
		}
		if c.VotedIDs != nil && !containsID(c.VotedIDs, p.ID) {
			return false
		}
	}
	if c.SearchIDs != nil && !containsID(c.SearchIDs, p.ID) {
		return false
	}
	return true
}

func sortKey(p *domain.Poll, by domain.PollSortBy) int64 {
	switch by {
	case domain.SortByCreationDate:
		return p.CreatedAt.UnixNano()
	case domain.SortByParticipantCount:
		return int64(p.ParticipantCount)
	}
	return p.EndDate.UnixNano()
}

func (r *memPolls) Find(ctx context.Context, c ports.PollCriteria, order ports.PollOrder, limit, offset int, viewerID int64) ([]domain.PollView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var found []*domain.Poll
	for _, p := range r.s.polls {
		if matches(p, c) {
			found = append(found, p)
		}
	}
	sort.Slice(found, func(i, j int) bool {
		a, b := found[i], found[j]
		ka, kb := sortKey(a, order.SortBy), sortKey(b, order.SortBy)
		if ka == kb {
			ka, kb = a.ID, b.ID
		}
		if order.Desc {
			return ka > kb
		}
		return ka < kb
	})

	views := []domain.PollView{}
	for i := offset; i < len(found) && i < offset+limit; i++ {
		view := domain.PollView{Poll: *found[i]}
		for _, v := range r.s.votes {
			if v.PollID == found[i].ID && v.UserID == viewerID {
				view.HasVoted = true
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func (r *memPolls) Count(ctx context.Context, c ports.PollCriteria) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, p := range r.s.polls {
		if matches(p, c) {
			n++
		}
	}
	return n, nil
}

func (r *memPolls) Search(ctx context.Context, query string) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := []int64{}
	for _, p := range r.s.polls {
		if p.Status == domain.PollStatusPublished && strings.Contains(strings.ToLower(p.Title), strings.ToLower(query)) {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

func (r *memPolls) CountCreatedBetween(ctx context.Context, dr ports.DateRange) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, p := range r.s.polls {
		if inRange(p.CreatedAt, dr) {
			n++
		}
	}
	return n, nil
}

func (r *memPolls) ListIDs(ctx context.Context) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := make([]int64, 0, len(r.s.polls))
	for id := range r.s.polls {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func inRange(t time.Time, dr ports.DateRange) bool {
	if dr.From != nil && t.Before(*dr.From) {
		return false
	}
	if dr.To != nil && t.After(*dr.To) {
		return false
	}
	return true
}

type memVotes struct{ s *memStore }

func (r *memVotes) Create(ctx context.Context, vote *domain.Vote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.votes {
		if v.UserID == vote.UserID && v.PollID == vote.PollID {
			return domain.ErrAlreadyVoted
		}
	}
	vote.CreatedAt = r.s.tick()
	vote.UpdatedAt = vote.CreatedAt
	c := *vote
	r.s.votes[vote.ID] = &c
	return nil
}

func (r *memVotes) Update(ctx context.Context, vote *domain.Vote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.votes[vote.ID]; !ok {
		return domain.ErrVoteNotFound
	}
	vote.UpdatedAt = r.s.tick()
	c := *vote
	r.s.votes[vote.ID] = &c
	return nil
}

func (r *memVotes) GetByID(ctx context.Context, id uuid.UUID) (*domain.Vote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.votes[id]
	if !ok {
		return nil, domain.ErrVoteNotFound
	}
	c := *v
	return &c, nil
}

func (r *memVotes) GetByUserAndPoll(ctx context.Context, userID, pollID int64) (*domain.Vote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.votes {
		if v.UserID == userID && v.PollID == pollID {
			c := *v
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memVotes) PollIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []int64
	for _, v := range r.s.votes {
		if v.UserID == userID {
			ids = append(ids, v.PollID)
		}
	}
	return ids, nil
}

func (r *memVotes) WeightsByPoll(ctx context.Context, pollID int64) ([]domain.Weights, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []domain.Weights
	for _, v := range r.s.votes {
		if v.PollID == pollID {
			all = append(all, v.WeightDistribution)
		}
	}
	return all, nil
}

func (r *memVotes) ListByPoll(ctx context.Context, pollID int64) ([]domain.PollVoteEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var entries []domain.PollVoteEntry
	for _, v := range r.s.votes {
		if v.PollID == pollID {
			entries = append(entries, domain.PollVoteEntry{
				Username:         r.s.users[v.UserID].Name,
				QuadraticWeights: v.WeightDistribution,
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Username < entries[j].Username })
	return entries, nil
}

type memActions struct{ s *memStore }

func (r *memActions) Append(ctx context.Context, action *domain.UserAction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	action.ID = uuid.New()
	action.CreatedAt = r.s.tick()
	r.s.actions = append(r.s.actions, *action)
	return nil
}

func (r *memActions) CountByUser(ctx context.Context, userID int64, action domain.ActionType) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, a := range r.s.actions {
		if a.UserID == userID && a.Type == action {
			n++
		}
	}
	return n, nil
}

func (r *memActions) CountByPoll(ctx context.Context, pollID int64, action domain.ActionType) (int, error) {
	ids, err := r.DistinctUsers(ctx, pollID, action)
	return len(ids), err
}

func (r *memActions) DistinctUsers(ctx context.Context, pollID int64, action domain.ActionType) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []int64
	for _, a := range r.s.actions {
		if a.PollID == pollID && a.Type == action && !containsID(ids, a.UserID) {
			ids = append(ids, a.UserID)
		}
	}
	return ids, nil
}

func (r *memActions) CountBetween(ctx context.Context, action domain.ActionType, dr ports.DateRange) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, a := range r.s.actions {
		if a.Type == action && inRange(a.CreatedAt, dr) {
			n++
		}
	}
	return n, nil
}

func (r *memActions) ListActivities(ctx context.Context, userID int64, filter domain.ActivityFilter, now time.Time) ([]domain.Activity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Activity
	for _, a := range r.s.actions {
		p, ok := r.s.polls[a.PollID]
		if a.UserID != userID || !ok {
			continue
		}
		active := p.EndDate != nil && !p.EndDate.Before(now)
		switch filter {
		case domain.ActivityActive:
			if !active {
				continue
			}
		case domain.ActivityInactive:
			if active {
				continue
			}
		case domain.ActivityCreated:
			if a.Type != domain.ActionCreated {
				continue
			}
		case domain.ActivityParticipated:
			if a.Type != domain.ActionVoted {
				continue
			}
		}
		out = append(out, domain.Activity{
			Type:     strings.ToLower(string(a.Type)),
			PollID:   p.ID,
			EndDate:  p.EndDate,
			IsActive: active,
		})
	}
	return out, nil
}

type memAuth struct{ s *memStore }

func (r *memAuth) StoreRefreshToken(ctx context.Context, token *domain.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	token.ID = uuid.New()
	token.CreatedAt = r.s.tick()
	c := *token
	r.s.tokens[token.TokenHash] = &c
	return nil
}

func (r *memAuth) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[tokenHash]
	if !ok {
		return nil, nil
	}
	c := *t
	return &c, nil
}

func (r *memAuth) RevokeRefreshToken(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tokens {
		if t.ID == id {
			t.Revoked = true
		}
	}
	return nil
}

func (r *memAuth) StoreNonce(ctx context.Context, nonce string, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nonces[nonce] = expiresAt
	return nil
}

func (r *memAuth) ConsumeNonce(ctx context.Context, nonce string, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	expiresAt, ok := r.s.nonces[nonce]
	delete(r.s.nonces, nonce)
	return ok && now.Before(expiresAt), nil
}

// recordingCounters wraps a CounterService and records every recount.
type recordingCounters struct {
	next         ports.CounterService
	users        map[int64][]domain.ActionType
	participants []int64
}

func newRecordingCounters(next ports.CounterService) *recordingCounters {
	return &recordingCounters{next: next, users: map[int64][]domain.ActionType{}}
}

func (c *recordingCounters) Recount(ctx context.Context, userID int64, action domain.ActionType) error {
	c.users[userID] = append(c.users[userID], action)
	return c.next.Recount(ctx, userID, action)
}

func (c *recordingCounters) RecountParticipants(ctx context.Context, pollID int64) error {
	c.participants = append(c.participants, pollID)
	return c.next.RecountParticipants(ctx, pollID)
}

func (c *recordingCounters) reset() {
	c.users = map[int64][]domain.ActionType{}
	c.participants = nil
}

// fixture wires services against a shared memStore.
type fixture struct {
	store    *memStore
	users    *memUsers
	polls    *memPolls
	votes    *memVotes
	actions  *memActions
	counters *recordingCounters
}

func newFixture() *fixture {
	s := newMemStore()
	f := &fixture{
		store:   s,
		users:   &memUsers{s},
		polls:   &memPolls{s},
		votes:   &memVotes{s},
		actions: &memActions{s},
	}
	f.counters = newRecordingCounters(NewCounterService(f.actions, f.users, f.polls))
	return f
}

func (f *fixture) pollService() *pollService {
	svc := NewPollService(fakeTx{}, f.polls, f.votes, f.users, f.actions, f.counters, quietLogger()).(*pollService)
	svc.now = func() time.Time { return testNow }
	return svc
}

func (f *fixture) voteService(votingPower int64) *voteService {
	validator := domain.NewWeightValidator(decimal.NewFromInt(votingPower))
	svc := NewVoteService(fakeTx{}, f.polls, f.votes, f.users, f.actions, f.counters, validator, quietLogger()).(*voteService)
	svc.now = func() time.Time { return testNow }
	return svc
}

func (f *fixture) userService() *UserService {
	svc := NewUserService(f.users, f.actions, f.polls, f.votes).(*UserService)
	svc.now = func() time.Time { return testNow }
	return svc
}

func dist(kv ...interface{}) domain.Weights {
	out := domain.Weights{}
	for i := 0; i < len(kv); i += 2 {
		out[kv[i].(string)] = decimal.NewFromInt(int64(kv[i+1].(int)))
	}
	return out
}

func (f *fixture) user(id int64) *domain.User {
	u, _ := f.users.GetByID(context.Background(), id)
	return u
}

func (f *fixture) poll(id int64) *domain.Poll {
	p, _ := f.polls.GetByID(context.Background(), id)
	return p
}
