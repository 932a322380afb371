package integration

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/quadratic-poll/internal/core/domain"
)

// TestPollFlow covers the poll lifecycle: draft -> publish -> details -> delete.
func TestPollFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	authorID, token := app.createUserAndToken(t, "0xAuthor")

	// Step 1: Save a draft
	resp := app.do(t, http.MethodPatch, "/poll/draft", token, map[string]interface{}{"title": "Draft title"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var draft domain.Poll
	decode(t, resp, &draft)
	assert.Equal(t, domain.PollStatusDraft, draft.Status)

	resp = app.do(t, http.MethodGet, "/poll/draft", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Step 2: Publish, which replaces the draft
	start := time.Now().Add(time.Minute).UTC()
	resp = app.do(t, http.MethodPost, "/poll", token, map[string]interface{}{
		"title":       "Team lunch",
		"description": "Where should we eat on Friday?",
		"options":     []string{"Pizza", "Sushi", "Tacos"},
		"startDate":   start,
		"endDate":     start.Add(24 * time.Hour),
		"tags":        []string{"food"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var poll domain.Poll
	decode(t, resp, &poll)
	assert.Equal(t, domain.PollStatusPublished, poll.Status)
	assert.Equal(t, authorID, poll.AuthorUserID)

	resp = app.do(t, http.MethodGet, "/poll/draft", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	var createdCount int
	require.NoError(t, app.DB.QueryRow("SELECT polls_created_count FROM users WHERE id = $1", authorID).Scan(&createdCount))
	assert.Equal(t, 1, createdCount)

	// Step 3: Details before anyone voted
	resp = app.do(t, http.MethodGet, fmt.Sprintf("/poll/%d", poll.ID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var details struct {
		Poll              domain.Poll        `json:"poll"`
		IsActive          bool               `json:"isActive"`
		OptionsTotalVotes map[string]float64 `json:"optionsTotalVotes"`
		TotalVotes        float64            `json:"totalVotes"`
	}
	decode(t, resp, &details)
	assert.False(t, details.IsActive)
	assert.Equal(t, map[string]float64{"Pizza": 0, "Sushi": 0, "Tacos": 0}, details.OptionsTotalVotes)
	require.NotNil(t, details.Poll.Author)
	assert.Equal(t, "0xAuthor", details.Poll.Author.WorldID)

	// Step 4: Someone else cannot delete it
	_, otherToken := app.createUserAndToken(t, "0xOther")
	resp = app.do(t, http.MethodDelete, fmt.Sprintf("/poll/%d", poll.ID), otherToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Step 5: Delete
	resp = app.do(t, http.MethodDelete, fmt.Sprintf("/poll/%d", poll.ID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	require.NoError(t, app.DB.QueryRow("SELECT polls_created_count FROM users WHERE id = $1", authorID).Scan(&createdCount))
	assert.Equal(t, 0, createdCount)

	resp = app.do(t, http.MethodGet, fmt.Sprintf("/poll/%d", poll.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestCreatePoll_Validation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	_, token := app.createUserAndToken(t, "0xAuthor")
	start := time.Now().Add(time.Hour)

	resp := app.do(t, http.MethodPost, "/poll", token, map[string]interface{}{
		"title":     "Only one option",
		"options":   []string{"Pizza", ""},
		"startDate": start,
		"endDate":   start.Add(time.Hour),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = app.do(t, http.MethodPost, "/poll", token, map[string]interface{}{
		"title":     "Already started",
		"options":   []string{"Pizza", "Sushi"},
		"startDate": time.Now().Add(-time.Hour),
		"endDate":   start,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = app.do(t, http.MethodPost, "/poll", "", map[string]interface{}{"title": "anonymous"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

// TestListPolls checks that active polls come first and pages cross the
// boundary between active and inactive polls.
func TestListPolls(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	_, token := app.createUserAndToken(t, "0xAuthor")

	closesLater := app.createPoll(t, "0xAuthor", "Budget review", 3*time.Hour)
	closesSoon := app.createPoll(t, "0xAuthor", "Office plants", time.Hour)
	closed := app.createPoll(t, "0xAuthor", "Old budget", -30*time.Minute)
	closedLongAgo := app.createPoll(t, "0xAuthor", "Ancient history", -50*time.Minute)

	var ids []int64
	for page := 1; page <= 2; page++ {
		resp := app.do(t, http.MethodGet, fmt.Sprintf("/poll?page=%d&limit=3&sortBy=endDate&sortOrder=asc", page), token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var result domain.PollPage
		decode(t, resp, &result)
		assert.Equal(t, 4, result.Total)
		for _, p := range result.Polls {
			ids = append(ids, p.ID)
		}
	}
	assert.Equal(t, []int64{closesSoon, closesLater, closedLongAgo, closed}, ids)

	resp := app.do(t, http.MethodGet, "/poll?sortBy=closestEndDate", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var closest domain.PollPage
	decode(t, resp, &closest)
	require.Len(t, closest.Polls, 4)
	assert.Equal(t, closesSoon, closest.Polls[0].ID)
	assert.Equal(t, closed, closest.Polls[2].ID)

	resp = app.do(t, http.MethodGet, "/poll?isActive=false", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var inactive domain.PollPage
	decode(t, resp, &inactive)
	assert.Equal(t, 2, inactive.Total)

	resp = app.do(t, http.MethodGet, "/poll?search=budget", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var found domain.PollPage
	decode(t, resp, &found)
	assert.Equal(t, 2, found.Total)
	for _, p := range found.Polls {
		assert.Contains(t, []int64{closesLater, closed}, p.ID)
	}

	resp = app.do(t, http.MethodGet, "/poll?limit=500", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestCountPolls(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	app.createUserAndToken(t, "0xAuthor")
	app.createPoll(t, "0xAuthor", "One", time.Hour)
	app.createPoll(t, "0xAuthor", "Two", time.Hour)

	resp := app.do(t, http.MethodGet, "/poll/count", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var count struct{ Count int }
	decode(t, resp, &count)
	assert.Equal(t, 2, count.Count)

	today := time.Now().UTC().Format("2006-01-02")
	resp = app.do(t, http.MethodGet, "/poll/count?from="+today+"&to="+today, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &count)
	assert.Equal(t, 2, count.Count)
}
