package http

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/domain"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/ports"
)

type PollHandler struct {
	service ports.PollService
}

func NewPollHandler(service ports.PollService) *PollHandler {
	return &PollHandler{
		service: service,
	}
}

type createPollRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Options     []string  `json:"options"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Tags        []string  `json:"tags"`
	IsAnonymous bool      `json:"isAnonymous"`
}

type draftPollRequest struct {
	PollID      *int64     `json:"pollId"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Options     []string   `json:"options"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	Tags        []string   `json:"tags"`
	IsAnonymous *bool      `json:"isAnonymous"`
}

type countResponse struct {
	Count int `json:"count"`
}

func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		respondError(w, r, errUnauthenticated)
		return
	}

	var req createPollRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	poll, err := h.service.Create(r.Context(), claims.WorldID, ports.CreatePollInput{
		Title:       req.Title,
		Description: req.Description,
		Options:     req.Options,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Tags:        req.Tags,
		IsAnonymous: req.IsAnonymous,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, poll)
}

func (h *PollHandler) PatchDraft(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		respondError(w, r, errUnauthenticated)
		return
	}

	var req draftPollRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	poll, err := h.service.PatchDraft(r.Context(), claims.WorldID, ports.DraftPollInput{
		PollID:      req.PollID,
		Title:       req.Title,
		Description: req.Description,
		Options:     req.Options,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Tags:        req.Tags,
		IsAnonymous: req.IsAnonymous,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.JSON(w, r, poll)
}

func (h *PollHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		respondError(w, r, errUnauthenticated)
		return
	}

	poll, err := h.service.GetDraft(r.Context(), claims.WorldID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.JSON(w, r, poll)
}

func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		respondError(w, r, errUnauthenticated)
		return
	}

	params, err := listParams(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	page, err := h.service.ListPolls(r.Context(), claims.WorldID, params)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.JSON(w, r, page)
}

func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	details, err := h.service.GetDetails(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.JSON(w, r, details)
}

func (h *PollHandler) GetPollVotes(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	votes, err := h.service.GetVotes(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.JSON(w, r, votes)
}

func (h *PollHandler) DeletePoll(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		respondError(w, r, errUnauthenticated)
		return
	}

	id, err := urlID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	poll, err := h.service.Delete(r.Context(), claims.WorldID, id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.JSON(w, r, poll)
}

func (h *PollHandler) CountPolls(w http.ResponseWriter, r *http.Request) {
	dr, err := dateRange(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	count, err := h.service.Count(r.Context(), dr)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.JSON(w, r, countResponse{Count: count})
}

func listParams(r *http.Request) (domain.ListPollsParams, error) {
	var (
		params domain.ListPollsParams
		err    error
	)
	q := r.URL.Query()

	if params.Page, err = queryInt(r, "page"); err != nil {
		return params, err
	}
	if params.Limit, err = queryInt(r, "limit"); err != nil {
		return params, err
	}
	if params.IsActive, err = queryBool(r, "isActive"); err != nil {
		return params, err
	}

	voted, err := queryBool(r, "userVoted")
	if err != nil {
		return params, err
	}
	created, err := queryBool(r, "userCreated")
	if err != nil {
		return params, err
	}
	params.UserVoted = voted != nil && *voted
	params.UserCreated = created != nil && *created

	params.Search = q.Get("search")
	params.SortBy = domain.PollSortBy(q.Get("sortBy"))
	params.SortOrder = domain.SortOrder(q.Get("sortOrder"))
	return params, nil
}
