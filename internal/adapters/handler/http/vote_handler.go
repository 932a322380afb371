package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/domain"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/ports"
)

type VoteHandler struct {
	service ports.VoteService
}

func NewVoteHandler(service ports.VoteService) *VoteHandler {
	return &VoteHandler{
		service: service,
	}
}

type voteRequest struct {
	WeightDistribution domain.Weights `json:"weightDistribution"`
}

func (h *VoteHandler) VoteOnPoll(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		respondError(w, r, errUnauthenticated)
		return
	}

	pollID, err := urlID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	vote, err := h.service.Create(r.Context(), claims.WorldID, pollID, req.WeightDistribution)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, vote)
}

func (h *VoteHandler) EditVote(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		respondError(w, r, errUnauthenticated)
		return
	}

	voteID, err := uuid.Parse(chi.URLParam(r, "voteID"))
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: invalid vote id", domain.ErrInvalidInput))
		return
	}

	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	vote, err := h.service.Edit(r.Context(), claims.WorldID, voteID, req.WeightDistribution)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.JSON(w, r, vote)
}

func (h *VoteHandler) CountVotes(w http.ResponseWriter, r *http.Request) {
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
