package http

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/domain"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/ports"
)

type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

type activitiesResponse struct {
	UserActions []domain.Activity `json:"userActions"`
}

func (h *UserHandler) GetUserData(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		respondError(w, r, errUnauthenticated)
		return
	}

	data, err := h.service.GetUserData(r.Context(), claims.WorldID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.JSON(w, r, data)
}

func (h *UserHandler) GetActivities(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		respondError(w, r, errUnauthenticated)
		return
	}

	filter := domain.ActivityFilter(r.URL.Query().Get("filter"))
	activities, err := h.service.GetActivities(r.Context(), claims.WorldID, filter)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.JSON(w, r, activitiesResponse{UserActions: activities})
}

func (h *UserHandler) GetUserVote(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		respondError(w, r, errUnauthenticated)
		return
	}

	pollID, err := parseID("pollId", r.URL.Query().Get("pollId"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	vote, err := h.service.GetUserVote(r.Context(), claims.WorldID, pollID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.JSON(w, r, vote)
}
