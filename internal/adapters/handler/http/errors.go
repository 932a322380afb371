package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/domain"
)

var errUnauthenticated = errors.New("authentication required")

type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Timestamp  string `json:"timestamp"`
	Path       string `json:"path"`
	Message    string `json:"message"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrPollNotFound),
		errors.Is(err, domain.ErrVoteNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyVoted),
		errors.Is(err, domain.ErrInvalidWeights):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotPollAuthor),
		errors.Is(err, domain.ErrNotVoteOwner):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, errUnauthenticated),
		errors.Is(err, domain.ErrInvalidProof):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// respondError writes err as a JSON error body. Unmapped errors are logged
// and their details hidden from the client.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		entryFrom(r).WithError(err).Error("request failed")
		message = domain.ErrInternal.Error()
	}

	render.Status(r, status)
	render.JSON(w, r, errorResponse{
		StatusCode: status,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Path:       r.URL.Path,
		Message:    message,
	})
}
