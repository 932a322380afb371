package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/domain"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/ports"
)

const dateLayout = "2006-01-02"

func decodeJSON(r *http.Request, v interface{}) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput)
	}
	return nil
}

func urlID(r *http.Request, name string) (int64, error) {
	return parseID(name, chi.URLParam(r, name))
}

func parseID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", domain.ErrInvalidInput, name)
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, name)
	}
	return v, nil
}

// queryBool returns nil when the parameter is absent.
func queryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, name)
	}
	return &v, nil
}

// dateRange reads the optional from and to parameters. A to given as a
// plain date includes that whole day.
func dateRange(r *http.Request) (ports.DateRange, error) {
	var dr ports.DateRange

	from, _, err := queryTime(r, "from")
	if err != nil {
		return dr, err
	}
	to, dateOnly, err := queryTime(r, "to")
	if err != nil {
		return dr, err
	}
	if to != nil && dateOnly {
		end := to.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}
	if from != nil && to != nil && to.Before(*from) {
		return dr, fmt.Errorf("%w: to must not be before from", domain.ErrInvalidInput)
	}

	dr.From, dr.To = from, to
	return dr, nil
}

func queryTime(r *http.Request, name string) (*time.Time, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, false, nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return &t, true, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s must be a date (YYYY-MM-DD) or RFC3339 timestamp", domain.ErrInvalidInput, name)
	}
	return &t, false, nil
}
