package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/ports"
)

type Handlers struct {
	Poll *PollHandler
	Vote *VoteHandler
	User *UserHandler
	Auth *AuthHandler
}

func NewHandler(h Handlers, authService ports.AuthService, logger *logrus.Logger, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/nonce", h.Auth.Nonce)
		r.Post("/verify", h.Auth.Verify)
		r.Post("/refresh", h.Auth.Refresh)
		r.Post("/logout", h.Auth.Logout)
	})

	auth := Authenticator(authService)

	r.Route("/poll", func(r chi.Router) {
		r.Get("/count", h.Poll.CountPolls)

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Post("/", h.Poll.CreatePoll)
			r.Get("/", h.Poll.ListPolls)
			r.Patch("/draft", h.Poll.PatchDraft)
			r.Get("/draft", h.Poll.GetDraft)
			r.Get("/{id}", h.Poll.GetPoll)
			r.Get("/{id}/votes", h.Poll.GetPollVotes)
			r.Delete("/{id}", h.Poll.DeletePoll)
			r.Post("/{id}/vote", h.Vote.VoteOnPoll)
		})
	})

	r.Route("/vote", func(r chi.Router) {
		r.Get("/count", h.Vote.CountVotes)
		r.With(auth).Patch("/{voteID}", h.Vote.EditVote)
	})

	r.Route("/user", func(r chi.Router) {
		r.Use(auth)
		r.Get("/data", h.User.GetUserData)
		r.Get("/activities", h.User.GetActivities)
		r.Get("/votes", h.User.GetUserVote)
	})

	return r
}
