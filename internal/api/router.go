package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hmcts/wa-case-event-handler-sub000/internal/api/middleware"
)

func NewRouter(h *Handlers, redisClient *redis.Client) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Synchronous fallback ingestion channel.
	r.With(middleware.Idempotency(redisClient)).Post("/events", h.PostEvent)

	// Operator surface.
	r.Get("/messages", h.ListMessages)
	r.Get("/messages/{id}", h.GetMessage)
	r.Post("/messages/{id}/replay", h.ReplayMessage)

	r.Handle("/metrics", promhttp.Handler())

	return r
}
