package transport

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/niklvrr/ReviewRoom/internal/transport/handler"
	transportMiddleware "github.com/niklvrr/ReviewRoom/internal/transport/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handlers struct {
	Room   *handler.RoomHandler
	Review *handler.ReviewHandler
	Chat   *handler.ChatHandler
	Stats  *handler.StatsHandler
	Health *handler.HealthHandler
}

func NewRouter(h Handlers, requestTimeout time.Duration, log *zap.Logger) *chi.Mux {
	router := chi.NewRouter()

	// Recovery должен быть первым для обработки паник во всех middleware
	router.Use(transportMiddleware.Recovery(log))

	// RequestID для трейсинга запросов
	router.Use(middleware.RequestID)

	router.Use(transportMiddleware.Logging(log))
	router.Use(transportMiddleware.Timeout(requestTimeout, log))
	router.Use(transportMiddleware.Metrics)

	// Email пользователя от OAuth-прокси
	router.Use(transportMiddleware.Identity)

	// Эндпоинт для Prometheus метрик
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/health", h.Health.HealthCheck)

	// Прокси к Google Chat
	router.Post("/notify", h.Chat.Notify)
	router.Post("/google-chat/members", h.Chat.Members)

	router.Route("/rooms", func(r chi.Router) {
		r.Post("/", h.Room.CreateRoom)
		r.Get("/", h.Room.ListRooms)

		r.Route("/{slug}", func(r chi.Router) {
			r.Get("/", h.Room.GetRoom)
			r.Patch("/", h.Room.UpdateRoom)
			r.Post("/reviews", h.Review.CreateReview)
			r.Get("/reviews", h.Review.ListReviews)
			r.Post("/summary", h.Review.Summary)
			r.Get("/stats", h.Stats.GetRoomStats)
		})
	})

	router.Route("/reviews/{id}", func(r chi.Router) {
		r.Get("/", h.Review.GetReview)
		r.Post("/status", h.Review.SetStatus)
		r.Post("/reviewed", h.Review.MarkReviewed)
		r.Post("/updated", h.Review.MarkUpdated)
		r.Post("/ping", h.Review.Ping)
		r.Put("/assignees", h.Review.UpdateAssignees)
		r.Delete("/assignees/{email}", h.Review.RemoveReviewer)
	})

	return router
}
