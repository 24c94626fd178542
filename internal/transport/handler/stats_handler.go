package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/niklvrr/ReviewRoom/internal/transport/dto/request"
	"github.com/niklvrr/ReviewRoom/internal/transport/dto/response"
	"github.com/niklvrr/ReviewRoom/internal/transport/middleware"
	"go.uber.org/zap"
)

type StatsService interface {
	Stats(ctx context.Context, req *request.RoomStatsRequest) (*response.RoomStatsResponse, error)
}

type StatsHandler struct {
	svc StatsService
	log *zap.Logger
}

func NewStatsHandler(svc StatsService, log *zap.Logger) *StatsHandler {
	return &StatsHandler{
		svc: svc,
		log: log,
	}
}

func (h *StatsHandler) GetRoomStats(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	h.log.Info("getRoomStats request received",
		zap.String("room_id", slug),
	)

	resp, err := h.svc.Stats(r.Context(), &request.RoomStatsRequest{
		Slug:  slug,
		Actor: middleware.UserEmail(r.Context()),
	})
	if err != nil {
		h.log.Error("failed to get room statistics",
			zap.String("room_id", slug),
			zap.Error(err),
		)
		fail(w, err)
		return
	}

	h.log.Info("room statistics retrieved",
		zap.String("room_id", slug),
		zap.Int("active", resp.Active),
		zap.Int("reviewers_count", len(resp.Reviewers)),
	)

	writeJSON(w, http.StatusOK, resp)
}
