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

type RoomService interface {
	Create(ctx context.Context, req *request.CreateRoomRequest) (*response.RoomResponse, error)
	Get(ctx context.Context, req *request.GetRoomRequest) (*response.RoomResponse, error)
	Update(ctx context.Context, req *request.UpdateRoomRequest) (*response.RoomResponse, error)
	List(ctx context.Context, req *request.ListRoomsRequest) (*response.ListRoomsResponse, error)
}

type RoomHandler struct {
	svc RoomService
	log *zap.Logger
}

func NewRoomHandler(svc RoomService, log *zap.Logger) *RoomHandler {
	return &RoomHandler{
		svc: svc,
		log: log,
	}
}

func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	// Парсим json в модель CreateRoomRequest
	var req request.CreateRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, err)
		return
	}
	req.Actor = middleware.UserEmail(r.Context())

	// Вызов сервиса
	resp, err := h.svc.Create(r.Context(), &req)
	if err != nil {
		fail(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"room": resp,
	})
}

func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Get(r.Context(), &request.GetRoomRequest{
		Slug:  chi.URLParam(r, "slug"),
		Actor: middleware.UserEmail(r.Context()),
	})
	if err != nil {
		fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"room": resp,
	})
}

func (h *RoomHandler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	var req request.UpdateRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, err)
		return
	}
	req.Slug = chi.URLParam(r, "slug")
	req.Actor = middleware.UserEmail(r.Context())

	resp, err := h.svc.Update(r.Context(), &req)
	if err != nil {
		fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"room": resp,
	})
}

func (h *RoomHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.List(r.Context(), &request.ListRoomsRequest{
		Actor: middleware.UserEmail(r.Context()),
	})
	if err != nil {
		fail(w, err)
		return
	}

	h.log.Debug("rooms listed",
		zap.String("user", middleware.UserEmail(r.Context())),
		zap.Int("rooms", len(resp.Rooms)),
	)

	writeJSON(w, http.StatusOK, resp)
}
