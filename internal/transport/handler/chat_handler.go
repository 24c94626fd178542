package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/niklvrr/ReviewRoom/internal/infrastructure/googlechat"
	"github.com/niklvrr/ReviewRoom/internal/transport/dto/request"
	"github.com/niklvrr/ReviewRoom/internal/transport/dto/response"
	"github.com/niklvrr/ReviewRoom/internal/usecase/service"
	"go.uber.org/zap"
)

type ChatService interface {
	Notify(ctx context.Context, req *request.NotifyRequest) (*response.NotifyResponse, error)
	Members(ctx context.Context, req *request.MembersRequest) (*response.MembersResponse, error)
}

// ProxyErrorResponse - формат ошибки /notify: статус и тело апстрима
type ProxyErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type ChatHandler struct {
	svc ChatService
	log *zap.Logger
}

func NewChatHandler(svc ChatService, log *zap.Logger) *ChatHandler {
	return &ChatHandler{
		svc: svc,
		log: log,
	}
}

func (h *ChatHandler) Notify(w http.ResponseWriter, r *http.Request) {
	var req request.NotifyRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, err)
		return
	}

	resp, err := h.svc.Notify(r.Context(), &req)
	if err != nil {
		if !errors.Is(err, service.ErrWebhookRejected) {
			fail(w, err)
			return
		}

		// Отдаем клиенту статус и тело ответа Google Chat
		statusCode := http.StatusBadGateway
		details := err.Error()
		var upstream *googlechat.UpstreamError
		if errors.As(err, &upstream) {
			statusCode = upstream.StatusCode
			details = upstream.Body
		}
		writeJSON(w, statusCode, ProxyErrorResponse{
			Error:   "failed to send message to google chat",
			Details: details,
		})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) Members(w http.ResponseWriter, r *http.Request) {
	var req request.MembersRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, err)
		return
	}

	resp, err := h.svc.Members(r.Context(), &req)
	if err != nil {
		h.log.Warn("google chat members request failed", zap.Error(err))
		fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
