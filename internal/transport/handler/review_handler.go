package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/niklvrr/ReviewRoom/internal/transport/dto/request"
	"github.com/niklvrr/ReviewRoom/internal/transport/dto/response"
	"github.com/niklvrr/ReviewRoom/internal/transport/middleware"
	"github.com/niklvrr/ReviewRoom/internal/usecase/service"
	"go.uber.org/zap"
)

type ReviewService interface {
	Create(ctx context.Context, req *request.CreateReviewRequest) (*response.ReviewResponse, error)
	Get(ctx context.Context, req *request.GetReviewRequest) (*response.ReviewResponse, error)
	List(ctx context.Context, req *request.ListReviewsRequest) (*response.ListReviewsResponse, error)
	SetStatus(ctx context.Context, req *request.SetStatusRequest) (*response.ReviewResponse, error)
	MarkReviewed(ctx context.Context, req *request.ReviewActionRequest) (*response.ReviewResponse, error)
	MarkUpdated(ctx context.Context, req *request.ReviewActionRequest) (*response.ReviewResponse, error)
	UpdateAssignees(ctx context.Context, req *request.UpdateAssigneesRequest) (*response.ReviewResponse, error)
	RemoveReviewer(ctx context.Context, req *request.RemoveReviewerRequest) (*response.RemoveReviewerResponse, error)
	Ping(ctx context.Context, req *request.ReviewActionRequest) (*response.ReviewResponse, error)
	Summary(ctx context.Context, req *request.SummaryRequest) (*response.SummaryResponse, error)
}

type ReviewHandler struct {
	svc ReviewService
	log *zap.Logger
}

func NewReviewHandler(svc ReviewService, log *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		svc: svc,
		log: log,
	}
}

func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	// Парсим json в модель CreateReviewRequest
	var req request.CreateReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, err)
		return
	}
	req.RoomSlug = chi.URLParam(r, "slug")
	req.Actor = middleware.UserEmail(r.Context())
	req.AccessToken = middleware.AccessToken(r.Context())

	// Вызов сервиса
	resp, err := h.svc.Create(r.Context(), &req)
	if err != nil {
		fail(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"review": resp,
	})
}

func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.List(r.Context(), &request.ListReviewsRequest{
		RoomSlug: chi.URLParam(r, "slug"),
		Status:   r.URL.Query().Get("status"),
		Actor:    middleware.UserEmail(r.Context()),
	})
	if err != nil {
		fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Get(r.Context(), &request.GetReviewRequest{
		ReviewId: chi.URLParam(r, "id"),
		Actor:    middleware.UserEmail(r.Context()),
	})
	if err != nil {
		fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"review": resp,
	})
}

func (h *ReviewHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req request.SetStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, err)
		return
	}
	req.ReviewId = chi.URLParam(r, "id")
	req.Actor = middleware.UserEmail(r.Context())
	req.AccessToken = middleware.AccessToken(r.Context())

	resp, err := h.svc.SetStatus(r.Context(), &req)
	if err != nil {
		fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"review": resp,
	})
}

func (h *ReviewHandler) MarkReviewed(w http.ResponseWriter, r *http.Request) {
	h.reviewAction(w, r, h.svc.MarkReviewed)
}

func (h *ReviewHandler) MarkUpdated(w http.ResponseWriter, r *http.Request) {
	h.reviewAction(w, r, h.svc.MarkUpdated)
}

func (h *ReviewHandler) Ping(w http.ResponseWriter, r *http.Request) {
	h.reviewAction(w, r, h.svc.Ping)
}

// reviewAction - общий обработчик действий без тела запроса
func (h *ReviewHandler) reviewAction(
	w http.ResponseWriter,
	r *http.Request,
	action func(ctx context.Context, req *request.ReviewActionRequest) (*response.ReviewResponse, error),
) {
	resp, err := action(r.Context(), &request.ReviewActionRequest{
		ReviewId:    chi.URLParam(r, "id"),
		Actor:       middleware.UserEmail(r.Context()),
		AccessToken: middleware.AccessToken(r.Context()),
	})
	if err != nil {
		fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"review": resp,
	})
}

func (h *ReviewHandler) UpdateAssignees(w http.ResponseWriter, r *http.Request) {
	var req request.UpdateAssigneesRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, err)
		return
	}
	req.ReviewId = chi.URLParam(r, "id")
	req.Actor = middleware.UserEmail(r.Context())
	req.AccessToken = middleware.AccessToken(r.Context())

	resp, err := h.svc.UpdateAssignees(r.Context(), &req)
	if err != nil {
		fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"review": resp,
	})
}

func (h *ReviewHandler) RemoveReviewer(w http.ResponseWriter, r *http.Request) {
	// Клиенты кодируют @ как %40
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil {
		fail(w, service.WrapError(service.ErrInvalidInput, err))
		return
	}

	resp, err := h.svc.RemoveReviewer(r.Context(), &request.RemoveReviewerRequest{
		ReviewId:    chi.URLParam(r, "id"),
		Email:       email,
		Actor:       middleware.UserEmail(r.Context()),
		AccessToken: middleware.AccessToken(r.Context()),
	})
	if err != nil {
		fail(w, err)
		return
	}

	if resp.AutoDone {
		h.log.Info("last reviewer removed, review completed",
			zap.String("review_id", resp.Review.Id),
		)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *ReviewHandler) Summary(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Summary(r.Context(), &request.SummaryRequest{
		Slug:        chi.URLParam(r, "slug"),
		Actor:       middleware.UserEmail(r.Context()),
		AccessToken: middleware.AccessToken(r.Context()),
	})
	if err != nil {
		fail(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, resp)
}
