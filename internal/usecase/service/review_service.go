package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/niklvrr/ReviewRoom/internal/domain"
	"github.com/niklvrr/ReviewRoom/internal/infrastructure/models/dto"
	"github.com/niklvrr/ReviewRoom/internal/infrastructure/models/result"
	"github.com/niklvrr/ReviewRoom/internal/infrastructure/repository"
	"github.com/niklvrr/ReviewRoom/internal/notification"
	"github.com/niklvrr/ReviewRoom/internal/transport/dto/request"
	"github.com/niklvrr/ReviewRoom/internal/transport/dto/response"
	"go.uber.org/zap"
)

var (
	createReviewError    = errors.New("create review error")
	getReviewError       = errors.New("get review error")
	listReviewsError     = errors.New("list reviews error")
	setStatusError       = errors.New("set review status error")
	markReviewedError    = errors.New("mark reviewed error")
	markUpdatedError     = errors.New("mark updated error")
	updateAssigneesError = errors.New("update assignees error")
	removeReviewerError  = errors.New("remove reviewer error")
	roomStatsError       = errors.New("room stats error")
)

// Интерфейс репозитория
type ReviewRepository interface {
	Create(ctx context.Context, d *dto.CreateReviewDTO) (*domain.Review, error)
	Get(ctx context.Context, id string) (*domain.Review, error)
	List(ctx context.Context, d *dto.ListReviewsDTO) ([]*domain.Review, error)
	SetStatus(ctx context.Context, d *dto.SetStatusDTO) (*result.SetStatusResult, error)
	MarkReviewed(ctx context.Context, d *dto.MarkReviewedDTO) (*result.MarkReviewedResult, error)
	MarkUpdated(ctx context.Context, d *dto.MarkUpdatedDTO) (*domain.Review, error)
	UpdateAssignees(ctx context.Context, d *dto.UpdateAssigneesDTO) (*result.UpdateAssigneesResult, error)
	RemoveReviewer(ctx context.Context, d *dto.RemoveReviewerDTO) (*result.RemoveReviewerResult, error)
	Stats(ctx context.Context, d *dto.RoomStatsDTO) (*result.RoomStatsResult, error)
}

// Notifier отправляет событие в чат комнаты в фоне, ошибок не возвращает
type Notifier interface {
	Notify(ctx context.Context, ev notification.Event)
}

type ReviewService struct {
	repo     ReviewRepository
	rooms    RoomReader
	notifier Notifier
	now      func() time.Time
	log      *zap.Logger
}

func NewReviewService(repo ReviewRepository, rooms RoomReader, notifier Notifier, log *zap.Logger) *ReviewService {
	return &ReviewService{
		repo:     repo,
		rooms:    rooms,
		notifier: notifier,
		now:      time.Now,
		log:      log,
	}
}

// WithClock подменяет часы для флагов "зависших" ревью
func (s *ReviewService) WithClock(now func() time.Time) *ReviewService {
	s.now = now
	return s
}

func (s *ReviewService) Create(ctx context.Context, req *request.CreateReviewRequest) (*response.ReviewResponse, error) {
	actor, err := requireActor(req.Actor)
	if err != nil {
		return nil, err
	}

	s.log.Info("createReview request accepted",
		zap.String("room_id", req.RoomSlug),
		zap.String("actor", actor),
		zap.Int("assignees", len(req.Assignees)),
	)

	room, err := loadRoom(ctx, s.rooms, req.RoomSlug, actor)
	if err != nil {
		return nil, err
	}

	// Валидация
	title := strings.TrimSpace(req.Title)
	link := strings.TrimSpace(req.Link)
	if title == "" || link == "" {
		return nil, WrapError(ErrInvalidInput, errors.New("title and link are required"))
	}
	assignees, err := roomAssignees(room, req.Assignees)
	if err != nil {
		return nil, err
	}

	// Собираем dto
	d := &dto.CreateReviewDTO{
		Id:        uuid.NewString(),
		RoomId:    room.Slug,
		Title:     title,
		Link:      link,
		CreatedBy: actor,
		Assignees: domain.NewAssignees(assignees),
	}

	// Запрос в бд
	review, err := s.repo.Create(ctx, d)
	if err != nil {
		s.log.Error("failed to create review",
			zap.String("room_id", room.Slug),
			zap.Error(err),
		)
		if errors.Is(err, repository.ErrInvalidInput) {
			return nil, WrapError(ErrInvalidInput, err)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, WrapError(ErrRoomNotFound, err)
		}
		return nil, fmt.Errorf("%w: %w", createReviewError, err)
	}

	s.log.Info("review created",
		zap.String("review_id", review.Id),
		zap.String("room_id", review.RoomId),
	)

	s.notifier.Notify(ctx, notification.Event{
		Kind:        notification.EventCreated,
		Room:        room,
		Review:      review,
		Actor:       actor,
		AccessToken: req.AccessToken,
	})

	return s.reviewResponse(review), nil
}

func (s *ReviewService) Get(ctx context.Context, req *request.GetReviewRequest) (*response.ReviewResponse, error) {
	review, _, err := s.loadReview(ctx, req.ReviewId, req.Actor)
	if err != nil {
		return nil, err
	}
	return s.reviewResponse(review), nil
}

func (s *ReviewService) List(ctx context.Context, req *request.ListReviewsRequest) (*response.ListReviewsResponse, error) {
	actor, err := requireActor(req.Actor)
	if err != nil {
		return nil, err
	}

	status := domain.ReviewActive
	if req.Status != "" {
		status = domain.ReviewStatus(strings.ToLower(req.Status))
	}
	if !status.Valid() {
		return nil, WrapError(ErrInvalidInput, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, req.Status))
	}

	room, err := loadRoom(ctx, s.rooms, req.RoomSlug, actor)
	if err != nil {
		return nil, err
	}

	reviews, err := s.repo.List(ctx, &dto.ListReviewsDTO{RoomId: room.Slug, Status: status})
	if err != nil {
		s.log.Error("failed to list reviews",
			zap.String("room_id", room.Slug),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", listReviewsError, err)
	}

	resp := &response.ListReviewsResponse{
		RoomId:  room.Slug,
		Status:  string(status),
		Reviews: make([]*response.ReviewResponse, 0, len(reviews)),
	}
	for _, r := range reviews {
		resp.Reviews = append(resp.Reviews, s.reviewResponse(r))
	}
	return resp, nil
}

// SetStatus закрывает ревью как done или deleted
func (s *ReviewService) SetStatus(ctx context.Context, req *request.SetStatusRequest) (*response.ReviewResponse, error) {
	status := domain.ReviewStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !status.Terminal() {
		return nil, WrapError(ErrInvalidInput, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, req.Status))
	}

	_, room, err := s.loadReview(ctx, req.ReviewId, req.Actor)
	if err != nil {
		return nil, err
	}

	s.log.Info("setStatus request accepted",
		zap.String("review_id", req.ReviewId),
		zap.String("status", string(status)),
	)

	review, err := s.closeReview(ctx, room, req.ReviewId, status, req.Actor, req.AccessToken)
	if err != nil {
		return nil, err
	}
	return s.reviewResponse(review), nil
}

// closeReview переводит ревью в терминальный статус и сообщает об этом в чат
func (s *ReviewService) closeReview(ctx context.Context, room *domain.Room, reviewId string, status domain.ReviewStatus, actor, accessToken string) (*domain.Review, error) {
	res, err := s.repo.SetStatus(ctx, &dto.SetStatusDTO{ReviewId: reviewId, Status: status})
	if err != nil {
		s.log.Error("failed to set review status",
			zap.String("review_id", reviewId),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return nil, mapReviewError(err, setStatusError)
	}

	if len(res.Evicted) > 0 {
		s.log.Info("review history trimmed",
			zap.String("room_id", res.Review.RoomId),
			zap.String("status", string(status)),
			zap.Strings("evicted", res.Evicted),
		)
	}

	if res.Changed {
		kind := notification.EventDone
		if status == domain.ReviewDeleted {
			kind = notification.EventDeleted
		}
		s.notifier.Notify(ctx, notification.Event{
			Kind:        kind,
			Room:        room,
			Review:      res.Review,
			Actor:       domain.NormalizeEmail(actor),
			AccessToken: accessToken,
		})
	}
	return res.Review, nil
}

// MarkReviewed отмечает ревью пользователя. Повторная отметка ничего не меняет.
func (s *ReviewService) MarkReviewed(ctx context.Context, req *request.ReviewActionRequest) (*response.ReviewResponse, error) {
	_, room, err := s.loadReview(ctx, req.ReviewId, req.Actor)
	if err != nil {
		return nil, err
	}
	actor := domain.NormalizeEmail(req.Actor)

	res, err := s.repo.MarkReviewed(ctx, &dto.MarkReviewedDTO{ReviewId: req.ReviewId, Email: actor})
	if err != nil {
		s.log.Error("failed to mark review as reviewed",
			zap.String("review_id", req.ReviewId),
			zap.String("email", actor),
			zap.Error(err),
		)
		return nil, mapReviewError(err, markReviewedError)
	}

	if res.Touched && res.Review.IsAssignee(actor) {
		s.notifier.Notify(ctx, notification.Event{
			Kind:        notification.EventReviewed,
			Room:        room,
			Review:      res.Review,
			Actor:       actor,
			AccessToken: req.AccessToken,
		})
	}
	return s.reviewResponse(res.Review), nil
}

// MarkUpdated возвращает всех ревьюеров в pending после доработки.
// Доступно автору ревью и только если кто-то уже отметил ревью.
func (s *ReviewService) MarkUpdated(ctx context.Context, req *request.ReviewActionRequest) (*response.ReviewResponse, error) {
	current, room, err := s.loadReview(ctx, req.ReviewId, req.Actor)
	if err != nil {
		return nil, err
	}
	actor := domain.NormalizeEmail(req.Actor)

	if current.CreatedBy != actor {
		return nil, ErrNotOwner
	}
	if current.Status.Terminal() {
		return nil, ErrReviewClosed
	}
	if !domain.HasReviewed(current.Assignees) {
		return nil, ErrNothingReviewed
	}

	review, err := s.repo.MarkUpdated(ctx, &dto.MarkUpdatedDTO{ReviewId: req.ReviewId})
	if err != nil {
		s.log.Error("failed to mark review as updated",
			zap.String("review_id", req.ReviewId),
			zap.Error(err),
		)
		return nil, mapReviewError(err, markUpdatedError)
	}

	s.notifier.Notify(ctx, notification.Event{
		Kind:        notification.EventUpdated,
		Room:        room,
		Review:      review,
		Actor:       actor,
		AccessToken: req.AccessToken,
	})
	return s.reviewResponse(review), nil
}

func (s *ReviewService) UpdateAssignees(ctx context.Context, req *request.UpdateAssigneesRequest) (*response.ReviewResponse, error) {
	_, room, err := s.loadReview(ctx, req.ReviewId, req.Actor)
	if err != nil {
		return nil, err
	}
	if req.Assignees == nil {
		return nil, WrapError(ErrInvalidInput, errors.New("assignees are required"))
	}
	emails, err := roomAssignees(room, req.Assignees)
	if err != nil {
		return nil, err
	}

	res, err := s.repo.UpdateAssignees(ctx, &dto.UpdateAssigneesDTO{ReviewId: req.ReviewId, Emails: emails})
	if err != nil {
		s.log.Error("failed to update assignees",
			zap.String("review_id", req.ReviewId),
			zap.Error(err),
		)
		return nil, mapReviewError(err, updateAssigneesError)
	}

	if len(res.Added) > 0 || len(res.Removed) > 0 {
		s.notifier.Notify(ctx, notification.Event{
			Kind:        notification.EventReviewersChanged,
			Room:        room,
			Review:      res.Review,
			Actor:       domain.NormalizeEmail(req.Actor),
			AccessToken: req.AccessToken,
			Added:       res.Added,
			Removed:     res.Removed,
		})
	}
	return s.reviewResponse(res.Review), nil
}

// RemoveReviewer убирает одного ревьюера. Если ревьюеров не осталось,
// ревью автоматически закрывается как done.
func (s *ReviewService) RemoveReviewer(ctx context.Context, req *request.RemoveReviewerRequest) (*response.RemoveReviewerResponse, error) {
	_, room, err := s.loadReview(ctx, req.ReviewId, req.Actor)
	if err != nil {
		return nil, err
	}
	email := domain.NormalizeEmail(req.Email)
	if email == "" {
		return nil, WrapError(ErrInvalidInput, domain.ErrInvalidEmail)
	}
	actor := domain.NormalizeEmail(req.Actor)

	res, err := s.repo.RemoveReviewer(ctx, &dto.RemoveReviewerDTO{ReviewId: req.ReviewId, Email: email})
	if err != nil {
		s.log.Error("failed to remove reviewer",
			zap.String("review_id", req.ReviewId),
			zap.String("email", email),
			zap.Error(err),
		)
		return nil, mapReviewError(err, removeReviewerError)
	}

	resp := &response.RemoveReviewerResponse{}
	review := res.Review
	if res.Removed {
		s.notifier.Notify(ctx, notification.Event{
			Kind:        notification.EventReviewersChanged,
			Room:        room,
			Review:      review,
			Actor:       actor,
			AccessToken: req.AccessToken,
			Removed:     []string{email},
		})

		if res.Empty {
			review, err = s.closeReview(ctx, room, req.ReviewId, domain.ReviewDone, actor, req.AccessToken)
			if err != nil {
				return nil, err
			}
			resp.AutoDone = true
			s.log.Info("review auto-completed: no reviewers left", zap.String("review_id", req.ReviewId))
		}
	}

	resp.Review = s.reviewResponse(review)
	return resp, nil
}

// Ping напоминает ожидающим ревьюерам, состояние ревью не меняется
func (s *ReviewService) Ping(ctx context.Context, req *request.ReviewActionRequest) (*response.ReviewResponse, error) {
	review, room, err := s.loadReview(ctx, req.ReviewId, req.Actor)
	if err != nil {
		return nil, err
	}
	if review.Status.Terminal() {
		return nil, ErrReviewClosed
	}

	s.notifier.Notify(ctx, notification.Event{
		Kind:        notification.EventPing,
		Room:        room,
		Review:      review,
		Actor:       domain.NormalizeEmail(req.Actor),
		AccessToken: req.AccessToken,
	})
	return s.reviewResponse(review), nil
}

// Summary отправляет в чат комнаты сводку по активным ревью
func (s *ReviewService) Summary(ctx context.Context, req *request.SummaryRequest) (*response.SummaryResponse, error) {
	actor, err := requireActor(req.Actor)
	if err != nil {
		return nil, err
	}
	room, err := loadRoom(ctx, s.rooms, req.Slug, actor)
	if err != nil {
		return nil, err
	}

	reviews, err := s.repo.List(ctx, &dto.ListReviewsDTO{RoomId: room.Slug, Status: domain.ReviewActive})
	if err != nil {
		s.log.Error("failed to list reviews for summary",
			zap.String("room_id", room.Slug),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", listReviewsError, err)
	}

	s.notifier.Notify(ctx, notification.Event{
		Kind:        notification.EventSummary,
		Room:        room,
		Actor:       actor,
		AccessToken: req.AccessToken,
		Reviews:     reviews,
	})

	return &response.SummaryResponse{
		RoomId:        room.Slug,
		ActiveReviews: len(reviews),
		Sent:          room.WebhookURL != "",
	}, nil
}

func (s *ReviewService) Stats(ctx context.Context, req *request.RoomStatsRequest) (*response.RoomStatsResponse, error) {
	actor, err := requireActor(req.Actor)
	if err != nil {
		return nil, err
	}
	room, err := loadRoom(ctx, s.rooms, req.Slug, actor)
	if err != nil {
		return nil, err
	}

	res, err := s.repo.Stats(ctx, &dto.RoomStatsDTO{RoomId: room.Slug})
	if err != nil {
		s.log.Error("failed to get room stats",
			zap.String("room_id", room.Slug),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", roomStatsError, err)
	}

	resp := &response.RoomStatsResponse{
		RoomId:    room.Slug,
		Active:    res.Active,
		Done:      res.Done,
		Deleted:   res.Deleted,
		Reviewers: make([]response.ReviewerStat, 0, len(res.Reviewers)),
	}
	for _, r := range res.Reviewers {
		resp.Reviewers = append(resp.Reviewers, response.ReviewerStat{
			Email:    r.Email,
			Pending:  r.Pending,
			Reviewed: r.Reviewed,
		})
	}
	return resp, nil
}

// loadReview читает ревью и его комнату, проверяя доступ actor к комнате
func (s *ReviewService) loadReview(ctx context.Context, reviewId, actorEmail string) (*domain.Review, *domain.Room, error) {
	actor, err := requireActor(actorEmail)
	if err != nil {
		return nil, nil, err
	}

	// Невалидный uuid не может быть id ревью
	if _, err := uuid.Parse(reviewId); err != nil {
		return nil, nil, WrapError(ErrReviewNotFound, err)
	}

	review, err := s.repo.Get(ctx, reviewId)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, WrapError(ErrReviewNotFound, err)
		}
		s.log.Error("failed to get review",
			zap.String("review_id", reviewId),
			zap.Error(err),
		)
		return nil, nil, fmt.Errorf("%w: %w", getReviewError, err)
	}

	room, err := loadRoom(ctx, s.rooms, review.RoomId, actor)
	if err != nil {
		return nil, nil, err
	}
	return review, room, nil
}

// roomAssignees проверяет, что все ревьюеры - участники комнаты
func roomAssignees(room *domain.Room, emails []string) ([]string, error) {
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		email := domain.NormalizeEmail(e)
		if err := domain.ValidateEmail(email); err != nil {
			return nil, WrapError(ErrInvalidInput, fmt.Errorf("%w: %q", err, e))
		}
		if !room.IsAllowed(email) {
			return nil, WrapError(ErrNotRoomMember, fmt.Errorf("%s", email))
		}
		out = append(out, email)
	}
	return out, nil
}

func mapReviewError(err error, opErr error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return WrapError(ErrReviewNotFound, err)
	case errors.Is(err, domain.ErrReviewClosed):
		return WrapError(ErrReviewClosed, err)
	case errors.Is(err, domain.ErrNothingReviewed):
		return WrapError(ErrNothingReviewed, err)
	case errors.Is(err, domain.ErrInvalidStatus), errors.Is(err, repository.ErrInvalidInput):
		return WrapError(ErrInvalidInput, err)
	}
	return fmt.Errorf("%w: %w", opErr, err)
}

func (s *ReviewService) reviewResponse(r *domain.Review) *response.ReviewResponse {
	assignees := make([]response.AssigneeResponse, 0, len(r.Assignees))
	for _, a := range r.Assignees {
		assignees = append(assignees, response.AssigneeResponse{
			Email:  a.Email,
			Status: string(a.Status),
		})
	}

	resp := &response.ReviewResponse{
		Id:        r.Id,
		RoomId:    r.RoomId,
		Title:     r.Title,
		Link:      r.Link,
		Status:    string(r.Status),
		CreatedBy: r.CreatedBy,
		Assignees: assignees,
		CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: r.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if r.Status == domain.ReviewActive {
		stale := r.Staleness(s.now())
		resp.StuckSinceUpdate = stale.SinceUpdate
		resp.StuckSinceCreated = stale.SinceCreated
	}
	return resp
}
