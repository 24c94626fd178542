package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/niklvrr/ReviewRoom/internal/domain"
	"github.com/niklvrr/ReviewRoom/internal/infrastructure/googlechat"
	"github.com/niklvrr/ReviewRoom/internal/infrastructure/models/dto"
	"github.com/niklvrr/ReviewRoom/internal/infrastructure/repository"
	"github.com/niklvrr/ReviewRoom/internal/transport/dto/request"
	"github.com/niklvrr/ReviewRoom/internal/transport/dto/response"
	"go.uber.org/zap"
)

var (
	createRoomError = errors.New("create room error")
	getRoomError    = errors.New("get room error")
	updateRoomError = errors.New("update room error")
	listRoomsError  = errors.New("list rooms error")
)

// Интерфейс репозитория
type RoomRepository interface {
	Create(ctx context.Context, d *dto.CreateRoomDTO) (*domain.Room, error)
	Get(ctx context.Context, d *dto.GetRoomDTO) (*domain.Room, error)
	Update(ctx context.Context, d *dto.UpdateRoomDTO) (*domain.Room, error)
	ListForUser(ctx context.Context, d *dto.ListRoomsDTO) ([]*domain.Room, error)
}

type RoomService struct {
	repo RoomRepository
	log  *zap.Logger
}

func NewRoomService(repo RoomRepository, log *zap.Logger) *RoomService {
	return &RoomService{
		repo: repo,
		log:  log,
	}
}

func (s *RoomService) Create(ctx context.Context, req *request.CreateRoomRequest) (*response.RoomResponse, error) {
	actor, err := requireActor(req.Actor)
	if err != nil {
		return nil, err
	}

	s.log.Info("createRoom request accepted",
		zap.String("slug", req.Slug),
		zap.String("actor", actor),
	)

	// Валидация
	slug := strings.TrimSpace(req.Slug)
	if err := domain.ValidateSlug(slug); err != nil {
		return nil, WrapError(ErrInvalidInput, err)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, WrapError(ErrInvalidInput, errors.New("name is required"))
	}
	if err := validateWebhook(req.WebhookURL); err != nil {
		return nil, err
	}
	members, err := validateMembers(req.AllowedUsers)
	if err != nil {
		return nil, err
	}

	// Собираем dto
	d := &dto.CreateRoomDTO{
		Slug:         slug,
		Name:         name,
		WebhookURL:   strings.TrimSpace(req.WebhookURL),
		AllowedUsers: members,
		CreatedBy:    actor,
	}

	// Запрос в бд
	room, err := s.repo.Create(ctx, d)
	if err != nil {
		s.log.Error("failed to create room",
			zap.String("slug", slug),
			zap.Error(err),
		)

		// Маппим ошибки
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, WrapError(ErrRoomExists, err)
		}
		if errors.Is(err, repository.ErrInvalidInput) {
			return nil, WrapError(ErrInvalidInput, err)
		}

		// Неизвестная ошибка
		return nil, fmt.Errorf("%w: %w", createRoomError, err)
	}

	s.log.Info("room created",
		zap.String("slug", room.Slug),
		zap.Int("allowed_users", len(room.AllowedUsers)),
	)

	// Ответ
	return roomResponse(room), nil
}

func (s *RoomService) Get(ctx context.Context, req *request.GetRoomRequest) (*response.RoomResponse, error) {
	actor, err := requireActor(req.Actor)
	if err != nil {
		return nil, err
	}

	room, err := loadRoom(ctx, s.repo, req.Slug, actor)
	if err != nil {
		return nil, err
	}

	return roomResponse(room), nil
}

// Update меняет имя, webhook и список участников. Менять комнату может любой ее участник,
// создатель остается в списке всегда.
func (s *RoomService) Update(ctx context.Context, req *request.UpdateRoomRequest) (*response.RoomResponse, error) {
	actor, err := requireActor(req.Actor)
	if err != nil {
		return nil, err
	}

	s.log.Info("updateRoom request accepted",
		zap.String("slug", req.Slug),
		zap.String("actor", actor),
	)

	if _, err := loadRoom(ctx, s.repo, req.Slug, actor); err != nil {
		return nil, err
	}

	// Собираем dto
	d := &dto.UpdateRoomDTO{Slug: req.Slug}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, WrapError(ErrInvalidInput, errors.New("name is required"))
		}
		d.Name = &name
	}
	if req.WebhookURL != nil {
		webhook := strings.TrimSpace(*req.WebhookURL)
		if err := validateWebhook(webhook); err != nil {
			return nil, err
		}
		d.WebhookURL = &webhook
	}
	if req.AllowedUsers != nil {
		members, err := validateMembers(req.AllowedUsers)
		if err != nil {
			return nil, err
		}
		d.AllowedUsers = members
		d.ReplaceUsers = true
	}

	// Запрос в бд
	room, err := s.repo.Update(ctx, d)
	if err != nil {
		s.log.Error("failed to update room",
			zap.String("slug", req.Slug),
			zap.Error(err),
		)

		if errors.Is(err, repository.ErrNotFound) {
			return nil, WrapError(ErrRoomNotFound, err)
		}
		if errors.Is(err, repository.ErrInvalidInput) {
			return nil, WrapError(ErrInvalidInput, err)
		}
		return nil, fmt.Errorf("%w: %w", updateRoomError, err)
	}

	s.log.Info("room updated",
		zap.String("slug", room.Slug),
		zap.Int("allowed_users", len(room.AllowedUsers)),
	)

	return roomResponse(room), nil
}

func (s *RoomService) List(ctx context.Context, req *request.ListRoomsRequest) (*response.ListRoomsResponse, error) {
	actor, err := requireActor(req.Actor)
	if err != nil {
		return nil, err
	}

	rooms, err := s.repo.ListForUser(ctx, &dto.ListRoomsDTO{Email: actor})
	if err != nil {
		s.log.Error("failed to list rooms",
			zap.String("actor", actor),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", listRoomsError, err)
	}

	resp := &response.ListRoomsResponse{Rooms: make([]*response.RoomResponse, 0, len(rooms))}
	for _, room := range rooms {
		resp.Rooms = append(resp.Rooms, roomResponse(room))
	}
	return resp, nil
}

// RoomReader - чтение комнаты, общее для сервисов комнат и ревью
type RoomReader interface {
	Get(ctx context.Context, d *dto.GetRoomDTO) (*domain.Room, error)
}

// loadRoom читает комнату и проверяет, что actor входит в allowedUsers
func loadRoom(ctx context.Context, rooms RoomReader, slug, actor string) (*domain.Room, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, WrapError(ErrInvalidInput, domain.ErrInvalidSlug)
	}

	room, err := rooms.Get(ctx, &dto.GetRoomDTO{Slug: slug})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, WrapError(ErrRoomNotFound, err)
		}
		return nil, fmt.Errorf("%w: %w", getRoomError, err)
	}

	if !room.IsAllowed(actor) {
		return nil, ErrForbidden
	}
	return room, nil
}

func requireActor(email string) (string, error) {
	actor := domain.NormalizeEmail(email)
	if actor == "" {
		return "", ErrUnauthorized
	}
	if err := domain.ValidateEmail(actor); err != nil {
		return "", WrapError(ErrUnauthorized, err)
	}
	return actor, nil
}

func validateWebhook(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	if _, err := googlechat.ParseWebhookURL(strings.TrimSpace(raw)); err != nil {
		return WrapError(ErrInvalidWebhook, err)
	}
	return nil
}

func validateMembers(members []domain.RoomMember) ([]domain.RoomMember, error) {
	for _, m := range members {
		if err := domain.ValidateEmail(domain.NormalizeEmail(m.Email)); err != nil {
			return nil, WrapError(ErrInvalidInput, fmt.Errorf("%w: %q", err, m.Email))
		}
	}
	return domain.NormalizeMembers(members), nil
}

func roomResponse(room *domain.Room) *response.RoomResponse {
	members := room.AllowedUsers
	if members == nil {
		members = []domain.RoomMember{}
	}
	return &response.RoomResponse{
		Slug:         room.Slug,
		Name:         room.Name,
		WebhookURL:   room.WebhookURL,
		AllowedUsers: members,
		CreatedBy:    room.CreatedBy,
		CreatedAt:    room.CreatedAt.UTC().Format(time.RFC3339),
	}
}
