package service

import (
	"context"
	"errors"
	"strings"

	"github.com/niklvrr/ReviewRoom/internal/infrastructure/googlechat"
	"github.com/niklvrr/ReviewRoom/internal/transport/dto/request"
	"github.com/niklvrr/ReviewRoom/internal/transport/dto/response"
	"go.uber.org/zap"
	"google.golang.org/api/chat/v1"
)

type WebhookSender interface {
	Send(ctx context.Context, webhookURL, text, threadKey string) error
}

type MembersLister interface {
	ListMembers(ctx context.Context, spaceID, accessToken string) ([]*chat.Membership, error)
}

// ChatService - прокси к Google Chat для клиентов без собственного доступа к API
type ChatService struct {
	sender  WebhookSender
	members MembersLister
	log     *zap.Logger
}

func NewChatService(sender WebhookSender, members MembersLister, log *zap.Logger) *ChatService {
	return &ChatService{
		sender:  sender,
		members: members,
		log:     log,
	}
}

// Notify синхронно отправляет сообщение в webhook и возвращает ошибку апстрима
func (s *ChatService) Notify(ctx context.Context, req *request.NotifyRequest) (*response.NotifyResponse, error) {
	hook, err := googlechat.ParseWebhookURL(strings.TrimSpace(req.WebhookURL))
	if err != nil {
		return nil, WrapError(ErrInvalidWebhook, err)
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, WrapError(ErrInvalidInput, errors.New("text is required"))
	}

	s.log.Info("notify request accepted",
		zap.String("space_id", hook.SpaceID),
		zap.Bool("threaded", req.ThreadKey != ""),
	)

	if err := s.sender.Send(ctx, req.WebhookURL, req.Text, req.ThreadKey); err != nil {
		s.log.Warn("webhook delivery failed",
			zap.String("space_id", hook.SpaceID),
			zap.Error(err),
		)
		return nil, WrapError(ErrWebhookRejected, err)
	}

	return &response.NotifyResponse{Success: true}, nil
}

// Members возвращает участников пространства, к которому привязан webhook
func (s *ChatService) Members(ctx context.Context, req *request.MembersRequest) (*response.MembersResponse, error) {
	hook, err := googlechat.ParseWebhookURL(strings.TrimSpace(req.WebhookURL))
	if err != nil {
		return nil, WrapError(ErrInvalidWebhook, err)
	}
	token := strings.TrimSpace(req.AccessToken)
	if token == "" {
		return nil, WrapError(ErrInvalidInput, errors.New("accessToken is required"))
	}

	memberships, err := s.members.ListMembers(ctx, hook.SpaceID, token)
	if err != nil {
		switch {
		case errors.Is(err, googlechat.ErrInsufficientScope):
			return nil, WrapError(ErrInsufficientScope, err)
		case errors.Is(err, googlechat.ErrChatAPIUnavailable):
			return nil, WrapError(ErrChatAPIUnavailable, err)
		}
		return nil, WrapError(ErrChatAPI, err)
	}

	resp := &response.MembersResponse{
		SpaceId:     hook.SpaceID,
		Memberships: make([]response.MemberResponse, 0, len(memberships)),
	}
	for _, m := range memberships {
		if m == nil || m.Member == nil {
			continue
		}
		resp.Memberships = append(resp.Memberships, response.MemberResponse{
			Name:        m.Name,
			UserId:      strings.TrimPrefix(m.Member.Name, "users/"),
			DisplayName: m.Member.DisplayName,
			Email:       googlechat.MemberEmail(m),
			Type:        m.Member.Type,
			Role:        m.Role,
		})
	}

	s.log.Info("chat members listed",
		zap.String("space_id", hook.SpaceID),
		zap.Int("members", len(resp.Memberships)),
	)
	return resp, nil
}
