package service

import (
	"context"
	"testing"
	"time"

	"github.com/niklvrr/ReviewRoom/internal/domain"
	"github.com/niklvrr/ReviewRoom/internal/infrastructure/models/dto"
	"github.com/niklvrr/ReviewRoom/internal/infrastructure/repository"
	"github.com/niklvrr/ReviewRoom/internal/transport/dto/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testWebhook = "https://chat.googleapis.com/v1/spaces/SPACE1/messages?key=k&token=t"

func teamRoom() *domain.Room {
	return &domain.Room{
		Slug:       "team-a",
		Name:       "Team A",
		WebhookURL: testWebhook,
		AllowedUsers: []domain.RoomMember{
			{Email: "a@x.com"},
			{Email: "b@x.com"},
		},
		CreatedBy: "a@x.com",
		CreatedAt: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestRoomService_Create_Success(t *testing.T) {
	mockRepo := new(MockRoomRepository)
	service := NewRoomService(mockRepo, zap.NewNop())

	req := &request.CreateRoomRequest{
		Slug:       "team-a",
		Name:       " Team A ",
		WebhookURL: testWebhook,
		AllowedUsers: []domain.RoomMember{
			{Email: "B@x.com", GoogleChatUserId: "users/2"},
			{Email: "b@x.com"},
		},
		Actor: "A@x.com",
	}

	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(d *dto.CreateRoomDTO) bool {
		return d.Slug == "team-a" &&
			d.Name == "Team A" &&
			d.CreatedBy == "a@x.com" &&
			len(d.AllowedUsers) == 1 &&
			d.AllowedUsers[0] == domain.RoomMember{Email: "b@x.com", GoogleChatUserId: "users/2"}
	})).Return(teamRoom(), nil)

	resp, err := service.Create(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "team-a", resp.Slug)
	assert.Equal(t, "a@x.com", resp.CreatedBy)
	assert.Equal(t, "2026-05-01T10:00:00Z", resp.CreatedAt)
	mockRepo.AssertExpectations(t)
}

func TestRoomService_Create_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  *request.CreateRoomRequest
		code string
	}{
		{
			name: "no identity",
			req:  &request.CreateRoomRequest{Slug: "team-a", Name: "A"},
			code: "UNAUTHORIZED",
		},
		{
			name: "bad slug",
			req:  &request.CreateRoomRequest{Slug: "Team A", Name: "A", Actor: "a@x.com"},
			code: "INVALID_INPUT",
		},
		{
			name: "empty name",
			req:  &request.CreateRoomRequest{Slug: "team-a", Name: "  ", Actor: "a@x.com"},
			code: "INVALID_INPUT",
		},
		{
			name: "bad webhook",
			req:  &request.CreateRoomRequest{Slug: "team-a", Name: "A", WebhookURL: "http://example.com/hook", Actor: "a@x.com"},
			code: "INVALID_INPUT",
		},
		{
			name: "bad member email",
			req: &request.CreateRoomRequest{
				Slug: "team-a", Name: "A", Actor: "a@x.com",
				AllowedUsers: []domain.RoomMember{{Email: "not-an-email"}},
			},
			code: "INVALID_INPUT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRoomRepository)
			service := NewRoomService(mockRepo, zap.NewNop())

			resp, err := service.Create(context.Background(), tt.req)

			assert.Nil(t, resp)
			var domainErr *DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tt.code, domainErr.Code)
			mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestRoomService_Create_SlugTaken(t *testing.T) {
	mockRepo := new(MockRoomRepository)
	service := NewRoomService(mockRepo, zap.NewNop())

	mockRepo.On("Create", mock.Anything, mock.Anything).Return(nil, repository.ErrAlreadyExists)

	resp, err := service.Create(context.Background(), &request.CreateRoomRequest{
		Slug: "team-a", Name: "A", Actor: "a@x.com",
	})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrRoomExists)
	assert.ErrorIs(t, err, repository.ErrAlreadyExists)
}

func TestRoomService_Get(t *testing.T) {
	mockRepo := new(MockRoomRepository)
	service := NewRoomService(mockRepo, zap.NewNop())

	mockRepo.On("Get", mock.Anything, &dto.GetRoomDTO{Slug: "team-a"}).Return(teamRoom(), nil)
	mockRepo.On("Get", mock.Anything, &dto.GetRoomDTO{Slug: "missing"}).Return(nil, repository.ErrNotFound)

	resp, err := service.Get(context.Background(), &request.GetRoomRequest{Slug: "team-a", Actor: "b@x.com"})
	require.NoError(t, err)
	assert.Len(t, resp.AllowedUsers, 2)

	_, err = service.Get(context.Background(), &request.GetRoomRequest{Slug: "team-a", Actor: "c@x.com"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = service.Get(context.Background(), &request.GetRoomRequest{Slug: "missing", Actor: "a@x.com"})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRoomService_Update_ReplaceUsersOnlyWhenPresent(t *testing.T) {
	mockRepo := new(MockRoomRepository)
	service := NewRoomService(mockRepo, zap.NewNop())
	name := "Renamed"

	mockRepo.On("Get", mock.Anything, mock.Anything).Return(teamRoom(), nil)
	mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(d *dto.UpdateRoomDTO) bool {
		return !d.ReplaceUsers && d.Name != nil && *d.Name == "Renamed" && d.WebhookURL == nil
	})).Return(teamRoom(), nil).Once()
	mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(d *dto.UpdateRoomDTO) bool {
		return d.ReplaceUsers && len(d.AllowedUsers) == 0
	})).Return(teamRoom(), nil).Once()

	_, err := service.Update(context.Background(), &request.UpdateRoomRequest{
		Slug: "team-a", Name: &name, Actor: "b@x.com",
	})
	require.NoError(t, err)

	_, err = service.Update(context.Background(), &request.UpdateRoomRequest{
		Slug: "team-a", AllowedUsers: []domain.RoomMember{}, Actor: "a@x.com",
	})
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestRoomService_Update_Forbidden(t *testing.T) {
	mockRepo := new(MockRoomRepository)
	service := NewRoomService(mockRepo, zap.NewNop())

	mockRepo.On("Get", mock.Anything, mock.Anything).Return(teamRoom(), nil)

	_, err := service.Update(context.Background(), &request.UpdateRoomRequest{Slug: "team-a", Actor: "z@x.com"})

	assert.ErrorIs(t, err, ErrForbidden)
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestRoomService_List(t *testing.T) {
	mockRepo := new(MockRoomRepository)
	service := NewRoomService(mockRepo, zap.NewNop())

	mockRepo.On("ListForUser", mock.Anything, &dto.ListRoomsDTO{Email: "b@x.com"}).
		Return([]*domain.Room{teamRoom()}, nil)

	resp, err := service.List(context.Background(), &request.ListRoomsRequest{Actor: " B@x.com "})

	require.NoError(t, err)
	require.Len(t, resp.Rooms, 1)
	assert.Equal(t, "team-a", resp.Rooms[0].Slug)
}
