package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"
	"github.com/niklvrr/ReviewRoom/internal/transport/dto/request"
	"github.com/niklvrr/ReviewRoom/internal/transport/dto/response"
	"github.com/niklvrr/ReviewRoom/internal/transport/middleware"
	"github.com/stretchr/testify/mock"
)

// serve прогоняет запрос через chi, чтобы работали URL-параметры и Identity
func serve(method, pattern, target string, h http.HandlerFunc, body io.Reader, email string) *httptest.ResponseRecorder {
	return serveHeaders(method, pattern, target, h, body, map[string]string{
		middleware.UserEmailHeader: email,
	})
}

func serveHeaders(method, pattern, target string, h http.HandlerFunc, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Use(middleware.Identity)
	router.MethodFunc(method, pattern, h)

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// MockRoomService мок сервиса для тестов
type MockRoomService struct {
	mock.Mock
}

func (m *MockRoomService) Create(ctx context.Context, req *request.CreateRoomRequest) (*response.RoomResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.RoomResponse), args.Error(1)
}

func (m *MockRoomService) Get(ctx context.Context, req *request.GetRoomRequest) (*response.RoomResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.RoomResponse), args.Error(1)
}

func (m *MockRoomService) Update(ctx context.Context, req *request.UpdateRoomRequest) (*response.RoomResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.RoomResponse), args.Error(1)
}

func (m *MockRoomService) List(ctx context.Context, req *request.ListRoomsRequest) (*response.ListRoomsResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.ListRoomsResponse), args.Error(1)
}

// MockReviewService мок сервиса для тестов
type MockReviewService struct {
	mock.Mock
}

func (m *MockReviewService) Create(ctx context.Context, req *request.CreateReviewRequest) (*response.ReviewResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.ReviewResponse), args.Error(1)
}

func (m *MockReviewService) Get(ctx context.Context, req *request.GetReviewRequest) (*response.ReviewResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.ReviewResponse), args.Error(1)
}

func (m *MockReviewService) List(ctx context.Context, req *request.ListReviewsRequest) (*response.ListReviewsResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.ListReviewsResponse), args.Error(1)
}

func (m *MockReviewService) SetStatus(ctx context.Context, req *request.SetStatusRequest) (*response.ReviewResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.ReviewResponse), args.Error(1)
}

func (m *MockReviewService) MarkReviewed(ctx context.Context, req *request.ReviewActionRequest) (*response.ReviewResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.ReviewResponse), args.Error(1)
}

func (m *MockReviewService) MarkUpdated(ctx context.Context, req *request.ReviewActionRequest) (*response.ReviewResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.ReviewResponse), args.Error(1)
}

func (m *MockReviewService) UpdateAssignees(ctx context.Context, req *request.UpdateAssigneesRequest) (*response.ReviewResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.ReviewResponse), args.Error(1)
}

func (m *MockReviewService) RemoveReviewer(ctx context.Context, req *request.RemoveReviewerRequest) (*response.RemoveReviewerResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.RemoveReviewerResponse), args.Error(1)
}

func (m *MockReviewService) Ping(ctx context.Context, req *request.ReviewActionRequest) (*response.ReviewResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.ReviewResponse), args.Error(1)
}

func (m *MockReviewService) Summary(ctx context.Context, req *request.SummaryRequest) (*response.SummaryResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.SummaryResponse), args.Error(1)
}

func (m *MockReviewService) Stats(ctx context.Context, req *request.RoomStatsRequest) (*response.RoomStatsResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.RoomStatsResponse), args.Error(1)
}

// MockChatService мок сервиса для тестов
type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Notify(ctx context.Context, req *request.NotifyRequest) (*response.NotifyResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.NotifyResponse), args.Error(1)
}

func (m *MockChatService) Members(ctx context.Context, req *request.MembersRequest) (*response.MembersResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.MembersResponse), args.Error(1)
}
