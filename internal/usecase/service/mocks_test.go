package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/niklvrr/ReviewRoom/internal/domain"
	"github.com/niklvrr/ReviewRoom/internal/infrastructure/models/dto"
	"github.com/niklvrr/ReviewRoom/internal/infrastructure/models/result"
	"github.com/niklvrr/ReviewRoom/internal/infrastructure/repository"
	"github.com/niklvrr/ReviewRoom/internal/notification"
	"github.com/stretchr/testify/mock"
)

// MockRoomRepository мок репозитория комнат для тестов
type MockRoomRepository struct {
	mock.Mock
}

func (m *MockRoomRepository) Create(ctx context.Context, d *dto.CreateRoomDTO) (*domain.Room, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Room), args.Error(1)
}

func (m *MockRoomRepository) Get(ctx context.Context, d *dto.GetRoomDTO) (*domain.Room, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Room), args.Error(1)
}

func (m *MockRoomRepository) Update(ctx context.Context, d *dto.UpdateRoomDTO) (*domain.Room, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Room), args.Error(1)
}

func (m *MockRoomRepository) ListForUser(ctx context.Context, d *dto.ListRoomsDTO) ([]*domain.Room, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Room), args.Error(1)
}

// MockReviewRepository мок репозитория ревью для тестов
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, d *dto.CreateReviewDTO) (*domain.Review, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *MockReviewRepository) Get(ctx context.Context, id string) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *MockReviewRepository) List(ctx context.Context, d *dto.ListReviewsDTO) ([]*domain.Review, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Review), args.Error(1)
}

func (m *MockReviewRepository) SetStatus(ctx context.Context, d *dto.SetStatusDTO) (*result.SetStatusResult, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*result.SetStatusResult), args.Error(1)
}

func (m *MockReviewRepository) MarkReviewed(ctx context.Context, d *dto.MarkReviewedDTO) (*result.MarkReviewedResult, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*result.MarkReviewedResult), args.Error(1)
}

func (m *MockReviewRepository) MarkUpdated(ctx context.Context, d *dto.MarkUpdatedDTO) (*domain.Review, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *MockReviewRepository) UpdateAssignees(ctx context.Context, d *dto.UpdateAssigneesDTO) (*result.UpdateAssigneesResult, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*result.UpdateAssigneesResult), args.Error(1)
}

func (m *MockReviewRepository) RemoveReviewer(ctx context.Context, d *dto.RemoveReviewerDTO) (*result.RemoveReviewerResult, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*result.RemoveReviewerResult), args.Error(1)
}

func (m *MockReviewRepository) Stats(ctx context.Context, d *dto.RoomStatsDTO) (*result.RoomStatsResult, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*result.RoomStatsResult), args.Error(1)
}

// recordingNotifier запоминает события вместо отправки в чат
type recordingNotifier struct {
	mu     sync.Mutex
	events []notification.Event
}

func (n *recordingNotifier) Notify(ctx context.Context, ev notification.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) kinds() []notification.EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]notification.EventKind, 0, len(n.events))
	for _, ev := range n.events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

// memRooms - комнаты в памяти для сценарных тестов
type memRooms struct {
	rooms map[string]*domain.Room
}

func newMemRooms(rooms ...*domain.Room) *memRooms {
	m := &memRooms{rooms: make(map[string]*domain.Room)}
	for _, r := range rooms {
		r.AllowedUsers = domain.EnsureCreator(r.AllowedUsers, r.CreatedBy)
		m.rooms[r.Slug] = r
	}
	return m
}

func (m *memRooms) Get(ctx context.Context, d *dto.GetRoomDTO) (*domain.Room, error) {
	r, ok := m.rooms[d.Slug]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r, nil
}

// memReviews - ReviewRepository в памяти с теми же переходами, что и в Postgres.
// Каждая запись сдвигает часы на секунду, чтобы updatedAt строго рос.
type memReviews struct {
	mu      sync.Mutex
	now     time.Time
	reviews map[string]*domain.Review
}

func newMemReviews(start time.Time) *memReviews {
	return &memReviews{now: start, reviews: make(map[string]*domain.Review)}
}

func (m *memReviews) tick() time.Time {
	m.now = m.now.Add(time.Second)
	return m.now
}

func cloneReview(r *domain.Review) *domain.Review {
	c := *r
	c.Assignees = append([]domain.Assignee(nil), r.Assignees...)
	return &c
}

func (m *memReviews) Create(ctx context.Context, d *dto.CreateReviewDTO) (*domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	r := &domain.Review{
		Id:        d.Id,
		RoomId:    d.RoomId,
		Title:     d.Title,
		Link:      d.Link,
		Status:    domain.ReviewActive,
		CreatedBy: d.CreatedBy,
		Assignees: d.Assignees,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.reviews[r.Id] = r
	return cloneReview(r), nil
}

func (m *memReviews) Get(ctx context.Context, id string) (*domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneReview(r), nil
}

func (m *memReviews) List(ctx context.Context, d *dto.ListReviewsDTO) ([]*domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Review
	for _, r := range m.reviews {
		if r.RoomId == d.RoomId && r.Status == d.Status {
			out = append(out, cloneReview(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if d.Status == domain.ReviewActive {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (m *memReviews) mutate(id string, apply func(r *domain.Review) (bool, error)) (*domain.Review, error) {
	r, ok := m.reviews[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	changed, err := apply(r)
	if err != nil {
		return nil, err
	}
	if changed {
		r.UpdatedAt = m.tick()
	}
	return cloneReview(r), nil
}

func (m *memReviews) SetStatus(ctx context.Context, d *dto.SetStatusDTO) (*result.SetStatusResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := &result.SetStatusResult{}
	review, err := m.mutate(d.ReviewId, func(r *domain.Review) (bool, error) {
		changed, err := domain.CheckTransition(r.Status, d.Status)
		if err != nil || !changed {
			return false, err
		}
		r.Status = d.Status
		res.Changed = true
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	res.Review = review

	if res.Changed {
		var queue []domain.Review
		for _, r := range m.reviews {
			if r.RoomId == review.RoomId && r.Status == review.Status {
				queue = append(queue, *r)
			}
		}
		res.Evicted = domain.QueueEvictions(queue, domain.HistoryLimit)
		for _, id := range res.Evicted {
			delete(m.reviews, id)
		}
	}
	return res, nil
}

func (m *memReviews) MarkReviewed(ctx context.Context, d *dto.MarkReviewedDTO) (*result.MarkReviewedResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := &result.MarkReviewedResult{}
	review, err := m.mutate(d.ReviewId, func(r *domain.Review) (bool, error) {
		if r.Status.Terminal() {
			return false, domain.ErrReviewClosed
		}
		r.Assignees, res.Touched = domain.MarkReviewed(r.Assignees, d.Email)
		return res.Touched, nil
	})
	if err != nil {
		return nil, err
	}
	res.Review = review
	return res, nil
}

func (m *memReviews) MarkUpdated(ctx context.Context, d *dto.MarkUpdatedDTO) (*domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutate(d.ReviewId, func(r *domain.Review) (bool, error) {
		if r.Status.Terminal() {
			return false, domain.ErrReviewClosed
		}
		if !domain.HasReviewed(r.Assignees) {
			return false, domain.ErrNothingReviewed
		}
		r.Assignees = domain.ResetAssignees(r.Assignees)
		return true, nil
	})
}

func (m *memReviews) UpdateAssignees(ctx context.Context, d *dto.UpdateAssigneesDTO) (*result.UpdateAssigneesResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := &result.UpdateAssigneesResult{}
	review, err := m.mutate(d.ReviewId, func(r *domain.Review) (bool, error) {
		if r.Status.Terminal() {
			return false, domain.ErrReviewClosed
		}
		r.Assignees, res.Added, res.Removed = domain.MergeAssignees(r.Assignees, d.Emails)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	res.Review = review
	return res, nil
}

func (m *memReviews) RemoveReviewer(ctx context.Context, d *dto.RemoveReviewerDTO) (*result.RemoveReviewerResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := &result.RemoveReviewerResult{}
	review, err := m.mutate(d.ReviewId, func(r *domain.Review) (bool, error) {
		if r.Status.Terminal() {
			return false, domain.ErrReviewClosed
		}
		r.Assignees, res.Removed, res.Empty = domain.RemoveAssignee(r.Assignees, d.Email)
		return res.Removed, nil
	})
	if err != nil {
		return nil, err
	}
	res.Review = review
	return res, nil
}

func (m *memReviews) Stats(ctx context.Context, d *dto.RoomStatsDTO) (*result.RoomStatsResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := &result.RoomStatsResult{}
	for _, r := range m.reviews {
		if r.RoomId != d.RoomId {
			continue
		}
		switch r.Status {
		case domain.ReviewActive:
			res.Active++
		case domain.ReviewDone:
			res.Done++
		case domain.ReviewDeleted:
			res.Deleted++
		}
	}
	return res, nil
}
