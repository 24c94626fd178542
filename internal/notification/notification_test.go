package notification

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/niklvrr/ReviewRoom/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

const testWebhook = "https://chat.googleapis.com/v1/spaces/SPACE1/messages?key=k&token=t"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
	)
}

// MockFetcher мок Chat API для тестов
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) ListMemberIDs(ctx context.Context, spaceID, accessToken string) (map[string]string, error) {
	args := m.Called(ctx, spaceID, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

// recordingSender запоминает отправленные сообщения
type recordingSender struct {
	mu    sync.Mutex
	sent  []sentMessage
	err   error
	calls int
}

type sentMessage struct {
	webhook, text, threadKey string
}

func (s *recordingSender) Send(ctx context.Context, webhookURL, text, threadKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMessage{webhookURL, text, threadKey})
	return nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestResolveMentionTokens_DirectoryOnly(t *testing.T) {
	fetcher := new(MockFetcher)
	resolver := NewResolver(fetcher, NewTTLCache(5*time.Minute), zap.NewNop())
	directory := []domain.RoomMember{
		{Email: "a@x.com", GoogleChatUserId: "users/1"},
		{Email: "b@x.com", GoogleChatUserId: "2"},
		{Email: "c@x.com"},
	}

	got := resolver.ResolveMentionTokens(context.Background(),
		[]string{"B@x.com", "c@x.com", "a@x.com", "a@x.com"}, directory, testWebhook, "tok")

	assert.Equal(t, "<users/2> <users/c@x.com> <users/1> <users/1>", got)
	// при непустом справочнике Chat API не вызывается
	fetcher.AssertNotCalled(t, "ListMemberIDs", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveMentionTokens_Deterministic(t *testing.T) {
	directory := []domain.RoomMember{{Email: "a@x.com", GoogleChatUserId: "1"}}
	emails := []string{"a@x.com", "z@x.com"}

	warm := NewTTLCache(time.Minute)
	warm.Set("SPACE1", map[string]string{"z@x.com": "26"})

	cold := NewResolver(nil, NewTTLCache(time.Minute), zap.NewNop())
	cached := NewResolver(nil, warm, zap.NewNop())

	ctx := context.Background()
	assert.Equal(t,
		cold.ResolveMentionTokens(ctx, emails, directory, testWebhook, "tok"),
		cached.ResolveMentionTokens(ctx, emails, directory, testWebhook, "tok"),
	)
}

func TestResolveMentionTokens_FetchAndCache(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("ListMemberIDs", mock.Anything, "SPACE1", "tok").
		Return(map[string]string{"a@x.com": "111"}, nil).Once()
	resolver := NewResolver(fetcher, NewTTLCache(5*time.Minute), zap.NewNop())

	ctx := context.Background()
	first := resolver.ResolveMentionTokens(ctx, []string{"a@x.com", "b@x.com"}, nil, testWebhook, "tok")
	second := resolver.ResolveMentionTokens(ctx, []string{"a@x.com"}, nil, testWebhook, "tok")

	assert.Equal(t, "<users/111> <users/b@x.com>", first)
	assert.Equal(t, "<users/111>", second)
	fetcher.AssertExpectations(t)
}

func TestResolveMentionTokens_CacheExpires(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	fetcher := new(MockFetcher)
	fetcher.On("ListMemberIDs", mock.Anything, "SPACE1", "tok").
		Return(map[string]string{"a@x.com": "111"}, nil).Twice()
	resolver := NewResolver(fetcher, NewTTLCache(5*time.Minute).WithClock(clock.Now), zap.NewNop())

	ctx := context.Background()
	resolver.ResolveMentionTokens(ctx, []string{"a@x.com"}, nil, testWebhook, "tok")
	clock.now = clock.now.Add(4 * time.Minute)
	resolver.ResolveMentionTokens(ctx, []string{"a@x.com"}, nil, testWebhook, "tok")
	fetcher.AssertNumberOfCalls(t, "ListMemberIDs", 1)

	clock.now = clock.now.Add(time.Minute)
	resolver.ResolveMentionTokens(ctx, []string{"a@x.com"}, nil, testWebhook, "tok")
	fetcher.AssertNumberOfCalls(t, "ListMemberIDs", 2)
}

func TestResolveMentionTokens_FetchFailureFallsBack(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("ListMemberIDs", mock.Anything, "SPACE1", "tok").Return(nil, errors.New("forbidden"))
	cache := NewTTLCache(time.Minute)
	resolver := NewResolver(fetcher, cache, zap.NewNop())

	got := resolver.ResolveMentionTokens(context.Background(), []string{"a@x.com"}, nil, testWebhook, "tok")

	assert.Equal(t, "<users/a@x.com>", got)
	_, cached := cache.Get("SPACE1")
	assert.False(t, cached)
}

func TestResolveMentionTokens_NoTokenNoFetch(t *testing.T) {
	fetcher := new(MockFetcher)
	resolver := NewResolver(fetcher, NewTTLCache(time.Minute), zap.NewNop())

	got := resolver.ResolveMentionTokens(context.Background(), []string{"a@x.com"}, nil, testWebhook, "")

	assert.Equal(t, "<users/a@x.com>", got)
	fetcher.AssertNotCalled(t, "ListMemberIDs", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveMentionTokens_BadWebhookNoFetch(t *testing.T) {
	fetcher := new(MockFetcher)
	resolver := NewResolver(fetcher, NewTTLCache(time.Minute), zap.NewNop())

	got := resolver.ResolveMentionTokens(context.Background(), []string{"a@x.com"}, nil, "https://example.com/x", "tok")

	assert.Equal(t, "<users/a@x.com>", got)
	fetcher.AssertNotCalled(t, "ListMemberIDs", mock.Anything, mock.Anything, mock.Anything)
}

func testRoom() *domain.Room {
	return &domain.Room{
		Slug:       "team-a",
		Name:       "Team A",
		WebhookURL: testWebhook,
		AllowedUsers: []domain.RoomMember{
			{Email: "a@x.com", GoogleChatUserId: "users/1"},
			{Email: "b@x.com", GoogleChatUserId: "users/2"},
		},
		CreatedBy: "a@x.com",
	}
}

func testReview(now time.Time) *domain.Review {
	return &domain.Review{
		Id:        "rev-1",
		RoomId:    "team-a",
		Title:     "PR1",
		Link:      "http://x/1",
		Status:    domain.ReviewActive,
		CreatedBy: "a@x.com",
		Assignees: []domain.Assignee{{Email: "b@x.com", Status: domain.AssigneePending}},
		CreatedAt: now.Add(-time.Hour),
		UpdatedAt: now.Add(-time.Hour),
	}
}

func newTestFormatter(now time.Time) *Formatter {
	return NewFormatter(NewResolver(nil, nil, zap.NewNop()), func() time.Time { return now })
}

func TestFormatter_Created(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	f := newTestFormatter(now)

	text := f.Format(context.Background(), Event{Kind: EventCreated, Room: testRoom(), Review: testReview(now)})

	assert.Contains(t, text, "*PR1*")
	assert.Contains(t, text, "http://x/1")
	assert.Contains(t, text, "ID: rev-1")
	assert.Contains(t, text, "Owner: <users/1>")
	assert.Contains(t, text, "Reviewers: <users/2>")
}

func TestFormatter_DeletedAndUpdated(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	f := newTestFormatter(now)
	review := testReview(now)
	review.Assignees = []domain.Assignee{
		{Email: "b@x.com", Status: domain.AssigneePending},
		{Email: "c@x.com", Status: domain.AssigneePending},
	}

	deleted := f.Format(context.Background(), Event{Kind: EventDeleted, Room: testRoom(), Review: review, Actor: "b@x.com"})
	assert.True(t, strings.HasPrefix(deleted, "Review deleted\n"), deleted)
	assert.Contains(t, deleted, "ID: rev-1")
	assert.Contains(t, deleted, "Owner: <users/1>")
	assert.Contains(t, deleted, "Deleted by: <users/2>")

	updated := f.Format(context.Background(), Event{Kind: EventUpdated, Room: testRoom(), Review: review, Actor: "a@x.com"})
	assert.True(t, strings.HasPrefix(updated, "Review updated, needs another pass\n"), updated)
	assert.Contains(t, updated, "Owner: <users/1>")
	assert.Contains(t, updated, "Please take another look: <users/2> <users/c@x.com>")
}

func TestFormatter_PingStaleness(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	f := newTestFormatter(now)
	review := testReview(now)

	fresh := f.Format(context.Background(), Event{Kind: EventPing, Room: testRoom(), Review: review})
	assert.NotContains(t, fresh, "Stuck")
	assert.Contains(t, fresh, "Waiting for: <users/2>")

	review.UpdatedAt = now.Add(-24 * time.Hour)
	review.CreatedAt = now.Add(-72 * time.Hour)
	stale := f.Format(context.Background(), Event{Kind: EventPing, Room: testRoom(), Review: review})
	assert.Contains(t, stale, "Stuck: no activity for 24h+, open for 72h+")
}

func TestFormatter_ReviewedAndChanged(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	f := newTestFormatter(now)
	review := testReview(now)
	review.Assignees[0].Status = domain.AssigneeReviewed

	reviewed := f.Format(context.Background(), Event{Kind: EventReviewed, Room: testRoom(), Review: review, Actor: "b@x.com"})
	assert.Contains(t, reviewed, "Reviewed by: <users/2>")
	assert.Contains(t, reviewed, "Still pending: -")

	changed := f.Format(context.Background(), Event{
		Kind: EventReviewersChanged, Room: testRoom(), Review: review,
		Added: []string{"b@x.com"}, Removed: []string{"c@x.com"},
	})
	assert.Contains(t, changed, "Added: <users/2>")
	assert.Contains(t, changed, "Removed: c@x.com")
}

func TestFormatter_Summary(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	f := newTestFormatter(now)
	stuck := testReview(now)
	stuck.Id = "rev-2"
	stuck.UpdatedAt = now.Add(-25 * time.Hour)

	empty := f.Format(context.Background(), Event{Kind: EventSummary, Room: testRoom()})
	assert.Equal(t, "*Team A*: no active reviews", empty)

	text := f.Format(context.Background(), Event{
		Kind: EventSummary, Room: testRoom(),
		Reviews: []*domain.Review{testReview(now), stuck},
	})
	assert.Contains(t, text, "2 active review(s)")
	assert.Contains(t, text, "ID: rev-2")
	assert.Contains(t, text, "Stuck: no activity for 24h+")
}

func TestNotifier_SendsInThread(t *testing.T) {
	now := time.Now()
	sender := &recordingSender{}
	n := NewNotifier(newTestFormatter(now), sender, time.Second, zap.NewNop())

	n.Notify(context.Background(), Event{Kind: EventDone, Room: testRoom(), Review: testReview(now)})
	n.Wait()

	require.Len(t, sender.sent, 1)
	assert.Equal(t, testWebhook, sender.sent[0].webhook)
	assert.Equal(t, "rev-1", sender.sent[0].threadKey)
	assert.Contains(t, sender.sent[0].text, "Review completed")
}

func TestNotifier_SurvivesCanceledRequest(t *testing.T) {
	now := time.Now()
	sender := &recordingSender{}
	n := NewNotifier(newTestFormatter(now), sender, time.Second, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	n.Notify(ctx, Event{Kind: EventSummary, Room: testRoom()})
	cancel()
	n.Wait()

	require.Len(t, sender.sent, 1)
	assert.Empty(t, sender.sent[0].threadKey)
}

func TestNotifier_FailureIsSwallowed(t *testing.T) {
	now := time.Now()
	sender := &recordingSender{err: errors.New("webhook down")}
	n := NewNotifier(newTestFormatter(now), sender, time.Second, zap.NewNop())

	n.Notify(context.Background(), Event{Kind: EventCreated, Room: testRoom(), Review: testReview(now)})
	n.Wait()

	assert.Equal(t, 1, sender.calls)
}

func TestNotifier_NoWebhookSkips(t *testing.T) {
	now := time.Now()
	sender := &recordingSender{}
	n := NewNotifier(newTestFormatter(now), sender, time.Second, zap.NewNop())
	room := testRoom()
	room.WebhookURL = ""

	n.Notify(context.Background(), Event{Kind: EventCreated, Room: room, Review: testReview(now)})
	n.Wait()

	assert.Zero(t, sender.calls)
}
