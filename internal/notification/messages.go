package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/niklvrr/ReviewRoom/internal/domain"
)

type EventKind string

const (
	EventCreated          EventKind = "created"
	EventDone             EventKind = "done"
	EventDeleted          EventKind = "deleted"
	EventUpdated          EventKind = "updated"
	EventReviewed         EventKind = "reviewed"
	EventPing             EventKind = "ping"
	EventReviewersChanged EventKind = "reviewers_changed"
	EventSummary          EventKind = "summary"
)

// Event - то, о чем нужно сообщить в чат комнаты
type Event struct {
	Kind   EventKind
	Room   *domain.Room
	Review *domain.Review
	// Actor - кто выполнил действие
	Actor string
	// AccessToken пользователя для чтения участников пространства, может быть пустым
	AccessToken string
	Added       []string
	Removed     []string
	// Reviews - активные ревью для сводки по комнате
	Reviews []*domain.Review
}

type Formatter struct {
	resolver *Resolver
	now      func() time.Time
}

func NewFormatter(resolver *Resolver, now func() time.Time) *Formatter {
	if now == nil {
		now = time.Now
	}
	return &Formatter{
		resolver: resolver,
		now:      now,
	}
}

// Format собирает текст сообщения. Пустая строка - сообщать нечего.
func (f *Formatter) Format(ctx context.Context, ev Event) string {
	switch ev.Kind {
	case EventCreated:
		return f.created(ctx, ev)
	case EventDone:
		return f.done(ctx, ev)
	case EventDeleted:
		return f.deleted(ctx, ev)
	case EventUpdated:
		return f.updated(ctx, ev)
	case EventReviewed:
		return f.reviewed(ctx, ev)
	case EventPing:
		return f.ping(ctx, ev)
	case EventReviewersChanged:
		return f.reviewersChanged(ctx, ev)
	case EventSummary:
		return f.summary(ctx, ev)
	}
	return ""
}

func (f *Formatter) mentions(ctx context.Context, ev Event, emails []string) string {
	if len(emails) == 0 {
		return "-"
	}
	return f.resolver.ResolveMentionTokens(ctx, emails, ev.Room.AllowedUsers, ev.Room.WebhookURL, ev.AccessToken)
}

func header(title string, r *domain.Review) string {
	return fmt.Sprintf("%s\n*%s*\n%s\nID: %s", title, r.Title, r.Link, r.Id)
}

func (f *Formatter) created(ctx context.Context, ev Event) string {
	r := ev.Review
	return fmt.Sprintf("%s\nOwner: %s\nReviewers: %s",
		header("New review request", r),
		f.mentions(ctx, ev, []string{r.CreatedBy}),
		f.mentions(ctx, ev, r.AssigneeEmails()),
	)
}

func (f *Formatter) done(ctx context.Context, ev Event) string {
	r := ev.Review
	return fmt.Sprintf("%s\nOwner: %s\nReviewers: %s",
		header("Review completed", r),
		f.mentions(ctx, ev, []string{r.CreatedBy}),
		f.mentions(ctx, ev, r.AssigneeEmails()),
	)
}

func (f *Formatter) deleted(ctx context.Context, ev Event) string {
	r := ev.Review
	return fmt.Sprintf("%s\nOwner: %s\nDeleted by: %s",
		header("Review deleted", r),
		f.mentions(ctx, ev, []string{r.CreatedBy}),
		f.mentions(ctx, ev, []string{ev.Actor}),
	)
}

func (f *Formatter) updated(ctx context.Context, ev Event) string {
	r := ev.Review
	return fmt.Sprintf("%s\nOwner: %s\nPlease take another look: %s",
		header("Review updated, needs another pass", r),
		f.mentions(ctx, ev, []string{r.CreatedBy}),
		f.mentions(ctx, ev, r.AssigneeEmails()),
	)
}

func (f *Formatter) reviewed(ctx context.Context, ev Event) string {
	r := ev.Review
	return fmt.Sprintf("%s\nOwner: %s\nReviewed by: %s\nStill pending: %s",
		header("Review approved", r),
		f.mentions(ctx, ev, []string{r.CreatedBy}),
		f.mentions(ctx, ev, []string{ev.Actor}),
		f.mentions(ctx, ev, r.PendingEmails()),
	)
}

func (f *Formatter) ping(ctx context.Context, ev Event) string {
	r := ev.Review
	text := fmt.Sprintf("%s\nOwner: %s\nWaiting for: %s",
		header("Reminder: review is waiting", r),
		f.mentions(ctx, ev, []string{r.CreatedBy}),
		f.mentions(ctx, ev, r.PendingEmails()),
	)
	if flags := staleFlags(r.Staleness(f.now())); flags != "" {
		text += "\n" + flags
	}
	return text
}

func (f *Formatter) reviewersChanged(ctx context.Context, ev Event) string {
	r := ev.Review
	lines := []string{
		header("Reviewers changed", r),
		"Owner: " + f.mentions(ctx, ev, []string{r.CreatedBy}),
	}
	if len(ev.Added) > 0 {
		lines = append(lines, "Added: "+f.mentions(ctx, ev, ev.Added))
	}
	if len(ev.Removed) > 0 {
		lines = append(lines, "Removed: "+strings.Join(ev.Removed, ", "))
	}
	lines = append(lines, "Reviewers: "+f.mentions(ctx, ev, r.AssigneeEmails()))
	return strings.Join(lines, "\n")
}

func (f *Formatter) summary(ctx context.Context, ev Event) string {
	if len(ev.Reviews) == 0 {
		return fmt.Sprintf("*%s*: no active reviews", ev.Room.Name)
	}

	now := f.now()
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*: %d active review(s)", ev.Room.Name, len(ev.Reviews))
	for i, r := range ev.Reviews {
		fmt.Fprintf(&b, "\n\n%d. *%s*\n%s\nID: %s\nOwner: %s\nWaiting for: %s",
			i+1, r.Title, r.Link, r.Id,
			f.mentions(ctx, ev, []string{r.CreatedBy}),
			f.mentions(ctx, ev, r.PendingEmails()),
		)
		if flags := staleFlags(r.Staleness(now)); flags != "" {
			b.WriteString("\n" + flags)
		}
	}
	return b.String()
}

func staleFlags(s domain.Staleness) string {
	var flags []string
	if s.SinceUpdate {
		flags = append(flags, "no activity for 24h+")
	}
	if s.SinceCreated {
		flags = append(flags, "open for 72h+")
	}
	if len(flags) == 0 {
		return ""
	}
	return "Stuck: " + strings.Join(flags, ", ")
}
