package domain

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	// HistoryLimit - сколько done/deleted ревью хранится в одной комнате
	HistoryLimit = 10

	StaleSinceUpdate  = 24 * time.Hour
	StaleSinceCreated = 72 * time.Hour
)

var (
	ErrReviewClosed  = errors.New("review is closed")
	ErrInvalidStatus = errors.New("invalid review status")
	ErrInvalidSlug   = errors.New("invalid room slug")
	ErrInvalidEmail  = errors.New("invalid email")

	ErrNothingReviewed = errors.New("no assignee has reviewed yet")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}$`)

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) error {
	email = NormalizeEmail(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " <>") {
		return ErrInvalidEmail
	}
	return nil
}

func ValidateSlug(slug string) error {
	if !slugPattern.MatchString(slug) {
		return ErrInvalidSlug
	}
	return nil
}

// NormalizeMembers приводит email к нижнему регистру и убирает дубликаты.
// При повторе сохраняется первый непустой googleChatUserId.
func NormalizeMembers(members []RoomMember) []RoomMember {
	out := make([]RoomMember, 0, len(members))
	index := make(map[string]int, len(members))
	for _, m := range members {
		email := NormalizeEmail(m.Email)
		if email == "" {
			continue
		}
		chatId := strings.TrimSpace(m.GoogleChatUserId)
		if i, ok := index[email]; ok {
			if out[i].GoogleChatUserId == "" {
				out[i].GoogleChatUserId = chatId
			}
			continue
		}
		index[email] = len(out)
		out = append(out, RoomMember{Email: email, GoogleChatUserId: chatId})
	}
	return out
}

// EnsureCreator гарантирует, что создатель комнаты есть в allowedUsers
func EnsureCreator(members []RoomMember, createdBy string) []RoomMember {
	members = NormalizeMembers(members)
	creator := NormalizeEmail(createdBy)
	for _, m := range members {
		if m.Email == creator {
			return members
		}
	}
	return append([]RoomMember{{Email: creator}}, members...)
}

// NewAssignees строит список ревьюеров в статусе pending, уникальный по email
func NewAssignees(emails []string) []Assignee {
	seen := make(map[string]struct{}, len(emails))
	out := make([]Assignee, 0, len(emails))
	for _, e := range emails {
		email := NormalizeEmail(e)
		if email == "" {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, Assignee{Email: email, Status: AssigneePending})
	}
	return out
}

// MarkReviewed переводит ревьюера в reviewed.
// touched=false только если ревьюер уже был reviewed: повтор ничего не меняет.
// Для email не из списка ревью все равно считается обновленным.
func MarkReviewed(assignees []Assignee, email string) (out []Assignee, touched bool) {
	email = NormalizeEmail(email)
	out = make([]Assignee, len(assignees))
	copy(out, assignees)
	for i := range out {
		if out[i].Email != email {
			continue
		}
		if out[i].Status == AssigneeReviewed {
			return out, false
		}
		out[i].Status = AssigneeReviewed
		return out, true
	}
	return out, true
}

func HasReviewed(assignees []Assignee) bool {
	for _, a := range assignees {
		if a.Status == AssigneeReviewed {
			return true
		}
	}
	return false
}

// ResetAssignees возвращает всех ревьюеров в pending ("mark as updated")
func ResetAssignees(assignees []Assignee) []Assignee {
	out := make([]Assignee, len(assignees))
	for i, a := range assignees {
		out[i] = Assignee{Email: a.Email, Status: AssigneePending}
	}
	return out
}

// MergeAssignees заменяет список целиком: reviewed сохраняется для тех,
// кто есть в обоих списках, новые получают pending.
func MergeAssignees(current []Assignee, emails []string) (out []Assignee, added, removed []string) {
	prev := make(map[string]AssigneeStatus, len(current))
	for _, a := range current {
		prev[a.Email] = a.Status
	}

	out = NewAssignees(emails)
	kept := make(map[string]struct{}, len(out))
	for i := range out {
		kept[out[i].Email] = struct{}{}
		if status, ok := prev[out[i].Email]; ok {
			out[i].Status = status
			continue
		}
		added = append(added, out[i].Email)
	}
	for _, a := range current {
		if _, ok := kept[a.Email]; !ok {
			removed = append(removed, a.Email)
		}
	}
	return out, added, removed
}

// RemoveAssignee удаляет одного ревьюера и сообщает, остался ли кто-то еще
func RemoveAssignee(assignees []Assignee, email string) (out []Assignee, removed bool, empty bool) {
	email = NormalizeEmail(email)
	out = make([]Assignee, 0, len(assignees))
	for _, a := range assignees {
		if a.Email == email {
			removed = true
			continue
		}
		out = append(out, a)
	}
	return out, removed, len(out) == 0
}

// CheckTransition разрешает переход только из active в терминальный статус.
// Повтор того же терминального статуса не считается ошибкой.
func CheckTransition(from, to ReviewStatus) (changed bool, err error) {
	if !to.Terminal() {
		return false, ErrInvalidStatus
	}
	if from == to {
		return false, nil
	}
	if from != ReviewActive {
		return false, ErrReviewClosed
	}
	return true, nil
}

// QueueEvictions возвращает id самых старых по updatedAt записей сверх limit
func QueueEvictions(reviews []Review, limit int) []string {
	if len(reviews) <= limit {
		return nil
	}
	sorted := make([]Review, len(reviews))
	copy(sorted, reviews)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].UpdatedAt.Equal(sorted[j].UpdatedAt) {
			return sorted[i].Id < sorted[j].Id
		}
		return sorted[i].UpdatedAt.Before(sorted[j].UpdatedAt)
	})

	excess := len(sorted) - limit
	ids := make([]string, 0, excess)
	for _, r := range sorted[:excess] {
		ids = append(ids, r.Id)
	}
	return ids
}

type Staleness struct {
	SinceUpdate  bool
	SinceCreated bool
}

func (s Staleness) Any() bool {
	return s.SinceUpdate || s.SinceCreated
}

func (r *Review) Staleness(now time.Time) Staleness {
	return Staleness{
		SinceUpdate:  now.Sub(r.UpdatedAt) >= StaleSinceUpdate,
		SinceCreated: now.Sub(r.CreatedAt) >= StaleSinceCreated,
	}
}
