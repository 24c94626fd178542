package domain

import "time"

type ReviewStatus string

const (
	ReviewActive  ReviewStatus = "active"
	ReviewDone    ReviewStatus = "done"
	ReviewDeleted ReviewStatus = "deleted"
)

func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewActive, ReviewDone, ReviewDeleted:
		return true
	}
	return false
}

// Terminal сообщает, что из статуса нет обратного перехода
func (s ReviewStatus) Terminal() bool {
	return s == ReviewDone || s == ReviewDeleted
}

type AssigneeStatus string

const (
	AssigneePending  AssigneeStatus = "pending"
	AssigneeReviewed AssigneeStatus = "reviewed"
)

type RoomMember struct {
	Email            string `json:"email"`
	GoogleChatUserId string `json:"googleChatUserId,omitempty"`
}

type Room struct {
	Slug         string
	Name         string
	WebhookURL   string
	AllowedUsers []RoomMember
	CreatedBy    string
	CreatedAt    time.Time
}

// IsAllowed проверяет, что email входит в allowedUsers комнаты
func (r *Room) IsAllowed(email string) bool {
	email = NormalizeEmail(email)
	if email == "" {
		return false
	}
	for _, m := range r.AllowedUsers {
		if NormalizeEmail(m.Email) == email {
			return true
		}
	}
	return false
}

type Assignee struct {
	Email  string
	Status AssigneeStatus
}

type Review struct {
	Id        string
	RoomId    string
	Title     string
	Link      string
	Status    ReviewStatus
	CreatedBy string
	Assignees []Assignee
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *Review) AssigneeEmails() []string {
	emails := make([]string, 0, len(r.Assignees))
	for _, a := range r.Assignees {
		emails = append(emails, a.Email)
	}
	return emails
}

func (r *Review) PendingEmails() []string {
	var emails []string
	for _, a := range r.Assignees {
		if a.Status == AssigneePending {
			emails = append(emails, a.Email)
		}
	}
	return emails
}

func (r *Review) IsAssignee(email string) bool {
	email = NormalizeEmail(email)
	for _, a := range r.Assignees {
		if a.Email == email {
			return true
		}
	}
	return false
}
