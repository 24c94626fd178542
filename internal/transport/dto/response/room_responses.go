package response

import "github.com/niklvrr/ReviewRoom/internal/domain"

type RoomResponse struct {
	Slug         string              `json:"slug"`
	Name         string              `json:"name"`
	WebhookURL   string              `json:"webhookUrl,omitempty"`
	AllowedUsers []domain.RoomMember `json:"allowedUsers"`
	CreatedBy    string              `json:"createdBy"`
	CreatedAt    string              `json:"createdAt"`
}

type ListRoomsResponse struct {
	Rooms []*RoomResponse `json:"rooms"`
}

type ReviewerStat struct {
	Email    string `json:"email"`
	Pending  int    `json:"pending"`
	Reviewed int    `json:"reviewed"`
}

type RoomStatsResponse struct {
	RoomId    string         `json:"roomId"`
	Active    int            `json:"active"`
	Done      int            `json:"done"`
	Deleted   int            `json:"deleted"`
	Reviewers []ReviewerStat `json:"reviewers"`
}

type SummaryResponse struct {
	RoomId        string `json:"roomId"`
	ActiveReviews int    `json:"activeReviews"`
	Sent          bool   `json:"sent"`
}
