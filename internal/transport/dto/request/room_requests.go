package request

import "github.com/niklvrr/ReviewRoom/internal/domain"

type CreateRoomRequest struct {
	Slug         string              `json:"slug"`
	Name         string              `json:"name"`
	WebhookURL   string              `json:"webhookUrl"`
	AllowedUsers []domain.RoomMember `json:"allowedUsers"`
	Actor        string              `json:"-"`
}

type GetRoomRequest struct {
	Slug  string `json:"-"`
	Actor string `json:"-"`
}

// UpdateRoomRequest - отсутствующее в теле поле не меняется.
// allowedUsers: [] очищает список до создателя комнаты.
type UpdateRoomRequest struct {
	Slug         string              `json:"-"`
	Name         *string             `json:"name"`
	WebhookURL   *string             `json:"webhookUrl"`
	AllowedUsers []domain.RoomMember `json:"allowedUsers"`
	Actor        string              `json:"-"`
}

type ListRoomsRequest struct {
	Actor string `json:"-"`
}

type RoomStatsRequest struct {
	Slug  string `json:"-"`
	Actor string `json:"-"`
}

type SummaryRequest struct {
	Slug        string `json:"-"`
	Actor       string `json:"-"`
	AccessToken string `json:"-"`
}
