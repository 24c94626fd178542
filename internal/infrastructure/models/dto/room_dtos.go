package dto

import "github.com/niklvrr/ReviewRoom/internal/domain"

type CreateRoomDTO struct {
	Slug         string
	Name         string
	WebhookURL   string
	AllowedUsers []domain.RoomMember
	CreatedBy    string
}

// UpdateRoomDTO - nil поле означает "не менять"
type UpdateRoomDTO struct {
	Slug         string
	Name         *string
	WebhookURL   *string
	AllowedUsers []domain.RoomMember
	ReplaceUsers bool
}

type GetRoomDTO struct {
	Slug string
}

type ListRoomsDTO struct {
	Email string
}
