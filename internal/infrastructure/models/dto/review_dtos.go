package dto

import "github.com/niklvrr/ReviewRoom/internal/domain"

type CreateReviewDTO struct {
	Id        string
	RoomId    string
	Title     string
	Link      string
	CreatedBy string
	Assignees []domain.Assignee
}

type ListReviewsDTO struct {
	RoomId string
	Status domain.ReviewStatus
}

type SetStatusDTO struct {
	ReviewId string
	Status   domain.ReviewStatus
}

type MarkReviewedDTO struct {
	ReviewId string
	Email    string
}

type MarkUpdatedDTO struct {
	ReviewId string
}

type UpdateAssigneesDTO struct {
	ReviewId string
	Emails   []string
}

type RemoveReviewerDTO struct {
	ReviewId string
	Email    string
}

type RoomStatsDTO struct {
	RoomId string
}
