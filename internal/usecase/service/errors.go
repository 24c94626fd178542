package service

import (
	"errors"
	"fmt"
)

type DomainError struct {
	Code    string
	Message string
	Err     error
}

func WrapError(domainError *DomainError, err error) error {
	return &DomainError{
		Code:    domainError.Code,
		Message: domainError.Message,
		Err:     err,
	}
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is сравнивает по коду и сообщению, чтобы errors.Is(err, ErrRoomNotFound)
// срабатывал и для обернутых копий
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

var (
	// NOT_FOUND
	ErrRoomNotFound = &DomainError{
		Code:    "NOT_FOUND",
		Message: "room not found",
	}
	ErrReviewNotFound = &DomainError{
		Code:    "NOT_FOUND",
		Message: "review not found",
	}

	// UNAUTHORIZED
	ErrUnauthorized = &DomainError{
		Code:    "UNAUTHORIZED",
		Message: "authenticated email is required",
	}

	// FORBIDDEN
	ErrForbidden = &DomainError{
		Code:    "FORBIDDEN",
		Message: "user is not allowed in this room",
	}
	ErrNotOwner = &DomainError{
		Code:    "FORBIDDEN",
		Message: "only the review owner can do this",
	}

	// ROOM_EXISTS
	ErrRoomExists = &DomainError{
		Code:    "ROOM_EXISTS",
		Message: "room slug already taken",
	}

	// NOTHING_REVIEWED
	ErrNothingReviewed = &DomainError{
		Code:    "NOTHING_REVIEWED",
		Message: "no reviewer has reviewed yet",
	}

	// REVIEW_CLOSED
	ErrReviewClosed = &DomainError{
		Code:    "REVIEW_CLOSED",
		Message: "review is already done or deleted",
	}

	// INVALID_INPUT
	ErrInvalidInput = &DomainError{
		Code:    "INVALID_INPUT",
		Message: "invalid input",
	}
	ErrInvalidWebhook = &DomainError{
		Code:    "INVALID_INPUT",
		Message: "invalid google chat webhook url",
	}
	ErrNotRoomMember = &DomainError{
		Code:    "INVALID_INPUT",
		Message: "assignee is not a member of the room",
	}

	// Ошибки прокси Google Chat
	ErrInsufficientScope = &DomainError{
		Code:    "INSUFFICIENT_SCOPE",
		Message: "access token lacks chat.memberships.readonly scope",
	}
	ErrChatAPIUnavailable = &DomainError{
		Code:    "CHAT_API_UNAVAILABLE",
		Message: "google chat api is disabled or not available for this workspace",
	}
	ErrChatAPI = &DomainError{
		Code:    "CHAT_API_ERROR",
		Message: "google chat api request failed",
	}
	ErrWebhookRejected = &DomainError{
		Code:    "WEBHOOK_REJECTED",
		Message: "google chat webhook rejected the message",
	}
)
