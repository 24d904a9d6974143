package domain

import "errors"

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrRoomNotFound    = errors.New("room not found")
	ErrMeetingNotFound = errors.New("meeting not found")
	ErrMessageNotFound = errors.New("message not found")
)
