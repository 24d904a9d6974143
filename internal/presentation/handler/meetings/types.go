package meetings

import "github.com/viewcall/chatrelay/internal/domain"

type createMeetingRequest struct {
	MeetingID string `json:"meetingId"`
	Duration  int64  `json:"duration,omitempty"`
}

type meetingResponse struct {
	Meeting *domain.Meeting `json:"meeting"`
}
