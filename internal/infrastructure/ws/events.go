package ws

// Inbound event names, one per connection capability.
const (
	EventAuth         = "auth"
	EventJoinRoom     = "joinRoom"
	EventLeaveRoom    = "leaveRoom"
	EventSendMessage  = "sendMessage"
	EventTyping       = "typing"
	EventGetRoomUsers = "getRoomUsers"
	EventEndMeeting   = "endMeeting"
)

// Outbound event names.
const (
	EventAuthOK         = "auth:ok"
	EventAuthFail       = "auth:fail"
	EventRoomHistory    = "roomHistory"
	EventPresence       = "presence"
	EventParticipants   = "participants"
	EventReceiveMessage = "receiveMessage"
	EventMeetingEnded   = "meetingEnded"
	EventRoomUsers      = "roomUsers"
)

// Presence actions.
const (
	ActionJoined = "joined"
	ActionLeft   = "left"
)
