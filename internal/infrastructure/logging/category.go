package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	IO              Category = "IO"
	Internal        Category = "Internal"
	Mongo           Category = "Mongo"
	RabbitMQ        Category = "RabbitMQ"
	WebSocket       Category = "WebSocket"
	Validation      Category = "Validation"
	RequestResponse Category = "RequestResponse"
)

const (
	// General
	Startup         SubCategory = "Startup"
	RateLimiting    SubCategory = "RateLimiting"
	ExternalService SubCategory = "ExternalService"

	// WebSocket
	Auth      SubCategory = "Auth"
	Presence  SubCategory = "Presence"
	Relay     SubCategory = "Relay"
	Meeting   SubCategory = "Meeting"
	Transport SubCategory = "Transport"

	// IO
	Persistence SubCategory = "Persistence"
	AuditTrail  SubCategory = "AuditTrail"
)

const (
	AppName      ExtraKey = "AppName"
	LoggerName   ExtraKey = "Logger"
	ConnectionID ExtraKey = "ConnectionId"
	RoomID       ExtraKey = "RoomId"
	UserID       ExtraKey = "UserId"
	MeetingID    ExtraKey = "MeetingId"
	EventName    ExtraKey = "Event"
	ClientIp     ExtraKey = "ClientIp"
	Method       ExtraKey = "Method"
	StatusCode   ExtraKey = "StatusCode"
	Path         ExtraKey = "Path"
	Latency      ExtraKey = "Latency"
	ErrorMessage ExtraKey = "ErrorMessage"
)
