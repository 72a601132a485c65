package domain

// EventKind identifies a notification event type on the in-process bus.
type EventKind string

const (
	EventDiscordNotification EventKind = "discord-notification"
	EventEmergencyAlert      EventKind = "emergency-alert"
	EventCommandReply        EventKind = "command-reply"
)

// NotificationEvent is a fire-and-forget payload published once per outcome.
// Subscribers registered after publish miss the event; there is no replay.
type NotificationEvent struct {
	Kind           EventKind              `json:"kind"`
	Message        string                 `json:"message"`
	AdditionalData map[string]interface{} `json:"additional_data,omitempty"`
}
