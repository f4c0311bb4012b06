package domain

type NotificationKind string

const (
	NotificationKindSuccess NotificationKind = "SUCCESS"
	NotificationKindError   NotificationKind = "ERROR"
	NotificationKindInfo    NotificationKind = "INFO"
)

// Notification is a fire-and-forget message for a user. RecipientEmail
// is only consulted by notifier backends that deliver out of process.
type Notification struct {
	Title          string           `json:"title"`
	Message        string           `json:"message"`
	Kind           NotificationKind `json:"kind"`
	RecipientEmail string           `json:"recipient_email,omitempty"`
}
