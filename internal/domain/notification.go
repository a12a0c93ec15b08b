package domain

import (
	"time"

	"github.com/google/uuid"
)

// Severity classifies a notification for display styling.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is the display artifact handed to the notification surface.
type Notification struct {
	ID       uuid.UUID `json:"id"`
	Feature  Feature   `json:"feature,omitempty"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
	Raised   time.Time `json:"raised"`
}

// Notifier abstracts the notification surface. Implementations must accept
// multiple in-flight notifications: concurrent events are displayed
// independently, never merged or queued.
type Notifier interface {
	DisplayNotification(title, message string, severity Severity)
	DisplayCustomNotification(n Notification)
}
