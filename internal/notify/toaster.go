package notify

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/Micah-S/gw2pao/internal/domain"
	"github.com/Micah-S/gw2pao/internal/metrics"
	"github.com/Micah-S/gw2pao/internal/overlay"
)

// toastFrame is the wire shape the HUD panel renders as a toast.
type toastFrame struct {
	Type         string              `json:"type"` // "toast"
	Notification domain.Notification `json:"notification"`
}

// Toaster displays notifications as toasts on the HUD overlay channel. Each
// notification is broadcast independently; concurrent calls are safe and
// never merged.
type Toaster struct {
	hub   *overlay.Hub
	clock clockwork.Clock
	log   *slog.Logger
}

var _ domain.Notifier = (*Toaster)(nil)

func NewToaster(hub *overlay.Hub, clock clockwork.Clock, log *slog.Logger) *Toaster {
	return &Toaster{hub: hub, clock: clock, log: log}
}

func (t *Toaster) DisplayNotification(title, message string, severity domain.Severity) {
	t.DisplayCustomNotification(domain.Notification{
		Title:    title,
		Message:  message,
		Severity: severity,
	})
}

func (t *Toaster) DisplayCustomNotification(n domain.Notification) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Raised.IsZero() {
		n.Raised = t.clock.Now()
	}

	t.hub.Broadcast(overlay.ChannelHUD, toastFrame{Type: "toast", Notification: n})
	metrics.NotificationsRouted.WithLabelValues("displayed").Inc()
	t.log.Info("notification displayed",
		"title", n.Title,
		"severity", n.Severity,
		"feature", n.Feature)
}
