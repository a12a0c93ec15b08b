package app

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/Micah-S/gw2pao/internal/domain"
	"github.com/Micah-S/gw2pao/internal/metrics"
)

const (
	commandQueueSize = 256
	stopTimeout      = 10 * time.Second
	depthInterval    = time.Second
	depthWarnLevel   = 200
)

// featureSession pairs a feature's controller with its optional presentation
// handle. At most one live handle exists per feature; the slot is written
// only by the orchestrator loop.
type featureSession struct {
	controller domain.FeatureController
	surface    domain.Surface
}

// orchCmd is the marker interface for commands processed by the loop.
type orchCmd interface {
	isOrchCmd()
}

type baseOrchCmd struct{}

func (baseOrchCmd) isOrchCmd() {}

type displayCmd struct {
	baseOrchCmd
	feature domain.Feature
	errCh   chan error
}

type canDisplayCmd struct {
	baseOrchCmd
	feature domain.Feature
	replyCh chan canDisplayReply
}

type canDisplayReply struct {
	ok  bool
	err error
}

type menuCmd struct {
	baseOrchCmd
	replyCh chan menuReply
}

type menuReply struct {
	entries []domain.MenuEntry
	err     error
}

type invokeCmd struct {
	baseOrchCmd
	id    string
	errCh chan error
}

type setToggleCmd struct {
	baseOrchCmd
	id    string
	on    bool
	errCh chan error
}

type statusCmd struct {
	baseOrchCmd
	replyCh chan statusReply
}

type statusReply struct {
	statuses []domain.FeatureStatus
	err      error
}

type notifyCmd struct {
	baseOrchCmd
	event domain.FeatureEvent
}

type stopOrchCmd struct {
	baseOrchCmd
}

// Orchestrator is the single authority for showing a feature. It owns the
// presentation handles, the fixed menu command list and the notification
// routing rule; everything runs on one loop goroutine and public methods
// marshal onto it.
type Orchestrator struct {
	cmdCh    chan orchCmd
	sessions map[domain.Feature]*featureSession
	gates    map[domain.Feature]domain.AvailabilityGate
	commands []domain.MenuCommand
	factory  domain.SurfaceFactory
	notifier domain.Notifier

	notificationsEnabled    func() bool
	setNotificationsEnabled func(bool)

	clock clockwork.Clock
	log   *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

var _ domain.Orchestrator = (*Orchestrator)(nil)

// Config carries the orchestrator's collaborators. Controllers must cover
// every feature; Gates is optional per feature, a feature without a gate is
// unconditionally displayable.
type Config struct {
	Controllers map[domain.Feature]domain.FeatureController
	Gates       map[domain.Feature]domain.AvailabilityGate
	Factory     domain.SurfaceFactory
	Notifier    domain.Notifier

	// Accessor pair for the notification routing flag. Decoupled from the
	// settings layout on purpose: the orchestrator never sees the settings
	// aggregate itself.
	NotificationsEnabled    func() bool
	SetNotificationsEnabled func(bool)

	Clock  clockwork.Clock
	Logger *slog.Logger
}

// NewOrchestrator validates the configuration, builds the fixed menu command
// list and starts the loop.
func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if cfg.Factory == nil {
		return nil, errors.New("surface factory is required")
	}
	if cfg.Notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if cfg.NotificationsEnabled == nil || cfg.SetNotificationsEnabled == nil {
		return nil, errors.New("notification flag accessors are required")
	}
	if cfg.Clock == nil {
		return nil, errors.New("clock is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	for _, f := range domain.Features() {
		if cfg.Controllers[f] == nil {
			return nil, fmt.Errorf("controller for feature %s is required", f)
		}
	}

	o := &Orchestrator{
		cmdCh:                   make(chan orchCmd, commandQueueSize),
		sessions:                make(map[domain.Feature]*featureSession, len(cfg.Controllers)),
		gates:                   cfg.Gates,
		factory:                 cfg.Factory,
		notifier:                cfg.Notifier,
		notificationsEnabled:    cfg.NotificationsEnabled,
		setNotificationsEnabled: cfg.SetNotificationsEnabled,
		clock:                   cfg.Clock,
		log:                     cfg.Logger,
		stopCh:                  make(chan struct{}),
		done:                    make(chan struct{}),
	}
	for f, c := range cfg.Controllers {
		o.sessions[f] = &featureSession{controller: c}
	}
	o.commands = o.buildCommands()

	go o.run()
	return o, nil
}

// DisplayOrFocus shows the feature's panel: a fresh one when none is live,
// otherwise the existing one is focused.
func (o *Orchestrator) DisplayOrFocus(f domain.Feature) error {
	errCh := make(chan error, 1)
	if err := o.send(displayCmd{feature: f, errCh: errCh}); err != nil {
		return err
	}
	return o.awaitErr(errCh)
}

// CanDisplay reports whether the feature may currently be activated. An
// unrelated gate failure propagates; the recognized elevation mismatch is
// already downgraded inside the gate.
func (o *Orchestrator) CanDisplay(f domain.Feature) (bool, error) {
	replyCh := make(chan canDisplayReply, 1)
	if err := o.send(canDisplayCmd{feature: f, replyCh: replyCh}); err != nil {
		return false, err
	}
	select {
	case r := <-replyCh:
		return r.ok, r.err
	case <-o.done:
		return false, domain.ErrOrchestratorStopped
	}
}

// Commands returns the fixed menu command list built at construction, in
// display order. Descriptors are never replaced after construction; callers
// must not run the action closures themselves, Invoke marshals them onto the
// orchestrator loop.
func (o *Orchestrator) Commands() []domain.MenuCommand {
	out := make([]domain.MenuCommand, len(o.commands))
	copy(out, o.commands)
	return out
}

// Menu returns a point-in-time snapshot of every command's state. Enablement
// is re-queried on each call, there is no push notification of changes.
func (o *Orchestrator) Menu() ([]domain.MenuEntry, error) {
	replyCh := make(chan menuReply, 1)
	if err := o.send(menuCmd{replyCh: replyCh}); err != nil {
		return nil, err
	}
	select {
	case r := <-replyCh:
		return r.entries, r.err
	case <-o.done:
		return nil, domain.ErrOrchestratorStopped
	}
}

// Invoke runs a command by ID after re-checking its enablement.
func (o *Orchestrator) Invoke(id string) error {
	errCh := make(chan error, 1)
	if err := o.send(invokeCmd{id: id, errCh: errCh}); err != nil {
		return err
	}
	return o.awaitErr(errCh)
}

// SetToggle sets a toggle command to an explicit state.
func (o *Orchestrator) SetToggle(id string, on bool) error {
	errCh := make(chan error, 1)
	if err := o.send(setToggleCmd{id: id, on: on, errCh: errCh}); err != nil {
		return err
	}
	return o.awaitErr(errCh)
}

// Status reports a snapshot of every feature session.
func (o *Orchestrator) Status() ([]domain.FeatureStatus, error) {
	replyCh := make(chan statusReply, 1)
	if err := o.send(statusCmd{replyCh: replyCh}); err != nil {
		return nil, err
	}
	select {
	case r := <-replyCh:
		return r.statuses, r.err
	case <-o.done:
		return nil, domain.ErrOrchestratorStopped
	}
}

// OnFeatureNotification receives controller events and dispatches them onto
// the orchestrator loop. It never blocks the signaling controller: events
// arriving faster than the loop drains are dropped.
func (o *Orchestrator) OnFeatureNotification(ev domain.FeatureEvent) {
	select {
	case o.cmdCh <- notifyCmd{event: ev}:
	case <-o.stopCh:
	default:
		o.log.Warn("command queue full, dropping notification",
			"feature", ev.Feature, "kind", ev.Kind)
		metrics.NotificationsRouted.WithLabelValues("dropped").Inc()
	}
}

// Stop shuts the loop down. Idempotent; blocks until the loop exits or the
// stop timeout fires. Controllers are not stopped here, their lifecycle
// belongs to the caller.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		close(o.stopCh)

		select {
		case o.cmdCh <- stopOrchCmd{}:
		case <-o.done:
			return
		}

		timeout := o.clock.NewTimer(stopTimeout)
		defer timeout.Stop()

		select {
		case <-o.done:
			o.log.Info("orchestrator stopped")
		case <-timeout.Chan():
			o.log.Warn("orchestrator stop timed out", "timeout", stopTimeout)
		}
	})
}

func (o *Orchestrator) send(cmd orchCmd) error {
	select {
	case o.cmdCh <- cmd:
		return nil
	case <-o.stopCh:
		return domain.ErrOrchestratorStopped
	}
}

// awaitErr waits for the loop's reply. The done fallback unblocks callers
// when the loop dies before answering.
func (o *Orchestrator) awaitErr(errCh chan error) error {
	select {
	case err := <-errCh:
		return err
	case <-o.done:
		return domain.ErrOrchestratorStopped
	}
}

func (o *Orchestrator) run() {
	defer close(o.done)

	depth := o.clock.NewTicker(depthInterval)
	defer depth.Stop()

	for {
		select {
		case cmd := <-o.cmdCh:
			if o.handle(cmd) {
				return
			}
		case <-depth.Chan():
			n := len(o.cmdCh)
			metrics.OrchestratorCommandDepth.Set(float64(n))
			if n > depthWarnLevel {
				o.log.Warn("orchestrator command queue backing up", "depth", n)
			}
		}
	}
}

// guard runs one command handler, converting a panic into an error reply.
// The command closures and gate facts are injected code; a defect in one of
// them must not kill the loop or leave the caller waiting forever.
func (o *Orchestrator) guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.OrchestratorPanicsTotal.Inc()
			o.log.Error("panic in orchestrator command", "op", op, "panic", r)
			err = fmt.Errorf("%s panicked: %v", op, r)
		}
	}()
	return fn()
}

func (o *Orchestrator) handle(cmd orchCmd) (stop bool) {
	switch c := cmd.(type) {
	case displayCmd:
		c.errCh <- o.guard("display", func() error { return o.handleDisplay(c.feature) })
	case canDisplayCmd:
		var ok bool
		err := o.guard("can-display", func() (e error) {
			ok, e = o.handleCanDisplay(c.feature)
			return e
		})
		c.replyCh <- canDisplayReply{ok: ok, err: err}
	case menuCmd:
		var entries []domain.MenuEntry
		err := o.guard("menu", func() error {
			entries = o.handleMenu()
			return nil
		})
		c.replyCh <- menuReply{entries: entries, err: err}
	case invokeCmd:
		c.errCh <- o.guard("invoke", func() error { return o.handleInvoke(c.id) })
	case setToggleCmd:
		c.errCh <- o.guard("set-toggle", func() error { return o.handleSetToggle(c.id, c.on) })
	case statusCmd:
		var statuses []domain.FeatureStatus
		err := o.guard("status", func() (e error) {
			statuses, e = o.handleStatus()
			return e
		})
		c.replyCh <- statusReply{statuses: statuses, err: err}
	case notifyCmd:
		_ = o.guard("notify", func() error {
			o.handleNotify(c.event)
			return nil
		})
	case stopOrchCmd:
		o.log.Info("orchestrator stopping")
		return true
	default:
		o.log.Warn("unknown orchestrator command", "type", fmt.Sprintf("%T", cmd))
	}
	return false
}

func (o *Orchestrator) handleDisplay(f domain.Feature) error {
	session, ok := o.sessions[f]
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownFeature, f)
	}

	if session.surface != nil && session.surface.Visible() {
		session.surface.Focus()
		metrics.SurfacesFocused.WithLabelValues(string(f)).Inc()
		o.log.Debug("focusing existing surface", "feature", f)
		return nil
	}

	// Absent or stale handle: a new activation cycle. Start is idempotent
	// and the controller keeps running across surface replacements.
	session.controller.Start()

	surface, err := o.factory.Create(f)
	if err != nil {
		return fmt.Errorf("create surface for %s: %w", f, err)
	}
	session.surface = surface
	surface.Show()
	metrics.SurfacesCreated.WithLabelValues(string(f)).Inc()
	o.log.Info("surface created", "feature", f)
	return nil
}

func (o *Orchestrator) handleCanDisplay(f domain.Feature) (bool, error) {
	if _, ok := o.sessions[f]; !ok {
		return false, fmt.Errorf("%w: %q", domain.ErrUnknownFeature, f)
	}

	gate, gated := o.gates[f]
	if !gated {
		return true, nil
	}

	ok, err := gate.Evaluate()
	if err != nil {
		return false, fmt.Errorf("evaluate availability for %s: %w", f, err)
	}
	return ok, nil
}

func (o *Orchestrator) handleStatus() ([]domain.FeatureStatus, error) {
	statuses := make([]domain.FeatureStatus, 0, len(o.sessions))
	for _, f := range domain.Features() {
		session, ok := o.sessions[f]
		if !ok {
			continue
		}
		available, err := o.handleCanDisplay(f)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, domain.FeatureStatus{
			Feature:     f,
			Available:   available,
			SurfaceLive: session.surface != nil && session.surface.Visible(),
		})
	}
	return statuses, nil
}

func (o *Orchestrator) handleNotify(ev domain.FeatureEvent) {
	if !o.notificationsEnabled() {
		metrics.NotificationsRouted.WithLabelValues("disabled").Inc()
		o.log.Debug("notifications disabled, dropping event",
			"feature", ev.Feature, "kind", ev.Kind)
		return
	}

	// Every event becomes its own artifact. Concurrent events display
	// independently, they are never merged or queued.
	o.notifier.DisplayCustomNotification(domain.Notification{
		ID:       uuid.New(),
		Feature:  ev.Feature,
		Title:    ev.Title,
		Message:  ev.Message,
		Severity: ev.Severity,
		Raised:   ev.At,
	})
}
