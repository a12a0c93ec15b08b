package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Availability Gate Metrics
var (
	// GateEvaluationsTotal tracks gate evaluations by feature and result
	GateEvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_evaluations_total",
			Help: "Total availability gate evaluations by feature and result (available/unavailable/elevation_mismatch/error)",
		},
		[]string{"feature", "result"},
	)

	// GateWarningsEmitted tracks elevation warnings actually shown to the user
	GateWarningsEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gate_warnings_emitted_total",
			Help: "Total elevation-mismatch warnings shown to the user (first failure of an incident)",
		},
	)

	// GateWarningsSuppressed tracks warnings suppressed within an incident
	GateWarningsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gate_warnings_suppressed_total",
			Help: "Total elevation-mismatch warnings suppressed because the incident was already reported",
		},
	)
)

// Session Orchestrator Metrics
var (
	// SurfacesCreated tracks presentation surfaces created by feature
	SurfacesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surfaces_created_total",
			Help: "Total presentation surfaces created by feature",
		},
		[]string{"feature"},
	)

	// SurfacesFocused tracks focus requests on live surfaces by feature
	SurfacesFocused = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surfaces_focused_total",
			Help: "Total focus requests routed to an already-live surface by feature",
		},
		[]string{"feature"},
	)

	// CommandInvocations tracks menu command invocations by command ID and result
	CommandInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "command_invocations_total",
			Help: "Total menu command invocations by command and result (ok/unavailable/error)",
		},
		[]string{"command", "result"},
	)

	// NotificationsRouted tracks feature events routed by outcome
	NotificationsRouted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_routed_total",
			Help: "Total feature events routed by outcome (displayed/disabled/dropped)",
		},
		[]string{"outcome"},
	)

	// OrchestratorPanicsTotal tracks panics recovered on the presentation loop
	OrchestratorPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orchestrator_panics_total",
			Help: "Total panics recovered while executing a presentation-loop command",
		},
	)

	// OrchestratorCommandDepth tracks current presentation-loop command channel depth
	OrchestratorCommandDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "orchestrator_command_channel_depth",
			Help: "Current presentation-loop command channel depth",
		},
	)
)

// Overlay Hub Metrics
var (
	// OverlayClients tracks connected overlay clients by channel
	OverlayClients = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "overlay_clients",
			Help: "Current connected overlay clients by channel",
		},
		[]string{"channel"},
	)

	// OverlaySlowClientsEvicted tracks slow overlay clients evicted
	OverlaySlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "overlay_slow_clients_evicted_total",
			Help: "Total slow overlay clients evicted due to full send buffer",
		},
	)

	// OverlayFramesSent tracks frames broadcast by channel
	OverlayFramesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overlay_frames_sent_total",
			Help: "Total overlay frames broadcast by channel",
		},
		[]string{"channel"},
	)

	// OverlayConnectionsRejected tracks rejected socket connections by reason
	OverlayConnectionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overlay_connections_rejected_total",
			Help: "Total overlay socket connections rejected by reason (rate_limit/per_ip_limit/global_limit/channel_limit)",
		},
		[]string{"reason"},
	)
)

// Probe Metrics
var (
	// ProcessScansTotal tracks process scans by result
	ProcessScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "process_scans_total",
			Help: "Total game process scans by result (running/not_running/elevation_mismatch/error)",
		},
		[]string{"result"},
	)

	// ProcessScanDuration tracks process scan latency in seconds
	ProcessScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "process_scan_duration_seconds",
			Help:    "Game process scan duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// TelemetryReloads tracks link telemetry reloads by result
	TelemetryReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_reloads_total",
			Help: "Total link telemetry file reloads by result (success/corrupt/missing)",
		},
		[]string{"result"},
	)
)

// Feature Controller Metrics
var (
	// FeatureEventsRaised tracks events raised by feature and kind
	FeatureEventsRaised = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feature_events_raised_total",
			Help: "Total feature events raised by feature and kind",
		},
		[]string{"feature", "kind"},
	)
)

// Settings Metrics
var (
	// SettingsSaves tracks settings persistence attempts by aggregate and result
	SettingsSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settings_saves_total",
			Help: "Total settings save attempts by aggregate and result (success/error)",
		},
		[]string{"name", "result"},
	)

	// SettingsLoadsAbsent tracks settings loads that fell back to defaults
	SettingsLoadsAbsent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settings_loads_absent_total",
			Help: "Total settings loads that substituted the default aggregate (missing/corrupt)",
		},
		[]string{"name"},
	)
)

// Build Information Metrics
var (
	// BuildInfo is a gauge that always returns 1, with build metadata as labels
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build information with version, commit, build_time, and go_version labels (value is always 1)",
		},
		[]string{"version", "commit", "build_time", "go_version"},
	)
)

// HTTP Request Metrics
// Note: http_errors_total{type} is provided by the internal/errors package.
