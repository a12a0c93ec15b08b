package gate

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Micah-S/gw2pao/internal/domain"
	"github.com/Micah-S/gw2pao/internal/metrics"
)

// Fact is one named boolean predicate a gate requires. Check reads live
// external state on every call.
type Fact struct {
	Name  string
	Check func() (bool, error)
}

// Warning is the user-facing text shown once per incident of the recognized
// elevation-mismatch failure.
type Warning struct {
	Title   string
	Message string
}

// Gate answers whether a feature may currently be activated by evaluating
// its facts in order. Evaluation stops at the first fact that is false or
// fails.
type Gate struct {
	feature  domain.Feature
	facts    []Fact
	state    *SuppressionState
	notifier domain.Notifier
	warning  Warning
	log      *slog.Logger
}

var _ domain.AvailabilityGate = (*Gate)(nil)

// New builds a gate over the given facts. state must be owned by this gate
// alone.
func New(feature domain.Feature, facts []Fact, state *SuppressionState, notifier domain.Notifier, warning Warning, log *slog.Logger) *Gate {
	return &Gate{
		feature:  feature,
		facts:    facts,
		state:    state,
		notifier: notifier,
		warning:  warning,
		log:      log,
	}
}

// Evaluate computes the conjunction of the gate's facts.
//
// A fact failing with domain.ErrElevationMismatch yields (false, nil): the
// condition is expected and recurring, so it is downgraded to "unavailable"
// and reported to the user once per incident. Any other failure propagates.
// The suppression record clears only when the gate comes back fully
// available, not when a fact is merely false.
func (g *Gate) Evaluate() (bool, error) {
	for _, fact := range g.facts {
		ok, err := fact.Check()
		if err != nil {
			if errors.Is(err, domain.ErrElevationMismatch) {
				g.reportMismatch(fact, err)
				metrics.GateEvaluationsTotal.WithLabelValues(string(g.feature), "elevation_mismatch").Inc()
				return false, nil
			}
			metrics.GateEvaluationsTotal.WithLabelValues(string(g.feature), "error").Inc()
			return false, fmt.Errorf("check %s for %s: %w", fact.Name, g.feature, err)
		}
		if !ok {
			metrics.GateEvaluationsTotal.WithLabelValues(string(g.feature), "unavailable").Inc()
			return false, nil
		}
	}

	g.state.Reset()
	metrics.GateEvaluationsTotal.WithLabelValues(string(g.feature), "available").Inc()
	return true, nil
}

func (g *Gate) reportMismatch(fact Fact, err error) {
	if g.state.Shown() {
		g.log.Debug("elevation mismatch still present, warning suppressed",
			"feature", g.feature, "fact", fact.Name)
		metrics.GateWarningsSuppressed.Inc()
		return
	}

	g.log.Warn("elevation mismatch detected, feature unavailable",
		"feature", g.feature, "fact", fact.Name, "error", err)
	g.notifier.DisplayNotification(g.warning.Title, g.warning.Message, domain.SeverityWarning)
	g.state.MarkShown()
	metrics.GateWarningsEmitted.Inc()
}
