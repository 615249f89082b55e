package daemon

import (
	"sync"

	"go.uber.org/zap"

	"github.com/shoreagents/staffmon/internal/bus"
	"github.com/shoreagents/staffmon/internal/domain"
)

// Gate is the tracking-eligibility predicate: telemetry runs only
// while the workstation shows the staff-facing context, never on the
// client, admin, or login contexts. Navigation events are the only
// transition trigger.
type Gate struct {
	logger *zap.Logger

	mu      sync.Mutex
	current domain.WorkContext

	onEligible   func()
	onIneligible func()
}

// NewGate creates a gate starting on the login context (ineligible).
func NewGate(logger *zap.Logger) *Gate {
	return &Gate{logger: logger, current: domain.ContextLogin}
}

// OnTransition registers the callbacks fired when eligibility flips.
func (g *Gate) OnTransition(onEligible, onIneligible func()) {
	g.mu.Lock()
	g.onEligible = onEligible
	g.onIneligible = onIneligible
	g.mu.Unlock()
}

// Eligible reports whether tracking may run right now.
func (g *Gate) Eligible() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current.Eligible()
}

// Context returns the current work context.
func (g *Gate) Context() domain.WorkContext {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// HandleNavigation evaluates eligibility on a navigation event and
// fires the transition callback when it flips.
func (g *Gate) HandleNavigation(ev bus.Event) {
	g.mu.Lock()
	was := g.current.Eligible()
	g.current = ev.Context
	now := g.current.Eligible()
	var fire func()
	switch {
	case !was && now:
		fire = g.onEligible
	case was && !now:
		fire = g.onIneligible
	}
	g.mu.Unlock()

	if fire != nil {
		g.logger.Info("tracking eligibility changed",
			zap.String("context", string(ev.Context)),
			zap.Bool("eligible", now))
		fire()
	}
}
