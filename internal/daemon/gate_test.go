package daemon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/shoreagents/staffmon/internal/bus"
	"github.com/shoreagents/staffmon/internal/domain"
)

func navEvent(ctx domain.WorkContext) bus.Event {
	return bus.Event{Topic: bus.TopicNavigation, Context: ctx}
}

func TestGateStartsIneligible(t *testing.T) {
	g := NewGate(zap.NewNop())
	assert.False(t, g.Eligible())
	assert.Equal(t, domain.ContextLogin, g.Context())
}

func TestGateFiresEligibleOnStaffContext(t *testing.T) {
	g := NewGate(zap.NewNop())
	var started, stopped int
	g.OnTransition(func() { started++ }, func() { stopped++ })

	g.HandleNavigation(navEvent(domain.ContextStaff))
	assert.True(t, g.Eligible())
	assert.Equal(t, 1, started)
	assert.Zero(t, stopped)
}

func TestGateFiresIneligibleOnClientContext(t *testing.T) {
	g := NewGate(zap.NewNop())
	var started, stopped int
	g.OnTransition(func() { started++ }, func() { stopped++ })

	g.HandleNavigation(navEvent(domain.ContextStaff))
	g.HandleNavigation(navEvent(domain.ContextClient))

	assert.False(t, g.Eligible())
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, stopped)
}

func TestGateNoCallbackWhenEligibilityUnchanged(t *testing.T) {
	g := NewGate(zap.NewNop())
	var started, stopped int
	g.OnTransition(func() { started++ }, func() { stopped++ })

	// login -> admin: ineligible both sides, no transition
	g.HandleNavigation(navEvent(domain.ContextAdmin))
	assert.Zero(t, started)
	assert.Zero(t, stopped)

	// staff -> staff: eligible both sides, no transition
	g.HandleNavigation(navEvent(domain.ContextStaff))
	g.HandleNavigation(navEvent(domain.ContextStaff))
	assert.Equal(t, 1, started)
	assert.Zero(t, stopped)
}

func TestGateTracksEveryContext(t *testing.T) {
	g := NewGate(zap.NewNop())
	for _, ctx := range []domain.WorkContext{
		domain.ContextStaff, domain.ContextClient,
		domain.ContextAdmin, domain.ContextLogin,
	} {
		g.HandleNavigation(navEvent(ctx))
		assert.Equal(t, ctx, g.Context())
		assert.Equal(t, ctx == domain.ContextStaff, g.Eligible())
	}
}
