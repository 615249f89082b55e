// Package identity resolves and refreshes the session credential and
// staff identifier used to authenticate outbound calls.
package identity

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/shoreagents/staffmon/internal/domain"
)

// Binder holds the process-wide identity context. It is the only
// writer; the sync engine and capture scheduler read it via Current.
// Services start without a credential and pick it up once bound rather
// than refusing to run.
type Binder struct {
	profiles domain.ProfileSource
	store    domain.StateStore
	interval time.Duration // fallback refresh cadence for opaque credentials
	logger   *zap.Logger

	mu  sync.RWMutex
	ctx domain.IdentityContext

	refresh chan struct{}
}

// NewBinder creates a binder. The device ID and any previously bound
// staff identifier are restored from the store.
func NewBinder(profiles domain.ProfileSource, store domain.StateStore, refreshInterval time.Duration, logger *zap.Logger) *Binder {
	b := &Binder{
		profiles: profiles,
		store:    store,
		interval: refreshInterval,
		logger:   logger,
		refresh:  make(chan struct{}, 1),
	}
	if store != nil {
		if id, err := store.DeviceID(); err != nil {
			logger.Warn("could not resolve device id", zap.Error(err))
		} else {
			b.ctx.DeviceID = id
		}
		if staffID, err := store.LoadIdentity(); err == nil && staffID != "" {
			b.ctx.StaffID = staffID
		}
	}
	return b
}

// Current returns the identity context. Safe for concurrent readers.
func (b *Binder) Current() domain.IdentityContext {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ctx
}

// SetCredential installs a login-derived credential and requests a
// profile resolution on the binder's loop.
func (b *Binder) SetCredential(token string) {
	b.mu.Lock()
	b.ctx.Credential = token
	b.mu.Unlock()
	select {
	case b.refresh <- struct{}{}:
	default:
	}
}

// ClearCredential drops the credential and the bound staff identifier,
// used when the user logs out.
func (b *Binder) ClearCredential() {
	b.mu.Lock()
	b.ctx.Credential = ""
	b.ctx.StaffID = ""
	b.mu.Unlock()
	if b.store != nil {
		_ = b.store.SaveIdentity("")
	}
}

// Run resolves the profile whenever a credential is installed and
// re-resolves before the credential expires (JWT exp when readable,
// otherwise the fallback interval). Blocks until ctx is done.
func (b *Binder) Run(ctx context.Context) {
	timer := time.NewTimer(b.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.refresh:
		case <-timer.C:
		}

		b.resolve(ctx)

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(b.nextRefresh())
	}
}

// resolve fetches the profile behind the bound credential. Best
// effort: failure leaves the previous identity in place until the next
// cycle.
func (b *Binder) resolve(ctx context.Context) {
	b.mu.RLock()
	cred := b.ctx.Credential
	b.mu.RUnlock()
	if cred == "" {
		return
	}

	profile, err := b.profiles.FetchProfile(ctx)
	if err != nil {
		b.logger.Warn("identity resolution failed", zap.Error(err))
		return
	}

	b.mu.Lock()
	b.ctx.StaffID = profile.StaffID
	b.mu.Unlock()
	if b.store != nil {
		if err := b.store.SaveIdentity(profile.StaffID); err != nil {
			b.logger.Warn("could not persist staff identity", zap.Error(err))
		}
	}
	b.logger.Info("identity bound", zap.String("staff_id", profile.StaffID))
}

// nextRefresh picks the next resolution delay. The credential is
// opaque for authentication purposes, but when it happens to be a JWT
// the unverified exp claim lets us refresh shortly before expiry.
func (b *Binder) nextRefresh() time.Duration {
	b.mu.RLock()
	cred := b.ctx.Credential
	b.mu.RUnlock()
	if cred == "" {
		return b.interval
	}

	token, _, err := jwt.NewParser().ParseUnverified(cred, jwt.MapClaims{})
	if err != nil {
		return b.interval
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return b.interval
	}

	until := time.Until(exp.Time) - time.Minute
	if until < time.Minute {
		until = time.Minute
	}
	if until > b.interval {
		until = b.interval
	}
	return until
}
