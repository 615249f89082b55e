package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shoreagents/staffmon/internal/domain"
)

// fakeProfiles implements domain.ProfileSource
type fakeProfiles struct {
	profile *domain.Profile
	err     error
	calls   int
}

func (f *fakeProfiles) FetchProfile(ctx context.Context) (*domain.Profile, error) {
	f.calls++
	return f.profile, f.err
}

// fakeIdentityStore implements domain.StateStore for the identity keys;
// the rest of the interface is inherited unimplemented
type fakeIdentityStore struct {
	domain.StateStore
	staffID  string
	deviceID string
	saved    []string
}

func (f *fakeIdentityStore) DeviceID() (string, error)     { return f.deviceID, nil }
func (f *fakeIdentityStore) LoadIdentity() (string, error) { return f.staffID, nil }
func (f *fakeIdentityStore) SaveIdentity(id string) error {
	f.saved = append(f.saved, id)
	f.staffID = id
	return nil
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "staff-1",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestBinderRestoresPersistedIdentity(t *testing.T) {
	store := &fakeIdentityStore{staffID: "staff-5", deviceID: "dev-9"}
	b := NewBinder(&fakeProfiles{}, store, time.Minute, zap.NewNop())

	ic := b.Current()
	assert.Equal(t, "staff-5", ic.StaffID)
	assert.Equal(t, "dev-9", ic.DeviceID)
	assert.True(t, ic.Bound())
}

func TestResolveBindsProfile(t *testing.T) {
	profiles := &fakeProfiles{profile: &domain.Profile{StaffID: "staff-7"}}
	store := &fakeIdentityStore{deviceID: "dev-1"}
	b := NewBinder(profiles, store, time.Minute, zap.NewNop())

	b.SetCredential("opaque-session")
	b.resolve(context.Background())

	ic := b.Current()
	assert.Equal(t, "staff-7", ic.StaffID)
	assert.Equal(t, "opaque-session", ic.Credential)
	assert.Equal(t, []string{"staff-7"}, store.saved)
}

func TestResolveSkipsWithoutCredential(t *testing.T) {
	profiles := &fakeProfiles{profile: &domain.Profile{StaffID: "staff-7"}}
	b := NewBinder(profiles, nil, time.Minute, zap.NewNop())

	b.resolve(context.Background())
	assert.Zero(t, profiles.calls)
	assert.False(t, b.Current().Bound())
}

func TestResolveFailureKeepsPreviousIdentity(t *testing.T) {
	profiles := &fakeProfiles{profile: &domain.Profile{StaffID: "staff-7"}}
	store := &fakeIdentityStore{}
	b := NewBinder(profiles, store, time.Minute, zap.NewNop())

	b.SetCredential("tok")
	b.resolve(context.Background())
	require.Equal(t, "staff-7", b.Current().StaffID)

	profiles.err = errors.New("remote down")
	b.resolve(context.Background())
	assert.Equal(t, "staff-7", b.Current().StaffID, "failure leaves last-known identity")
}

func TestClearCredentialDropsIdentity(t *testing.T) {
	profiles := &fakeProfiles{profile: &domain.Profile{StaffID: "staff-7"}}
	store := &fakeIdentityStore{}
	b := NewBinder(profiles, store, time.Minute, zap.NewNop())

	b.SetCredential("tok")
	b.resolve(context.Background())
	require.True(t, b.Current().Bound())

	b.ClearCredential()
	ic := b.Current()
	assert.Empty(t, ic.Credential)
	assert.Empty(t, ic.StaffID)
	assert.Equal(t, "", store.staffID, "persisted identity cleared on logout")
}

func TestNextRefreshUsesJWTExpiry(t *testing.T) {
	b := NewBinder(&fakeProfiles{}, nil, time.Hour, zap.NewNop())

	// Expiry 10 minutes out: refresh a minute before it
	b.SetCredential(signedToken(t, time.Now().Add(10*time.Minute)))
	d := b.nextRefresh()
	assert.InDelta(t, (9 * time.Minute).Seconds(), d.Seconds(), 5)
}

func TestNextRefreshClampsNearExpiry(t *testing.T) {
	b := NewBinder(&fakeProfiles{}, nil, time.Hour, zap.NewNop())

	b.SetCredential(signedToken(t, time.Now().Add(30*time.Second)))
	assert.Equal(t, time.Minute, b.nextRefresh(), "never refreshes tighter than a minute")

	b.SetCredential(signedToken(t, time.Now().Add(-time.Minute)))
	assert.Equal(t, time.Minute, b.nextRefresh(), "expired token still clamps to the floor")
}

func TestNextRefreshFallsBackForOpaqueCredential(t *testing.T) {
	b := NewBinder(&fakeProfiles{}, nil, 20*time.Minute, zap.NewNop())

	assert.Equal(t, 20*time.Minute, b.nextRefresh(), "no credential uses the interval")

	b.SetCredential("not-a-jwt")
	assert.Equal(t, 20*time.Minute, b.nextRefresh())

	// Distant expiry is capped at the interval
	b.SetCredential(signedToken(t, time.Now().Add(24*time.Hour)))
	assert.Equal(t, 20*time.Minute, b.nextRefresh())
}

func TestRunResolvesOnCredentialInstall(t *testing.T) {
	profiles := &fakeProfiles{profile: &domain.Profile{StaffID: "staff-2"}}
	b := NewBinder(profiles, nil, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	b.SetCredential("tok")
	for b.Current().StaffID == "" {
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, "staff-2", b.Current().StaffID)

	cancel()
	<-done
}
