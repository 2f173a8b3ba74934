package session

import (
	"context"
	"sync"

	"github.com/daap14/console/internal/auth"
	"github.com/daap14/console/internal/profile"
	"github.com/daap14/console/internal/rbac"
)

// Snapshot is the read-only view handed to consumers of a Provider.
type Snapshot struct {
	Profile  *rbac.Profile
	Loading  bool
	Err      error
	SignedIn bool
	Ready    bool
}

func (s *Snapshot) equal(o *Snapshot) bool {
	return s.Profile == o.Profile &&
		s.Loading == o.Loading &&
		s.Err == o.Err &&
		s.SignedIn == o.SignedIn &&
		s.Ready == o.Ready
}

// Provider exposes the profile guard of one identity together with the
// identity provider's signed-in and ready flags.
type Provider struct {
	guard *profile.Guard

	mu       sync.Mutex
	signedIn bool
	ready    bool
	last     *Snapshot
}

// NewProvider creates a Provider around guard. It is not ready until SignIn
// or SignOut has been called once.
func NewProvider(guard *profile.Guard) *Provider {
	return &Provider{guard: guard}
}

// SignIn hands the resolved identity to the guard.
func (p *Provider) SignIn(id *auth.Identity) {
	p.guard.SetIdentity(id)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.signedIn = id != nil && id.Token != ""
	p.ready = true
}

// SignOut drops the identity and its profile.
func (p *Provider) SignOut() {
	p.guard.SetIdentity(nil)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.signedIn = false
	p.ready = true
}

// Identity returns the current identity, or nil when signed out.
func (p *Provider) Identity() *auth.Identity {
	return p.guard.Status().Identity
}

// Snapshot returns the current view. The same pointer is returned for as
// long as no field has changed.
func (p *Provider) Snapshot() *Snapshot {
	st := p.guard.Status()

	p.mu.Lock()
	defer p.mu.Unlock()

	next := &Snapshot{
		Profile:  st.Profile,
		Loading:  st.State == profile.StateLoading,
		Err:      st.Err,
		SignedIn: p.signedIn,
		Ready:    p.ready,
	}
	if p.last != nil && p.last.equal(next) {
		return p.last
	}
	p.last = next
	return next
}

// Current loads the profile if nothing has been loaded yet, waits for any
// in-flight load and returns the resulting snapshot.
func (p *Provider) Current(ctx context.Context) (*Snapshot, error) {
	p.guard.Load(ctx)
	if err := p.guard.Wait(ctx); err != nil {
		return nil, err
	}
	return p.Snapshot(), nil
}

// Refresh reloads the profile and waits for the result.
func (p *Provider) Refresh(ctx context.Context) (*Snapshot, error) {
	p.guard.Refresh(ctx)
	if err := p.guard.Wait(ctx); err != nil {
		return nil, err
	}
	return p.Snapshot(), nil
}

// ClearCache drops the profile without fetching it again. The next Current
// call loads it anew.
func (p *Provider) ClearCache() {
	p.guard.Clear()
}
