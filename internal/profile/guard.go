package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/daap14/console/internal/auth"
	"github.com/daap14/console/internal/rbac"
)

// ErrLoaderPanic is recorded when the loader panics.
var ErrLoaderPanic = errors.New("profile loader panicked")

// State is the load state of the profile for the current identity.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateErrored:
		return "errored"
	}
	return "unknown"
}

// Loader runs one profile load cycle for an identity.
type Loader interface {
	Load(ctx context.Context, id *auth.Identity) (*rbac.Profile, error)
}

// Status is a point-in-time view of a Guard.
type Status struct {
	State    State
	Identity *auth.Identity
	Profile  *rbac.Profile
	Err      error
}

// Guard owns the profile of the current identity and keeps at most one load
// in flight for it. Every identity change or Clear bumps a generation counter;
// a load that finishes under an older generation is discarded.
type Guard struct {
	loader Loader

	mu         sync.Mutex
	identity   *auth.Identity
	generation uint64
	state      State
	profile    *rbac.Profile
	err        error
	done       chan struct{} // open while a load runs under the current generation
}

// NewGuard creates an idle Guard with no identity.
func NewGuard(loader Loader) *Guard {
	return &Guard{loader: loader}
}

// SetIdentity makes id the current identity. A nil id signs out. Switching to
// another identity drops the previous profile before anything new is loaded.
// The same identity with a fresh token only updates the token.
func (g *Guard) SetIdentity(id *auth.Identity) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if id != nil && g.identity != nil && id.ID == g.identity.ID {
		g.identity = id
		return
	}
	g.identity = id
	g.reset()
}

// Clear drops the cached profile without fetching a new one.
func (g *Guard) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reset()
}

func (g *Guard) reset() {
	g.generation++
	g.state = StateIdle
	g.profile = nil
	g.err = nil
	g.done = nil
}

// Load fetches the profile if an identity is known and nothing has been
// loaded for it yet. It returns immediately when a load is already in flight
// or finished; use Wait to block on the in-flight load.
func (g *Guard) Load(ctx context.Context) {
	g.mu.Lock()
	if g.identity == nil || g.state != StateIdle {
		g.mu.Unlock()
		return
	}
	gen, id, done := g.begin()
	g.mu.Unlock()

	g.run(ctx, gen, id, done)
}

// Refresh reloads the profile even if one is already loaded. It is a no-op
// while a load is in flight.
func (g *Guard) Refresh(ctx context.Context) {
	g.mu.Lock()
	if g.identity == nil || g.state == StateLoading {
		g.mu.Unlock()
		return
	}
	g.state = StateIdle
	gen, id, done := g.begin()
	g.mu.Unlock()

	g.run(ctx, gen, id, done)
}

// begin moves idle to loading. Callers hold g.mu.
func (g *Guard) begin() (uint64, *auth.Identity, chan struct{}) {
	g.state = StateLoading
	g.done = make(chan struct{})
	return g.generation, g.identity, g.done
}

func (g *Guard) run(ctx context.Context, gen uint64, id *auth.Identity, done chan struct{}) {
	// The load is shared by every waiter, so one caller going away must not cancel it.
	p, err := g.load(context.WithoutCancel(ctx), id)

	g.mu.Lock()
	defer g.mu.Unlock()
	defer close(done)

	if gen != g.generation {
		slog.Debug("discarding profile load for superseded identity", "identity", id.ID)
		return
	}

	g.done = nil
	if err != nil || p == nil {
		g.state = StateErrored
		g.profile = nil
		g.err = err
		if err == nil {
			g.err = ErrNoProfile
		}
		return
	}
	g.state = StateLoaded
	g.profile = p
	g.err = nil
}

// load calls the loader, turning a panic into an error so waiters are
// always released.
func (g *Guard) load(ctx context.Context, id *auth.Identity) (p *rbac.Profile, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("profile loader panicked", "identity", id.ID, "panic", rec)
			p, err = nil, fmt.Errorf("%w: %v", ErrLoaderPanic, rec)
		}
	}()
	return g.loader.Load(ctx, id)
}

// Wait blocks until the in-flight load, if any, has finished or ctx is done.
func (g *Guard) Wait(ctx context.Context) error {
	g.mu.Lock()
	done := g.done
	g.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the current state, identity, profile and load error.
func (g *Guard) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Status{
		State:    g.state,
		Identity: g.identity,
		Profile:  g.profile,
		Err:      g.err,
	}
}
