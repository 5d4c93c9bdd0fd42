package flows

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/credential"
)

// ErrNoRefreshToken is the cause recorded when the store holds nothing to refresh from.
var ErrNoRefreshToken = errors.New("no refresh token stored")

// RefreshFailureKind classifies refresh cycle failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureNoCredential
	RefreshFailureEndpoint
	RefreshFailurePersist
)

// Outcome is the single result of one refresh cycle, shared by the leader and
// every caller queued behind it.
type Outcome struct {
	Failure    RefreshFailureKind
	Err        error
	Credential credential.Credential
}

// OK reports whether the cycle produced a credential.
func (o Outcome) OK() bool {
	return o.Failure == RefreshFailureNone && o.Err == nil
}

// CoordinatorDeps captures refresh cycle dependencies.
type CoordinatorDeps struct {
	Store credential.Store
	// Refresh calls the refresh endpoint once with handle and returns the new
	// record. An empty RefreshToken in the result keeps the stored one.
	Refresh    func(ctx context.Context, handle string) (credential.Record, error)
	SetCurrent func(credential.Credential)
	Refreshed  func(accessToken string)
	SignOut    func()
	// Timeout bounds the leader's refresh; zero means no bound.
	Timeout time.Duration
	Now     func() time.Time

	Started  func()
	Joined   func(position int)
	Finished func(out Outcome, settled int, elapsed time.Duration)
	Warn     func(msg string, err error)
}

type pendingCaller struct {
	onSettled func(Outcome)
}

// Coordinator serializes credential refreshes: at most one refresh call is in
// flight, and every caller arriving while it runs receives its outcome.
type Coordinator struct {
	deps CoordinatorDeps

	mu         sync.Mutex
	refreshing bool
	pending    []pendingCaller
}

// NewCoordinator returns an idle coordinator.
func NewCoordinator(deps CoordinatorDeps) *Coordinator {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Coordinator{deps: deps}
}

// Refreshing reports whether a refresh cycle is in flight.
func (c *Coordinator) Refreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshing
}

// Pending returns the number of callers queued behind the in-flight refresh.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// ObtainFreshCredential returns a freshly refreshed credential. The first caller
// while idle becomes the leader and performs the refresh; callers arriving while
// a refresh is in flight wait for and share its outcome. Waiting cannot be
// cancelled.
func (c *Coordinator) ObtainFreshCredential(ctx context.Context) Outcome {
	settled := make(chan Outcome, 1)
	if !c.enter(func(out Outcome) { settled <- out }) {
		return <-settled
	}
	return c.lead(ctx)
}

// enter atomically checks the state and either transitions idle→refreshing
// (returning true, caller is leader) or queues onSettled (returning false).
func (c *Coordinator) enter(onSettled func(Outcome)) bool {
	c.mu.Lock()
	if c.refreshing {
		c.pending = append(c.pending, pendingCaller{onSettled: onSettled})
		position := len(c.pending)
		c.mu.Unlock()
		if c.deps.Joined != nil {
			c.deps.Joined(position)
		}
		return false
	}
	c.refreshing = true
	c.mu.Unlock()
	return true
}

func (c *Coordinator) lead(ctx context.Context) Outcome {
	start := c.deps.Now()
	if c.deps.Started != nil {
		c.deps.Started()
	}

	out := c.refresh(ctx)
	settled := c.settle(out)

	if !out.OK() && c.deps.SignOut != nil {
		c.deps.SignOut()
	}
	if c.deps.Finished != nil {
		c.deps.Finished(out, settled, c.deps.Now().Sub(start))
	}
	return out
}

// settle drains the queue in FIFO order and returns to idle in one critical
// section, so no caller can join a cycle that has already settled.
// onSettled callbacks must not block.
func (c *Coordinator) settle(out Outcome) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	queue := c.pending
	c.pending = nil
	for _, p := range queue {
		p.onSettled(out)
	}
	c.refreshing = false
	return len(queue)
}

func (c *Coordinator) refresh(ctx context.Context) Outcome {
	// Queued callers share this cycle; it outlives the leader's request context.
	ctx = context.WithoutCancel(ctx)
	if c.deps.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.deps.Timeout)
		defer cancel()
	}

	stored, err := c.deps.Store.Get(ctx)
	if err != nil && !errors.Is(err, credential.ErrNotFound) && c.deps.Warn != nil {
		c.deps.Warn("credential store read failed; treating as absent", err)
	}
	handle := ""
	if err == nil {
		handle = stored.RefreshHandle()
	}
	if handle == "" {
		return Outcome{Failure: RefreshFailureNoCredential, Err: ErrNoRefreshToken}
	}

	next, err := c.deps.Refresh(ctx, handle)
	if err != nil {
		return Outcome{Failure: RefreshFailureEndpoint, Err: err}
	}
	if next.RefreshToken == "" {
		next.RefreshToken = stored.RefreshToken
	}
	if next.PresentAt.IsZero() {
		next.PresentAt = c.deps.Now()
	}

	if err := c.deps.Store.Set(ctx, next); err != nil {
		return Outcome{Failure: RefreshFailurePersist, Err: err}
	}

	cred := next.Credential()
	if c.deps.SetCurrent != nil {
		c.deps.SetCurrent(cred)
	}
	if c.deps.Refreshed != nil {
		c.deps.Refreshed(cred.AccessToken)
	}
	return Outcome{Credential: cred}
}
