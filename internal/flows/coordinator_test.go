package flows

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/credential"
)

type failingStore struct {
	credential.Store
	getErr error
	setErr error
}

func (s failingStore) Get(ctx context.Context) (*credential.Record, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.Store.Get(ctx)
}

func (s failingStore) Set(ctx context.Context, rec credential.Record) error {
	if s.setErr != nil {
		return s.setErr
	}
	return s.Store.Set(ctx, rec)
}

type coordinatorHarness struct {
	store        credential.Store
	release      chan struct{}
	refreshCalls atomic.Int32
	signOuts     atomic.Int32
	broadcasts   atomic.Int32
	refreshErr   error
	lastHandle   atomic.Value

	mu      sync.Mutex
	current credential.Credential
}

func newHarness(rec *credential.Record) *coordinatorHarness {
	return &coordinatorHarness{
		store:   credential.NewMemoryStore(rec),
		release: make(chan struct{}),
	}
}

func (h *coordinatorHarness) deps() CoordinatorDeps {
	return CoordinatorDeps{
		Store: h.store,
		Refresh: func(ctx context.Context, handle string) (credential.Record, error) {
			h.refreshCalls.Add(1)
			h.lastHandle.Store(handle)
			<-h.release
			if h.refreshErr != nil {
				return credential.Record{}, h.refreshErr
			}
			return credential.Record{AccessToken: "new"}, nil
		},
		SetCurrent: func(c credential.Credential) {
			h.mu.Lock()
			h.current = c
			h.mu.Unlock()
		},
		Refreshed: func(string) { h.broadcasts.Add(1) },
		SignOut:   func() { h.signOuts.Add(1) },
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// runConcurrent starts one leader, waits until it is refreshing, then queues
// n-1 followers behind it before releasing the refresh.
func runConcurrent(t *testing.T, c *Coordinator, h *coordinatorHarness, n int) []Outcome {
	t.Helper()
	results := make([]Outcome, n)
	var wg sync.WaitGroup
	wg.Add(n)

	go func() {
		defer wg.Done()
		results[0] = c.ObtainFreshCredential(context.Background())
	}()
	waitFor(t, "leader", c.Refreshing)

	for i := 1; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			results[i] = c.ObtainFreshCredential(context.Background())
		}(i)
	}
	waitFor(t, "followers to queue", func() bool { return c.Pending() == n-1 })

	close(h.release)
	wg.Wait()
	return results
}

func TestCoordinatorSingleRefreshForConcurrentCallers(t *testing.T) {
	h := newHarness(&credential.Record{AccessToken: "old", RefreshToken: "r1"})
	c := NewCoordinator(h.deps())

	const n = 16
	results := runConcurrent(t, c, h, n)

	if got := h.refreshCalls.Load(); got != 1 {
		t.Fatalf("expected exactly one refresh call, got %d", got)
	}
	if got, _ := h.lastHandle.Load().(string); got != "r1" {
		t.Fatalf("expected refresh handle r1, got %q", got)
	}
	for i, out := range results {
		if !out.OK() {
			t.Fatalf("caller %d failed: %v", i, out.Err)
		}
		if out.Credential.AccessToken != "new" {
			t.Fatalf("caller %d got %q", i, out.Credential.AccessToken)
		}
	}
	if got := h.broadcasts.Load(); got != 1 {
		t.Fatalf("expected one credential broadcast, got %d", got)
	}
	if got := h.signOuts.Load(); got != 0 {
		t.Fatalf("expected no sign-out, got %d", got)
	}

	rec, err := h.store.Get(context.Background())
	if err != nil {
		t.Fatalf("store get: %v", err)
	}
	if rec.AccessToken != "new" || rec.RefreshToken != "r1" {
		t.Fatalf("expected store {new, r1}, got %+v", rec)
	}
	if h.current.AccessToken != "new" {
		t.Fatalf("expected current credential updated, got %q", h.current.AccessToken)
	}
	if c.Refreshing() || c.Pending() != 0 {
		t.Fatal("coordinator must be idle with an empty queue after settling")
	}
}

func TestCoordinatorFailureBroadcastsAndSignsOutOnce(t *testing.T) {
	h := newHarness(&credential.Record{AccessToken: "old", RefreshToken: "r1"})
	h.refreshErr = errors.New("refresh rejected")
	c := NewCoordinator(h.deps())

	const n = 8
	results := runConcurrent(t, c, h, n)

	for i, out := range results {
		if out.Failure != RefreshFailureEndpoint || !errors.Is(out.Err, h.refreshErr) {
			t.Fatalf("caller %d: expected endpoint failure, got %+v", i, out)
		}
	}
	if got := h.signOuts.Load(); got != 1 {
		t.Fatalf("expected exactly one sign-out, got %d", got)
	}
	if got := h.broadcasts.Load(); got != 0 {
		t.Fatalf("expected no broadcast on failure, got %d", got)
	}
	rec, _ := h.store.Get(context.Background())
	if rec.AccessToken != "old" {
		t.Fatalf("store must be untouched on failure, got %+v", rec)
	}
}

func TestCoordinatorSettlesQueueInFIFOOrder(t *testing.T) {
	h := newHarness(&credential.Record{AccessToken: "old", RefreshToken: "r1"})
	c := NewCoordinator(h.deps())

	done := make(chan Outcome, 1)
	go func() { done <- c.ObtainFreshCredential(context.Background()) }()
	waitFor(t, "leader", c.Refreshing)

	var mu sync.Mutex
	var order []string
	for _, name := range []string{"A", "B", "C", "D"} {
		name := name
		if c.enter(func(Outcome) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}) {
			t.Fatalf("caller %s unexpectedly became leader", name)
		}
	}

	close(h.release)
	<-done

	mu.Lock()
	defer mu.Unlock()
	want := []string{"A", "B", "C", "D"}
	if len(order) != len(want) {
		t.Fatalf("expected %d settlements, got %v", len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected FIFO order %v, got %v", want, order)
		}
	}
}

func TestCoordinatorNoRefreshTokenSkipsEndpoint(t *testing.T) {
	h := newHarness(nil)
	close(h.release)
	c := NewCoordinator(h.deps())

	out := c.ObtainFreshCredential(context.Background())
	if out.Failure != RefreshFailureNoCredential || !errors.Is(out.Err, ErrNoRefreshToken) {
		t.Fatalf("expected no-credential outcome, got %+v", out)
	}
	if got := h.refreshCalls.Load(); got != 0 {
		t.Fatalf("expected no refresh call, got %d", got)
	}
	if got := h.signOuts.Load(); got != 1 {
		t.Fatalf("expected one sign-out, got %d", got)
	}
}

func TestCoordinatorStoreReadErrorTreatedAsAbsent(t *testing.T) {
	h := newHarness(&credential.Record{AccessToken: "old"})
	h.store = failingStore{Store: h.store, getErr: credential.ErrStoreUnavailable}
	close(h.release)

	var warned atomic.Int32
	deps := h.deps()
	deps.Warn = func(string, error) { warned.Add(1) }
	c := NewCoordinator(deps)

	out := c.ObtainFreshCredential(context.Background())
	if out.Failure != RefreshFailureNoCredential {
		t.Fatalf("expected no-credential outcome, got %+v", out)
	}
	if warned.Load() != 1 {
		t.Fatalf("expected one warning, got %d", warned.Load())
	}
	if h.refreshCalls.Load() != 0 {
		t.Fatal("refresh endpoint must not be called")
	}
}

func TestCoordinatorPersistFailureFailsCycle(t *testing.T) {
	h := newHarness(&credential.Record{AccessToken: "old", RefreshToken: "r1"})
	h.store = failingStore{Store: h.store, setErr: credential.ErrStoreUnavailable}
	close(h.release)
	c := NewCoordinator(h.deps())

	out := c.ObtainFreshCredential(context.Background())
	if out.Failure != RefreshFailurePersist || !errors.Is(out.Err, credential.ErrStoreUnavailable) {
		t.Fatalf("expected persist failure, got %+v", out)
	}
	if h.broadcasts.Load() != 0 {
		t.Fatal("credential must not be broadcast when persisting fails")
	}
	if h.signOuts.Load() != 1 {
		t.Fatalf("expected one sign-out, got %d", h.signOuts.Load())
	}
}

func TestCoordinatorRefreshOutlivesLeaderContext(t *testing.T) {
	h := newHarness(&credential.Record{AccessToken: "old", RefreshToken: "r1"})
	deps := h.deps()
	deps.Refresh = func(ctx context.Context, handle string) (credential.Record, error) {
		<-h.release
		if err := ctx.Err(); err != nil {
			return credential.Record{}, err
		}
		return credential.Record{AccessToken: "new", RefreshToken: "r2"}, nil
	}
	c := NewCoordinator(deps)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Outcome, 1)
	go func() { done <- c.ObtainFreshCredential(ctx) }()
	waitFor(t, "leader", c.Refreshing)
	cancel()
	close(h.release)

	out := <-done
	if !out.OK() {
		t.Fatalf("expected refresh to survive leader cancellation, got %+v", out)
	}
	rec, _ := h.store.Get(context.Background())
	if rec.RefreshToken != "r2" {
		t.Fatalf("expected rotated refresh token, got %+v", rec)
	}
}

func TestCoordinatorReturnsToIdleBetweenCycles(t *testing.T) {
	h := newHarness(&credential.Record{AccessToken: "old", RefreshToken: "r1"})
	close(h.release)

	var finished []int
	deps := h.deps()
	deps.Finished = func(_ Outcome, settled int, _ time.Duration) { finished = append(finished, settled) }
	c := NewCoordinator(deps)

	for i := 0; i < 3; i++ {
		if out := c.ObtainFreshCredential(context.Background()); !out.OK() {
			t.Fatalf("cycle %d failed: %v", i, out.Err)
		}
	}
	if got := h.refreshCalls.Load(); got != 3 {
		t.Fatalf("expected one refresh per sequential cycle, got %d", got)
	}
	if len(finished) != 3 {
		t.Fatalf("expected three finished hooks, got %v", finished)
	}
}
