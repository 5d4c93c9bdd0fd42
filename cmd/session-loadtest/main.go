package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/credential"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		concurrency  = flag.Int("concurrency", 256, "number of concurrent workers")
		ops          = flag.Int("ops", 50000, "requests per phase")
		refreshDelay = flag.Duration("refresh-delay", 50*time.Millisecond, "server-side latency of the refresh endpoint")
		redisAddr    = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix       = flag.String("prefix", "cs", "credential key prefix")
	)
	flag.Parse()

	if *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "concurrency and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		rdb     redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = rdb.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = rdb.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	srv, err := newServer(*refreshDelay)
	if err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		fmt.Fprintf(os.Stderr, "listen: %v\n", err)
		os.Exit(1)
	}
	go func() { _ = http.Serve(ln, srv.routes()) }()

	cfg := goSession.DefaultConfig()
	cfg.Transport.BaseURL = "http://" + ln.Addr().String()
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	store := credential.NewRedisStore(rdb, *prefix, "loadtest-"+uuid.NewString(), time.Hour)
	client, err := goSession.New().WithConfig(cfg).WithStore(store).Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "client build: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	var signOuts atomic.Int64
	reg := client.Attach(func() { signOuts.Add(1) }, nil)
	defer reg.Detach()

	if _, err := client.SignIn(ctx, "load@example.com", "pw"); err != nil {
		fmt.Fprintf(os.Stderr, "sign in: %v\n", err)
		os.Exit(1)
	}

	steady := runPhase(ctx, client, *ops, *concurrency)

	// Every worker now holds a token the server rejects.
	srv.revokeAll()
	storm := runPhase(ctx, client, *ops, *concurrency)

	snap := client.MetricsSnapshot()
	fmt.Println("---- results ----")
	printStats("steady", steady)
	printStats("storm", storm)
	fmt.Printf("refresh: server_rotations=%d started=%d joined=%d success=%d failure=%d sign_outs=%d\n",
		srv.rotations.Load(),
		snap.Counters[goSession.MetricRefreshStarted],
		snap.Counters[goSession.MetricRefreshJoined],
		snap.Counters[goSession.MetricRefreshSuccess],
		snap.Counters[goSession.MetricRefreshFailure],
		signOuts.Load(),
	)
	fmt.Printf("replay: success=%d failure=%d\n",
		snap.Counters[goSession.MetricReplaySuccess],
		snap.Counters[goSession.MetricReplayFailure],
	)
}

type server struct {
	signer    *jwt.Signer
	delay     time.Duration
	mu        sync.RWMutex
	epoch     int64
	refresh   map[string]int64
	rotations atomic.Int64
}

func newServer(delay time.Duration) (*server, error) {
	signer, err := jwt.NewSigner(jwt.Config{
		AccessTTL:     time.Hour,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte(uuid.NewString()),
	})
	if err != nil {
		return nil, err
	}
	return &server{signer: signer, delay: delay, refresh: map[string]int64{}}, nil
}

// revokeAll invalidates every access token issued so far; refresh tokens stay
// valid.
func (s *server) revokeAll() {
	s.mu.Lock()
	s.epoch++
	s.mu.Unlock()
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/sessions", func(w http.ResponseWriter, r *http.Request) { s.issue(w) })
	r.Post("/sessions/refresh-token", s.rotate)
	r.Get("/resource", s.resource)
	return r
}

func (s *server) issue(w http.ResponseWriter) {
	s.mu.Lock()
	epoch := s.epoch
	rt := uuid.NewString()
	s.refresh[rt] = epoch
	s.mu.Unlock()

	access, err := s.signer.Issue(fmt.Sprintf("epoch-%d", epoch))
	if err != nil {
		reply(w, http.StatusInternalServerError, map[string]string{"message": err.Error()})
		return
	}
	reply(w, http.StatusOK, map[string]any{"token": access, "refresh_token": rt, "user": map[string]string{"id": "u1"}})
}

func (s *server) rotate(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token string `json:"token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)
	s.mu.Lock()
	_, ok := s.refresh[in.Token]
	delete(s.refresh, in.Token)
	s.mu.Unlock()
	if !ok {
		reply(w, http.StatusUnauthorized, map[string]string{"message": "token.invalid"})
		return
	}
	time.Sleep(s.delay)
	s.rotations.Add(1)
	s.issue(w)
}

func (s *server) resource(w http.ResponseWriter, r *http.Request) {
	claims, err := s.signer.Verify(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	if err != nil {
		reply(w, http.StatusUnauthorized, map[string]string{"message": "token.invalid"})
		return
	}
	s.mu.RLock()
	current := fmt.Sprintf("epoch-%d", s.epoch)
	s.mu.RUnlock()
	if claims.Subject != current {
		reply(w, http.StatusUnauthorized, map[string]string{"message": "token.expired"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func runPhase(ctx context.Context, client *goSession.Client, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				_, err := client.Get(ctx, "/resource")
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
