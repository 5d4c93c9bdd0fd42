package test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/credential"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

// api is a black-box server: "fresh" is the only accepted access token and
// every rotation hands it out.
type api struct {
	refreshes atomic.Int32
	rejectRT  atomic.Bool
}

func (a *api) handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/sessions/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		a.refreshes.Add(1)
		if a.rejectRT.Load() {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token.invalid"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": "fresh", "refresh_token": "r2"})
	})
	r.Get("/items", func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ") != "fresh" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token.expired"})
			return
		}
		writeJSON(w, http.StatusOK, []string{"a", "b"})
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newRedisStore(t *testing.T, rec *credential.Record) *credential.RedisStore {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	store := credential.NewRedisStore(rdb, "bb", "t", 0)
	if rec != nil {
		if err := store.Set(context.Background(), *rec); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return store
}

func newClient(t *testing.T, store credential.Store) (*goSession.Client, *api) {
	t.Helper()
	a := &api{}
	srv := httptest.NewServer(a.handler())
	t.Cleanup(srv.Close)

	cfg := goSession.DefaultConfig()
	cfg.Transport.BaseURL = srv.URL
	c, err := goSession.New().WithConfig(cfg).WithStore(store).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(c.Close)
	return c, a
}
