package test

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/credential"
	"github.com/redis/go-redis/v9"
)

// ExampleNew builds a client that persists its credential in Redis.
func ExampleNew() {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})

	cfg := goSession.DefaultConfig()
	cfg.Transport.BaseURL = "https://api.example.com"
	client, _ := goSession.New().
		WithConfig(cfg).
		WithStore(credential.NewRedisStore(rdb, "app", "default", 0)).
		Build()
	_ = client
}

// ExampleClient_Attach wires the owner's sign-out and credential-updated
// reactions, and releases them on teardown.
func ExampleClient_Attach() {
	var client *goSession.Client
	reg := client.Attach(
		func() { fmt.Println("back to the sign-in screen") },
		func(accessToken string) { _ = accessToken },
	)
	defer reg.Detach()
}

// ExampleClient_DoJSON shows structured error handling for an authenticated call.
func ExampleClient_DoJSON() {
	var client *goSession.Client
	var profile struct {
		Name string `json:"name"`
	}
	err := client.DoJSON(context.Background(), http.MethodGet, "/me", nil, &profile)

	var ce *goSession.ClientError
	switch {
	case errors.Is(err, goSession.ErrRefreshFailed), errors.Is(err, goSession.ErrNoCredential):
		// The session is over; the owner has been signed out.
	case errors.As(err, &ce) && ce.Kind == goSession.KindApplication:
		fmt.Println(ce.Message)
	}
}
