package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func TestSignerIssueVerifyAndInspect(t *testing.T) {
	_, priv := newEdKeys(t)
	s, err := NewSigner(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: priv, Issuer: "api"})
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	token, err := s.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := s.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}

	inspected, err := Inspect(token)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if inspected.Subject != "user-1" {
		t.Fatalf("unexpected inspected subject %q", inspected.Subject)
	}
	if got := inspected.ExpiresAt.Sub(inspected.IssuedAt); got != time.Minute {
		t.Fatalf("expected 1m lifetime, got %v", got)
	}
}

func TestSignerVerifyRejectsExpired(t *testing.T) {
	s, err := NewSigner(Config{AccessTTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("secret-secret-secret-secret")})
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	past := time.Now().Add(-time.Hour)
	token, err := s.WithClock(func() time.Time { return past }).Issue("u")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	s.WithClock(time.Now)

	_, err = s.Verify(token)
	if !IsExpired(err) {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestSignerVerifyRejectsWrongAlgorithm(t *testing.T) {
	_, priv := newEdKeys(t)
	s, err := NewSigner(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: priv})
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	claims := gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte("secret-secret-secret-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := s.Verify(token); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}
}

func TestNewSignerRejectsBadConfig(t *testing.T) {
	cases := []Config{
		{AccessTTL: 0, SigningMethod: MethodHS256, PrivateKey: []byte("k")},
		{AccessTTL: time.Minute, SigningMethod: MethodHS256},
		{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: []byte("short")},
		{AccessTTL: time.Minute, SigningMethod: "rs256", PrivateKey: []byte("k")},
		{AccessTTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("k"), Leeway: time.Hour},
	}
	for i, cfg := range cases {
		if _, err := NewSigner(cfg); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestInspectOpaqueToken(t *testing.T) {
	for _, tok := range []string{"", "opaque", "a.b"} {
		if _, err := Inspect(tok); !errors.Is(err, ErrOpaqueToken) {
			t.Fatalf("Inspect(%q): expected ErrOpaqueToken, got %v", tok, err)
		}
	}
}
