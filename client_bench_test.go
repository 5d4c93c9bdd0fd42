package goSession

import (
	"context"
	"testing"

	"github.com/MrEthical07/goSession/credential"
	"github.com/MrEthical07/goSession/transport"
)

func BenchmarkSendValidCredential(b *testing.B) {
	api := newFakeAPI("ok")
	c := buildTestClient(b, api, credential.NewMemoryStore(nil))
	c.SetCredential(credential.Credential{AccessToken: "ok"})
	req := transport.NewRequest("GET", "/bench", nil)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Send(ctx, req); err != nil {
			b.Fatalf("send failed: %v", err)
		}
	}
}

func BenchmarkSendValidCredentialParallel(b *testing.B) {
	api := newFakeAPI("ok")
	c := buildTestClient(b, api, credential.NewMemoryStore(nil))
	c.SetCredential(credential.Credential{AccessToken: "ok"})
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		req := transport.NewRequest("GET", "/bench", nil)
		for pb.Next() {
			if _, err := c.Send(ctx, req); err != nil {
				b.Errorf("send failed: %v", err)
				return
			}
		}
	})
}

// Each iteration runs a full expiry, refresh and replay cycle.
func BenchmarkSendRefreshCycle(b *testing.B) {
	api := newFakeAPI()
	store := credential.NewMemoryStore(&credential.Record{AccessToken: "old", RefreshToken: "r1"})
	c := buildTestClient(b, api, store)
	req := transport.NewRequest("GET", "/bench", nil)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.SetCredential(credential.Credential{AccessToken: "old"})
		if _, err := c.Send(ctx, req); err != nil {
			b.Fatalf("send failed: %v", err)
		}
	}
}
