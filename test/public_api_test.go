package test

import (
	"context"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/credential"
	"github.com/MrEthical07/goSession/transport"
)

// Guards public API compile-compat for consumers.
func TestPublicAPISurfaceCompile(t *testing.T) {
	_ = goSession.New
	_ = goSession.DefaultConfig
	_ = goSession.WithRequestID

	var _ *goSession.Client
	var _ goSession.Config
	var _ goSession.SignInResult
	var _ goSession.AuditSink
	var _ *goSession.Registration
	var _ *goSession.ClientError
	var _ credential.Store = (*credential.MemoryStore)(nil)
	var _ credential.Store = (*credential.RedisStore)(nil)
	var _ credential.Store = (*credential.PostgresStore)(nil)
	var _ transport.Transport = (*transport.HTTPTransport)(nil)
	var _ transport.Transport = transport.Func(nil)

	var _ error = goSession.ErrTransport
	var _ error = goSession.ErrAuthExpired
	var _ error = goSession.ErrNoCredential
	var _ error = goSession.ErrRefreshFailed
	var _ error = goSession.ErrApplication

	var _ func(*goSession.Client, context.Context, *transport.Request) (*transport.Response, error) = (*goSession.Client).Send
	var _ func(*goSession.Client, context.Context, string, string) (*goSession.SignInResult, error) = (*goSession.Client).SignIn
	var _ func(*goSession.Client, context.Context) (credential.Credential, error) = (*goSession.Client).Restore
	var _ func(*goSession.Client, context.Context) error = (*goSession.Client).SignOut
	var _ func(*goSession.Client, func(), func(string)) *goSession.Registration = (*goSession.Client).Attach
	var _ func(*goSession.Registration) = (*goSession.Registration).Detach
}
