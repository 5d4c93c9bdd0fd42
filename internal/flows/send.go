package flows

import (
	"context"
	"errors"
	"net/http"

	"github.com/MrEthical07/goSession/credential"
	"github.com/MrEthical07/goSession/transport"
)

// SendFailureKind classifies send flow failures for root-level mapping.
type SendFailureKind int

const (
	SendFailureNone SendFailureKind = iota
	SendFailureTransport
	SendFailureApplication
	SendFailureAuthExpired
	SendFailureNoCredential
	SendFailureRefresh
)

// SendResult carries either the response or failure metadata.
type SendResult struct {
	Response   *transport.Response
	Failure    SendFailureKind
	Err        error
	Refresh    RefreshFailureKind
	Replayed   bool
	Credential credential.Credential
}

// SendDeps captures send flow dependencies.
type SendDeps struct {
	Transport             transport.Transport
	Current               func() credential.Credential
	Stamp                 func(req *transport.Request, cred credential.Credential) *transport.Request
	IsAuthFailure         func(*transport.Error) bool
	HasRefreshHandle      func(ctx context.Context) bool
	ObtainFreshCredential func(ctx context.Context) Outcome
	SignOut               func()
	SignOutOnUnauthorized bool
	AuthFailed            func()
}

// RunSend dispatches req with the current credential. On an auth failure it
// obtains a fresh credential and replays req exactly once; the replay never
// triggers another refresh. When the credential was already replaced while
// req was in flight, the replay uses the replacement without refreshing.
func RunSend(ctx context.Context, req *transport.Request, deps SendDeps) SendResult {
	cred := deps.Current()
	resp, err := deps.Transport.Do(ctx, deps.Stamp(req, cred))
	if err == nil {
		return SendResult{Response: resp, Credential: cred}
	}

	terr, auth := classify(err, deps.IsAuthFailure)
	if !auth {
		return failureResult(err, terr, deps)
	}
	if deps.AuthFailed != nil {
		deps.AuthFailed()
	}

	if now := deps.Current(); now.AccessToken != "" && now.AccessToken != cred.AccessToken {
		return replay(ctx, req, now, deps)
	}

	if !deps.HasRefreshHandle(ctx) {
		if deps.SignOut != nil {
			deps.SignOut()
		}
		return SendResult{
			Failure: SendFailureNoCredential,
			Refresh: RefreshFailureNoCredential,
			Err:     err,
		}
	}

	out := deps.ObtainFreshCredential(ctx)
	if !out.OK() {
		kind := SendFailureRefresh
		if out.Failure == RefreshFailureNoCredential {
			kind = SendFailureNoCredential
		}
		return SendResult{
			Failure: kind,
			Refresh: out.Failure,
			Err:     out.Err,
		}
	}

	return replay(ctx, req, out.Credential, deps)
}

func replay(ctx context.Context, req *transport.Request, cred credential.Credential, deps SendDeps) SendResult {
	resp, err := deps.Transport.Do(ctx, deps.Stamp(req, cred))
	if err == nil {
		return SendResult{Response: resp, Replayed: true, Credential: cred}
	}

	terr, auth := classify(err, deps.IsAuthFailure)
	var res SendResult
	if auth {
		res = SendResult{Failure: SendFailureAuthExpired, Err: err}
	} else {
		res = failureResult(err, terr, deps)
	}
	res.Replayed = true
	res.Credential = cred
	return res
}

func classify(err error, isAuth func(*transport.Error) bool) (*transport.Error, bool) {
	var terr *transport.Error
	if !errors.As(err, &terr) || !terr.HasStatus() {
		return terr, false
	}
	return terr, isAuth != nil && isAuth(terr)
}

func failureResult(err error, terr *transport.Error, deps SendDeps) SendResult {
	if terr == nil || !terr.HasStatus() {
		return SendResult{Failure: SendFailureTransport, Err: err}
	}
	if terr.StatusCode == http.StatusUnauthorized && deps.SignOutOnUnauthorized && deps.SignOut != nil {
		deps.SignOut()
	}
	if terr.ServerMessage == "" {
		return SendResult{Failure: SendFailureTransport, Err: err}
	}
	return SendResult{Failure: SendFailureApplication, Err: err}
}
