package goSession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession/credential"
	internalflows "github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/transport"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Client is a session-aware API client. Build it with [Builder].
type Client struct {
	config    Config
	store     credential.Store
	transport transport.Transport
	logger    *zap.Logger
	audit     *auditStream
	metrics   *Metrics
	flows     *internalflows.Service
	now       func() time.Time
	authCodes map[string]struct{}

	credMu  sync.RWMutex
	current credential.Credential

	obsMu    sync.Mutex
	observer *observer
	closed   atomic.Bool
}

// Close detaches the current owner and flushes pending audit events. Requests
// already in flight complete normally.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.obsMu.Lock()
	c.closed.Store(true)
	c.observer = nil
	c.obsMu.Unlock()

	if c.audit != nil {
		c.audit.Close()
	}
}

func (c *Client) AuditDropped() uint64 {
	if c == nil || c.audit == nil {
		return 0
	}
	return c.audit.Dropped()
}

func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

func (c *Client) metricInc(id MetricID) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Inc(id)
}

// Credential returns the credential currently stamped on outgoing requests.
func (c *Client) Credential() credential.Credential {
	c.credMu.RLock()
	defer c.credMu.RUnlock()
	return c.current
}

// SetCredential replaces the in-memory credential without touching the store.
func (c *Client) SetCredential(cred credential.Credential) {
	c.credMu.Lock()
	c.current = cred
	c.credMu.Unlock()
}

// Send describes the send operation and its observable behavior.
//
// Send stamps req with the current credential and dispatches it. When the
// server reports an expired credential, Send obtains a fresh one through the
// shared refresh coordinator and replays req exactly once. Failures are
// returned as *ClientError; req itself is never modified.
func (c *Client) Send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	if c == nil || !c.flows.Initialized() || c.closed.Load() {
		return nil, ErrClientNotReady
	}
	if req == nil {
		return nil, &ClientError{Kind: KindTransport, Err: errors.New("nil request")}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	req = req.Clone()
	requestID := c.requestID(ctx, req)
	c.metricInc(MetricRequestSent)

	res := c.flows.Send(ctx, req)
	if res.Replayed {
		if res.Failure == internalflows.SendFailureNone {
			c.metricInc(MetricReplaySuccess)
		} else {
			c.metricInc(MetricReplayFailure)
		}
		c.emitAudit(ctx, auditEventReplay, res.Failure == internalflows.SendFailureNone, requestID, req, res.Err, nil)
	}
	if res.Failure == internalflows.SendFailureNone {
		return res.Response, nil
	}

	c.metricInc(MetricRequestFailed)
	err := toClientError(res)
	c.logger.Debug("request failed",
		zap.String("request_id", requestID),
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Stringer("kind", err.Kind),
		zap.Bool("replayed", res.Replayed),
		zap.Error(err.Err),
	)
	return nil, err
}

func (c *Client) Get(ctx context.Context, path string) (*transport.Response, error) {
	return c.Send(ctx, transport.NewRequest(http.MethodGet, path, nil))
}

func (c *Client) Delete(ctx context.Context, path string) (*transport.Response, error) {
	return c.Send(ctx, transport.NewRequest(http.MethodDelete, path, nil))
}

// Post sends body encoded as JSON. A nil body sends no payload.
func (c *Client) Post(ctx context.Context, path string, body any) (*transport.Response, error) {
	return c.sendJSON(ctx, http.MethodPost, path, body)
}

func (c *Client) Put(ctx context.Context, path string, body any) (*transport.Response, error) {
	return c.sendJSON(ctx, http.MethodPut, path, body)
}

func (c *Client) Patch(ctx context.Context, path string, body any) (*transport.Response, error) {
	return c.sendJSON(ctx, http.MethodPatch, path, body)
}

// DoJSON sends in as JSON and decodes the response into out. Either may be nil;
// an empty response body leaves out untouched.
func (c *Client) DoJSON(ctx context.Context, method, path string, in, out any) error {
	resp, err := c.sendJSON(ctx, method, path, in)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := resp.DecodeJSON(out); err != nil && !errors.Is(err, transport.ErrEmptyBody) {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body any) (*transport.Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s request: %w", method, path, err)
		}
	}
	return c.Send(ctx, transport.NewRequest(method, path, payload))
}

// SignIn describes the signin operation and its observable behavior.
//
// SignIn posts the identifier and password to the sign-in endpoint, persists
// the returned credential in the store and makes it current. The request is
// sent unstamped and never triggers a refresh.
func (c *Client) SignIn(ctx context.Context, identifier, password string) (*SignInResult, error) {
	if c == nil || !c.flows.Initialized() || c.closed.Load() {
		return nil, ErrClientNotReady
	}

	body, err := json.Marshal(signInRequest{Email: identifier, Password: password})
	if err != nil {
		return nil, err
	}
	req := transport.NewRequest(http.MethodPost, c.config.SignIn.Path, body)
	requestID := c.requestID(ctx, req)

	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		ce := classifyDirect(err)
		c.signInFailed(ctx, requestID, req, ce)
		return nil, ce
	}

	var out signInResponse
	if err := resp.DecodeJSON(&out); err != nil {
		err = fmt.Errorf("%w: %v", ErrSignInFailed, err)
		c.signInFailed(ctx, requestID, req, err)
		return nil, err
	}
	if out.Token == "" {
		err := fmt.Errorf("%w: response carried no token", ErrSignInFailed)
		c.signInFailed(ctx, requestID, req, err)
		return nil, err
	}

	rec := c.recordFrom(out.Token, out.RefreshToken)
	if err := c.store.Set(ctx, rec); err != nil {
		err = fmt.Errorf("persist credential: %w", err)
		c.signInFailed(ctx, requestID, req, err)
		return nil, err
	}
	cred := rec.Credential()
	c.SetCredential(cred)

	c.metricInc(MetricSignIn)
	c.emitAudit(ctx, auditEventSignIn, true, requestID, req, nil, nil)
	c.logger.Info("signed in", zap.String("request_id", requestID), zap.Time("expires_at", rec.ExpiresAt))

	return &SignInResult{User: out.User, Credential: cred}, nil
}

func (c *Client) signInFailed(ctx context.Context, requestID string, req *transport.Request, err error) {
	c.metricInc(MetricSignInFailure)
	c.emitAudit(ctx, auditEventSignIn, false, requestID, req, err, nil)
	c.logger.Warn("sign-in failed", zap.String("request_id", requestID), zap.Error(err))
}

// Restore loads the stored credential into memory, typically once at startup.
// It returns ErrNoCredential when the store holds nothing usable.
func (c *Client) Restore(ctx context.Context) (credential.Credential, error) {
	if c == nil || !c.flows.Initialized() || c.closed.Load() {
		return credential.Credential{}, ErrClientNotReady
	}
	rec, err := c.store.Get(ctx)
	if errors.Is(err, credential.ErrNotFound) {
		return credential.Credential{}, ErrNoCredential
	}
	if err != nil {
		return credential.Credential{}, err
	}
	if rec.AccessToken == "" {
		return credential.Credential{}, ErrNoCredential
	}

	cred := rec.Credential()
	c.SetCredential(cred)
	if rec.Expired(c.now()) {
		c.logger.Debug("restored credential already expired; next request will refresh", zap.Time("expires_at", rec.ExpiresAt))
	}
	return cred, nil
}

// SignOut clears the in-memory credential and removes the stored record. It
// does not call the attached sign-out callback; owners usually call SignOut
// from that callback.
func (c *Client) SignOut(ctx context.Context) error {
	if c == nil || !c.flows.Initialized() || c.closed.Load() {
		return ErrClientNotReady
	}
	c.SetCredential(credential.Credential{})

	err := c.store.Remove(ctx)
	if errors.Is(err, credential.ErrNotFound) {
		err = nil
	}
	c.emitAudit(ctx, auditEventSignOut, err == nil, requestIDFromContext(ctx), nil, err, nil)
	if err != nil {
		c.logger.Warn("credential removal failed", zap.Error(err))
		return err
	}
	c.logger.Info("signed out")
	return nil
}

func (c *Client) requestID(ctx context.Context, req *transport.Request) string {
	header := c.config.Transport.RequestIDHeader
	if header == "" {
		return requestIDFromContext(ctx)
	}
	if id := req.Header.Get(header); id != "" {
		return id
	}
	id := requestIDFromContext(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	req.Header.Set(header, id)
	return id
}

func (c *Client) stamp(req *transport.Request, cred credential.Credential) *transport.Request {
	out := req.Clone()
	if cred.IsZero() {
		out.Header.Del(c.config.Transport.AuthHeader)
		return out
	}
	out.Header.Set(c.config.Transport.AuthHeader, cred.Header(c.config.Transport.AuthScheme))
	return out
}

func (c *Client) isAuthFailure(terr *transport.Error) bool {
	if terr.StatusCode != http.StatusUnauthorized {
		return false
	}
	code := terr.ServerCode
	if code == "" {
		code = terr.ServerMessage
	}
	_, ok := c.authCodes[code]
	return ok
}

func toClientError(res internalflows.SendResult) *ClientError {
	ce := &ClientError{Err: res.Err}
	var terr *transport.Error
	if errors.As(res.Err, &terr) {
		ce.StatusCode = terr.StatusCode
		ce.Code = terr.ServerCode
	}

	switch res.Failure {
	case internalflows.SendFailureApplication:
		ce.Kind = KindApplication
		if terr != nil {
			ce.Message = terr.ServerMessage
		}
	case internalflows.SendFailureAuthExpired:
		ce.Kind = KindAuthExpired
	case internalflows.SendFailureNoCredential:
		ce.Kind = KindNoCredential
	case internalflows.SendFailureRefresh:
		ce.Kind = KindRefreshFailed
	default:
		ce.Kind = KindTransport
	}
	return ce
}

// classifyDirect maps a failure of an unstamped request, one that never
// enters the refresh flow.
func classifyDirect(err error) *ClientError {
	var terr *transport.Error
	if !errors.As(err, &terr) || !terr.HasStatus() || terr.ServerMessage == "" {
		ce := &ClientError{Kind: KindTransport, Err: err}
		if terr != nil {
			ce.StatusCode = terr.StatusCode
		}
		return ce
	}
	return &ClientError{
		Kind:       KindApplication,
		StatusCode: terr.StatusCode,
		Message:    terr.ServerMessage,
		Code:       terr.ServerCode,
		Err:        err,
	}
}
