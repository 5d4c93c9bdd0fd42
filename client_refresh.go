package goSession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/MrEthical07/goSession/credential"
	internalflows "github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/transport"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	signOutReasonUnauthorized  = "unauthorized"
	signOutReasonNoCredential  = "no_credential"
	signOutReasonRefreshFailed = "refresh_failed"
)

func (c *Client) newFlowService() *internalflows.Service {
	return internalflows.New(internalflows.Deps{
		Send:    c.sendFlowDeps(),
		Refresh: c.refreshFlowDeps(),
	})
}

func (c *Client) sendFlowDeps() internalflows.SendDeps {
	return internalflows.SendDeps{
		Transport:             c.transport,
		Current:               c.Credential,
		Stamp:                 c.stamp,
		IsAuthFailure:         c.isAuthFailure,
		HasRefreshHandle:      c.hasRefreshHandle,
		SignOut:               func() { c.forceSignOut(signOutReasonUnauthorized) },
		SignOutOnUnauthorized: c.config.Refresh.SignOutOnUnauthorized,
		AuthFailed:            func() { c.metricInc(MetricAuthFailure) },
	}
}

func (c *Client) refreshFlowDeps() internalflows.CoordinatorDeps {
	return internalflows.CoordinatorDeps{
		Store:      c.store,
		Refresh:    c.callRefreshEndpoint,
		SetCurrent: c.SetCredential,
		Refreshed:  c.notifyRefreshed,
		SignOut:    func() { c.forceSignOut(signOutReasonRefreshFailed) },
		Timeout:    c.config.Refresh.Timeout,
		Now:        c.now,
		Started: func() {
			c.metricInc(MetricRefreshStarted)
			c.logger.Debug("credential refresh started")
		},
		Joined: func(position int) {
			c.metricInc(MetricRefreshJoined)
			c.logger.Debug("waiting on in-flight credential refresh", zap.Int("position", position))
		},
		Finished: c.refreshFinished,
		Warn: func(msg string, err error) {
			c.logger.Warn(msg, zap.Error(err))
		},
	}
}

// hasRefreshHandle reads the store before a caller joins a refresh. A store
// that cannot be read counts as empty.
func (c *Client) hasRefreshHandle(ctx context.Context) bool {
	rec, err := c.store.Get(ctx)
	if err != nil {
		if !errors.Is(err, credential.ErrNotFound) {
			c.logger.Warn("credential store read failed; treating as absent", zap.Error(err))
		}
		return false
	}
	return rec.RefreshHandle() != ""
}

// callRefreshEndpoint exchanges handle for a new credential. It runs once per
// refresh cycle, on the leader's goroutine.
func (c *Client) callRefreshEndpoint(ctx context.Context, handle string) (credential.Record, error) {
	body, err := json.Marshal(refreshRequest{Token: handle})
	if err != nil {
		return credential.Record{}, err
	}
	req := transport.NewRequest(http.MethodPost, c.config.Refresh.Path, body)
	if header := c.config.Transport.RequestIDHeader; header != "" {
		req.Header.Set(header, uuid.NewString())
	}

	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return credential.Record{}, err
	}

	var out refreshResponse
	if err := resp.DecodeJSON(&out); err != nil {
		return credential.Record{}, fmt.Errorf("decode refresh response: %w", err)
	}
	if out.Token == "" {
		return credential.Record{}, errors.New("refresh response carried no token")
	}
	return c.recordFrom(out.Token, out.RefreshToken), nil
}

// recordFrom builds the durable record for a freshly issued token pair. The
// expiry is read from the access token when it is a JWT.
func (c *Client) recordFrom(accessToken, refreshToken string) credential.Record {
	rec := credential.Record{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		PresentAt:    c.now(),
	}
	if claims, err := jwt.Inspect(accessToken); err == nil {
		rec.ExpiresAt = claims.ExpiresAt
	}
	return rec
}

func (c *Client) notifyRefreshed(accessToken string) {
	c.metricInc(MetricCredentialUpdated)
	if obs := c.currentObserver(); obs != nil && obs.refreshed != nil {
		obs.refreshed(accessToken)
	}
}

func (c *Client) refreshFinished(out internalflows.Outcome, settled int, elapsed time.Duration) {
	if c.metrics.LatencyEnabled() {
		c.metrics.Observe(MetricRefreshLatency, elapsed)
	}

	meta := func() map[string]string {
		m := map[string]string{
			"waiters":    strconv.Itoa(settled),
			"elapsed_ms": strconv.FormatInt(elapsed.Milliseconds(), 10),
		}
		if !out.OK() {
			m["failure"] = refreshFailureName(out.Failure)
		}
		return m
	}

	if out.OK() {
		c.metricInc(MetricRefreshSuccess)
		c.emitAudit(context.Background(), auditEventRefresh, true, "", nil, nil, meta)
		c.logger.Info("credential refreshed", zap.Int("waiters", settled), zap.Duration("elapsed", elapsed))
		return
	}

	c.metricInc(MetricRefreshFailure)
	c.emitAudit(context.Background(), auditEventRefresh, false, "", nil, out.Err, meta)
	c.logger.Warn("credential refresh failed",
		zap.String("failure", refreshFailureName(out.Failure)),
		zap.Int("waiters", settled),
		zap.Duration("elapsed", elapsed),
		zap.Error(out.Err),
	)
}

// forceSignOut notifies the attached owner that the session is over.
func (c *Client) forceSignOut(reason string) {
	c.metricInc(MetricSignOutForced)
	c.emitAudit(context.Background(), auditEventSignOutForced, true, "", nil, nil, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	c.logger.Info("signing out", zap.String("reason", reason))

	if obs := c.currentObserver(); obs != nil && obs.signOut != nil {
		obs.signOut()
	}
}

func refreshFailureName(kind internalflows.RefreshFailureKind) string {
	switch kind {
	case internalflows.RefreshFailureNoCredential:
		return signOutReasonNoCredential
	case internalflows.RefreshFailureEndpoint:
		return "endpoint"
	case internalflows.RefreshFailurePersist:
		return "persist"
	default:
		return "none"
	}
}
