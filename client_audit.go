package goSession

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/credential"
	internalflows "github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/transport"
)

const (
	auditEventSignIn        = "sign_in"
	auditEventSignOut       = "sign_out"
	auditEventSignOutForced = "sign_out_forced"
	auditEventRefresh       = "credential_refresh"
	auditEventReplay        = "request_replay"
)

// AuditErrorCode is the stable error label carried by [AuditEvent].
type AuditErrorCode string

const (
	auditErrTransport     AuditErrorCode = "transport"
	auditErrAuthExpired   AuditErrorCode = "auth_expired"
	auditErrNoCredential  AuditErrorCode = "no_credential"
	auditErrRefreshFailed AuditErrorCode = "refresh_failed"
	auditErrApplication   AuditErrorCode = "application"
	auditErrSignInFailed  AuditErrorCode = "sign_in_failed"
	auditErrUnavailable   AuditErrorCode = "store_unavailable"
	auditErrInternal      AuditErrorCode = "internal_error"
)

func (c *Client) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	requestID string,
	req *transport.Request,
	err error,
	metadataBuilder func() map[string]string,
) {
	if c == nil || c.audit == nil {
		return
	}
	if requestID == "" {
		requestID = requestIDFromContext(ctx)
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		RequestID: requestID,
		Success:   success,
		Metadata:  metadata,
	}
	if req != nil {
		event.Method = req.Method
		event.Path = req.Path
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	c.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	var terr *transport.Error
	switch {
	case errors.Is(err, ErrAuthExpired):
		return auditErrAuthExpired
	case errors.Is(err, ErrNoCredential),
		errors.Is(err, credential.ErrNotFound),
		errors.Is(err, internalflows.ErrNoRefreshToken):
		return auditErrNoCredential
	case errors.Is(err, ErrRefreshFailed):
		return auditErrRefreshFailed
	case errors.Is(err, ErrApplication):
		return auditErrApplication
	case errors.Is(err, ErrSignInFailed):
		return auditErrSignInFailed
	case errors.Is(err, credential.ErrStoreUnavailable),
		errors.Is(err, credential.ErrRecordCorrupt):
		return auditErrUnavailable
	case errors.Is(err, ErrTransport):
		return auditErrTransport
	case errors.As(err, &terr):
		if terr.HasStatus() && terr.ServerMessage != "" {
			return auditErrApplication
		}
		return auditErrTransport
	default:
		return auditErrInternal
	}
}
