package goSession

import (
	"errors"
	"strconv"
)

var (
	// ErrTransport reports a network failure or a server reply without a usable message.
	ErrTransport = errors.New("transport failure")
	// ErrAuthExpired reports that a replayed request was rejected as expired again.
	ErrAuthExpired = errors.New("credential expired")
	// ErrNoCredential reports that no durable credential was available to refresh from.
	ErrNoCredential = errors.New("no credential")
	// ErrRefreshFailed reports that the refresh cycle did not produce a new credential.
	ErrRefreshFailed = errors.New("credential refresh failed")
	// ErrApplication reports a server-reported application error.
	ErrApplication = errors.New("application error")
	// ErrClientNotReady is returned by methods called on a nil or closed client.
	ErrClientNotReady = errors.New("client not initialized")
	// ErrSignInFailed reports a sign-in response that carried no access token.
	ErrSignInFailed = errors.New("sign-in failed")
)

// ErrorKind classifies a [ClientError].
type ErrorKind int

const (
	KindTransport ErrorKind = iota + 1
	KindAuthExpired
	KindNoCredential
	KindRefreshFailed
	KindApplication
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindAuthExpired:
		return "auth_expired"
	case KindNoCredential:
		return "no_credential"
	case KindRefreshFailed:
		return "refresh_failed"
	case KindApplication:
		return "application"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindTransport:
		return ErrTransport
	case KindAuthExpired:
		return ErrAuthExpired
	case KindNoCredential:
		return ErrNoCredential
	case KindRefreshFailed:
		return ErrRefreshFailed
	case KindApplication:
		return ErrApplication
	default:
		return nil
	}
}

// ClientError is the typed failure returned by [Client.Send] and its helpers.
//
// It matches its kind sentinel with errors.Is and exposes the underlying
// cause, typically a *transport.Error, through errors.As.
type ClientError struct {
	Kind       ErrorKind
	StatusCode int
	// Message is the server-supplied message for KindApplication.
	Message string
	Code    string
	Err     error
}

func (e *ClientError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := "goSession: " + e.Kind.String()
	if e.StatusCode > 0 {
		msg += " (status " + strconv.Itoa(e.StatusCode) + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ClientError) Unwrap() []error {
	if e == nil {
		return nil
	}
	out := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		out = append(out, s)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}
