package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
)

// ErrEmptyBody is returned by [Response.DecodeJSON] when the response carries no payload.
var ErrEmptyBody = errors.New("empty response body")

// Transport executes one request and returns a typed success value or a typed failure.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a plain function to [Transport].
type Func func(ctx context.Context, req *Request) (*Response, error)

// Do calls f(ctx, req).
func (f Func) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Request is an opaque request descriptor. Path is resolved against the
// transport base URL unless it is already absolute.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// NewRequest builds a request with an empty header set.
func NewRequest(method, path string, body []byte) *Request {
	return &Request{
		Method: method,
		Path:   path,
		Header: make(http.Header),
		Body:   body,
	}
}

// Clone returns a deep copy so that replays never share header maps with the
// original dispatch.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	out := &Request{
		Method: r.Method,
		Path:   r.Path,
		Header: r.Header.Clone(),
	}
	if out.Header == nil {
		out.Header = make(http.Header)
	}
	if r.Body != nil {
		out.Body = bytes.Clone(r.Body)
	}
	return out
}

// Response is a successful transport result.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// DecodeJSON unmarshals the response body into v.
func (r *Response) DecodeJSON(v any) error {
	if r == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return ErrEmptyBody
	}
	return json.Unmarshal(r.Body, v)
}

// Error is the structured transport failure.
type Error struct {
	StatusCode    int
	ServerMessage string
	ServerCode    string
	Err           error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.StatusCode == 0 {
		if e.Err != nil {
			return "transport: " + e.Err.Error()
		}
		return "transport: request failed"
	}
	msg := "transport: status " + strconv.Itoa(e.StatusCode)
	if e.ServerCode != "" {
		msg += " (" + e.ServerCode + ")"
	}
	if e.ServerMessage != "" && e.ServerMessage != e.ServerCode {
		msg += ": " + e.ServerMessage
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// HasStatus reports whether the failure came from a server reply rather than
// from the network.
func (e *Error) HasStatus() bool {
	return e != nil && e.StatusCode > 0
}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Error   string `json:"error"`
}

// ParseErrorBody extracts the server message and code from a JSON error payload.
// Unparseable bodies yield empty strings.
func ParseErrorBody(body []byte) (message, code string) {
	if len(bytes.TrimSpace(body)) == 0 {
		return "", ""
	}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return "", ""
	}
	message = eb.Message
	if message == "" {
		message = eb.Error
	}
	return message, eb.Code
}
