package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseBytes = 4 << 20

// HTTPConfig configures [HTTPTransport].
type HTTPConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// Client overrides the underlying *http.Client. Timeout is ignored when set.
	Client *http.Client
}

// HTTPTransport dispatches requests with net/http.
type HTTPTransport struct {
	base      *url.URL
	client    *http.Client
	userAgent string
}

// NewHTTPTransport validates cfg and returns a ready transport.
func NewHTTPTransport(cfg HTTPConfig) (*HTTPTransport, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("transport: BaseURL required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("transport: invalid BaseURL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.New("transport: BaseURL scheme must be http or https")
	}
	if cfg.Timeout < 0 {
		return nil, errors.New("transport: Timeout must be >= 0")
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &HTTPTransport{
		base:      base,
		client:    client,
		userAgent: cfg.UserAgent,
	}, nil
}

// Do issues req. Non-2xx replies become [*Error] with the decoded server
// message and code; network failures become [*Error] with StatusCode 0.
func (t *HTTPTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, &Error{Err: errors.New("nil request")}
	}
	target, err := t.resolve(req.Path)
	if err != nil {
		return nil, &Error{Err: err}
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &Error{Err: err}
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if t.userAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", t.userAgent)
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, &Error{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &Error{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message, code := ParseErrorBody(data)
		return nil, &Error{
			StatusCode:    resp.StatusCode,
			ServerMessage: message,
			ServerCode:    code,
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       data,
	}, nil
}

func (t *HTTPTransport) resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid request path %q: %w", path, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	out := *t.base
	out.Path = strings.TrimRight(t.base.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
	out.RawQuery = ref.RawQuery
	return out.String(), nil
}
