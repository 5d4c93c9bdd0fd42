package goSession

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type observer struct {
	id        string
	signOut   func()
	refreshed func(accessToken string)
}

// Registration is the handle returned by [Client.Attach].
type Registration struct {
	client *Client
	id     string
}

// ID returns the identifier of this registration, for logging.
func (r *Registration) ID() string {
	if r == nil {
		return ""
	}
	return r.id
}

// Detach removes the callbacks attached with this registration. It never
// removes a newer registration, and calling it more than once, on a nil
// handle or after the client is closed does nothing.
func (r *Registration) Detach() {
	if r == nil || r.client == nil {
		return
	}
	r.client.detach(r.id)
}

// Attach installs the owner callbacks and returns their registration.
//
// signOut runs when the session cannot be recovered: the refresh failed, no
// durable credential exists, or the server rejected the credential outright.
// onCredentialRefreshed receives the new access token once per successful
// refresh. Either callback may be nil. Attaching again replaces the previous
// callbacks. Callbacks run synchronously on the goroutine that completed the
// refresh and must not block.
func (c *Client) Attach(signOut func(), onCredentialRefreshed func(accessToken string)) *Registration {
	if c == nil {
		return nil
	}
	obs := &observer{
		id:        uuid.NewString(),
		signOut:   signOut,
		refreshed: onCredentialRefreshed,
	}

	c.obsMu.Lock()
	if c.closed.Load() {
		c.obsMu.Unlock()
		return &Registration{id: obs.id}
	}
	replaced := c.observer != nil
	c.observer = obs
	c.obsMu.Unlock()

	c.logger.Debug("session observer attached", zap.String("registration", obs.id), zap.Bool("replaced", replaced))
	return &Registration{client: c, id: obs.id}
}

func (c *Client) detach(id string) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	if c.observer != nil && c.observer.id == id {
		c.observer = nil
	}
}

func (c *Client) currentObserver() *observer {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	return c.observer
}
