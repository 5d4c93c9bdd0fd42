package goSession

import (
	"errors"
	"time"

	"github.com/MrEthical07/goSession/credential"
	"github.com/MrEthical07/goSession/transport"
	"go.uber.org/zap"
)

// Builder assembles a [Client]. A Builder is single-use.
type Builder struct {
	config    Config
	store     credential.Store
	transport transport.Transport
	logger    *zap.Logger
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the durable credential store. Required.
func (b *Builder) WithStore(store credential.Store) *Builder {
	b.store = store
	return b
}

// WithTransport overrides the default HTTP transport built from
// Config.Transport.
func (b *Builder) WithTransport(t transport.Transport) *Builder {
	b.transport = t
	return b
}

// WithLogger sets the structured logger. The default discards everything.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock replaces the time source used for credential timestamps and
// refresh latency.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build validates the configuration, constructs the default HTTP transport when
// none was supplied, and wires the refresh coordinator. It fails when no store
// is set, when the configuration is invalid, or when the builder was already used.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, errors.New("credential store required")
	}

	tr := b.transport
	if tr == nil {
		if cfg.Transport.BaseURL == "" {
			return nil, errors.New("transport base URL required when no transport is supplied")
		}
		ht, err := transport.NewHTTPTransport(transport.HTTPConfig{
			BaseURL:   cfg.Transport.BaseURL,
			Timeout:   cfg.Transport.Timeout,
			UserAgent: cfg.Transport.UserAgent,
		})
		if err != nil {
			return nil, err
		}
		tr = ht
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	c := &Client{
		config:    cfg,
		store:     b.store,
		transport: tr,
		logger:    logger.Named("gosession"),
		now:       now,
		authCodes: make(map[string]struct{}, len(cfg.Refresh.AuthErrorCodes)),
	}
	for _, code := range cfg.Refresh.AuthErrorCodes {
		c.authCodes[code] = struct{}{}
	}
	c.audit = newAuditStream(cfg.Audit, b.auditSink, c.logger.Named("audit"))
	c.metrics = NewMetrics(cfg.Metrics)
	c.flows = c.newFlowService()

	b.built = true

	return c, nil
}
