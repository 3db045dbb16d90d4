package xnet

import (
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultCommonBufferSize is the scratch buffer size used to drain a
	// readable socket before handing bytes to the frame parser.
	DefaultCommonBufferSize = 2 * 1024 * 1024

	// DefaultAcceptBacklog is the listen backlog passed to the kernel.
	DefaultAcceptBacklog = 10000

	// DefaultReactorWait bounds how long a single Update() call may
	// block inside the reactor when there is nothing ready yet.
	DefaultReactorWait = 10 * time.Millisecond

	// DefaultMaxSendFragments caps the number of iovecs a single
	// SendVectored call may hand to the kernel, including the header
	// fragment the driver prepends.
	DefaultMaxSendFragments = 32

	// DefaultReconnectFastInterval and DefaultReconnectSteadyInterval
	// bound the exponential back-off between a client connection's
	// reconnect attempts.
	DefaultReconnectFastInterval   = 50 * time.Millisecond
	DefaultReconnectSteadyInterval = 5 * time.Second
)

// Option configures a Config via the functional-options pattern.
type Option func(*Config)

// Config holds tunables for a Façade/driver instance. The zero value is
// not ready to use; build one with applyConfig (via NewFacade).
type Config struct {
	metrics Metrics
	log     *logrus.Entry

	commonBufferSize int
	acceptBacklog    int
	reactorWait      time.Duration
	maxSendFragments int

	cacheActiveEntries int
	cacheEntryBound    int

	reconnectFast   time.Duration
	reconnectSteady time.Duration
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.commonBufferSize <= 0 {
		return newError(CodeInvalidParam, nil)
	}
	if c.maxSendFragments < 2 {
		// at least 1 application fragment + 1 header fragment
		return newError(CodeInvalidParam, nil)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		metrics:            NewDefaultMetrics(),
		commonBufferSize:   DefaultCommonBufferSize,
		acceptBacklog:      DefaultAcceptBacklog,
		reactorWait:        DefaultReactorWait,
		maxSendFragments:   DefaultMaxSendFragments,
		cacheActiveEntries: DefaultCacheActiveEntries,
		cacheEntryBound:    DefaultCacheEntryBound,
		reconnectFast:      DefaultReconnectFastInterval,
		reconnectSteady:    DefaultReconnectSteadyInterval,
	}
}

func applyConfig(opts []Option) *Config {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// WithMetrics sets a custom metrics implementation. If not provided, a
// default implementation backed by atomic counters is used.
func WithMetrics(metrics Metrics) Option {
	return func(c *Config) {
		if metrics != nil {
			c.metrics = metrics
		}
	}
}

// WithCommonBufferSize sets the size of the scratch buffer each driver
// uses to drain a readable socket before frame parsing.
func WithCommonBufferSize(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.commonBufferSize = n
		}
	}
}

// WithAcceptBacklog sets the listen(2) backlog for bound listeners.
func WithAcceptBacklog(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.acceptBacklog = n
		}
	}
}

// WithReactorWait bounds how long a single Update() call may block
// when no events are ready yet.
func WithReactorWait(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.reactorWait = d
		}
	}
}

// WithMaxSendFragments caps the iovec count SendVectored may submit,
// including the header fragment the driver prepends.
func WithMaxSendFragments(n int) Option {
	return func(c *Config) {
		if n >= 2 {
			c.maxSendFragments = n
		}
	}
}

// WithCacheLimits sets the staging cache's active-entry count and
// per-entry byte bound. Exceeding either is a fatal per-connection
// error (spec.md §4.2).
func WithCacheLimits(activeEntries, entryBound int) Option {
	return func(c *Config) {
		if activeEntries > 0 {
			c.cacheActiveEntries = activeEntries
		}
		if entryBound > 0 {
			c.cacheEntryBound = entryBound
		}
	}
}

// WithReconnectBackoff sets the fast and steady reconnect intervals for
// client-style connections recovering from on_error.
func WithReconnectBackoff(fast, steady time.Duration) Option {
	return func(c *Config) {
		if fast > 0 {
			c.reconnectFast = fast
		}
		if steady > 0 {
			c.reconnectSteady = steady
		}
	}
}
