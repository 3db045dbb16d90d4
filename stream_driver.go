//go:build linux

package xnet

import (
	"time"

	"github.com/sirupsen/logrus"
)

// StreamDriver is the length-prefixed TCP driver described in
// SPEC_FULL.md §4: a single epoll reactor owns every listener and
// connection fd, Update() pumps it exactly once, and nothing here
// takes a lock — callers must only ever drive one StreamDriver from
// one goroutine (spec.md §5).
type StreamDriver struct {
	driverIndex int
	cfg         *Config
	callbacks   Callbacks
	alloc       *handleAllocator
	react       *reactor
	log         *logrus.Entry

	sendCache *stagingCache
	recvCache *stagingCache
	scratch   []byte

	listeners     map[Handle]*tcpListener
	listenersByFD map[int]*tcpListener
	conns         map[Handle]*tcpConnection
	connsByFD     map[int]*tcpConnection

	pendingReconnects []*tcpConnection
}

// NewStreamDriver constructs an uninitialized driver; call Init before
// registering it with a Facade.
func NewStreamDriver() *StreamDriver { return &StreamDriver{} }

func (d *StreamDriver) Prefix() string { return "tcp" }

func (d *StreamDriver) Init(driverIndex int, cfg *Config, cb Callbacks) error {
	react, err := newReactor(cfg.reactorWait)
	if err != nil {
		return err
	}
	sendCache, err := newStagingCache(cfg.cacheActiveEntries, cfg.cacheEntryBound)
	if err != nil {
		return err
	}
	recvCache, err := newStagingCache(cfg.cacheActiveEntries, cfg.cacheEntryBound)
	if err != nil {
		return err
	}

	d.driverIndex = driverIndex
	d.cfg = cfg
	d.callbacks = cb
	d.alloc = newHandleAllocator(driverIndex)
	d.react = react
	d.log = driverLogger(cfg, "tcp")
	d.sendCache = sendCache
	d.recvCache = recvCache
	d.scratch = make([]byte, cfg.commonBufferSize)
	d.listeners = make(map[Handle]*tcpListener)
	d.listenersByFD = make(map[int]*tcpListener)
	d.conns = make(map[Handle]*tcpConnection)
	d.connsByFD = make(map[int]*tcpConnection)
	return nil
}

// Bind parses a "host:port" scheme-specific address and starts
// listening on it.
func (d *StreamDriver) Bind(addr string) (Handle, error) {
	ip, port, err := parseHostPort(addr)
	if err != nil {
		return InvalidHandle, err
	}
	h := d.alloc.allocate()
	l := &tcpListener{driver: d, handle: h, ip: ip, port: port}
	if err := l.listen(); err != nil {
		return InvalidHandle, err
	}
	d.listeners[h] = l
	d.listenersByFD[l.fd] = l
	return h, nil
}

// Connect dials a "host:port" address, producing a client-style
// connection (local_handle == trans_handle).
func (d *StreamDriver) Connect(addr string) (Handle, error) {
	ip, port, err := parseHostPort(addr)
	if err != nil {
		return InvalidHandle, err
	}
	h := d.alloc.allocate()
	c := &tcpConnection{driver: d, peerIP: ip, peerPort: port, localHandle: h, transHandle: h}
	if err := c.connect(); err != nil {
		return InvalidHandle, err
	}
	d.registerConnection(c)
	return h, nil
}

func (d *StreamDriver) Send(h Handle, data []byte) error {
	return d.SendVectored(h, [][]byte{data})
}

func (d *StreamDriver) SendVectored(h Handle, fragments [][]byte) error {
	if len(fragments) > d.cfg.maxSendFragments-1 {
		return newError(CodeSystemError, nil)
	}
	c, ok := d.conns[h]
	if !ok {
		return newError(CodeInvalidHandle, nil)
	}
	return c.sendVectored(fragments)
}

// Close is idempotent: closing a handle already absent from both
// tables (already closed, or never valid) is a no-op success, per
// spec.md §8 invariant 8.
func (d *StreamDriver) Close(h Handle) error {
	if l, ok := d.listeners[h]; ok {
		d.destroyListener(l, false)
		return nil
	}
	if c, ok := d.conns[h]; ok {
		c.close()
		d.unregisterConnection(c)
		return nil
	}
	return nil
}

// Update pumps the reactor exactly once: it first retries any
// client-style connections whose back-off window has elapsed, then
// waits for readiness events and dispatches each to its owning
// listener or connection. It returns the number of events handled.
func (d *StreamDriver) Update() (int, error) {
	d.retryReconnects()

	events, err := d.react.Wait()
	if err != nil {
		return 0, err
	}
	for _, ev := range events {
		if l, ok := d.listenersByFD[ev.fd]; ok {
			if ev.errored {
				d.destroyListener(l, true)
				continue
			}
			if ev.readable {
				l.onReadable()
			}
			continue
		}
		if c, ok := d.connsByFD[ev.fd]; ok {
			if ev.errored {
				c.onError(newError(CodeReactorErrEvent, nil))
				continue
			}
			if ev.writable {
				c.onWritable()
			}
			if ev.readable && c.state != connClosed {
				c.onReadable()
			}
		}
	}
	return len(events), nil
}

func (d *StreamDriver) destroyListener(l *tcpListener, fireClosed bool) {
	l.close()
	delete(d.listeners, l.handle)
	delete(d.listenersByFD, l.fd)
	if fireClosed {
		d.callbacks.fireClosed(l.handle)
	}
}

func (d *StreamDriver) registerConnection(c *tcpConnection) {
	d.conns[c.transHandle] = c
	d.connsByFD[c.fd] = c
}

func (d *StreamDriver) unregisterConnection(c *tcpConnection) {
	delete(d.conns, c.transHandle)
	delete(d.connsByFD, c.fd)
}

// retryReconnects attempts to re-dial every client-style connection
// that errored out, once its back-off window has elapsed.
func (d *StreamDriver) retryReconnects() {
	if len(d.pendingReconnects) == 0 {
		return
	}
	now := time.Now()
	remaining := d.pendingReconnects[:0]
	for _, c := range d.pendingReconnects {
		if !c.backoff.Ready(now) {
			remaining = append(remaining, c)
			continue
		}
		if err := c.connect(); err != nil {
			c.backoff.Failed(now)
			remaining = append(remaining, c)
			d.log.WithFields(logrus.Fields{"handle": c.transHandle, "event": "reconnect_failed"}).Warn(err)
			continue
		}
		d.log.WithFields(logrus.Fields{"handle": c.transHandle, "event": "reconnect"}).Info("reconnected")
		d.registerConnection(c)
	}
	d.pendingReconnects = remaining
}
