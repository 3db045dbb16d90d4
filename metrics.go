package xnet

import "sync/atomic"

// Metrics is an interface for tracking driver-level statistics.
// Drivers call Increment*/Add* internally; collectors read via Get*.
type Metrics interface {
	IncrementMessagesSent()
	IncrementMessagesReceived()
	IncrementPeersConnected()
	IncrementPeersClosed()
	IncrementReconnects()
	AddBytesSent(n int64)
	AddBytesReceived(n int64)

	GetMessagesSent() int64
	GetMessagesReceived() int64
	GetPeersConnected() int64
	GetPeersClosed() int64
	GetReconnects() int64
	GetBytesSent() int64
	GetBytesReceived() int64
}

// DefaultMetrics implements Metrics with atomic counters.
type DefaultMetrics struct {
	messagesSent     int64
	messagesReceived int64
	peersConnected   int64
	peersClosed      int64
	reconnects       int64
	bytesSent        int64
	bytesReceived    int64
}

// NewDefaultMetrics creates a new DefaultMetrics instance.
func NewDefaultMetrics() *DefaultMetrics { return &DefaultMetrics{} }

func (m *DefaultMetrics) IncrementMessagesSent()     { atomic.AddInt64(&m.messagesSent, 1) }
func (m *DefaultMetrics) IncrementMessagesReceived() { atomic.AddInt64(&m.messagesReceived, 1) }
func (m *DefaultMetrics) IncrementPeersConnected()   { atomic.AddInt64(&m.peersConnected, 1) }
func (m *DefaultMetrics) IncrementPeersClosed()      { atomic.AddInt64(&m.peersClosed, 1) }
func (m *DefaultMetrics) IncrementReconnects()       { atomic.AddInt64(&m.reconnects, 1) }
func (m *DefaultMetrics) AddBytesSent(n int64)       { atomic.AddInt64(&m.bytesSent, n) }
func (m *DefaultMetrics) AddBytesReceived(n int64)   { atomic.AddInt64(&m.bytesReceived, n) }

func (m *DefaultMetrics) GetMessagesSent() int64     { return atomic.LoadInt64(&m.messagesSent) }
func (m *DefaultMetrics) GetMessagesReceived() int64 { return atomic.LoadInt64(&m.messagesReceived) }
func (m *DefaultMetrics) GetPeersConnected() int64   { return atomic.LoadInt64(&m.peersConnected) }
func (m *DefaultMetrics) GetPeersClosed() int64      { return atomic.LoadInt64(&m.peersClosed) }
func (m *DefaultMetrics) GetReconnects() int64       { return atomic.LoadInt64(&m.reconnects) }
func (m *DefaultMetrics) GetBytesSent() int64        { return atomic.LoadInt64(&m.bytesSent) }
func (m *DefaultMetrics) GetBytesReceived() int64    { return atomic.LoadInt64(&m.bytesReceived) }
