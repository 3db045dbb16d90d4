//go:build linux

package xnet

import (
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

type connState int

const (
	connDialing connState = iota
	connEstablished
	connBacklogged
	connClosed
)

// tcpConnection is one end of a stream. Per spec.md §4.3 there are two
// flavours, distinguished by localHandle == transHandle:
//
//   - client-style: dial-initiated, local_handle == trans_handle; on
//     error it reconnects instead of tearing down.
//   - server-style: accept-produced, local_handle is the listener's
//     handle; on error it tears down and fires on_peer_closed.
type tcpConnection struct {
	driver *StreamDriver

	fd       int
	peerIP   net.IP
	peerPort int

	localHandle Handle
	transHandle Handle
	state       connState

	backoff *reconnectBackoff // client-style only
}

func (c *tcpConnection) isClientStyle() bool {
	return c.localHandle == c.transHandle
}

// connect dials peerIP:peerPort in non-blocking mode. EINPROGRESS is
// treated as success per spec.md §4.3; completion (or failure) is
// observed later as a writable/error reactor event.
func (c *tcpConnection) connect() error {
	fd, err := dialNonblocking(c.peerIP, c.peerPort)
	if err != nil {
		return newError(CodeConnectFailed, err)
	}
	c.fd = fd
	c.state = connDialing
	if err := c.driver.react.addRead(c.fd); err != nil {
		_ = closeFD(c.fd)
		return err
	}
	// A connect() in flight is observed as writable once it resolves.
	if err := c.driver.react.setWritable(c.fd, true); err != nil {
		_ = closeFD(c.fd)
		return err
	}
	return nil
}

// onReadable drains the socket into the driver scratch buffer, prepends
// whatever tail bytes were staged from the previous read, and parses as
// many complete frames as are available.
func (c *tcpConnection) onReadable() {
	d := c.driver
	if c.state == connDialing {
		c.state = connEstablished
	}

	for {
		n, err := unix.Read(c.fd, d.scratch)
		if n > 0 {
			d.cfg.metrics.AddBytesReceived(int64(n))
			c.feed(d.scratch[:n])
		}
		if err != nil {
			if isRetryableIOErr(err) {
				return
			}
			c.onError(newError(CodeRecvFailed, err))
			return
		}
		if n == 0 {
			// Orderly peer shutdown.
			c.onError(newError(CodeDisconnected, nil))
			return
		}
		if n < len(d.scratch) {
			return
		}
	}
}

// feed appends newly read bytes to whatever tail was staged for this
// connection and parses complete frames out of the result. A bad magic
// leaves the receive loop without consuming anything: the whole
// unparsed remainder, bad header included, is re-staged so the next
// readable event re-attempts parsing from the same point (spec.md §7;
// this does not close the connection).
func (c *tcpConnection) feed(newData []byte) {
	d := c.driver
	buf := newData
	if tail, ok := d.recvCache.Get(c.transHandle); ok {
		buf = append(tail, newData...)
	}

	for {
		dataLen, ok := parseHead(buf)
		if !ok {
			if len(buf) >= FrameHeaderSize {
				d.log.WithFields(logrus.Fields{
					"handle": c.transHandle,
					"event":  "bad_magic",
				}).Warn("malformed frame header, retaining buffer for next read")
			}
			break
		}
		total := FrameHeaderSize + dataLen
		if len(buf) < total {
			break
		}
		payload := make([]byte, dataLen)
		copy(payload, buf[FrameHeaderSize:total])
		d.cfg.metrics.IncrementMessagesReceived()
		d.callbacks.fireMessage(payload, MsgExternInfo{
			Self:      c.localHandle,
			Remote:    c.transHandle,
			ArrivedAt: time.Now(),
		})
		buf = buf[total:]
	}

	if len(buf) > 0 {
		if err := d.recvCache.Put(c.transHandle, buf); err != nil {
			c.onError(err)
		}
	}
}

// onWritable drains whatever is staged in the send cache. A dial that
// was in flight is confirmed established here if it hasn't failed
// (checked via SO_ERROR).
func (c *tcpConnection) onWritable() {
	d := c.driver
	if c.state == connDialing {
		if err := socketError(c.fd); err != nil {
			c.onError(newError(CodeConnectFailed, err))
			return
		}
		c.state = connEstablished
		if c.backoff != nil {
			c.backoff.Reset()
		}
	}

	staged, ok := d.sendCache.Get(c.transHandle)
	if !ok {
		_ = d.react.setWritable(c.fd, false)
		return
	}

	n, err := unix.Write(c.fd, staged)
	if n > 0 {
		d.cfg.metrics.AddBytesSent(int64(n))
	}
	if err != nil && !isRetryableIOErr(err) {
		c.onError(newError(CodeSendFailed, err))
		return
	}
	if n < len(staged) {
		remaining := staged[n:]
		if putErr := d.sendCache.Put(c.transHandle, remaining); putErr != nil {
			c.onError(putErr)
			return
		}
		c.state = connBacklogged
		return
	}
	c.state = connEstablished
}

// sendVectored writes header+fragments. If anything is already staged
// (a prior write didn't fully drain, i.e. the connection is
// Backlogged), the new message is appended to the cache to preserve
// ordering rather than interleaved onto the wire.
func (c *tcpConnection) sendVectored(fragments [][]byte) error {
	d := c.driver
	payloadLen := 0
	for _, f := range fragments {
		payloadLen += len(f)
	}
	var hdr [FrameHeaderSize]byte
	buildFrameHeader(hdr[:], payloadLen)

	if c.state == connBacklogged || d.sendCache.Len(c.transHandle) > 0 {
		if err := d.sendCache.Put(c.transHandle, hdr[:]); err != nil {
			return err
		}
		for _, f := range fragments {
			if err := d.sendCache.Put(c.transHandle, f); err != nil {
				return err
			}
		}
		return nil
	}

	iov := make([][]byte, 0, len(fragments)+1)
	iov = append(iov, hdr[:])
	iov = append(iov, fragments...)

	n, err := unix.Writev(c.fd, iov)
	if n > 0 {
		d.cfg.metrics.AddBytesSent(int64(n))
	}
	if err != nil && !isRetryableIOErr(err) {
		return newError(CodeSendFailed, err)
	}
	d.cfg.metrics.IncrementMessagesSent()

	sent := n
	if sent < 0 {
		sent = 0
	}
	if sent >= FrameHeaderSize+payloadLen {
		return nil
	}

	// Partial write: stage the unsent remainder and arm the writable
	// watcher. Walk the iovecs to find the split point.
	skip := sent
	for _, part := range iov {
		if skip >= len(part) {
			skip -= len(part)
			continue
		}
		if err := d.sendCache.Put(c.transHandle, part[skip:]); err != nil {
			return err
		}
		skip = 0
	}
	c.state = connBacklogged
	return d.react.setWritable(c.fd, true)
}

// onError tears down or reconnects, per the client/server-style split
// in spec.md §4.3.
func (c *tcpConnection) onError(cause error) {
	d := c.driver
	d.react.remove(c.fd)
	_ = closeFD(c.fd)
	d.sendCache.Del(c.transHandle)
	d.recvCache.Del(c.transHandle)
	d.cfg.metrics.IncrementPeersClosed()

	if !c.isClientStyle() {
		d.log.WithFields(logrus.Fields{
			"handle": c.localHandle, "peer": c.transHandle, "event": "teardown",
		}).Warn(cause)
		d.unregisterConnection(c)
		d.callbacks.firePeerClosed(c.localHandle, c.transHandle)
		return
	}

	d.log.WithFields(logrus.Fields{
		"handle": c.transHandle, "event": "reconnect_scheduled",
	}).Warn(cause)
	c.state = connClosed
	if c.backoff == nil {
		c.backoff = newReconnectBackoff(d.cfg.reconnectFast, d.cfg.reconnectSteady)
	}
	c.backoff.Failed(time.Now())
	d.cfg.metrics.IncrementReconnects()
	d.pendingReconnects = append(d.pendingReconnects, c)
}

func (c *tcpConnection) close() {
	d := c.driver
	if c.state == connClosed {
		return
	}
	d.react.remove(c.fd)
	_ = closeFD(c.fd)
	d.sendCache.Del(c.transHandle)
	d.recvCache.Del(c.transHandle)
	c.state = connClosed
}

func socketError(fd int) error {
	errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if errno != 0 {
		return unix.Errno(errno)
	}
	return nil
}
