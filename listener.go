//go:build linux

package xnet

import (
	"net"

	"github.com/sirupsen/logrus"
)

type listenerState int

const (
	listenerIdle listenerState = iota
	listenerListening
	listenerClosed
)

// tcpListener is a bound endpoint waiting for inbound connections
// (spec.md §3 Listener / §4.3 Listener state machine).
type tcpListener struct {
	driver *StreamDriver
	handle Handle
	fd     int
	ip     net.IP
	port   int
	state  listenerState
}

func (l *tcpListener) listen() error {
	fd, err := newNonblockingStreamSocket()
	if err != nil {
		return newError(CodeBindFailed, err)
	}
	if err := bindAndListen(fd, l.ip, l.port, l.driver.cfg.acceptBacklog); err != nil {
		_ = closeFD(fd)
		return newError(CodeBindFailed, err)
	}
	if err := l.driver.react.addRead(fd); err != nil {
		_ = closeFD(fd)
		return err
	}
	l.fd = fd
	l.state = listenerListening
	return nil
}

// onReadable handles one accept attempt. Per spec.md §4.3: EBADF/
// ENOTSOCK means the listener itself is destroyed (removed from the
// table, on_closed fired); any other error, including EAGAIN, leaves
// listener state unchanged — epoll is level-triggered, so a queue with
// more than one pending connection simply re-signals on the next Wait.
func (l *tcpListener) onReadable() {
	d := l.driver
	connFD, peerIP, peerPort, destroyed, err := acceptNonblocking(l.fd)
	if err != nil {
		if destroyed {
			d.log.WithFields(logrus.Fields{"handle": l.handle, "event": "listener_destroyed"}).Warn(err)
			d.destroyListener(l, true)
		}
		return
	}

	transHandle := d.alloc.allocate()
	conn := &tcpConnection{
		driver:      d,
		fd:          connFD,
		peerIP:      peerIP,
		peerPort:    peerPort,
		localHandle: l.handle,
		transHandle: transHandle,
		state:       connEstablished,
	}
	if err := d.react.addRead(connFD); err != nil {
		_ = closeFD(connFD)
		return
	}
	d.registerConnection(conn)
	d.cfg.metrics.IncrementPeersConnected()
	d.log.WithFields(logrus.Fields{"handle": l.handle, "peer": transHandle, "event": "accept"}).Info("accepted connection")
	d.callbacks.firePeerConnected(l.handle, transHandle)
}

func (l *tcpListener) close() {
	if l.state == listenerClosed {
		return
	}
	l.driver.react.remove(l.fd)
	_ = closeFD(l.fd)
	l.state = listenerClosed
}
