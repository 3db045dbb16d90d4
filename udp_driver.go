//go:build linux

package xnet

import "github.com/sirupsen/logrus"

// DatagramDriver is a minimal "udp" scheme driver. It exists primarily
// to exercise the façade's scheme-multiplexing contract (SPEC_FULL.md
// §4.7/S6): a second driver registered under a distinct prefix must get
// a distinct handle-space nibble, and Facade.Update must fan out across
// every registered driver in one pass. Unlike the stream driver it has
// no connection state machine — UDP has no connect-time handshake to
// track — so Bind and Connect both just produce a socket wrapped in a
// handle. Send targets the peer a Connect-produced socket was connected
// to; Send on a Bind-produced socket fails with CodeSendFailed.
type DatagramDriver struct {
	driverIndex int
	cfg         *Config
	callbacks   Callbacks
	alloc       *handleAllocator
	react       *reactor
	log         *logrus.Entry
	scratch     []byte

	sockets map[Handle]*dgramSocket
	byFD    map[int]*dgramSocket
}

type dgramSocket struct {
	handle   Handle
	fd       int
	peerIP   []byte
	peerPort int
	connected bool
}

func NewDatagramDriver() *DatagramDriver { return &DatagramDriver{} }

func (d *DatagramDriver) Prefix() string { return "udp" }

func (d *DatagramDriver) Init(driverIndex int, cfg *Config, cb Callbacks) error {
	react, err := newReactor(cfg.reactorWait)
	if err != nil {
		return err
	}
	d.driverIndex = driverIndex
	d.cfg = cfg
	d.callbacks = cb
	d.alloc = newHandleAllocator(driverIndex)
	d.react = react
	d.log = driverLogger(cfg, "udp")
	d.scratch = make([]byte, cfg.commonBufferSize)
	d.sockets = make(map[Handle]*dgramSocket)
	d.byFD = make(map[int]*dgramSocket)
	return nil
}

func (d *DatagramDriver) Bind(addr string) (Handle, error) {
	ip, port, err := parseHostPort(addr)
	if err != nil {
		return InvalidHandle, err
	}
	fd, err := newNonblockingDgramSocket()
	if err != nil {
		return InvalidHandle, newError(CodeBindFailed, err)
	}
	if err := bindDgram(fd, ip, port); err != nil {
		_ = closeFD(fd)
		return InvalidHandle, newError(CodeBindFailed, err)
	}
	if err := d.react.addRead(fd); err != nil {
		_ = closeFD(fd)
		return InvalidHandle, err
	}
	h := d.alloc.allocate()
	s := &dgramSocket{handle: h, fd: fd}
	d.sockets[h] = s
	d.byFD[fd] = s
	return h, nil
}

func (d *DatagramDriver) Connect(addr string) (Handle, error) {
	ip, port, err := parseHostPort(addr)
	if err != nil {
		return InvalidHandle, err
	}
	fd, err := newNonblockingDgramSocket()
	if err != nil {
		return InvalidHandle, newError(CodeConnectFailed, err)
	}
	if err := connectDgram(fd, ip, port); err != nil {
		_ = closeFD(fd)
		return InvalidHandle, newError(CodeConnectFailed, err)
	}
	if err := d.react.addRead(fd); err != nil {
		_ = closeFD(fd)
		return InvalidHandle, err
	}
	h := d.alloc.allocate()
	s := &dgramSocket{handle: h, fd: fd, peerIP: ip, peerPort: port, connected: true}
	d.sockets[h] = s
	d.byFD[fd] = s
	d.log.WithFields(logrus.Fields{"handle": h, "event": "connect"}).Info("datagram socket connected")
	d.callbacks.firePeerConnected(h, h)
	return h, nil
}

func (d *DatagramDriver) Send(h Handle, data []byte) error {
	return d.SendVectored(h, [][]byte{data})
}

// SendVectored concatenates fragments into a single datagram payload;
// UDP has no iovec-preserving framing of its own, so there is no
// benefit to a real writev path here.
func (d *DatagramDriver) SendVectored(h Handle, fragments [][]byte) error {
	s, ok := d.sockets[h]
	if !ok {
		return newError(CodeInvalidHandle, nil)
	}
	total := 0
	for _, f := range fragments {
		total += len(f)
	}
	payload := make([]byte, 0, total)
	for _, f := range fragments {
		payload = append(payload, f...)
	}
	var err error
	if s.connected {
		err = sendtoNonblocking(s.fd, payload, s.peerIP, s.peerPort)
	} else {
		return newError(CodeSendFailed, nil)
	}
	if err != nil {
		return newError(CodeSendFailed, err)
	}
	d.cfg.metrics.IncrementMessagesSent()
	d.cfg.metrics.AddBytesSent(int64(len(payload)))
	return nil
}

// Close is idempotent: closing a handle already absent from the
// socket table is a no-op success, per spec.md §8 invariant 8.
func (d *DatagramDriver) Close(h Handle) error {
	s, ok := d.sockets[h]
	if !ok {
		return nil
	}
	d.react.remove(s.fd)
	_ = closeFD(s.fd)
	delete(d.sockets, h)
	delete(d.byFD, s.fd)
	return nil
}

func (d *DatagramDriver) Update() (int, error) {
	events, err := d.react.Wait()
	if err != nil {
		return 0, err
	}
	for _, ev := range events {
		s, ok := d.byFD[ev.fd]
		if !ok || !ev.readable {
			continue
		}
		n, _, _, err := recvfromNonblocking(s.fd, d.scratch)
		if err != nil {
			if !isRetryableIOErr(err) {
				d.log.WithFields(logrus.Fields{"handle": s.handle, "event": "recv_failed"}).Warn(err)
			}
			continue
		}
		d.cfg.metrics.IncrementMessagesReceived()
		d.cfg.metrics.AddBytesReceived(int64(n))
		payload := make([]byte, n)
		copy(payload, d.scratch[:n])
		d.callbacks.fireMessage(payload, MsgExternInfo{Self: s.handle, Remote: s.handle})
	}
	return len(events), nil
}
