//go:build linux

package xnet_test

import (
	"fmt"
	"net"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/atsika/xnet"
)

// freePort returns an address on an OS-assigned free TCP port, the way
// the nabbar-golib socket server tests pick an ephemeral port.
func freePort() string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())
	addr := l.Addr().String()
	Expect(l.Close()).To(Succeed())
	return addr
}

// pumpUntil runs Update in a loop (at least once) until cond returns
// true after a pass or timeout elapses, exactly the kind of polling loop a single-goroutine reactor
// driver forces on its caller.
func pumpUntil(f *xnet.Facade, timeout time.Duration, cond func() bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		_, err := f.Update()
		Expect(err).NotTo(HaveOccurred())
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	Fail(fmt.Sprintf("condition not met within %s", timeout))
}

var _ = Describe("Facade end-to-end", func() {
	var f *xnet.Facade

	BeforeEach(func() {
		f = xnet.NewFacade()
	})

	It("delivers a message from a dialed connection to an accepted peer", func() {
		var received atomic.Value
		var peerHandle atomic.Value

		err := f.Init(xnet.Callbacks{
			OnMessage: func(payload []byte, info xnet.MsgExternInfo) {
				received.Store(append([]byte(nil), payload...))
			},
			OnPeerConnected: func(local, peer xnet.Handle) {
				peerHandle.Store(peer)
			},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(f.AddDriver(xnet.NewStreamDriver())).To(Succeed())

		addr := freePort()
		_, err = f.Bind("tcp://" + addr)
		Expect(err).NotTo(HaveOccurred())

		clientHandle, err := f.Connect("tcp://" + addr)
		Expect(err).NotTo(HaveOccurred())

		pumpUntil(f, 2*time.Second, func() bool { return peerHandle.Load() != nil })

		Expect(f.Send(clientHandle, []byte("hello xnet"))).To(Succeed())

		pumpUntil(f, 2*time.Second, func() bool { return received.Load() != nil })
		Expect(string(received.Load().([]byte))).To(Equal("hello xnet"))
	})

	It("fires on_peer_closed when the dialing side disconnects", func() {
		var closedPeer atomic.Value

		err := f.Init(xnet.Callbacks{
			OnPeerClosed: func(local, peer xnet.Handle) {
				closedPeer.Store(peer)
			},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(f.AddDriver(xnet.NewStreamDriver())).To(Succeed())

		addr := freePort()
		_, err = f.Bind("tcp://" + addr)
		Expect(err).NotTo(HaveOccurred())

		clientHandle, err := f.Connect("tcp://" + addr)
		Expect(err).NotTo(HaveOccurred())

		pumpUntil(f, 2*time.Second, func() bool { return true }) // let the accept land
		Expect(f.Close(clientHandle)).To(Succeed())

		pumpUntil(f, 2*time.Second, func() bool { return closedPeer.Load() != nil })
	})

	It("keeps tcp:// and udp:// handles in distinct driver slots", func() {
		Expect(f.Init(xnet.Callbacks{})).To(Succeed())
		Expect(f.AddDriver(xnet.NewStreamDriver())).To(Succeed())
		Expect(f.AddDriver(xnet.NewDatagramDriver())).To(Succeed())

		tcpAddr := freePort()
		tcpHandle, err := f.Bind("tcp://" + tcpAddr)
		Expect(err).NotTo(HaveOccurred())

		udpHandle, err := f.Bind("udp://127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())

		Expect(tcpHandle.DriverIndex()).To(Equal(0))
		Expect(udpHandle.DriverIndex()).To(Equal(1))
	})

	It("rejects a second driver registered under an already-taken scheme", func() {
		Expect(f.Init(xnet.Callbacks{})).To(Succeed())
		Expect(f.AddDriver(xnet.NewStreamDriver())).To(Succeed())
		err := f.AddDriver(xnet.NewStreamDriver())
		Expect(err).To(HaveOccurred())
	})

	It("returns CodeInvalidHandle for an operation on a handle from no registered driver", func() {
		Expect(f.Init(xnet.Callbacks{})).To(Succeed())
		err := f.Send(xnet.Handle(123456), []byte("x"))
		Expect(err).To(HaveOccurred())
	})
})
