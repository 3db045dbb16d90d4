//go:build linux

package xnet_test

import (
	"encoding/binary"
	"net"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/atsika/xnet"
)

// rawFrame builds the 8-byte magic+length header followed by payload,
// the same wire format buildFrameHeader/parseHead implement internally.
func rawFrame(payload []byte) []byte {
	buf := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], 0xA5A5A5A5)
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(payload)))
	copy(buf[8:], payload)
	return buf
}

var _ = Describe("StreamDriver receive loop", func() {
	var f *xnet.Facade

	BeforeEach(func() {
		f = xnet.NewFacade()
	})

	It("reassembles a frame split across several partial writes", func() {
		var received atomic.Value

		Expect(f.Init(xnet.Callbacks{
			OnMessage: func(payload []byte, info xnet.MsgExternInfo) {
				received.Store(append([]byte(nil), payload...))
			},
		})).To(Succeed())
		Expect(f.AddDriver(xnet.NewStreamDriver())).To(Succeed())

		addr := freePort()
		_, err := f.Bind("tcp://" + addr)
		Expect(err).NotTo(HaveOccurred())

		peer, err := net.Dial("tcp", addr)
		Expect(err).NotTo(HaveOccurred())
		defer peer.Close()

		frame := rawFrame([]byte("ABCDE"))
		Expect(len(frame)).To(Equal(13))

		// Three partial writes: 4, 4, 5 bytes, pumping Update between
		// each so the driver must stage and re-assemble across reads.
		_, err = peer.Write(frame[0:4])
		Expect(err).NotTo(HaveOccurred())
		pumpUntil(f, 2*time.Second, func() bool { return true })

		_, err = peer.Write(frame[4:8])
		Expect(err).NotTo(HaveOccurred())
		pumpUntil(f, 2*time.Second, func() bool { return true })

		Expect(received.Load()).To(BeNil())

		_, err = peer.Write(frame[8:13])
		Expect(err).NotTo(HaveOccurred())

		pumpUntil(f, 2*time.Second, func() bool { return received.Load() != nil })
		Expect(string(received.Load().([]byte))).To(Equal("ABCDE"))
	})

	It("stays open on a bad-magic header instead of closing or losing the frame after it", func() {
		var messages [][]byte
		var closedFired atomic.Value

		Expect(f.Init(xnet.Callbacks{
			OnMessage: func(payload []byte, info xnet.MsgExternInfo) {
				messages = append(messages, append([]byte(nil), payload...))
			},
			OnPeerClosed: func(local, peer xnet.Handle) {
				closedFired.Store(true)
			},
		})).To(Succeed())
		Expect(f.AddDriver(xnet.NewStreamDriver())).To(Succeed())

		addr := freePort()
		_, err := f.Bind("tcp://" + addr)
		Expect(err).NotTo(HaveOccurred())

		peer, err := net.Dial("tcp", addr)
		Expect(err).NotTo(HaveOccurred())
		defer peer.Close()

		bad := make([]byte, 8)
		binary.BigEndian.PutUint32(bad[0:4], 0xDEADBEEF)
		binary.BigEndian.PutUint32(bad[4:8], 0)

		good := rawFrame([]byte("still here"))

		// Bad header and a well-formed frame arrive in the same read.
		// A receive loop that silently resyncs past the corruption
		// would deliver "still here"; the documented behavior (spec.md
		// §7/§8 S3) is to retain the whole remainder, bad header
		// included, and stall parsing rather than guess where the
		// stream realigns.
		_, err = peer.Write(append(bad, good...))
		Expect(err).NotTo(HaveOccurred())

		// Give the driver a few passes to prove the frame is not
		// spuriously delivered, without waiting for a timeout on every
		// run.
		for i := 0; i < 10; i++ {
			_, err := f.Update()
			Expect(err).NotTo(HaveOccurred())
			time.Sleep(2 * time.Millisecond)
		}
		Expect(messages).To(BeEmpty())
		Expect(closedFired.Load()).To(BeNil())
	})

	It("reconnects a client-style connection once its peer listener reopens", func() {
		var connectCount int32
		var serverPeer atomic.Value

		f2 := xnet.NewFacade()
		Expect(f2.Init(xnet.Callbacks{
			OnPeerConnected: func(local, peer xnet.Handle) {
				atomic.AddInt32(&connectCount, 1)
				serverPeer.Store(peer)
			},
		})).To(Succeed())
		Expect(f2.AddDriver(xnet.NewStreamDriver())).To(Succeed())

		addr := freePort()
		listenerHandle, err := f2.Bind("tcp://" + addr)
		Expect(err).NotTo(HaveOccurred())

		f1 := xnet.NewFacade(xnet.WithReconnectBackoff(10*time.Millisecond, 50*time.Millisecond))
		Expect(f1.Init(xnet.Callbacks{})).To(Succeed())
		Expect(f1.AddDriver(xnet.NewStreamDriver())).To(Succeed())
		clientHandle, err := f1.Connect("tcp://" + addr)
		Expect(err).NotTo(HaveOccurred())

		pumpBoth := func(cond func() bool) {
			deadline := time.Now().Add(2 * time.Second)
			for time.Now().Before(deadline) {
				if cond() {
					return
				}
				_, _ = f1.Update()
				_, _ = f2.Update()
				time.Sleep(2 * time.Millisecond)
			}
			Fail("condition not met")
		}

		pumpBoth(func() bool { return atomic.LoadInt32(&connectCount) >= 1 && serverPeer.Load() != nil })

		// Tear down both the listener and its one accepted connection,
		// the way a peer process dying takes the whole socket away.
		Expect(f2.Close(listenerHandle)).To(Succeed())
		Expect(f2.Close(serverPeer.Load().(xnet.Handle))).To(Succeed())
		pumpBoth(func() bool { return true })

		_, err = f2.Bind("tcp://" + addr)
		Expect(err).NotTo(HaveOccurred())

		pumpBoth(func() bool { return atomic.LoadInt32(&connectCount) >= 2 })
		Expect(clientHandle).NotTo(Equal(xnet.InvalidHandle))
	})
})
