package xnet

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("reconnectBackoff", func() {
	It("is immediately ready before any failure", func() {
		b := newReconnectBackoff(10*time.Millisecond, 100*time.Millisecond)
		Expect(b.Ready(time.Now())).To(BeTrue())
	})

	It("backs off exponentially up to the steady interval", func() {
		b := newReconnectBackoff(10*time.Millisecond, 45*time.Millisecond)
		now := time.Now()

		b.Failed(now)
		Expect(b.cur).To(Equal(20 * time.Millisecond))
		b.Failed(now)
		Expect(b.cur).To(Equal(40 * time.Millisecond))
		b.Failed(now)
		Expect(b.cur).To(Equal(45 * time.Millisecond)) // capped at steady
	})

	It("resets back to the fast interval", func() {
		b := newReconnectBackoff(10*time.Millisecond, 100*time.Millisecond)
		b.Failed(time.Now())
		b.Reset()
		Expect(b.cur).To(Equal(10 * time.Millisecond))
	})
})
