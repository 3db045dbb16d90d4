package xnet

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Handle", func() {
	It("encodes and recovers the driver index", func() {
		for idx := 0; idx < MaxDrivers; idx++ {
			h := encodeHandle(idx, 42)
			Expect(h.DriverIndex()).To(Equal(idx))
			Expect(h.Valid(MaxDrivers)).To(BeTrue())
		}
	})

	It("treats InvalidHandle as never valid", func() {
		Expect(InvalidHandle.Valid(MaxDrivers)).To(BeFalse())
		Expect(InvalidHandle < 0).To(BeTrue())
	})

	It("rejects a driver index beyond the registered count", func() {
		h := encodeHandle(3, 1)
		Expect(h.Valid(2)).To(BeFalse())
	})

	It("allocates monotonically increasing sequences", func() {
		a := newHandleAllocator(0)
		first := a.allocate()
		second := a.allocate()
		Expect(second).To(BeNumerically(">", first))
	})
})
