package xnet

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("frame header", func() {
	It("round-trips a payload length through build and parse", func() {
		var hdr [FrameHeaderSize]byte
		buildFrameHeader(hdr[:], 1234)

		n, ok := parseHead(hdr[:])
		Expect(ok).To(BeTrue())
		Expect(n).To(Equal(1234))
	})

	It("refuses to parse a short buffer", func() {
		_, ok := parseHead(make([]byte, 3))
		Expect(ok).To(BeFalse())
	})

	It("refuses a buffer with the wrong magic, without panicking", func() {
		buf := make([]byte, FrameHeaderSize)
		buf[0] = 0x00
		_, ok := parseHead(buf)
		Expect(ok).To(BeFalse())
	})
})
