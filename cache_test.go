package xnet

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("stagingCache", func() {
	var c *stagingCache

	BeforeEach(func() {
		var err error
		c, err = newStagingCache(4, 16)
		Expect(err).NotTo(HaveOccurred())
	})

	It("appends to an existing key rather than replacing it", func() {
		Expect(c.Put(1, []byte("ab"))).To(Succeed())
		Expect(c.Put(1, []byte("cd"))).To(Succeed())

		data, ok := c.Peek(1)
		Expect(ok).To(BeTrue())
		Expect(string(data)).To(Equal("abcd"))
	})

	It("removes the entry on Get", func() {
		Expect(c.Put(2, []byte("x"))).To(Succeed())
		data, ok := c.Get(2)
		Expect(ok).To(BeTrue())
		Expect(string(data)).To(Equal("x"))

		_, ok = c.Peek(2)
		Expect(ok).To(BeFalse())
	})

	It("fails instead of evicting when a key exceeds its byte bound", func() {
		Expect(c.Put(3, make([]byte, 10))).To(Succeed())
		err := c.Put(3, make([]byte, 10))
		Expect(err).To(HaveOccurred())
		Expect(NegativeCode(err)).To(Equal(-int64(CodeSendBuffNotEnough)))

		// the original 10 bytes are still there, untouched
		Expect(c.Len(3)).To(Equal(10))
	})

	It("fails instead of evicting when the active-entry count is exhausted", func() {
		for i := Handle(0); i < 4; i++ {
			Expect(c.Put(i, []byte("a"))).To(Succeed())
		}
		err := c.Put(99, []byte("a"))
		Expect(err).To(HaveOccurred())
		Expect(NegativeCode(err)).To(Equal(-int64(CodeCacheFailed)))
	})

	It("reports Del as idempotent", func() {
		c.Del(42)
		Expect(c.Len(42)).To(Equal(0))
	})
})
