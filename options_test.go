package xnet

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	It("applies defaults with no options", func() {
		cfg := applyConfig(nil)
		Expect(cfg.Validate()).To(Succeed())
		Expect(cfg.commonBufferSize).To(Equal(DefaultCommonBufferSize))
		Expect(cfg.maxSendFragments).To(Equal(DefaultMaxSendFragments))
	})

	It("applies WithCommonBufferSize", func() {
		cfg := applyConfig([]Option{WithCommonBufferSize(4096)})
		Expect(cfg.commonBufferSize).To(Equal(4096))
	})

	It("ignores a zero WithCommonBufferSize rather than accepting an invalid value", func() {
		cfg := applyConfig([]Option{WithCommonBufferSize(0)})
		Expect(cfg.commonBufferSize).To(Equal(DefaultCommonBufferSize))
	})

	It("rejects fewer than 2 max send fragments at Validate time", func() {
		cfg := defaultConfig()
		cfg.maxSendFragments = 1
		Expect(cfg.Validate()).To(HaveOccurred())
	})

	It("applies WithCacheLimits", func() {
		cfg := applyConfig([]Option{WithCacheLimits(100, 200)})
		Expect(cfg.cacheActiveEntries).To(Equal(100))
		Expect(cfg.cacheEntryBound).To(Equal(200))
	})
})
