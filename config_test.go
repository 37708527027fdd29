package ontoenv_test

import (
	"os"
	"path/filepath"

	. "github.com/kahefi/ontoenv"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {

	Describe("Validating the resolution policy", func() {
		It("accepts the empty string and every documented policy", func() {
			for _, p := range []ResolutionPolicy{"", PolicyDefault, PolicyLatest, PolicyVersion} {
				cfg := DefaultConfig()
				cfg.ResolutionPolicy = p
				Expect(cfg.Validate()).NotTo(HaveOccurred())
			}
		})
		It("rejects an unknown policy", func() {
			cfg := DefaultConfig()
			cfg.ResolutionPolicy = "bogus"
			Expect(cfg.Validate()).To(HaveOccurred())
		})
	})

	Describe("Validating timeouts", func() {
		It("rejects a negative remote cache TTL", func() {
			cfg := DefaultConfig()
			cfg.RemoteCacheTTLSecs = -1
			Expect(cfg.Validate()).To(HaveOccurred())
		})
		It("rejects a negative HTTP timeout", func() {
			cfg := DefaultConfig()
			cfg.HTTPTimeoutSecs = -1
			Expect(cfg.Validate()).To(HaveOccurred())
		})
	})

	Describe("Saving and loading a config", func() {
		var dir string

		BeforeEach(func() {
			var err error
			dir, err = os.MkdirTemp("", "ontoenv-config-*")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			os.RemoveAll(dir)
		})

		It("round-trips locations, strict and resolution policy through config.json", func() {
			cfg := DefaultConfig()
			cfg.Locations = []string{"./ontologies"}
			cfg.Strict = true
			cfg.ResolutionPolicy = PolicyLatest

			Expect(cfg.Save(dir)).NotTo(HaveOccurred())
			Expect(filepath.Join(dir, "config.json")).To(BeAnExistingFile())

			loaded, err := LoadConfig(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Locations).To(Equal(cfg.Locations))
			Expect(loaded.Strict).To(BeTrue())
			Expect(loaded.ResolutionPolicy).To(Equal(PolicyLatest))
		})

		It("falls back to defaults when no config.json exists yet", func() {
			loaded, err := LoadConfig(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(DefaultConfig()))
		})
	})
})
