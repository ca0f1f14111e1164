/*
Copyright 2025 The KGCL Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kgcl-io/kgcl-core/pkg/config"
)

var _ = Describe("Config", func() {
	var (
		tempDir    string
		configFile string
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "kgcl-config-test")
		Expect(err).NotTo(HaveOccurred())
		configFile = filepath.Join(tempDir, "config.yaml")
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
		os.Unsetenv("KGCL_CACHE_DIR")
		os.Unsetenv("KGCL_EYE_PATH")
		os.Unsetenv("KGCL_LOG_LEVEL")
	})

	Describe("Load", func() {
		Context("when the file exists with valid content", func() {
			BeforeEach(func() {
				valid := `
cache:
  dir: /tmp/kgc-cache
reasoner:
  eye_path: /usr/local/bin/eye
  pool_size: 8
logging:
  level: debug
tick:
  default_timeout: 45s
  max_ticks: 500
temporal:
  max_hot_events: 20000
  max_warm_events: 2000000
  snapshot_interval_events: 50000
  snapshot_interval_seconds: 1800
`
				Expect(os.WriteFile(configFile, []byte(valid), 0644)).To(Succeed())
			})

			It("loads every field", func() {
				cfg, err := config.Load(configFile)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Cache.Dir).To(Equal("/tmp/kgc-cache"))
				Expect(cfg.Reasoner.EyePath).To(Equal("/usr/local/bin/eye"))
				Expect(cfg.Reasoner.PoolSize).To(Equal(8))
				Expect(cfg.Logging.Level).To(Equal("debug"))
				Expect(cfg.Tick.DefaultTimeout).To(Equal(45 * time.Second))
				Expect(cfg.Tick.MaxTicks).To(Equal(uint64(500)))
				Expect(cfg.Temporal.MaxHotEvents).To(Equal(20000))
			})
		})

		Context("when the path is empty", func() {
			It("returns Default()'s values", func() {
				cfg, err := config.Load("")
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Logging.Level).To(Equal("info"))
				Expect(cfg.Tick.MaxTicks).To(Equal(uint64(1000)))
			})
		})

		Context("when the file does not exist", func() {
			It("returns a StoreError", func() {
				_, err := config.Load(filepath.Join(tempDir, "missing.yaml"))
				Expect(err).To(HaveOccurred())
			})
		})

		Context("when environment variables are set", func() {
			BeforeEach(func() {
				Expect(os.WriteFile(configFile, []byte("logging:\n  level: warn\n"), 0644)).To(Succeed())
				os.Setenv("KGCL_CACHE_DIR", "/override/cache")
				os.Setenv("KGCL_LOG_LEVEL", "error")
			})

			It("overrides the file's values", func() {
				cfg, err := config.Load(configFile)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Cache.Dir).To(Equal("/override/cache"))
				Expect(cfg.Logging.Level).To(Equal("error"))
			})
		})
	})

	Describe("Watch", func() {
		It("invokes onChange with the reloaded config on write", func() {
			Expect(os.WriteFile(configFile, []byte("logging:\n  level: info\n"), 0644)).To(Succeed())

			changes := make(chan *config.Config, 4)
			w, err := config.Watch(configFile, GinkgoLogr, func(c *config.Config) { changes <- c })
			Expect(err).NotTo(HaveOccurred())
			defer w.Close()

			Expect(os.WriteFile(configFile, []byte("logging:\n  level: debug\n"), 0644)).To(Succeed())

			Eventually(changes, "2s").Should(Receive(WithTransform(func(c *config.Config) string {
				return c.Logging.Level
			}, Equal("debug"))))
		})
	})
})
