package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/flowstream/pkg/config"
)

var _ = Describe("Configer", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	writeConfig := func(data string) {
		Expect(os.WriteFile(filepath.Join(tmpDir, config.FileName), []byte(data), 0o600)).To(Succeed())
	}

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(config.NewDefaultConfig()))
			Expect(cfg.StreamTimeout().Seconds()).To(Equal(1800.0))
		})

		It("loads a valid config file and fills the rest with defaults", func() {
			writeConfig(`version = 0

[stream]
timeout_seconds = 60

[engine]
name = "upstream"

[engine.basic_model]
model = "gpt-4o-mini"
`)
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Stream.TimeoutSeconds).To(Equal(uint(60)))
			Expect(cfg.Stream.ShutdownGraceSeconds).To(Equal(uint(5)))
			Expect(cfg.Engine.Name).To(Equal("upstream"))
			Expect(cfg.Engine.Basic.Model).To(Equal("gpt-4o-mini"))
			Expect(cfg.Engine.Basic.BaseURL).To(Equal("https://api.openai.com/v1"))
			Expect(cfg.Server.Listen).To(Equal(":8000"))
		})

		It("rejects an unsupported version", func() {
			writeConfig("version = 7\n")
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("unsupported config version 7")))
		})

		It("rejects malformed TOML", func() {
			writeConfig("[stream\n")
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("parsing config TOML")))
		})
	})

	Describe("SaveConfig", func() {
		It("round-trips through the file", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.App.Env = "production"
			cfg.App.CORSOrigins = []string{"https://app.example.com"}
			cfg.Storage.SQLitePath = "/var/lib/flowstream.db"
			Expect(c.SaveConfig(cfg)).To(Succeed())

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(cfg))
			Expect(loaded.App.Production()).To(BeTrue())
		})

		It("refuses a nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(nil)).To(MatchError("cannot save nil config"))
		})
	})

	Describe("SetConfigValue and GetConfigValue", func() {
		var c *config.Configer

		BeforeEach(func() {
			var err error
			c, err = config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})

		It("sets and gets a string key", func() {
			Expect(c.SetConfigValue("engine.name", "upstream")).To(Succeed())

			val, err := c.GetConfigValue("engine.name")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("upstream"))
			Expect(c.GetTarget()).To(BeAnExistingFile())
		})

		It("sets and gets a numeric key", func() {
			Expect(c.SetConfigValue("stream.timeout_seconds", "90")).To(Succeed())

			val, err := c.GetConfigValue("stream.timeout_seconds")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("90"))
		})

		It("rejects a non-numeric value for a numeric key", func() {
			err := c.SetConfigValue("stream.timeout_seconds", "soon")
			Expect(err).To(MatchError(ContainSubstring("invalid value for stream.timeout_seconds")))
		})

		It("splits list keys on commas", func() {
			Expect(c.SetConfigValue("app.cors_origins", "https://a.example, https://b.example")).To(Succeed())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.App.CORSOrigins).To(Equal([]string{"https://a.example", "https://b.example"}))

			val, err := c.GetConfigValue("app.cors_origins")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("https://a.example,https://b.example"))
		})

		It("preserves existing values when setting a new key", func() {
			Expect(c.SetConfigValue("publisher.redis_addr", "localhost:6379")).To(Succeed())
			Expect(c.SetConfigValue("storage.sqlite_path", "sessions.db")).To(Succeed())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Publisher.RedisAddr).To(Equal("localhost:6379"))
			Expect(cfg.Storage.SQLitePath).To(Equal("sessions.db"))
		})

		It("returns empty string for key with no default", func() {
			val, err := c.GetConfigValue("storage.postgres_dsn")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(BeEmpty())
		})

		It("returns error for unknown key", func() {
			Expect(c.SetConfigValue("proxy.upstream", "x")).To(MatchError(ContainSubstring("unknown config key")))
			_, err := c.GetConfigValue("nonexistent_key")
			Expect(err).To(MatchError(ContainSubstring("unknown config key")))
		})
	})

	Describe("ValidConfigKeys", func() {
		It("lists every key in section order", func() {
			keys := config.ValidConfigKeys()
			Expect(keys[0]).To(Equal("app.env"))
			Expect(keys).To(ContainElements(
				"stream.timeout_seconds",
				"engine.basic_model.api_key",
				"publisher.kafka_brokers",
				"mcp.timeout_seconds",
			))
			for _, k := range keys {
				Expect(config.IsValidConfigKey(k)).To(BeTrue())
			}
		})

		It("returns keys in stable order", func() {
			Expect(config.ValidConfigKeys()).To(Equal(config.ValidConfigKeys()))
		})
	})
})

var _ = Describe("PresetConfig", func() {
	It("configures the upstream engine for openai", func() {
		cfg, err := config.PresetConfig("OpenAI")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Engine.Name).To(Equal("upstream"))
		Expect(cfg.Engine.Basic.BaseURL).To(Equal("https://api.openai.com/v1"))
		Expect(cfg.Stream.TimeoutSeconds).To(Equal(uint(1800)))
	})

	It("configures the mock engine", func() {
		cfg, err := config.PresetConfig("mock")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Engine.Name).To(Equal("mock"))
	})

	It("rejects unknown presets", func() {
		_, err := config.PresetConfig("anthropic")
		Expect(err).To(MatchError(ContainSubstring("available: mock, openai, ollama")))
	})

	It("only names presets it accepts", func() {
		for _, name := range config.ValidPresetNames() {
			_, err := config.PresetConfig(name)
			Expect(err).NotTo(HaveOccurred())
		}
	})
})
