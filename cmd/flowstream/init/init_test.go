package initcmder_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/papercomputeco/flowstream/cmd/flowstream/init"
	"github.com/papercomputeco/flowstream/pkg/config"
)

var _ = Describe("NewInitCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Use).To(Equal("init"))
	})

	It("rejects any arguments", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Args(cmd, []string{"extra"})).To(HaveOccurred())
	})

	It("has a --preset flag", func() {
		cmd := initcmder.NewInitCmd()
		f := cmd.Flags().Lookup("preset")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal(""))
	})
})

var _ = Describe("Init command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "flowstream-init-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		Expect(os.Chdir(tmpDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	run := func(args ...string) error {
		cmd := initcmder.NewInitCmd()
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	It("creates a config.toml with default values", func() {
		Expect(run()).To(Succeed())

		cfg := loadConfig(tmpDir)
		Expect(cfg.Version).To(Equal(config.CurrentV))
		Expect(cfg.Stream.TimeoutSeconds).To(Equal(uint(1800)))
		Expect(cfg.Engine.Name).To(Equal("mock"))
		Expect(cfg.Server.Listen).To(Equal(":8000"))
	})

	It("does not overwrite an existing config without a preset", func() {
		dir := filepath.Join(tmpDir, ".flowstream")
		Expect(os.MkdirAll(dir, 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[stream]\ntimeout_seconds = 60\n"), 0o600)).To(Succeed())

		Expect(run()).To(Succeed())
		Expect(loadConfig(tmpDir).Stream.TimeoutSeconds).To(Equal(uint(60)))
	})

	It("keeps other files in an existing directory", func() {
		dir := filepath.Join(tmpDir, ".flowstream")
		Expect(os.MkdirAll(dir, 0o755)).To(Succeed())
		thread := filepath.Join(dir, "thread.json")
		Expect(os.WriteFile(thread, []byte(`{"thread_id":"abc"}`), 0o644)).To(Succeed())

		Expect(run("--preset", "ollama")).To(Succeed())

		data, err := os.ReadFile(thread)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(`{"thread_id":"abc"}`))
	})

	Describe("--preset with engine presets", func() {
		It("writes the openai preset", func() {
			Expect(run("--preset", "openai")).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Engine.Name).To(Equal("upstream"))
			Expect(cfg.Engine.Basic.BaseURL).To(Equal("https://api.openai.com/v1"))
			Expect(cfg.Engine.Basic.Model).To(Equal("gpt-4o-mini"))
		})

		It("overwrites the config on re-init", func() {
			Expect(run("--preset", "openai")).To(Succeed())
			Expect(run("--preset", "mock")).To(Succeed())
			Expect(loadConfig(tmpDir).Engine.Name).To(Equal("mock"))
		})

		It("rejects unknown preset names", func() {
			err := run("--preset", "invalid-provider")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unknown preset"))
		})
	})

	Describe("--preset with remote URL", func() {
		It("fetches and writes remote config.toml", func() {
			remoteCfg := `version = 0

[stream]
timeout_seconds = 120

[engine]
name = "upstream"

[engine.basic_model]
base_url = "http://localhost:11434/v1"
model = "llama3.2"
`
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				fmt.Fprint(w, remoteCfg)
			}))
			defer server.Close()

			Expect(run("--preset", server.URL)).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Stream.TimeoutSeconds).To(Equal(uint(120)))
			Expect(cfg.Engine.Name).To(Equal("upstream"))
			Expect(cfg.Engine.Basic.Model).To(Equal("llama3.2"))
		})

		It("returns error for non-200 HTTP response", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer server.Close()

			err := run("--preset", server.URL)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("HTTP 404"))
		})

		It("returns error for invalid TOML from URL", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "this is not valid toml [[[")
			}))
			defer server.Close()

			err := run("--preset", server.URL)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("parsing"))
		})

		It("returns error for unreachable URL", func() {
			err := run("--preset", "http://127.0.0.1:1")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("fetching remote config"))
		})
	})
})

// loadConfig reads and parses the config.toml from the .flowstream directory
// within baseDir.
func loadConfig(baseDir string) *config.Config {
	data, err := os.ReadFile(filepath.Join(baseDir, ".flowstream", "config.toml"))
	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	cfg := &config.Config{}
	ExpectWithOffset(1, toml.Unmarshal(data, cfg)).To(Succeed())
	return cfg
}
