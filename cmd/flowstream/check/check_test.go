package checkcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	checkcmder "github.com/papercomputeco/flowstream/cmd/flowstream/check"
)

var _ = Describe("Check command", func() {
	var (
		deployDir string
		configDir string
		out       bytes.Buffer
	)

	BeforeEach(func() {
		var err error
		deployDir, err = os.MkdirTemp("", "flowstream-check-deploy-*")
		Expect(err).NotTo(HaveOccurred())
		configDir, err = os.MkdirTemp("", "flowstream-check-config-*")
		Expect(err).NotTo(HaveOccurred())
		out.Reset()

		GinkgoT().Setenv("STREAM_TIMEOUT_SECONDS", "")
		GinkgoT().Setenv("FLOWSTREAM_ENGINE_NAME", "")
	})

	AfterEach(func() {
		os.RemoveAll(deployDir)
		os.RemoveAll(configDir)
	})

	run := func() error {
		cmd := checkcmder.NewCheckCmd()
		cmd.Flags().String("config-dir", "", "")
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--dir", deployDir, "--config-dir", configDir})
		return cmd.Execute()
	}

	It("passes with defaults", func() {
		Expect(run()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Ready to serve"))
		Expect(out.String()).To(ContainSubstring("default 1800s"))
	})

	It("fails on an invalid timeout", func() {
		GinkgoT().Setenv("STREAM_TIMEOUT_SECONDS", "soon")
		Expect(run()).To(MatchError(checkcmder.ErrCheckFailed))
	})

	It("fails on a malformed config file", func() {
		Expect(os.WriteFile(filepath.Join(configDir, "config.toml"), []byte("[[[ nope"), 0o600)).To(Succeed())
		Expect(run()).To(MatchError(checkcmder.ErrCheckFailed))
	})

	It("requires model settings for the upstream engine", func() {
		Expect(os.WriteFile(filepath.Join(configDir, "config.toml"), []byte("[engine]\nname = \"upstream\"\n"), 0o600)).To(Succeed())
		GinkgoT().Setenv("BASIC_MODEL__API_KEY", "")
		GinkgoT().Setenv("BASIC_MODEL__MODEL", "")

		Expect(run()).To(MatchError(checkcmder.ErrCheckFailed))
		Expect(out.String()).To(ContainSubstring("BASIC_MODEL__API_KEY"))
	})

	It("lists the variables an .env file defines", func() {
		Expect(os.WriteFile(filepath.Join(deployDir, ".env"), []byte("APP_ENV=production\nFRONTEND_URL=https://app.example.com\n"), 0o600)).To(Succeed())

		Expect(run()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("defines APP_ENV, FRONTEND_URL"))
	})
})
