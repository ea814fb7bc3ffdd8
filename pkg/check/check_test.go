package check_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/flowstream/pkg/check"
	"github.com/papercomputeco/flowstream/pkg/config"
)

func find(r *check.Report, name string) *check.Result {
	for _, s := range r.Sections {
		for i := range s.Results {
			if s.Results[i].Name == name {
				return &s.Results[i]
			}
		}
	}
	return nil
}

var _ = Describe("Run", func() {
	var (
		dir  string
		env  map[string]string
		opts check.Options
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		env = map[string]string{}
		opts = check.Options{
			Dir:        dir,
			ConfigPath: filepath.Join(dir, config.FileName),
			Getenv:     func(k string) string { return env[k] },
		}
	})

	It("passes a bare mock deployment", func() {
		r := check.Run(opts)
		Expect(r.OK()).To(BeTrue())
		Expect(find(r, "Backend environment").OK).To(BeFalse())
		Expect(find(r, "Config file").Detail).To(ContainSubstring("using defaults"))
		Expect(find(r, "STREAM_TIMEOUT_SECONDS").Detail).To(Equal("not set, default 1800s"))
		Expect(find(r, "Engine").Detail).To(Equal("mock"))
	})

	It("lists variables defined in .env", func() {
		Expect(os.WriteFile(filepath.Join(dir, ".env"), []byte("# comment\nBASIC_MODEL__MODEL=gpt\nAPP_ENV=production\n"), 0o600)).To(Succeed())

		r := check.Run(opts)
		Expect(find(r, "Backend environment").OK).To(BeTrue())
		Expect(find(r, ".env").Detail).To(Equal("defines APP_ENV, BASIC_MODEL__MODEL"))
	})

	It("fails on an invalid config file", func() {
		Expect(os.WriteFile(opts.ConfigPath, []byte("[stream\ntimeout_seconds = "), 0o600)).To(Succeed())

		r := check.Run(opts)
		Expect(r.OK()).To(BeFalse())
		Expect(find(r, "Config file").Detail).To(ContainSubstring("is invalid"))
	})

	It("fails on a non-positive timeout", func() {
		env["STREAM_TIMEOUT_SECONDS"] = "0"
		r := check.Run(opts)
		Expect(r.OK()).To(BeFalse())
		Expect(find(r, "STREAM_TIMEOUT_SECONDS").OK).To(BeFalse())
	})

	It("requires model settings for the upstream engine", func() {
		cfg := config.NewDefaultConfig()
		cfg.Engine.Name = "upstream"
		cfg.Engine.Basic.Model = "gpt-4o-mini"
		opts.Config = cfg

		r := check.Run(opts)
		Expect(r.OK()).To(BeFalse())
		Expect(find(r, "BASIC_MODEL__API_KEY").OK).To(BeFalse())
		Expect(find(r, "BASIC_MODEL__MODEL").OK).To(BeTrue())
		Expect(find(r, "BASIC_MODEL__BASE_URL").OK).To(BeTrue())

		cfg.Engine.Basic.APIKey = "sk-test"
		Expect(check.Run(opts).OK()).To(BeTrue())
	})
})
