package cliui_test

import (
	"bytes"
	"errors"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/flowstream/pkg/cliui"
)

var _ = Describe("cliui", func() {
	Describe("Step", func() {
		It("prints a success mark and returns nil", func() {
			var buf bytes.Buffer
			Expect(cliui.Step(&buf, "connecting", func() error { return nil })).To(Succeed())
			Expect(buf.String()).To(ContainSubstring(cliui.SuccessMark + " connecting"))
		})

		It("prints a fail mark and returns the error", func() {
			var buf bytes.Buffer
			boom := errors.New("boom")
			Expect(cliui.Step(&buf, "connecting", func() error { return boom })).To(MatchError(boom))
			Expect(buf.String()).To(ContainSubstring(cliui.FailMark + " connecting"))
		})
	})

	Describe("StateMark", func() {
		It("maps session states to marks", func() {
			Expect(cliui.StateMark("completed")).To(Equal(cliui.SuccessMark))
			Expect(cliui.StateMark("cancelled")).To(Equal(cliui.WarnMark))
			Expect(cliui.StateMark("timed_out")).To(Equal(cliui.FailMark))
			Expect(cliui.StateMark("failed")).To(Equal(cliui.FailMark))
		})
	})

	Describe("FormatDuration", func() {
		It("uses milliseconds below a second", func() {
			Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
		})

		It("uses tenths of seconds above a second", func() {
			Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
		})
	})

	Describe("terminal helpers", func() {
		It("falls back when the file is not a terminal", func() {
			f, err := os.CreateTemp(GinkgoT().TempDir(), "out")
			Expect(err).NotTo(HaveOccurred())
			defer f.Close()

			Expect(cliui.IsTerminal(f)).To(BeFalse())
			Expect(cliui.TerminalWidth(f, 72)).To(Equal(72))
		})
	})

	Describe("RenderMarkdown", func() {
		It("renders headings and keeps the text", func() {
			out, err := cliui.RenderMarkdown("# Title\n\nsome *text*", 60)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Title"))
			Expect(out).To(ContainSubstring("text"))
		})
	})
})
