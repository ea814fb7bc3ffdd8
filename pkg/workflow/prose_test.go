package workflow_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/flowstream/pkg/workflow"
)

var _ = Describe("ProseRequest", func() {
	Describe("Validate", func() {
		DescribeTable("accepts every known option",
			func(option string) {
				req := workflow.ProseRequest{Prompt: "draft", Option: option, Command: "make it formal"}
				Expect(req.Validate()).To(Succeed())
			},
			Entry("continue", workflow.ProseContinue),
			Entry("improve", workflow.ProseImprove),
			Entry("shorter", workflow.ProseShorter),
			Entry("longer", workflow.ProseLonger),
			Entry("fix", workflow.ProseFix),
			Entry("zap", workflow.ProseZap),
		)

		It("rejects an unknown option", func() {
			err := workflow.ProseRequest{Prompt: "draft", Option: "translate"}.Validate()
			Expect(err).To(MatchError(workflow.ErrUnknownProseOption))
			Expect(err.Error()).To(ContainSubstring("continue, improve, shorter, longer, fix, zap"))
		})

		It("requires a command for zap", func() {
			err := workflow.ProseRequest{Prompt: "draft", Option: workflow.ProseZap, Command: "  "}.Validate()
			Expect(err).To(MatchError(workflow.ErrMissingProseCommand))
		})
	})

	Describe("Request", func() {
		It("sends the instruction as the system turn and the text as the user turn", func() {
			req := workflow.ProseRequest{Prompt: "teh cat", Option: workflow.ProseFix}.Request("thread-9")

			Expect(req.ThreadID).To(Equal("thread-9"))
			Expect(req.AutoAcceptedPlan).To(BeTrue())
			Expect(req.ProseOption).To(Equal(workflow.ProseFix))
			Expect(req.ProseText).To(Equal("teh cat"))
			Expect(req.Messages).To(HaveLen(2))
			Expect(req.Messages[0].Role).To(Equal("system"))
			Expect(req.Messages[0].Content).To(ContainSubstring("spelling and grammar"))
			Expect(req.LastUserMessage()).To(Equal("teh cat"))
		})

		It("puts the zap command ahead of the text", func() {
			req := workflow.ProseRequest{Prompt: "draft", Option: workflow.ProseZap, Command: "make it formal"}.Request("t")
			Expect(req.LastUserMessage()).To(Equal("Command: make it formal\n\ndraft"))
		})
	})
})
