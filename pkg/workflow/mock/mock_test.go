package mock_test

import (
	"context"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/flowstream/pkg/stream"
	"github.com/papercomputeco/flowstream/pkg/stream/streamtest"
	"github.com/papercomputeco/flowstream/pkg/workflow"
	"github.com/papercomputeco/flowstream/pkg/workflow/mock"
)

func userRequest(content string) workflow.Request {
	return workflow.Request{
		ThreadID:         "thread-1",
		Messages:         []workflow.Message{{Role: "user", Content: content}},
		AutoAcceptedPlan: true,
	}
}

func contentOf(events []stream.Event) string {
	var b strings.Builder
	for _, ev := range events {
		if p, ok := ev.Data.(workflow.MessagePayload); ok && ev.Type == stream.TypeMessageChunk {
			b.WriteString(p.Content)
		}
	}
	return b.String()
}

var _ = Describe("Reply", func() {
	DescribeTable("picks the reply by keyword",
		func(input, want string) {
			Expect(mock.Reply(input)).To(HavePrefix(want))
		},
		Entry("search", "Search the web for Go", "I'm a mock LLM. I would normally help you search"),
		Entry("find", "find papers", "I'm a mock LLM. I would normally help you search"),
		Entry("greeting", "Hello there", "Hello! I'm a mock LLM"),
		Entry("test", "run a TEST", "Mock LLM test response successful!"),
		Entry("error", "error please", "This is a mock error response"),
		Entry("anything else", "quantum computing", "Mock LLM received: 'quantum computing...'"),
	)

	It("truncates long inputs in the echo", func() {
		long := strings.Repeat("z", 150)
		Expect(mock.Reply(long)).To(ContainSubstring("'" + strings.Repeat("z", 100) + "...'"))
	})
})

var _ = Describe("Chunk", func() {
	It("splits into words that concatenate back", func() {
		chunks := mock.Chunk("a quick reply")
		Expect(chunks).To(Equal([]string{"a ", "quick ", "reply"}))
		Expect(strings.Join(chunks, "")).To(Equal("a quick reply"))
	})
})

var _ = Describe("Engine", func() {
	var engine *mock.Engine

	BeforeEach(func() {
		engine = mock.New(mock.Config{})
	})

	It("is named mock", func() {
		Expect(engine.Name()).To(Equal("mock"))
	})

	It("streams the reply and completes under the supervisor", func() {
		producer, err := engine.Stream(context.Background(), userRequest("test"))
		Expect(err).NotTo(HaveOccurred())

		sink := streamtest.NewRecorder()
		out := stream.New(stream.Config{}).Run(context.Background(), "thread-1", producer, sink)

		Expect(out.State).To(Equal(stream.StateCompleted))
		data := sink.DataEvents()
		Expect(contentOf(data)).To(Equal("Mock LLM test response successful!"))

		last := data[len(data)-1].Data.(workflow.MessagePayload)
		Expect(last.FinishReason).To(Equal(workflow.FinishStop))
		Expect(last.Agent).To(Equal(mock.Agent))
		Expect(last.ThreadID).To(Equal("thread-1"))
	})

	It("ends a plan request with an interrupt offering review options", func() {
		req := userRequest("make a plan for my essay")
		req.AutoAcceptedPlan = false

		producer, err := engine.Stream(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())

		sink := streamtest.NewRecorder()
		stream.New(stream.Config{}).Run(context.Background(), "thread-1", producer, sink)

		data := sink.DataEvents()
		interrupt := data[len(data)-1]
		Expect(interrupt.Type).To(Equal(stream.TypeInterrupt))
		Expect(interrupt.Data.(workflow.MessagePayload).Options).To(Equal(workflow.PlanReviewOptions))
	})

	It("answers a resumed run from the feedback", func() {
		req := userRequest("make a plan")
		req.AutoAcceptedPlan = false
		req.InterruptFeedback = "accepted"

		producer, err := engine.Stream(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())

		sink := streamtest.NewRecorder()
		stream.New(stream.Config{}).Run(context.Background(), "thread-1", producer, sink)

		Expect(contentOf(sink.DataEvents())).To(Equal("Plan accepted. Starting research."))
	})

	It("answers a prose edit with the canned prose result", func() {
		req := workflow.ProseRequest{Prompt: "a short draft about rivers", Option: workflow.ProseLonger}.Request("thread-1")

		producer, err := engine.Stream(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())

		sink := streamtest.NewRecorder()
		out := stream.New(stream.Config{}).Run(context.Background(), "thread-1", producer, sink)

		Expect(out.State).To(Equal(stream.StateCompleted))
		Expect(contentOf(sink.DataEvents())).To(Equal("a short draft about rivers The mock writer adds a supporting detail here."))
	})

	It("stops promptly when the session times out", func() {
		engine = mock.New(mock.Config{Delay: time.Hour})
		producer, err := engine.Stream(context.Background(), userRequest("hello"))
		Expect(err).NotTo(HaveOccurred())

		sup := stream.New(stream.Config{Timeout: 20 * time.Millisecond})
		sink := streamtest.NewRecorder()

		done := make(chan *stream.Outcome)
		go func() { done <- sup.Run(context.Background(), "thread-1", producer, sink) }()

		var out *stream.Outcome
		Eventually(done).WithTimeout(2 * time.Second).Should(Receive(&out))
		Expect(out.State).To(Equal(stream.StateTimedOut))
		Expect(sink.DataEvents()).To(BeEmpty())
	})
})
