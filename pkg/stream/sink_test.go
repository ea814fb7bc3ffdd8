package stream_test

import (
	"bytes"
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/flowstream/pkg/stream"
)

type chunkBody struct {
	Content string `json:"content"`
	Agent   string `json:"agent"`
}

var _ = Describe("TextSink", func() {
	var (
		buf  *bytes.Buffer
		sink *stream.TextSink
		ctx  context.Context
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		sink = stream.NewTextSink(buf)
		ctx = context.Background()
	})

	It("writes the text of each chunk as a bare data frame", func() {
		Expect(sink.Send(ctx, stream.Event{Type: stream.TypeMessageChunk, Data: "Hello "})).To(Succeed())
		Expect(sink.Send(ctx, stream.Event{Type: stream.TypeMessageChunk, Data: map[string]any{"content": "world"}})).To(Succeed())
		Expect(sink.Send(ctx, stream.Event{Type: stream.TypeMessageChunk, Data: chunkBody{Content: "!", Agent: "prose"}})).To(Succeed())

		Expect(buf.String()).To(Equal("data: Hello \n\ndata: world\n\ndata: !\n\n"))
	})

	It("writes error events as an Error line", func() {
		Expect(sink.Send(ctx, stream.NewErrorEvent("t1", "Stream error: model offline"))).To(Succeed())
		Expect(buf.String()).To(Equal("data: Error: Stream error: model offline\n\n"))
	})

	It("drops events that carry no text", func() {
		Expect(sink.Send(ctx, stream.NewDoneEvent("t1", "s1"))).To(Succeed())
		Expect(sink.Send(ctx, stream.Event{Type: stream.TypeToolCalls, Data: map[string]any{"name": "search"}})).To(Succeed())
		Expect(sink.Send(ctx, stream.Event{Type: stream.TypeMessageChunk, Data: map[string]any{"content": ""}})).To(Succeed())
		Expect(buf.Len()).To(BeZero())
	})

	It("refuses to write once the caller is gone", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		Expect(sink.Send(cancelled, stream.Event{Type: stream.TypeMessageChunk, Data: "late"})).To(MatchError(context.Canceled))
		Expect(buf.Len()).To(BeZero())
	})
})
