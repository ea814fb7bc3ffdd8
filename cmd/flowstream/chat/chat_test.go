package chatcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/flowstream/pkg/client"
	"github.com/papercomputeco/flowstream/pkg/dotdir"
	"github.com/papercomputeco/flowstream/pkg/logger"
	"github.com/papercomputeco/flowstream/pkg/sse"
	"github.com/papercomputeco/flowstream/pkg/stream"
	"github.com/papercomputeco/flowstream/pkg/workflow"
)

// fakeServer answers every chat request with the words of reply, or with an
// error event when failWith is set.
type fakeServer struct {
	mu       sync.Mutex
	requests []workflow.ChatRequest

	reply     string
	failWith  string
	interrupt bool
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req workflow.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	threadID := req.ThreadID
	if threadID == workflow.DefaultThreadID {
		threadID = "thread-new"
	}

	w.Header().Set("Content-Type", "text/event-stream")
	sw := sse.NewWriter(w)

	if f.failWith != "" {
		_ = sw.WriteEvent(stream.TypeError, stream.ErrorPayload{ThreadID: threadID, Error: f.failWith, Role: stream.RoleAssistant})
		return
	}

	for _, word := range strings.SplitAfter(f.reply, " ") {
		_ = sw.WriteEvent(stream.TypeMessageChunk, workflow.MessagePayload{
			ThreadID: threadID,
			ID:       "run-1",
			Role:     stream.RoleAssistant,
			Content:  word,
		})
	}
	if f.interrupt {
		_ = sw.WriteEvent(stream.TypeInterrupt, workflow.MessagePayload{
			ThreadID: threadID,
			ID:       "run-1",
			Role:     stream.RoleAssistant,
			Options:  workflow.PlanReviewOptions,
		})
	}
	_ = sw.WriteEvent(stream.TypeDone, stream.DonePayload{ThreadID: threadID, SessionID: "session-1"})
}

var _ = Describe("NewChatCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := NewChatCmd()
		Expect(cmd.Use).To(Equal("chat [message]"))
	})

	It("has the api target and continue flags", func() {
		cmd := NewChatCmd()
		Expect(cmd.Flags().Lookup("api-target").DefValue).To(Equal("http://localhost:8000"))
		Expect(cmd.Flags().Lookup("continue").Shorthand).To(Equal("c"))
	})
})

var _ = Describe("chatCommander", func() {
	var (
		fake      *fakeServer
		server    *httptest.Server
		configDir string
		out       bytes.Buffer
		cmder     *chatCommander
	)

	BeforeEach(func() {
		fake = &fakeServer{reply: "Hello from the server"}
		server = httptest.NewServer(fake)
		DeferCleanup(server.Close)

		var err error
		configDir, err = os.MkdirTemp("", "flowstream-chat-test-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, configDir)

		out.Reset()
		cmder = &chatCommander{
			apiTarget: server.URL,
			configDir: configDir,
			out:       &out,
			client:    client.New(server.URL, nil),
			logger:    logger.Nop(),
		}
	})

	savedThread := func() *dotdir.ThreadState {
		state, err := dotdir.NewManager().LoadThread(configDir)
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
		return state
	}

	It("streams a one-shot reply and saves the thread", func() {
		Expect(cmder.run(context.Background(), "hi there")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Hello from the server"))

		Expect(fake.requests).To(HaveLen(1))
		Expect(fake.requests[0].ThreadID).To(Equal(workflow.DefaultThreadID))
		Expect(fake.requests[0].Messages).To(Equal([]workflow.Message{{Role: "user", Content: "hi there"}}))

		state := savedThread()
		Expect(state.ThreadID).To(Equal("thread-new"))
		Expect(state.Messages).To(HaveLen(2))
		Expect(state.Messages[1].Content).To(Equal("Hello from the server"))
	})

	It("continues the saved thread", func() {
		Expect(dotdir.NewManager().SaveThread(&dotdir.ThreadState{
			ThreadID: "thread-old",
			Messages: []dotdir.ThreadMessage{{Role: "user", Content: "earlier"}},
		}, configDir)).To(Succeed())

		cmder.resume = true
		Expect(cmder.run(context.Background(), "again")).To(Succeed())

		Expect(fake.requests[0].ThreadID).To(Equal("thread-old"))
		Expect(savedThread().Messages).To(HaveLen(3))
	})

	It("reports an error event and keeps the thread unchanged", func() {
		fake.failWith = "Request timeout after 1800 seconds"
		err := cmder.run(context.Background(), "slow question")
		Expect(err).To(MatchError("Request timeout after 1800 seconds"))
		Expect(savedThread()).To(BeNil())
	})

	It("answers a plan review with interrupt feedback", func() {
		fake.interrupt = true
		cmder.in = strings.NewReader("make a plan\naccepted\n/exit\n")

		Expect(cmder.run(context.Background(), "")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Plan review"))

		Expect(fake.requests).To(HaveLen(2))
		Expect(fake.requests[0].InterruptFeedback).To(BeEmpty())
		Expect(fake.requests[1].InterruptFeedback).To(Equal("accepted"))
		Expect(fake.requests[1].ThreadID).To(Equal("thread-new"))
	})

	It("prints the raw stream", func() {
		cmder.raw = true
		Expect(cmder.run(context.Background(), "hi")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("event: message_chunk"))
		Expect(out.String()).To(ContainSubstring("event: done"))
	})

	It("shows server errors in the interactive loop", func() {
		server.Close()
		cmder.in = strings.NewReader("hello\n")

		Expect(cmder.run(context.Background(), "")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("sending request"))
	})
})
