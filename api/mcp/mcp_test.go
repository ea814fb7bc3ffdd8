package mcp_test

import (
	"context"
	"encoding/json"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/flowstream/api/mcp"
	"github.com/papercomputeco/flowstream/pkg/logger"
	"github.com/papercomputeco/flowstream/pkg/storage"
	"github.com/papercomputeco/flowstream/pkg/storage/inmemory"
)

// connect opens an in-process client session against server.
func connect(ctx context.Context, server *mcp.Server) *gomcp.ClientSession {
	ct, st := gomcp.NewInMemoryTransports()
	_, err := server.MCPServer().Connect(ctx, st, nil)
	Expect(err).NotTo(HaveOccurred())

	client := gomcp.NewClient(&gomcp.Implementation{Name: "test", Version: "v0"}, nil)
	session, err := client.Connect(ctx, ct, nil)
	Expect(err).NotTo(HaveOccurred())
	return session
}

func text(res *gomcp.CallToolResult) string {
	Expect(res.Content).NotTo(BeEmpty())
	tc, ok := res.Content[0].(*gomcp.TextContent)
	Expect(ok).To(BeTrue())
	return tc.Text
}

var _ = Describe("MCP Server", func() {
	var (
		server *mcp.Server
		driver *inmemory.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()

		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		for i, state := range []string{"completed", "timed_out", "completed"} {
			Expect(driver.Put(ctx, &storage.SessionRecord{
				ID:         []string{"s-a", "s-b", "s-c"}[i],
				ThreadID:   "thread-1",
				Engine:     "mock",
				State:      state,
				Events:     i + 1,
				StartedAt:  base.Add(time.Duration(i) * time.Minute),
				DurationMs: 100,
			})).To(Succeed())
		}

		var err error
		server, err = mcp.NewServer(mcp.Config{
			Driver: driver,
			Logger: logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewServer", func() {
		It("returns an error when storage driver is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Logger: logger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("storage driver is required")))
		})

		It("returns an error when logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Driver: driver})
			Expect(err).To(MatchError(ContainSubstring("logger is required")))
		})

		It("creates a noop server without dependencies", func() {
			s, err := mcp.NewServer(mcp.Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Handler()).NotTo(BeNil())
		})

		It("returns an HTTP handler", func() {
			Expect(server.Handler()).NotTo(BeNil())
		})
	})

	Describe("tools", func() {
		var session *gomcp.ClientSession

		BeforeEach(func() {
			session = connect(ctx, server)
		})

		AfterEach(func() {
			session.Close()
		})

		It("advertises the session tools", func() {
			res, err := session.ListTools(ctx, nil)
			Expect(err).NotTo(HaveOccurred())

			names := []string{}
			for _, t := range res.Tools {
				names = append(names, t.Name)
			}
			Expect(names).To(ConsistOf("list_sessions", "get_session"))
		})

		It("lists sessions newest first", func() {
			res, err := session.CallTool(ctx, &gomcp.CallToolParams{
				Name:      "list_sessions",
				Arguments: map[string]any{"thread_id": "thread-1"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())

			var out mcp.ListSessionsOutput
			Expect(json.Unmarshal([]byte(text(res)), &out)).To(Succeed())
			Expect(out.Count).To(Equal(3))
			Expect(out.Sessions[0].ID).To(Equal("s-c"))
			Expect(out.Sessions[0].StartedAt).To(Equal("2026-03-01T12:02:00Z"))
		})

		It("filters by state", func() {
			res, err := session.CallTool(ctx, &gomcp.CallToolParams{
				Name:      "list_sessions",
				Arguments: map[string]any{"state": "timed_out"},
			})
			Expect(err).NotTo(HaveOccurred())

			var out mcp.ListSessionsOutput
			Expect(json.Unmarshal([]byte(text(res)), &out)).To(Succeed())
			Expect(out.Sessions).To(HaveLen(1))
			Expect(out.Sessions[0].ID).To(Equal("s-b"))
		})

		It("gets one session", func() {
			res, err := session.CallTool(ctx, &gomcp.CallToolParams{
				Name:      "get_session",
				Arguments: map[string]any{"id": "s-b"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())

			var out mcp.GetSessionOutput
			Expect(json.Unmarshal([]byte(text(res)), &out)).To(Succeed())
			Expect(out.Session.State).To(Equal("timed_out"))
			Expect(out.Session.Events).To(Equal(2))
		})

		It("reports unknown sessions as tool errors", func() {
			res, err := session.CallTool(ctx, &gomcp.CallToolParams{
				Name:      "get_session",
				Arguments: map[string]any{"id": "nope"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(text(res)).To(Equal("session not found: nope"))
		})
	})
})
