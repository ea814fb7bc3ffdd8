package mcptools_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/flowstream/pkg/mcptools"
)

type echoInput struct {
	Text string `json:"text" jsonschema:"text to echo"`
}

type echoOutput struct {
	Text string `json:"text"`
}

func newToolServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "test-server", Version: "v0"}, nil)
	mcp.AddTool(server, &mcp.Tool{Name: "echo", Description: "Echo text back"},
		func(_ context.Context, _ *mcp.CallToolRequest, in echoInput) (*mcp.CallToolResult, echoOutput, error) {
			return nil, echoOutput(in), nil
		})
	mcp.AddTool(server, &mcp.Tool{Name: "ping", Description: "Reply pong"},
		func(context.Context, *mcp.CallToolRequest, struct{}) (*mcp.CallToolResult, echoOutput, error) {
			return nil, echoOutput{Text: "pong"}, nil
		})
	return server
}

var _ = Describe("ListTools", func() {
	intPtr := func(i int) *int { return &i }

	Describe("ServerConfig", func() {
		It("defaults the timeout to 300 seconds", func() {
			Expect(mcptools.ServerConfig{}.Timeout()).To(Equal(300 * time.Second))
			Expect(mcptools.ServerConfig{TimeoutSeconds: intPtr(0)}.Timeout()).To(Equal(300 * time.Second))
			Expect(mcptools.ServerConfig{TimeoutSeconds: intPtr(12)}.Timeout()).To(Equal(12 * time.Second))
		})

		It("requires a command for stdio", func() {
			err := mcptools.ServerConfig{Transport: "stdio"}.Validate()
			Expect(errors.Is(err, mcptools.ErrInvalidConfig)).To(BeTrue())
			Expect(err).To(MatchError(ContainSubstring("command is required")))
		})

		It("requires a url for sse and streamable_http", func() {
			for _, t := range []string{"sse", "streamable_http"} {
				err := mcptools.ServerConfig{Transport: t}.Validate()
				Expect(errors.Is(err, mcptools.ErrInvalidConfig)).To(BeTrue())
			}
		})

		It("rejects unknown transports", func() {
			_, err := mcptools.ListTools(context.Background(), mcptools.ServerConfig{Transport: "carrier-pigeon"})
			Expect(errors.Is(err, mcptools.ErrUnsupportedTransport)).To(BeTrue())
		})
	})

	Describe("streamable_http", func() {
		var (
			srv     *httptest.Server
			mu      sync.Mutex
			headers []string
		)

		BeforeEach(func() {
			headers = nil
			server := newToolServer()
			handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
				return server
			}, &mcp.StreamableHTTPOptions{Stateless: true})

			srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				headers = append(headers, r.Header.Get("X-Api-Key"))
				mu.Unlock()
				handler.ServeHTTP(w, r)
			}))
		})

		AfterEach(func() {
			srv.Close()
		})

		It("returns every tool with its input schema", func() {
			tools, err := mcptools.ListTools(context.Background(), mcptools.ServerConfig{
				Transport: "streamable_http",
				URL:       srv.URL,
				Headers:   map[string]string{"X-Api-Key": "secret"},
			})
			Expect(err).NotTo(HaveOccurred())

			byName := map[string]mcptools.Tool{}
			for _, t := range tools {
				byName[t.Name] = t
			}
			Expect(byName).To(HaveKey("echo"))
			Expect(byName).To(HaveKey("ping"))
			Expect(byName["echo"].Description).To(Equal("Echo text back"))
			Expect(byName["echo"].InputSchema).NotTo(BeNil())

			mu.Lock()
			defer mu.Unlock()
			Expect(headers).NotTo(BeEmpty())
			Expect(headers).To(HaveEach("secret"))
		})

		It("fails when the server is unreachable", func() {
			url := srv.URL
			srv.Close()

			_, err := mcptools.ListTools(context.Background(), mcptools.ServerConfig{
				Transport:      "streamable_http",
				URL:            url,
				TimeoutSeconds: intPtr(2),
			})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("stdio", func() {
		It("fails when the command does not exist", func() {
			_, err := mcptools.ListTools(context.Background(), mcptools.ServerConfig{
				Transport:      "stdio",
				Command:        "flowstream-no-such-mcp-server",
				TimeoutSeconds: intPtr(2),
			})
			Expect(err).To(HaveOccurred())
		})
	})
})
