package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/quill/internal/logger"
)

// serverName identifies quill to MCP clients.
const serverName = "quill"

// instructions tells the client how the tools fit together. Reimport is
// a two step exchange: the client previews, the writer picks, then the
// client applies only the picked keys.
const instructions = `quill keeps a story outline (chapters, scenes, beats and the characters,
places and items they reference) in sync with the writing tool it was imported from.

Workflow:
1. list_projects to find the project id.
2. preview_reimport with that id. The result lists additions and field changes,
   each with a key, plus the source checksum.
3. Show the writer the preview and ask which keys to accept. Never apply
   without asking. Prose written in quill is never overwritten, and locked
   items are skipped.
4. apply_reimport with the accepted keys and the checksum from step 2.
   If the source changed since the preview, apply fails; preview again.

Resources:
- quill://projects lists projects.
- quill://projects/{projectId}/outline renders one outline as markdown.`

// Option configures a Server.
type Option func(*options)

type options struct {
	version string
}

// WithVersion sets the version reported to clients.
func WithVersion(v string) Option {
	return func(o *options) {
		if v != "" {
			o.version = v
		}
	}
}

// Server exposes quill's reimport workflow over MCP.
type Server struct {
	ports   *Ports
	server  *mcp.Server
	version string
}

// NewServer creates an MCP server over the given ports.
func NewServer(ports *Ports, opts ...Option) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	o := options{version: "dev"}
	for _, opt := range opts {
		opt(&o)
	}

	impl := &mcp.Implementation{
		Name:    serverName,
		Title:   "quill outline sync",
		Version: o.version,
	}

	s := &Server{
		ports:   ports,
		server:  mcp.NewServer(impl, &mcp.ServerOptions{Instructions: instructions}),
		version: o.version,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Version reports the version sent to clients.
func (s *Server) Version() string {
	return s.version
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	logger.Debug("MCP server %s %s on stdio", serverName, s.version)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves streamable HTTP on addr until ctx is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("MCP server shutdown: %v", err)
		}
	}()

	logger.Debug("MCP server %s %s on %s", serverName, s.version, addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
