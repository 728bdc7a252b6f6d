package mcp

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/codecontext/internal/index"
	"github.com/dshills/codecontext/internal/watcher"
)

const (
	// ServerName is the MCP server name
	ServerName = "codecontext"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server exposes a Manager over MCP
type Server struct {
	mcp     *server.MCPServer
	manager *index.Manager
	logger  *slog.Logger

	watch    bool
	mu       sync.Mutex
	watchers map[string]*watcher.Watcher
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithWatch starts a file watcher for every project the server touches.
// A change below the root invalidates that project's index.
func WithWatch(enabled bool) Option {
	return func(s *Server) { s.watch = enabled }
}

// NewServer creates a new MCP server instance backed by manager
func NewServer(manager *index.Manager, opts ...Option) *Server {
	s := &Server{
		manager:  manager,
		logger:   slog.Default(),
		watchers: make(map[string]*watcher.Watcher),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
	)
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.Close() }()
	return server.ServeStdio(s.mcp)
}

// Close stops every watcher. The manager is left to its owner.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for root, w := range s.watchers {
		errs = append(errs, w.Close())
		delete(s.watchers, root)
	}
	return errors.Join(errs...)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(indexProjectTool(), s.handleIndexProject)
	s.mcp.AddTool(searchCodeTool(), s.handleSearchCode)
	s.mcp.AddTool(getContextTool(), s.handleGetContext)
	s.mcp.AddTool(invalidateIndexTool(), s.handleInvalidateIndex)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}

// ensureWatch starts watching root once, when watching is enabled
func (s *Server) ensureWatch(root string) {
	if !s.watch {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.watchers[root]; ok {
		return
	}

	w, err := watcher.New(root, s.manager.Policy(), func() {
		if err := s.manager.Invalidate(root); err != nil {
			s.logger.Warn("invalidation after change failed", "root", root, "error", err)
		}
	}, watcher.WithLogger(s.logger))
	if err != nil {
		s.logger.Warn("cannot create watcher", "root", root, "error", err)
		return
	}
	if err := w.Start(); err != nil {
		_ = w.Close()
		s.logger.Warn("cannot watch project", "root", root, "error", err)
		return
	}
	s.watchers[root] = w
}

// watching reports whether root has a live watcher
func (s *Server) watching(root string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.watchers[root]
	return ok
}
