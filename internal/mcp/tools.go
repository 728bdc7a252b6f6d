package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/codecontext/internal/index"
	"github.com/dshills/codecontext/internal/searcher"
	"github.com/dshills/codecontext/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams   = -32602 // Invalid method parameters
	ErrorCodeInternalError   = -32603 // Internal JSON-RPC error
	ErrorCodeProjectNotFound = -32001 // Path is not an existing directory
	ErrorCodeFileNotFound    = -32002 // File has no fragments in the index
	ErrorCodeNotIndexed      = -32003 // Project has no index to read
	ErrorCodeEmptyQuery      = -32004 // Query parameter is empty
	ErrorCodeCanceled        = -32005 // Request context ended
)

// MaxSearchLimit bounds the limit argument of search_code
const MaxSearchLimit = 100

// handleIndexProject handles the index_project tool invocation
func (s *Server) handleIndexProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, path, errResult := pathArgs(request)
	if errResult != nil {
		return errResult, nil
	}
	force := getBoolDefault(args, "force", false)

	res, err := s.manager.Index(ctx, path, force)
	if err != nil {
		return failure("indexing failed", err), nil
	}
	s.ensureWatch(res.Root)

	response := map[string]interface{}{
		"indexed":     true,
		"root":        res.Root,
		"rebuilt":     res.Rebuilt,
		"from_cache":  res.FromCache,
		"files":       res.Files,
		"fragments":   res.Fragments,
		"duration_ms": res.Duration.Milliseconds(),
	}
	if st := res.Stats; st != nil {
		response["statistics"] = map[string]interface{}{
			"files_scanned":      st.FilesScanned,
			"files_indexed":      st.FilesIndexed,
			"files_skipped":      st.FilesSkipped,
			"files_failed":       st.FilesFailed,
			"fragments_created":  st.FragmentsCreated,
			"fragments_embedded": st.FragmentsEmbedded,
			"fragments_dropped":  st.FragmentsDropped,
		}
		if n := len(st.ErrorMessages); n > 0 {
			if n > 5 {
				response["errors"] = st.ErrorMessages[:5]
				response["error_count"] = n
			} else {
				response["errors"] = st.ErrorMessages
			}
		}
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchCode handles the search_code tool invocation
func (s *Server) handleSearchCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, path, errResult := pathArgs(request)
	if errResult != nil {
		return errResult, nil
	}
	query, errResult := queryArg(args)
	if errResult != nil {
		return errResult, nil
	}

	limit := getIntDefault(args, "limit", 0)
	if limit < 0 || limit > MaxSearchLimit {
		return toolError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 0 and %d; 0 means %d", MaxSearchLimit, searcher.DefaultLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		}), nil
	}
	currentFile := getStringDefault(args, "current_file", "")

	resp, err := s.manager.Search(ctx, path, query, limit, currentFile)
	if err != nil {
		return failure("search failed", err), nil
	}
	if p, err := s.manager.Project(path); err == nil {
		s.ensureWatch(p.Root())
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		f := r.Fragment
		results = append(results, map[string]interface{}{
			"rank":        r.Rank,
			"score":       r.Score,
			"raw_score":   r.RawScore,
			"file":        f.FilePath,
			"start_line":  f.StartLine,
			"end_line":    f.EndLine,
			"kind":        f.Kind,
			"language":    f.Language,
			"description": f.Description,
			"content":     f.Content,
		})
	}
	response := map[string]interface{}{
		"query":       query,
		"results":     results,
		"total":       len(results),
		"candidates":  resp.Candidates,
		"cache_hit":   resp.CacheHit,
		"duration_ms": resp.Duration.Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetContext handles the get_context tool invocation
func (s *Server) handleGetContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, path, errResult := pathArgs(request)
	if errResult != nil {
		return errResult, nil
	}
	query, errResult := queryArg(args)
	if errResult != nil {
		return errResult, nil
	}

	maxTokens := getIntDefault(args, "max_tokens", 0)
	if maxTokens < 0 {
		return toolError(ErrorCodeInvalidParams, "max_tokens must not be negative", map[string]interface{}{
			"param": "max_tokens",
			"value": maxTokens,
		}), nil
	}
	currentFile := getStringDefault(args, "current_file", "")

	bundle, err := s.manager.GetContext(ctx, path, query, currentFile, maxTokens)
	if err != nil {
		return failure("context assembly failed", err), nil
	}
	if p, err := s.manager.Project(path); err == nil {
		s.ensureWatch(p.Root())
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return failure("encoding context failed", err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// handleInvalidateIndex handles the invalidate_index tool invocation
func (s *Server) handleInvalidateIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, path, errResult := pathArgs(request)
	if errResult != nil {
		return errResult, nil
	}
	if err := s.manager.Invalidate(path); err != nil {
		return failure("invalidation failed", err), nil
	}
	response := map[string]interface{}{
		"invalidated": true,
		"path":        path,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, path, errResult := pathArgs(request)
	if errResult != nil {
		return errResult, nil
	}
	st, err := s.manager.Status(ctx, path)
	if err != nil {
		return failure("failed to get status", err), nil
	}

	response := map[string]interface{}{
		"indexed":    st.Loaded || st.Cached,
		"root":       st.Root,
		"cache_dir":  st.CacheDir,
		"loaded":     st.Loaded,
		"cached":     st.Cached,
		"stale":      st.Stale,
		"watching":   s.watching(st.Root),
		"fragments":  st.Fragments,
		"files":      st.Files,
		"size_bytes": st.SizeBytes,
	}
	if len(st.Languages) > 0 {
		response["languages"] = st.Languages
	}
	if !st.BuiltAt.IsZero() {
		response["built_at"] = st.BuiltAt.Format("2006-01-02T15:04:05Z07:00")
	}
	if !st.Freshness.IsZero() {
		response["freshness"] = st.Freshness.Format("2006-01-02T15:04:05Z07:00")
	}
	if st.Provider != "" {
		response["embedding"] = map[string]interface{}{
			"provider": st.Provider,
			"model":    st.Model,
		}
	}
	if !response["indexed"].(bool) {
		response["message"] = "Project not indexed. Use index_project, search_code or get_context to build the index."
	}
	if file := strings.TrimSpace(getStringDefault(args, "file", "")); file != "" {
		outline, err := s.manager.Outline(ctx, path, file)
		if err != nil {
			return failure("failed to outline file", err), nil
		}
		response["file"] = outline
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// MCPError is the payload of a failed tool call
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// toolError reports a failure as a tool result so the client can show it
// to the model instead of treating it as a transport error
func toolError(code int, message string, data interface{}) *mcp.CallToolResult {
	payload, err := json.MarshalIndent(map[string]interface{}{
		"error": &MCPError{Code: code, Message: message, Data: data},
	}, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(message)
	}
	return mcp.NewToolResultError(string(payload))
}

// failure maps a manager error to a coded tool error
func failure(message string, err error) *mcp.CallToolResult {
	code := ErrorCodeInternalError
	switch {
	case errors.Is(err, types.ErrInvalidRoot):
		code = ErrorCodeProjectNotFound
	case errors.Is(err, types.ErrFileNotFound):
		code = ErrorCodeFileNotFound
	case errors.Is(err, index.ErrNotIndexed):
		code = ErrorCodeNotIndexed
	case errors.Is(err, types.ErrEmptyQuery):
		code = ErrorCodeEmptyQuery
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = ErrorCodeCanceled
	}
	return toolError(code, message, map[string]interface{}{
		"error": err.Error(),
	})
}

// pathArgs extracts the argument map and the required path
func pathArgs(request mcp.CallToolRequest) (map[string]interface{}, string, *mcp.CallToolResult) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, "", toolError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	path, ok := args["path"].(string)
	if !ok || strings.TrimSpace(path) == "" {
		return nil, "", toolError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	return args, path, nil
}

func queryArg(args map[string]interface{}) (string, *mcp.CallToolResult) {
	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return "", toolError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}
	return query, nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
