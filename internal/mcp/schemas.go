package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Path to the project root; relative paths resolve against the server's working directory",
	}
}

func currentFileProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "File the caller is working in, absolute or relative to the root; its fragments rank higher",
	}
}

// indexProjectTool returns the tool definition for index_project
func indexProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_project",
		Description: "Index a project (Python, JavaScript/TypeScript, Go, Java, C/C++, markup and more) for semantic search. A fresh on-disk index is reused unless force is set.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, rebuild even when the cached index is fresh",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// searchCodeTool returns the tool definition for search_code
func searchCodeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_code",
		Description: "Find the code fragments most similar to a natural language query. Builds the index on first use.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language or keyword query",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of fragments to return; 0 means the default of 10",
					"default":     10,
					"minimum":     0,
					"maximum":     100,
				},
				"current_file": currentFileProperty(),
			},
			Required: []string{"path", "query"},
		},
	}
}

// getContextTool returns the tool definition for get_context
func getContextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_context",
		Description: "Assemble a token-bounded bundle of whole files and excerpts relevant to a query, following imports and UI relations between files",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
				"query": map[string]interface{}{
					"type":        "string",
					"description": "What the caller is trying to do",
				},
				"current_file": currentFileProperty(),
				"max_tokens": map[string]interface{}{
					"type":        "integer",
					"description": "Token budget for the bundle (four characters per token); 0 uses the configured default",
					"minimum":     0,
				},
			},
			Required: []string{"path", "query"},
		},
	}
}

// invalidateIndexTool returns the tool definition for invalidate_index
func invalidateIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "invalidate_index",
		Description: "Discard a project's index and its on-disk cache so the next query rebuilds it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
			},
			Required: []string{"path"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report whether a project is indexed, how large the index is and whether it is stale. With file, also outline that file's fragments and dependencies.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
				"file": map[string]interface{}{
					"type":        "string",
					"description": "File to outline, absolute or relative to path",
				},
			},
			Required: []string{"path"},
		},
	}
}
