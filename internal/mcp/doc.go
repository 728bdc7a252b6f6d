// Package mcp implements the Model Context Protocol (MCP) server for codecontext.
//
// The server exposes five tools to AI coding assistants:
//   - index_project: build or reuse the index of a project
//   - search_code: rank code fragments against a natural language query
//   - get_context: assemble a token-bounded bundle of files and excerpts
//   - invalidate_index: drop a project's index and on-disk cache
//   - get_status: report whether a project is indexed and fresh, and
//     optionally outline one file's fragments and graph edges
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server is started by the serve command:
//
//	codecontext serve [--watch]
//
// # Tool: search_code
//
//	Request:
//	{
//	  "name": "search_code",
//	  "arguments": {
//	    "path": "/path/to/project",
//	    "query": "where is the config file parsed",
//	    "limit": 5,
//	    "current_file": "src/settings.py"
//	  }
//	}
//
//	Response:
//	{
//	  "query": "where is the config file parsed",
//	  "results": [
//	    {
//	      "rank": 1,
//	      "score": 0.61,
//	      "raw_score": 0.41,
//	      "file": "src/settings.py",
//	      "start_line": 12,
//	      "end_line": 30,
//	      "kind": "function",
//	      "description": "Python function load_config in src/settings.py",
//	      "content": "def load_config(path): ..."
//	    }
//	  ],
//	  "total": 1
//	}
//
// Line numbers are 0-based and inclusive.
//
// # Tool: get_context
//
// Returns the ContextBundle as JSON: file_paths in emission order,
// file_contents keyed by path (whole files first, then excerpts headed
// "# Relevant sections from <path>"), instructions for the caller and
// metadata describing the retrieval.
//
// # Errors
//
// Failures are returned as tool results with IsError set, so the client
// can hand them to the model. The text is a JSON object:
//
//	{"error": {"code": -32004, "message": "query parameter is required and cannot be empty"}}
//
// Codes:
//   - -32602: Invalid parameters
//   - -32603: Internal error
//   - -32001: Path is not an existing directory
//   - -32002: File has no fragments in the index
//   - -32003: Project has no index to outline
//   - -32004: Empty query
//   - -32005: Request canceled or timed out
//
// # Watching
//
// With WithWatch the server starts a file watcher for every project a
// tool touches. Changes to tracked files invalidate that project's index,
// and the next query rebuilds it.
package mcp
