// Package mcp implements the Model Context Protocol (MCP) server for
// RecallKit.
//
// The server exposes the memory store and its search engine as MCP tools
// over stdio transport:
//   - store_memory: store a new memory and index it
//   - get_memory: fetch a memory by id
//   - update_memory: update a memory and reindex it
//   - delete_memory: delete a memory and its index state
//   - search_memories: exact, fuzzy, semantic or hybrid search
//   - autocomplete: prefix completions over indexed words
//   - search_by_date_range: creation-time window queries
//   - rebuild_index: full index rebuild from storage
//   - get_status: memory counts and index statistics
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// stdout is reserved for protocol messages; all logging goes to stderr.
//
// # Tool: search_memories
//
//	Request:
//	{
//	  "name": "search_memories",
//	  "arguments": {
//	    "query": "deployment checklist",
//	    "strategy": "hybrid",
//	    "limit": 10,
//	    "min_importance": 0.2
//	  }
//	}
//
//	Response:
//	{
//	  "results": [
//	    {
//	      "rank": 1,
//	      "id": "6f1c...",
//	      "content": "Deployment checklist for the staging cluster",
//	      "score": 0.84,
//	      "sources": ["exact", "semantic"]
//	    }
//	  ],
//	  "total_count": 1,
//	  "cache_hit": false,
//	  "fallback": false
//	}
//
// Passing a "fields" argument switches to field-weighted matching over the
// named fields only.
//
// # Error Handling
//
// Tool failures are returned as JSON-RPC errors:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "Invalid params",
//	    "data": {"param": "content", "reason": "missing or empty"}
//	  }
//	}
//
// Error codes:
//   - -32602: invalid params (missing/invalid arguments)
//   - -32603: internal error (storage, search)
//   - -32001: memory not found
//   - -32004: empty query
//
// Indexing failures are the exception: store_memory and update_memory log
// them and still succeed, since the memory itself is persisted and a later
// write or rebuild_index repairs the index.
package mcp
