package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// storeMemoryTool returns the tool definition for store_memory
func storeMemoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "store_memory",
		Description: "Store a new memory with optional metadata, tags and importance",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"content": map[string]interface{}{
					"type":        "string",
					"description": "The memory text to store",
				},
				"metadata": map[string]interface{}{
					"type":        "string",
					"description": "Free-form metadata text attached to the memory",
				},
				"tags": map[string]interface{}{
					"type":        "array",
					"description": "Tags attached to the memory",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"importance": map[string]interface{}{
					"type":        "number",
					"description": "Relevance boost weight (0.0-1.0)",
					"default":     0.5,
					"minimum":     0.0,
					"maximum":     1.0,
				},
			},
			Required: []string{"content"},
		},
	}
}

// getMemoryTool returns the tool definition for get_memory
func getMemoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_memory",
		Description: "Fetch a single memory by id",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Memory id",
				},
			},
			Required: []string{"id"},
		},
	}
}

// updateMemoryTool returns the tool definition for update_memory
func updateMemoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "update_memory",
		Description: "Update an existing memory; omitted fields keep their current value",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Memory id",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Replacement memory text",
				},
				"metadata": map[string]interface{}{
					"type":        "string",
					"description": "Replacement metadata text",
				},
				"tags": map[string]interface{}{
					"type":        "array",
					"description": "Replacement tag list",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"importance": map[string]interface{}{
					"type":        "number",
					"description": "Replacement importance (0.0-1.0)",
					"minimum":     0.0,
					"maximum":     1.0,
				},
			},
			Required: []string{"id"},
		},
	}
}

// deleteMemoryTool returns the tool definition for delete_memory
func deleteMemoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_memory",
		Description: "Delete a memory and all of its index state",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Memory id",
				},
			},
			Required: []string{"id"},
		},
	}
}

// searchMemoriesTool returns the tool definition for search_memories
func searchMemoriesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_memories",
		Description: "Search stored memories with exact, fuzzy, semantic or hybrid matching",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query text",
				},
				"strategy": map[string]interface{}{
					"type":        "string",
					"description": "Search strategy",
					"enum":        []string{"exact", "fuzzy", "semantic", "hybrid"},
					"default":     "hybrid",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"min_importance": map[string]interface{}{
					"type":        "number",
					"description": "Drop results below this importance (0.0-1.0)",
					"default":     0.0,
					"minimum":     0.0,
					"maximum":     1.0,
				},
				"fields": map[string]interface{}{
					"type":        "array",
					"description": "Restrict matching to these fields; scores are field-weighted when set",
					"items": map[string]interface{}{
						"type": "string",
						"enum": []string{"content", "metadata", "tags"},
					},
				},
			},
			Required: []string{"query"},
		},
	}
}

// autocompleteTool returns the tool definition for autocomplete
func autocompleteTool() mcp.Tool {
	return mcp.Tool{
		Name:        "autocomplete",
		Description: "Suggest indexed words completing a prefix, most frequent first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"prefix": map[string]interface{}{
					"type":        "string",
					"description": "Word prefix to complete",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of suggestions",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"prefix"},
		},
	}
}

// searchByDateRangeTool returns the tool definition for search_by_date_range
func searchByDateRangeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_by_date_range",
		Description: "List memories created inside a time window, most important first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"from": map[string]interface{}{
					"type":        "string",
					"description": "Window start, RFC 3339 timestamp",
				},
				"to": map[string]interface{}{
					"type":        "string",
					"description": "Window end, RFC 3339 timestamp",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"from", "to"},
		},
	}
}

// rebuildIndexTool returns the tool definition for rebuild_index
func rebuildIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "rebuild_index",
		Description: "Rebuild all search indexes from the stored memories",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report stored memory counts and index statistics",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
