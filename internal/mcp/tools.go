package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/recallkit/recallkit/internal/searcher"
	"github.com/recallkit/recallkit/internal/store"
	"github.com/recallkit/recallkit/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams  = -32602 // Invalid method parameters
	ErrorCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrorCodeMemoryNotFound = -32001 // No memory with the given id
	ErrorCodeEmptyQuery     = -32004 // Query parameter is empty
)

// handleStoreMemory handles the store_memory tool invocation
func (s *Server) handleStoreMemory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	content, ok := args["content"].(string)
	if !ok || content == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "content parameter is required", map[string]interface{}{
			"param":  "content",
			"reason": "missing or empty",
		})
	}

	importance := getFloatDefault(args, "importance", 0.5)
	if importance < 0 || importance > 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "importance must be between 0 and 1", map[string]interface{}{
			"param": "importance",
			"value": importance,
		})
	}

	memory := &types.Memory{
		ID:         uuid.NewString(),
		Content:    content,
		Metadata:   getStringDefault(args, "metadata", ""),
		Tags:       getStringSlice(args, "tags"),
		Importance: importance,
	}
	if err := s.store.CreateMemory(ctx, memory); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to store memory", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Index failures never fail the store: the memory is persisted and stays
	// retrievable by id, the next write or rebuild repairs the index.
	indexed := true
	if err := s.searcher.OnMemoryIndexed(ctx, memory); err != nil {
		indexed = false
		s.log.Error().Err(err).Str("memory_id", memory.ID).Msg("failed to index stored memory")
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"id":         memory.ID,
		"created_at": memory.CreatedAt.Format(time.RFC3339),
		"indexed":    indexed,
	})), nil
}

// handleGetMemory handles the get_memory tool invocation
func (s *Server) handleGetMemory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, mcpErr := requireID(request)
	if mcpErr != nil {
		return nil, mcpErr
	}

	memory, err := s.store.GetMemory(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newMCPError(ErrorCodeMemoryNotFound, "memory not found", map[string]interface{}{
			"id": id,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to fetch memory", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return mcp.NewToolResultText(formatJSON(memoryJSON(memory))), nil
}

// handleUpdateMemory handles the update_memory tool invocation. Omitted
// parameters keep their stored value.
func (s *Server) handleUpdateMemory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, mcpErr := requireID(request)
	if mcpErr != nil {
		return nil, mcpErr
	}
	args, _ := request.Params.Arguments.(map[string]interface{})

	memory, err := s.store.GetMemory(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newMCPError(ErrorCodeMemoryNotFound, "memory not found", map[string]interface{}{
			"id": id,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to fetch memory", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if content, ok := args["content"].(string); ok {
		if content == "" {
			return nil, newMCPError(ErrorCodeInvalidParams, "content cannot be empty", map[string]interface{}{
				"param": "content",
			})
		}
		memory.Content = content
	}
	if metadata, ok := args["metadata"].(string); ok {
		memory.Metadata = metadata
	}
	if _, ok := args["tags"]; ok {
		memory.Tags = getStringSlice(args, "tags")
	}
	if importance, ok := args["importance"].(float64); ok {
		if importance < 0 || importance > 1 {
			return nil, newMCPError(ErrorCodeInvalidParams, "importance must be between 0 and 1", map[string]interface{}{
				"param": "importance",
				"value": importance,
			})
		}
		memory.Importance = importance
	}

	if err := s.store.UpdateMemory(ctx, memory); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to update memory", map[string]interface{}{
			"error": err.Error(),
		})
	}

	indexed := true
	if err := s.searcher.OnMemoryIndexed(ctx, memory); err != nil {
		indexed = false
		s.log.Error().Err(err).Str("memory_id", memory.ID).Msg("failed to reindex updated memory")
	}

	response := memoryJSON(memory)
	response["indexed"] = indexed
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleDeleteMemory handles the delete_memory tool invocation
func (s *Server) handleDeleteMemory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, mcpErr := requireID(request)
	if mcpErr != nil {
		return nil, mcpErr
	}

	if err := s.searcher.OnMemoryRemoved(ctx, id); err != nil {
		s.log.Error().Err(err).Str("memory_id", id).Msg("failed to remove memory from indexes")
	}

	err := s.store.DeleteMemory(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newMCPError(ErrorCodeMemoryNotFound, "memory not found", map[string]interface{}{
			"id": id,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to delete memory", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"id":      id,
		"deleted": true,
	})), nil
}

// handleSearchMemories handles the search_memories tool invocation
func (s *Server) handleSearchMemories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	strategy := types.SearchStrategy(getStringDefault(args, "strategy", "hybrid"))
	switch strategy {
	case types.StrategyExact, types.StrategyFuzzy, types.StrategySemantic, types.StrategyHybrid:
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid strategy", map[string]interface{}{
			"param":   "strategy",
			"value":   string(strategy),
			"allowed": []string{"exact", "fuzzy", "semantic", "hybrid"},
		})
	}

	fields, err := parseFields(args)
	if err != nil {
		return nil, err
	}

	opts := searcher.Options{
		Strategy:      strategy,
		Limit:         limit,
		MinImportance: getFloatDefault(args, "min_importance", 0),
	}

	var result *types.SearchResult
	var searchErr error
	if len(fields) > 0 {
		result, searchErr = s.searcher.MultiFieldSearch(ctx, query, fields, opts)
	} else {
		result, searchErr = s.searcher.Search(ctx, query, opts)
	}
	if errors.Is(searchErr, types.ErrEmptyQuery) {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query cannot be empty", nil)
	}
	if searchErr != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": searchErr.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(searchResultJSON(result))), nil
}

// handleAutocomplete handles the autocomplete tool invocation
func (s *Server) handleAutocomplete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	prefix, ok := args["prefix"].(string)
	if !ok || prefix == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "prefix parameter is required", map[string]interface{}{
			"param":  "prefix",
			"reason": "missing or empty",
		})
	}
	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	words := s.searcher.AutoComplete(prefix, limit)
	if words == nil {
		words = []string{}
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"prefix":      prefix,
		"completions": words,
	})), nil
}

// handleSearchByDateRange handles the search_by_date_range tool invocation
func (s *Server) handleSearchByDateRange(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	from, mcpErr := requireTime(args, "from")
	if mcpErr != nil {
		return nil, mcpErr
	}
	to, mcpErr := requireTime(args, "to")
	if mcpErr != nil {
		return nil, mcpErr
	}
	if to.Before(from) {
		return nil, newMCPError(ErrorCodeInvalidParams, "to must not precede from", map[string]interface{}{
			"from": from.Format(time.RFC3339),
			"to":   to.Format(time.RFC3339),
		})
	}
	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	result, err := s.searcher.SearchByDateRange(ctx, from, to, searcher.Options{Limit: limit})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "date range search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return mcp.NewToolResultText(formatJSON(searchResultJSON(result))), nil
}

// handleRebuildIndex handles the rebuild_index tool invocation
func (s *Server) handleRebuildIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	startTime := time.Now()
	result, err := s.searcher.RebuildIndexes(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "index rebuild failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"rebuilt":     result.Rebuilt,
		"errors":      result.Errors,
		"duration_ms": time.Since(startTime).Milliseconds(),
	})), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	count, err := s.store.CountMemories(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to count memories", map[string]interface{}{
			"error": err.Error(),
		})
	}
	stats := s.searcher.IndexStats()

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"server": map[string]interface{}{
			"name":    ServerName,
			"version": ServerVersion,
		},
		"memories": map[string]interface{}{
			"stored":  count,
			"indexed": stats.IndexedMemories,
			"vectors": stats.Vectors,
		},
		"cache": map[string]interface{}{
			"entries": stats.CacheEntries,
		},
	})), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// requireID extracts the mandatory id parameter
func requireID(request mcp.CallToolRequest) (string, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	id, ok := args["id"].(string)
	if !ok || id == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "id parameter is required", map[string]interface{}{
			"param":  "id",
			"reason": "missing or empty",
		})
	}
	return id, nil
}

// requireTime extracts a mandatory RFC 3339 timestamp parameter
func requireTime(args map[string]interface{}, key string) (time.Time, error) {
	raw, ok := args[key].(string)
	if !ok || raw == "" {
		return time.Time{}, newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, newMCPError(ErrorCodeInvalidParams, key+" must be an RFC 3339 timestamp", map[string]interface{}{
			"param": key,
			"value": raw,
		})
	}
	return ts, nil
}

// parseFields converts the optional fields argument into field types
func parseFields(args map[string]interface{}) ([]types.FieldType, error) {
	raw, ok := args["fields"].([]interface{})
	if !ok {
		return nil, nil
	}
	fields := make([]types.FieldType, 0, len(raw))
	for _, item := range raw {
		name, _ := item.(string)
		field := types.FieldType(name)
		switch field {
		case types.FieldContent, types.FieldMetadata, types.FieldTags:
			fields = append(fields, field)
		default:
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid field", map[string]interface{}{
				"param":   "fields",
				"value":   name,
				"allowed": []string{"content", "metadata", "tags"},
			})
		}
	}
	return fields, nil
}

// memoryJSON formats a memory for a tool response
func memoryJSON(m *types.Memory) map[string]interface{} {
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]interface{}{
		"id":           m.ID,
		"content":      m.Content,
		"metadata":     m.Metadata,
		"tags":         tags,
		"importance":   m.Importance,
		"access_count": m.AccessCount,
		"created_at":   m.CreatedAt.Format(time.RFC3339),
		"updated_at":   m.UpdatedAt.Format(time.RFC3339),
	}
}

// searchResultJSON formats a search result for a tool response
func searchResultJSON(result *types.SearchResult) map[string]interface{} {
	hits := make([]map[string]interface{}, 0, len(result.Memories))
	for rank, sm := range result.Memories {
		sources := make([]string, 0, len(sm.Sources))
		for _, src := range sm.Sources {
			sources = append(sources, string(src))
		}
		entry := memoryJSON(sm.Memory)
		entry["rank"] = rank + 1
		entry["score"] = sm.Score
		entry["sources"] = sources
		hits = append(hits, entry)
	}
	return map[string]interface{}{
		"results":       hits,
		"total_count":   result.TotalCount,
		"query_time_ms": result.QueryTimeMs,
		"cache_hit":     result.CacheHit,
		"fallback":      result.Fallback,
	}
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
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

// getFloatDefault extracts a number parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
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

// getStringSlice extracts a string array parameter, nil when absent
func getStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
