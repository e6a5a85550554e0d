package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallkit/recallkit/internal/metrics"
	"github.com/recallkit/recallkit/internal/searcher"
	"github.com/recallkit/recallkit/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	srch, err := searcher.NewSearcher(st, metrics.New(), zerolog.Nop(), searcher.Config{})
	require.NoError(t, err)
	return NewServer(st, srch, zerolog.Nop())
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	var request mcp.CallToolRequest
	request.Params.Arguments = args
	return request
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &decoded))
	return decoded
}

func storeTestMemory(t *testing.T, s *Server, content string) string {
	t.Helper()
	result, err := s.handleStoreMemory(context.Background(), callRequest(map[string]interface{}{
		"content": content,
	}))
	require.NoError(t, err)
	response := resultJSON(t, result)
	id, _ := response["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestHandleStoreMemory(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleStoreMemory(context.Background(), callRequest(map[string]interface{}{
		"content":    "remember the staging deploy checklist",
		"metadata":   "ops",
		"tags":       []interface{}{"deploy", "staging"},
		"importance": 0.8,
	}))
	require.NoError(t, err)

	response := resultJSON(t, result)
	assert.NotEmpty(t, response["id"])
	assert.Equal(t, true, response["indexed"])
}

func TestHandleStoreMemory_Validation(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleStoreMemory(context.Background(), callRequest(map[string]interface{}{}))
	requireMCPCode(t, err, ErrorCodeInvalidParams)

	_, err = s.handleStoreMemory(context.Background(), callRequest(map[string]interface{}{
		"content":    "valid content",
		"importance": 1.5,
	}))
	requireMCPCode(t, err, ErrorCodeInvalidParams)
}

func TestHandleGetMemory(t *testing.T) {
	s := newTestServer(t)
	id := storeTestMemory(t, s, "a retrievable note")

	result, err := s.handleGetMemory(context.Background(), callRequest(map[string]interface{}{"id": id}))
	require.NoError(t, err)
	response := resultJSON(t, result)
	assert.Equal(t, id, response["id"])
	assert.Equal(t, "a retrievable note", response["content"])

	_, err = s.handleGetMemory(context.Background(), callRequest(map[string]interface{}{"id": "missing"}))
	requireMCPCode(t, err, ErrorCodeMemoryNotFound)
}

func TestHandleUpdateMemory(t *testing.T) {
	s := newTestServer(t)
	id := storeTestMemory(t, s, "the quick brown fox")

	result, err := s.handleUpdateMemory(context.Background(), callRequest(map[string]interface{}{
		"id":      id,
		"content": "the quick brown squirrel",
	}))
	require.NoError(t, err)
	response := resultJSON(t, result)
	assert.Equal(t, "the quick brown squirrel", response["content"])

	// The stale word no longer matches exact search.
	searchResp, err := s.handleSearchMemories(context.Background(), callRequest(map[string]interface{}{
		"query":    "fox",
		"strategy": "exact",
	}))
	require.NoError(t, err)
	decoded := resultJSON(t, searchResp)
	assert.Empty(t, decoded["results"])
}

func TestHandleDeleteMemory(t *testing.T) {
	s := newTestServer(t)
	id := storeTestMemory(t, s, "short lived note")

	result, err := s.handleDeleteMemory(context.Background(), callRequest(map[string]interface{}{"id": id}))
	require.NoError(t, err)
	response := resultJSON(t, result)
	assert.Equal(t, true, response["deleted"])

	_, err = s.handleGetMemory(context.Background(), callRequest(map[string]interface{}{"id": id}))
	requireMCPCode(t, err, ErrorCodeMemoryNotFound)
}

func TestHandleSearchMemories(t *testing.T) {
	s := newTestServer(t)
	id := storeTestMemory(t, s, "the quick brown fox jumps over the lazy dog")

	result, err := s.handleSearchMemories(context.Background(), callRequest(map[string]interface{}{
		"query": "fox",
	}))
	require.NoError(t, err)
	response := resultJSON(t, result)

	hits, ok := response["results"].([]interface{})
	require.True(t, ok)
	require.Len(t, hits, 1)
	first := hits[0].(map[string]interface{})
	assert.Equal(t, id, first["id"])
	assert.Equal(t, float64(1), first["rank"])
	assert.NotEmpty(t, first["sources"])
}

func TestHandleSearchMemories_Validation(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleSearchMemories(context.Background(), callRequest(map[string]interface{}{}))
	requireMCPCode(t, err, ErrorCodeEmptyQuery)

	_, err = s.handleSearchMemories(context.Background(), callRequest(map[string]interface{}{
		"query":    "fox",
		"strategy": "psychic",
	}))
	requireMCPCode(t, err, ErrorCodeInvalidParams)

	_, err = s.handleSearchMemories(context.Background(), callRequest(map[string]interface{}{
		"query": "fox",
		"limit": float64(500),
	}))
	requireMCPCode(t, err, ErrorCodeInvalidParams)

	_, err = s.handleSearchMemories(context.Background(), callRequest(map[string]interface{}{
		"query":  "fox",
		"fields": []interface{}{"payload"},
	}))
	requireMCPCode(t, err, ErrorCodeInvalidParams)
}

func TestHandleSearchMemories_FieldRestriction(t *testing.T) {
	s := newTestServer(t)
	storeTestMemory(t, s, "kubernetes deployment guide")

	taggedResult, err := s.handleStoreMemory(context.Background(), callRequest(map[string]interface{}{
		"content": "container orchestration notes",
		"tags":    []interface{}{"kubernetes"},
	}))
	require.NoError(t, err)
	taggedID := resultJSON(t, taggedResult)["id"].(string)

	result, err := s.handleSearchMemories(context.Background(), callRequest(map[string]interface{}{
		"query":    "kubernetes",
		"strategy": "exact",
		"fields":   []interface{}{"tags"},
	}))
	require.NoError(t, err)
	response := resultJSON(t, result)
	hits := response["results"].([]interface{})
	require.Len(t, hits, 1)
	assert.Equal(t, taggedID, hits[0].(map[string]interface{})["id"])
}

func TestHandleAutocomplete(t *testing.T) {
	s := newTestServer(t)
	storeTestMemory(t, s, "searching search engines")

	result, err := s.handleAutocomplete(context.Background(), callRequest(map[string]interface{}{
		"prefix": "sear",
	}))
	require.NoError(t, err)
	response := resultJSON(t, result)
	completions := response["completions"].([]interface{})
	assert.NotEmpty(t, completions)

	_, err = s.handleAutocomplete(context.Background(), callRequest(map[string]interface{}{}))
	requireMCPCode(t, err, ErrorCodeInvalidParams)
}

func TestHandleSearchByDateRange(t *testing.T) {
	s := newTestServer(t)
	id := storeTestMemory(t, s, "a fresh note")

	now := time.Now().UTC()
	result, err := s.handleSearchByDateRange(context.Background(), callRequest(map[string]interface{}{
		"from": now.Add(-time.Hour).Format(time.RFC3339),
		"to":   now.Add(time.Hour).Format(time.RFC3339),
	}))
	require.NoError(t, err)
	response := resultJSON(t, result)
	hits := response["results"].([]interface{})
	require.Len(t, hits, 1)
	assert.Equal(t, id, hits[0].(map[string]interface{})["id"])

	_, err = s.handleSearchByDateRange(context.Background(), callRequest(map[string]interface{}{
		"from": "not-a-timestamp",
		"to":   now.Format(time.RFC3339),
	}))
	requireMCPCode(t, err, ErrorCodeInvalidParams)

	_, err = s.handleSearchByDateRange(context.Background(), callRequest(map[string]interface{}{
		"from": now.Format(time.RFC3339),
		"to":   now.Add(-time.Hour).Format(time.RFC3339),
	}))
	requireMCPCode(t, err, ErrorCodeInvalidParams)
}

func TestHandleRebuildIndex(t *testing.T) {
	s := newTestServer(t)
	storeTestMemory(t, s, "rebuild me")

	result, err := s.handleRebuildIndex(context.Background(), callRequest(nil))
	require.NoError(t, err)
	response := resultJSON(t, result)
	assert.Equal(t, float64(1), response["rebuilt"])
	assert.Equal(t, float64(0), response["errors"])
}

func TestHandleGetStatus(t *testing.T) {
	s := newTestServer(t)
	storeTestMemory(t, s, "status check note")

	result, err := s.handleGetStatus(context.Background(), callRequest(nil))
	require.NoError(t, err)
	response := resultJSON(t, result)

	memories := response["memories"].(map[string]interface{})
	assert.Equal(t, float64(1), memories["stored"])
	assert.Equal(t, float64(1), memories["indexed"])

	server := response["server"].(map[string]interface{})
	assert.Equal(t, ServerName, server["name"])
}

func requireMCPCode(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, code, mcpErr.Code)
}
