package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/recallkit/recallkit/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// SQLiteStore implements the Storage interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore creates a new SQLite store and applies pending migrations
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStore) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, store: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *SQLiteStore) querier() querier {
	return s.db
}

// Memory operations

const memoryColumns = "id, content, metadata, tags, importance, access_count, created_at, updated_at"

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(raw), nil
}

func scanMemory(row interface{ Scan(...interface{}) error }) (*types.Memory, error) {
	var m types.Memory
	var metadata sql.NullString
	var tags string
	err := row.Scan(&m.ID, &m.Content, &metadata, &tags, &m.Importance,
		&m.AccessCount, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if metadata.Valid {
		m.Metadata = metadata.String
	}
	if err := json.Unmarshal([]byte(tags), &m.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags for memory %s: %w", m.ID, err)
	}
	return &m, nil
}

func (s *SQLiteStore) createMemoryWithQuerier(ctx context.Context, q querier, memory *types.Memory) error {
	tags, err := encodeTags(memory.Tags)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO memories (id, content, metadata, tags, importance, access_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now().UTC()
	if memory.CreatedAt.IsZero() {
		memory.CreatedAt = now
	}
	memory.UpdatedAt = now
	_, err = q.ExecContext(ctx, query,
		memory.ID, memory.Content, nullString(memory.Metadata), tags,
		memory.Importance, memory.AccessCount, memory.CreatedAt, memory.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create memory: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateMemory(ctx context.Context, memory *types.Memory) error {
	return s.createMemoryWithQuerier(ctx, s.querier(), memory)
}

func (s *SQLiteStore) getMemoryWithQuerier(ctx context.Context, q querier, id string) (*types.Memory, error) {
	query := "SELECT " + memoryColumns + " FROM memories WHERE id = ?"
	return scanMemory(q.QueryRowContext(ctx, query, id))
}

func (s *SQLiteStore) GetMemory(ctx context.Context, id string) (*types.Memory, error) {
	return s.getMemoryWithQuerier(ctx, s.querier(), id)
}

func (s *SQLiteStore) getMemoriesByIDsWithQuerier(ctx context.Context, q querier, ids []string) ([]*types.Memory, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	query := "SELECT " + memoryColumns + " FROM memories WHERE id IN (" + placeholders + ")"
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectMemories(rows)
}

func (s *SQLiteStore) GetMemoriesByIDs(ctx context.Context, ids []string) ([]*types.Memory, error) {
	return s.getMemoriesByIDsWithQuerier(ctx, s.querier(), ids)
}

func (s *SQLiteStore) updateMemoryWithQuerier(ctx context.Context, q querier, memory *types.Memory) error {
	tags, err := encodeTags(memory.Tags)
	if err != nil {
		return err
	}
	query := `
		UPDATE memories
		SET content = ?, metadata = ?, tags = ?, importance = ?, updated_at = ?
		WHERE id = ?
	`
	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, query,
		memory.Content, nullString(memory.Metadata), tags, memory.Importance, now, memory.ID)
	if err != nil {
		return fmt.Errorf("failed to update memory: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	memory.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) UpdateMemory(ctx context.Context, memory *types.Memory) error {
	return s.updateMemoryWithQuerier(ctx, s.querier(), memory)
}

func (s *SQLiteStore) deleteMemoryWithQuerier(ctx context.Context, q querier, id string) error {
	result, err := q.ExecContext(ctx, "DELETE FROM memories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteMemory(ctx context.Context, id string) error {
	return s.deleteMemoryWithQuerier(ctx, s.querier(), id)
}

func (s *SQLiteStore) listMemoriesWithQuerier(ctx context.Context, q querier, limit, offset int) ([]*types.Memory, error) {
	query := "SELECT " + memoryColumns + " FROM memories ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	rows, err := q.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectMemories(rows)
}

func (s *SQLiteStore) ListMemories(ctx context.Context, limit, offset int) ([]*types.Memory, error) {
	return s.listMemoriesWithQuerier(ctx, s.querier(), limit, offset)
}

func (s *SQLiteStore) countMemoriesWithQuerier(ctx context.Context, q querier) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM memories").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count memories: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) CountMemories(ctx context.Context) (int, error) {
	return s.countMemoriesWithQuerier(ctx, s.querier())
}

func (s *SQLiteStore) searchByDateRangeWithQuerier(ctx context.Context, q querier, from, to time.Time, limit int) ([]*types.Memory, error) {
	query := "SELECT " + memoryColumns + ` FROM memories
		WHERE created_at >= ? AND created_at <= ?
		ORDER BY created_at DESC, id LIMIT ?`
	rows, err := q.QueryContext(ctx, query, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search by date range: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectMemories(rows)
}

func (s *SQLiteStore) SearchByDateRange(ctx context.Context, from, to time.Time, limit int) ([]*types.Memory, error) {
	return s.searchByDateRangeWithQuerier(ctx, s.querier(), from, to, limit)
}

func (s *SQLiteStore) scanContentWithQuerier(ctx context.Context, q querier, substring string, limit int) ([]*types.Memory, error) {
	// Case-insensitive substring match. ESCAPE guards LIKE metacharacters
	// in the user's query.
	pattern := "%" + escapeLike(substring) + "%"
	query := "SELECT " + memoryColumns + ` FROM memories
		WHERE content LIKE ? ESCAPE '\'
		ORDER BY importance DESC, id LIMIT ?`
	rows, err := q.QueryContext(ctx, query, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to scan content: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectMemories(rows)
}

func (s *SQLiteStore) ScanContent(ctx context.Context, substring string, limit int) ([]*types.Memory, error) {
	return s.scanContentWithQuerier(ctx, s.querier(), substring, limit)
}

func (s *SQLiteStore) touchAccessWithQuerier(ctx context.Context, q querier, id string) error {
	result, err := q.ExecContext(ctx, "UPDATE memories SET access_count = access_count + 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to touch access count: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) TouchAccess(ctx context.Context, id string) error {
	return s.touchAccessWithQuerier(ctx, s.querier(), id)
}

// Index state operations

func (s *SQLiteStore) replaceWordPostingsWithQuerier(ctx context.Context, q querier, memoryID string, postings []WordPosting) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM word_postings WHERE memory_id = ?", memoryID); err != nil {
		return fmt.Errorf("failed to clear word postings: %w", err)
	}
	for _, p := range postings {
		_, err := q.ExecContext(ctx,
			"INSERT INTO word_postings (memory_id, word, field, frequency) VALUES (?, ?, ?, ?)",
			memoryID, p.Word, string(p.Field), p.Frequency)
		if err != nil {
			return fmt.Errorf("failed to insert word posting: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) ReplaceWordPostings(ctx context.Context, memoryID string, postings []WordPosting) error {
	return s.replaceWordPostingsWithQuerier(ctx, s.querier(), memoryID, postings)
}

func (s *SQLiteStore) replaceTrigramPostingsWithQuerier(ctx context.Context, q querier, memoryID string, postings []TrigramPosting) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM trigram_postings WHERE memory_id = ?", memoryID); err != nil {
		return fmt.Errorf("failed to clear trigram postings: %w", err)
	}
	for _, p := range postings {
		_, err := q.ExecContext(ctx,
			"INSERT INTO trigram_postings (memory_id, trigram, word, position) VALUES (?, ?, ?, ?)",
			memoryID, p.Trigram, p.Word, p.Position)
		if err != nil {
			return fmt.Errorf("failed to insert trigram posting: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) ReplaceTrigramPostings(ctx context.Context, memoryID string, postings []TrigramPosting) error {
	return s.replaceTrigramPostingsWithQuerier(ctx, s.querier(), memoryID, postings)
}

func (s *SQLiteStore) upsertVectorWithQuerier(ctx context.Context, q querier, record *VectorRecord) error {
	terms, err := json.Marshal(record.Terms)
	if err != nil {
		return fmt.Errorf("failed to encode vector terms: %w", err)
	}
	query := `
		INSERT INTO memory_vectors (memory_id, terms, norm, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(memory_id) DO UPDATE SET
			terms = excluded.terms,
			norm = excluded.norm,
			updated_at = excluded.updated_at
	`
	_, err = q.ExecContext(ctx, query, record.MemoryID, string(terms), record.Norm, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert vector: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpsertVector(ctx context.Context, record *VectorRecord) error {
	return s.upsertVectorWithQuerier(ctx, s.querier(), record)
}

func (s *SQLiteStore) deleteIndexStateWithQuerier(ctx context.Context, q querier, memoryID string) error {
	for _, table := range []string{"word_postings", "trigram_postings", "memory_vectors"} {
		if _, err := q.ExecContext(ctx, "DELETE FROM "+table+" WHERE memory_id = ?", memoryID); err != nil {
			return fmt.Errorf("failed to delete index state from %s: %w", table, err)
		}
	}
	return nil
}

func (s *SQLiteStore) DeleteIndexState(ctx context.Context, memoryID string) error {
	return s.deleteIndexStateWithQuerier(ctx, s.querier(), memoryID)
}

func (s *SQLiteStore) loadWordPostingsWithQuerier(ctx context.Context, q querier) ([]WordPosting, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT memory_id, word, field, frequency FROM word_postings ORDER BY memory_id, word, field")
	if err != nil {
		return nil, fmt.Errorf("failed to load word postings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var postings []WordPosting
	for rows.Next() {
		var p WordPosting
		var field string
		if err := rows.Scan(&p.MemoryID, &p.Word, &field, &p.Frequency); err != nil {
			return nil, err
		}
		p.Field = types.FieldType(field)
		postings = append(postings, p)
	}
	return postings, rows.Err()
}

func (s *SQLiteStore) LoadWordPostings(ctx context.Context) ([]WordPosting, error) {
	return s.loadWordPostingsWithQuerier(ctx, s.querier())
}

func (s *SQLiteStore) loadTrigramPostingsWithQuerier(ctx context.Context, q querier) ([]TrigramPosting, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT memory_id, trigram, word, position FROM trigram_postings ORDER BY memory_id, word, position")
	if err != nil {
		return nil, fmt.Errorf("failed to load trigram postings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var postings []TrigramPosting
	for rows.Next() {
		var p TrigramPosting
		if err := rows.Scan(&p.MemoryID, &p.Trigram, &p.Word, &p.Position); err != nil {
			return nil, err
		}
		postings = append(postings, p)
	}
	return postings, rows.Err()
}

func (s *SQLiteStore) LoadTrigramPostings(ctx context.Context) ([]TrigramPosting, error) {
	return s.loadTrigramPostingsWithQuerier(ctx, s.querier())
}

func (s *SQLiteStore) loadVectorsWithQuerier(ctx context.Context, q querier) ([]*VectorRecord, error) {
	rows, err := q.QueryContext(ctx, "SELECT memory_id, terms, norm FROM memory_vectors ORDER BY memory_id")
	if err != nil {
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*VectorRecord
	for rows.Next() {
		var rec VectorRecord
		var terms string
		if err := rows.Scan(&rec.MemoryID, &terms, &rec.Norm); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(terms), &rec.Terms); err != nil {
			return nil, fmt.Errorf("failed to decode vector terms for %s: %w", rec.MemoryID, err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) LoadVectors(ctx context.Context) ([]*VectorRecord, error) {
	return s.loadVectorsWithQuerier(ctx, s.querier())
}

// Query log operations

func (s *SQLiteStore) recordSearchQueryWithQuerier(ctx context.Context, q querier, entry *SearchQuery) error {
	query := `
		INSERT INTO search_queries (query_text, strategy, result_count, duration_ms, cache_hit, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, query,
		entry.QueryText, entry.Strategy, entry.ResultCount, entry.DurationMs, entry.CacheHit, now)
	if err != nil {
		return fmt.Errorf("failed to record search query: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = id
	entry.CreatedAt = now
	return nil
}

func (s *SQLiteStore) RecordSearchQuery(ctx context.Context, entry *SearchQuery) error {
	return s.recordSearchQueryWithQuerier(ctx, s.querier(), entry)
}

// Helpers

func collectMemories(rows *sql.Rows) ([]*types.Memory, error) {
	var memories []*types.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}
