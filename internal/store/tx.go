package store

import (
	"context"
	"errors"
	"time"

	"github.com/recallkit/recallkit/pkg/types"
)

// sqliteTx wraps a SQL transaction and satisfies the Storage interface so
// callers can run multi-statement operations atomically
type sqliteTx struct {
	tx    txQuerier
	store *SQLiteStore
}

// txQuerier is the subset of *sql.Tx the wrapper needs
type txQuerier interface {
	querier
	Commit() error
	Rollback() error
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// Transaction implementations of Storage methods

func (t *sqliteTx) CreateMemory(ctx context.Context, memory *types.Memory) error {
	return t.store.createMemoryWithQuerier(ctx, t.tx, memory)
}

func (t *sqliteTx) GetMemory(ctx context.Context, id string) (*types.Memory, error) {
	return t.store.getMemoryWithQuerier(ctx, t.tx, id)
}

func (t *sqliteTx) GetMemoriesByIDs(ctx context.Context, ids []string) ([]*types.Memory, error) {
	return t.store.getMemoriesByIDsWithQuerier(ctx, t.tx, ids)
}

func (t *sqliteTx) UpdateMemory(ctx context.Context, memory *types.Memory) error {
	return t.store.updateMemoryWithQuerier(ctx, t.tx, memory)
}

func (t *sqliteTx) DeleteMemory(ctx context.Context, id string) error {
	return t.store.deleteMemoryWithQuerier(ctx, t.tx, id)
}

func (t *sqliteTx) ListMemories(ctx context.Context, limit, offset int) ([]*types.Memory, error) {
	return t.store.listMemoriesWithQuerier(ctx, t.tx, limit, offset)
}

func (t *sqliteTx) CountMemories(ctx context.Context) (int, error) {
	return t.store.countMemoriesWithQuerier(ctx, t.tx)
}

func (t *sqliteTx) SearchByDateRange(ctx context.Context, from, to time.Time, limit int) ([]*types.Memory, error) {
	return t.store.searchByDateRangeWithQuerier(ctx, t.tx, from, to, limit)
}

func (t *sqliteTx) ScanContent(ctx context.Context, substring string, limit int) ([]*types.Memory, error) {
	return t.store.scanContentWithQuerier(ctx, t.tx, substring, limit)
}

func (t *sqliteTx) TouchAccess(ctx context.Context, id string) error {
	return t.store.touchAccessWithQuerier(ctx, t.tx, id)
}

func (t *sqliteTx) ReplaceWordPostings(ctx context.Context, memoryID string, postings []WordPosting) error {
	return t.store.replaceWordPostingsWithQuerier(ctx, t.tx, memoryID, postings)
}

func (t *sqliteTx) ReplaceTrigramPostings(ctx context.Context, memoryID string, postings []TrigramPosting) error {
	return t.store.replaceTrigramPostingsWithQuerier(ctx, t.tx, memoryID, postings)
}

func (t *sqliteTx) UpsertVector(ctx context.Context, record *VectorRecord) error {
	return t.store.upsertVectorWithQuerier(ctx, t.tx, record)
}

func (t *sqliteTx) DeleteIndexState(ctx context.Context, memoryID string) error {
	return t.store.deleteIndexStateWithQuerier(ctx, t.tx, memoryID)
}

func (t *sqliteTx) LoadWordPostings(ctx context.Context) ([]WordPosting, error) {
	return t.store.loadWordPostingsWithQuerier(ctx, t.tx)
}

func (t *sqliteTx) LoadTrigramPostings(ctx context.Context) ([]TrigramPosting, error) {
	return t.store.loadTrigramPostingsWithQuerier(ctx, t.tx)
}

func (t *sqliteTx) LoadVectors(ctx context.Context) ([]*VectorRecord, error) {
	return t.store.loadVectorsWithQuerier(ctx, t.tx)
}

func (t *sqliteTx) RecordSearchQuery(ctx context.Context, entry *SearchQuery) error {
	return t.store.recordSearchQueryWithQuerier(ctx, t.tx, entry)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions are not supported")
}
