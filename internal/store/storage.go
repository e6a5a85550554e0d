package store

import (
	"context"
	"time"

	"github.com/recallkit/recallkit/pkg/types"
)

// Storage defines the interface for persisting memories and their index state
type Storage interface {
	// Memory operations
	CreateMemory(ctx context.Context, memory *types.Memory) error
	GetMemory(ctx context.Context, id string) (*types.Memory, error)
	GetMemoriesByIDs(ctx context.Context, ids []string) ([]*types.Memory, error)
	UpdateMemory(ctx context.Context, memory *types.Memory) error
	DeleteMemory(ctx context.Context, id string) error
	ListMemories(ctx context.Context, limit, offset int) ([]*types.Memory, error)
	CountMemories(ctx context.Context) (int, error)
	SearchByDateRange(ctx context.Context, from, to time.Time, limit int) ([]*types.Memory, error)
	ScanContent(ctx context.Context, substring string, limit int) ([]*types.Memory, error)
	TouchAccess(ctx context.Context, id string) error

	// Index state operations
	ReplaceWordPostings(ctx context.Context, memoryID string, postings []WordPosting) error
	ReplaceTrigramPostings(ctx context.Context, memoryID string, postings []TrigramPosting) error
	UpsertVector(ctx context.Context, record *VectorRecord) error
	DeleteIndexState(ctx context.Context, memoryID string) error
	LoadWordPostings(ctx context.Context) ([]WordPosting, error)
	LoadTrigramPostings(ctx context.Context) ([]TrigramPosting, error)
	LoadVectors(ctx context.Context) ([]*VectorRecord, error)

	// Query log operations
	RecordSearchQuery(ctx context.Context, entry *SearchQuery) error

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// WordPosting is one persisted inverted-index entry: a word's frequency in
// one field of one memory
type WordPosting struct {
	MemoryID  string
	Word      string
	Field     types.FieldType
	Frequency uint32
}

// TrigramPosting is one persisted trigram occurrence
type TrigramPosting struct {
	MemoryID string
	Trigram  string
	Word     string
	Position uint32
}

// VectorRecord is the persisted form of a memory's TF-IDF vector
type VectorRecord struct {
	MemoryID string
	Terms    map[string]float64
	Norm     float64
}

// SearchQuery is one logged search execution
type SearchQuery struct {
	ID          int64
	QueryText   string
	Strategy    string
	ResultCount int
	DurationMs  int64
	CacheHit    bool
	CreatedAt   time.Time
}
