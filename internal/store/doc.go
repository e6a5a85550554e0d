// Package store persists memories and mirrored search-index state in SQLite.
//
// The database is the source of truth for memory records. The in-memory
// search indexes are mirrored into the word_postings, trigram_postings and
// memory_vectors tables on a best-effort basis so a restart can warm-load
// index state instead of re-tokenizing every memory. A full rebuild always
// reconstructs the mirror from the memories table.
//
// Two SQLite drivers are supported through build tags. The default build
// uses the pure Go modernc.org/sqlite driver and needs no C toolchain; the
// cgo_sqlite tag switches to github.com/mattn/go-sqlite3.
//
// SQLite runs with WAL journaling and a single connection, which serializes
// writers without table-level lock errors.
package store
