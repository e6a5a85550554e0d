// Package types contains the shared domain types of recallkit: memories,
// search results, and the typed indexing errors exchanged between the
// storage layer and the search core.
package types
