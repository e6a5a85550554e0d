// Package index holds the three in-memory index structures of the search
// core: the inverted word index, the character-trigram index used for fuzzy
// matching, and the TF-IDF vector store. All three are keyed by memory id,
// fully replaced when a memory changes, and dropped when it is deleted.
package index
