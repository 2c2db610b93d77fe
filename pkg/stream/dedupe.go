package stream

// KeyIndex is the set of dedupe keys delivered in the current session.
// Entries are never evicted within a session; the index absorbs boundary
// overlap between windows, and windows do not repeat keys once the cursor has
// passed them.
type KeyIndex struct {
	seen map[string]struct{}
}

// NewKeyIndex returns an empty index.
func NewKeyIndex() *KeyIndex {
	return &KeyIndex{seen: make(map[string]struct{})}
}

// IsNew reports whether key has not been seen, marking it seen when it returns
// true. A second call with the same key returns false.
func (idx *KeyIndex) IsNew(key string) bool {
	if _, ok := idx.seen[key]; ok {
		return false
	}

	idx.seen[key] = struct{}{}

	return true
}

// Len returns the number of keys seen.
func (idx *KeyIndex) Len() int { return len(idx.seen) }

// Reset forgets all keys.
func (idx *KeyIndex) Reset() {
	clear(idx.seen)
}
