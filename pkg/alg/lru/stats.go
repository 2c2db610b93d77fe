package lru

// Stats is a point-in-time view of cache counters and occupancy.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Rejected    int64 // Values larger than the whole cache.
	Entries     int
	CurrentSize int64
	MaxEntries  int   // 0 when no count limit is set.
	MaxSize     int64 // 0 when no size limit is set.
}

// HitRate returns hits over lookups, or 0 before the first lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

// Stats returns current statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Evictions:   c.evictions.Load(),
		Rejected:    c.rejected.Load(),
		Entries:     len(c.entries),
		CurrentSize: c.curSize,
		MaxEntries:  c.maxEntries,
		MaxSize:     c.maxSize,
	}
}
