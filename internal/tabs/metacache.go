package tabs

import "sort"

// MetaCache holds the last meaningful snapshot of every tab. It is not safe
// for concurrent use; it is owned by the event loop.
type MetaCache struct {
	entries map[TabID]Snapshot
}

// NewMetaCache returns an empty cache.
func NewMetaCache() *MetaCache {
	return &MetaCache{entries: make(map[TabID]Snapshot)}
}

// RecordIfMeaningful stores snap for id unless its URL is empty or a
// placeholder. It reports whether the snapshot was stored.
func (c *MetaCache) RecordIfMeaningful(id TabID, snap Snapshot) bool {
	if IsPlaceholder(snap.URL) {
		return false
	}
	c.entries[id] = snap
	return true
}

// Remove deletes and returns the snapshot for id.
func (c *MetaCache) Remove(id TabID) (Snapshot, bool) {
	snap, ok := c.entries[id]
	if ok {
		delete(c.entries, id)
	}
	return snap, ok
}

// Get returns the snapshot cached for id.
func (c *MetaCache) Get(id TabID) (Snapshot, bool) {
	snap, ok := c.entries[id]
	return snap, ok
}

// Len returns the number of cached tabs.
func (c *MetaCache) Len() int {
	return len(c.entries)
}

// IDs returns the cached tab ids in ascending order.
func (c *MetaCache) IDs() []TabID {
	ids := make([]TabID, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
