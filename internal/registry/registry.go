package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrNotRegistered is returned by Lookup for a key that was never registered
// in this process.
var ErrNotRegistered = errors.New("document not registered")

// Entry maps an uploaded document to the index collection holding it.
type Entry struct {
	Key          string    `json:"path"`
	CollectionID string    `json:"collection"`
	Chunks       int       `json:"chunks"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Registry maps document keys to collection ids.
//
// The mapping is held in memory only. After a restart every document must be
// uploaded again before it can be asked about; the index data on disk is
// reused when the content is unchanged.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register maps key to collectionID, replacing any previous mapping.
func (r *Registry) Register(key, collectionID string, chunks int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = Entry{
		Key:          key,
		CollectionID: collectionID,
		Chunks:       chunks,
		RegisteredAt: time.Now().UTC(),
	}
}

// Lookup returns the collection id registered for key.
func (r *Registry) Lookup(key string) (string, error) {
	r.mu.RLock()
	e, ok := r.entries[key]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotRegistered, key)
	}
	return e.CollectionID, nil
}

// Entries returns a snapshot of all entries sorted by key.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len returns the number of registered documents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
