package dedup

import (
	"context"
	"sync"
	"time"

	"github.com/chainreact/chainreact/pkg/models"
	gocache "github.com/patrickmn/go-cache"
)

// DefaultMaxEntries bounds the in-memory table before old records are collected.
const DefaultMaxEntries = 10000

// MemoryStore keeps dedup records in process memory. It is only correct for a
// single processor instance.
type MemoryStore struct {
	mu         sync.Mutex
	cache      *gocache.Cache
	window     time.Duration
	maxEntries int
	// lastCollect is the write time of the last collection pass.
	lastCollect time.Time
}

// NewMemoryStore creates an in-process store. Records expire after retention;
// once more than maxEntries are held, records older than window are collected,
// at most once per half window.
func NewMemoryStore(window, retention time.Duration, maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	return &MemoryStore{
		cache:      gocache.New(retention, 10*time.Minute),
		window:     window,
		maxEntries: maxEntries,
	}
}

func (s *MemoryStore) Apply(_ context.Context, key string, fn func(existing *models.DedupeRecord) (*models.DedupeRecord, bool)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, write := fn(s.getLocked(key))
	if !write {
		return false, nil
	}

	s.cache.SetDefault(key, *next)
	s.collectLocked(next.ProcessedAt)

	return true, nil
}

func (s *MemoryStore) Restore(_ context.Context, key string, written, previous *models.DedupeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.getLocked(key).Same(written) {
		return nil
	}

	if previous == nil {
		s.cache.Delete(key)

		return nil
	}

	s.cache.SetDefault(key, *previous)

	return nil
}

// Len returns the number of held records, expired ones included until the janitor runs.
func (s *MemoryStore) Len() int {
	return s.cache.ItemCount()
}

func (s *MemoryStore) getLocked(key string) *models.DedupeRecord {
	value, found := s.cache.Get(key)
	if !found {
		return nil
	}

	record := value.(models.DedupeRecord)

	return &record
}

// collectLocked drops records older than the window, measured from the time
// of the write that pushed the table over its bound. A pass runs at most once
// per half window, so the bound is soft in between.
func (s *MemoryStore) collectLocked(now time.Time) {
	if s.cache.ItemCount() <= s.maxEntries {
		return
	}

	if !s.lastCollect.IsZero() && now.Sub(s.lastCollect) < s.window/2 {
		return
	}

	s.lastCollect = now
	cutoff := now.Add(-s.window)

	for key, item := range s.cache.Items() {
		if record, ok := item.Object.(models.DedupeRecord); ok && record.ProcessedAt.Before(cutoff) {
			s.cache.Delete(key)
		}
	}
}
