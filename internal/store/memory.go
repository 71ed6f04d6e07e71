package store

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/couchcryptid/logistics-locator/internal/domain"
)

// Memory is an in-process DirectoryStore. Contents are lost on restart.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]domain.DirectoryEntry
}

// NewMemory creates a store preloaded with entries. Entries without an ID
// are assigned one.
func NewMemory(entries ...domain.DirectoryEntry) *Memory {
	m := &Memory{entries: make(map[string]domain.DirectoryEntry, len(entries))}
	for _, e := range entries {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		m.entries[e.ID] = e.Clone()
	}
	return m
}

func (m *Memory) List(_ context.Context) ([]domain.DirectoryEntry, error) {
	m.mu.RLock()
	out := make([]domain.DirectoryEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Clone())
	}
	m.mu.RUnlock()

	SortByName(out)
	return out, nil
}

func (m *Memory) Get(_ context.Context, id string) (domain.DirectoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	if !ok {
		return domain.DirectoryEntry{}, domain.ErrEntryNotFound
	}
	return e.Clone(), nil
}

func (m *Memory) Create(_ context.Context, e domain.DirectoryEntry) (domain.DirectoryEntry, error) {
	e = e.Clone()
	e.ID = uuid.NewString()

	m.mu.Lock()
	m.entries[e.ID] = e
	m.mu.Unlock()
	return e.Clone(), nil
}

func (m *Memory) Update(_ context.Context, e domain.DirectoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[e.ID]; !ok {
		return domain.ErrEntryNotFound
	}
	m.entries[e.ID] = e.Clone()
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return domain.ErrEntryNotFound
	}
	delete(m.entries, id)
	return nil
}

// SortByName orders entries by name, then id, matching the store List contract.
func SortByName(entries []domain.DirectoryEntry) {
	slices.SortFunc(entries, func(a, b domain.DirectoryEntry) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
