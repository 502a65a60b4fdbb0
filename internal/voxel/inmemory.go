package voxel

import (
	"context"
	"sort"
	"sync"

	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/protocol"
)

// InMemoryStore is a simple in-process catalog for local/dev use.
type InMemoryStore struct {
	mu    sync.RWMutex
	types map[string]protocol.VoxelType
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{types: make(map[string]protocol.VoxelType)}
}

func (s *InMemoryStore) Upsert(_ context.Context, t protocol.VoxelType) error {
	if t.ID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types[t.ID] = t
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.types, id)
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]protocol.VoxelType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]protocol.VoxelType, 0, len(s.types))
	for _, t := range s.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
