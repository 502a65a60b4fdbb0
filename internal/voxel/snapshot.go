// Package voxel resolves symbolic voxel-type references and keeps a catalog
// of known types. The catalog is advisory context; command enrichment only
// ever reads the snapshot that arrived with the request.
package voxel

import (
	"strings"

	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/protocol"
)

// Snapshot indexes one request's voxel-type registry state for lookups.
type Snapshot struct {
	byName map[string]protocol.VoxelType
	byID   map[string]protocol.VoxelType
	types  []protocol.VoxelType
}

// NewSnapshot indexes the given registry state. Name lookups are
// case-insensitive; on duplicate names the first entry wins.
func NewSnapshot(types []protocol.VoxelType) *Snapshot {
	s := &Snapshot{
		byName: make(map[string]protocol.VoxelType, len(types)),
		byID:   make(map[string]protocol.VoxelType, len(types)),
		types:  types,
	}
	for _, t := range types {
		key := nameKey(t.Name)
		if _, ok := s.byName[key]; !ok && key != "" {
			s.byName[key] = t
		}
		if _, ok := s.byID[t.ID]; !ok && t.ID != "" {
			s.byID[t.ID] = t
		}
	}
	return s
}

// ByName resolves a voxel type by display name.
func (s *Snapshot) ByName(name string) (protocol.VoxelType, bool) {
	t, ok := s.byName[nameKey(name)]
	return t, ok
}

// ByID resolves a voxel type by id.
func (s *Snapshot) ByID(id string) (protocol.VoxelType, bool) {
	t, ok := s.byID[id]
	return t, ok
}

// Types returns the snapshot's raw registry state.
func (s *Snapshot) Types() []protocol.VoxelType { return s.types }

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
