package voxel

import (
	"context"
	"strings"

	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/protocol"
)

// Store persists the voxel-type catalog learned from lifecycle events.
type Store interface {
	Upsert(ctx context.Context, t protocol.VoxelType) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]protocol.VoxelType, error)
	Close() error
}

// NewStore creates a postgres-backed catalog when configured, otherwise
// in-memory.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryStore(), nil
	}
	return NewPostgresStore(ctx, databaseURL)
}
