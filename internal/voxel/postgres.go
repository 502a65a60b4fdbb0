package voxel

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/protocol"
)

// PostgresStore persists the voxel-type catalog in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS voxel_types (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			texture TEXT NOT NULL DEFAULT '',
			face_textures TEXT[] NOT NULL DEFAULT '{}',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_voxel_types_name ON voxel_types (lower(name));`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, t protocol.VoxelType) error {
	if t.ID == "" {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO voxel_types (id, name, description, texture, face_textures, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			texture = EXCLUDED.texture,
			face_textures = EXCLUDED.face_textures,
			updated_at = now()`,
		t.ID, t.Name, t.Description, t.Texture, t.FaceTextures,
	)
	if err != nil {
		return fmt.Errorf("upsert voxel type: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM voxel_types WHERE id=$1`, id); err != nil {
		return fmt.Errorf("delete voxel type: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]protocol.VoxelType, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, description, texture, face_textures FROM voxel_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list voxel types: %w", err)
	}
	defer rows.Close()

	var out []protocol.VoxelType
	for rows.Next() {
		var t protocol.VoxelType
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Texture, &t.FaceTextures); err != nil {
			return nil, fmt.Errorf("scan voxel type: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate voxel types: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
