package toolcatalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowforge/engine/internal/schema"
	"github.com/flowforge/engine/internal/tool"
)

// DB is the subset of *pgxpool.Pool the catalog needs, narrow enough that
// tests can substitute a pgxmock pool.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// PostgresStore is a Store backed by a tool_definitions table.
type PostgresStore struct {
	db DB
}

// NewPostgresStore builds a PostgresStore over pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: pool}
}

// NewPostgresStoreWithDB builds a PostgresStore over a custom DB
// implementation, primarily for testing with a mock pool.
func NewPostgresStoreWithDB(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetByID retrieves a tool definition by its id.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (Definition, error) {
	return s.query(ctx, "SELECT id, slug, tool_type, outputs FROM tool_definitions WHERE id = $1", id)
}

// GetBySlug retrieves a tool definition by its slug.
func (s *PostgresStore) GetBySlug(ctx context.Context, slug string) (Definition, error) {
	return s.query(ctx, "SELECT id, slug, tool_type, outputs FROM tool_definitions WHERE slug = $1", slug)
}

func (s *PostgresStore) query(ctx context.Context, query string, arg string) (Definition, error) {
	var (
		id, slug, toolType string
		outputsJSON        []byte
	)

	err := s.db.QueryRow(ctx, query, arg).Scan(&id, &slug, &toolType, &outputsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return Definition{}, ErrNotFound
	}
	if err != nil {
		return Definition{}, fmt.Errorf("toolcatalog: query tool definition: %w", err)
	}

	outputs := make(map[string]schema.Schema)
	if len(outputsJSON) > 0 {
		if err := json.Unmarshal(outputsJSON, &outputs); err != nil {
			return Definition{}, fmt.Errorf("toolcatalog: unmarshal outputs for %q: %w", id, err)
		}
	}

	return Definition{
		ID:   id,
		Slug: slug,
		Signature: tool.Signature{
			ToolType: toolType,
			Outputs:  outputs,
		},
	}, nil
}
