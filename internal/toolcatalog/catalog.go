// Package toolcatalog is a read-only lookup of declared tool signatures.
// The dispatcher does not consult it (a step without an inline Tool value
// fails); the worker uses it to type the placeholder variables created
// by job.CheckAndFixMissingVariables. It is not job or workflow
// persistence.
package toolcatalog

import (
	"context"
	"errors"

	"github.com/flowforge/engine/internal/schema"
	"github.com/flowforge/engine/internal/tool"
)

// ErrNotFound is returned by Store methods when no tool matches.
var ErrNotFound = errors.New("toolcatalog: tool not found")

// Definition is one catalog entry: a tool's identity and declared
// signature.
type Definition struct {
	ID        string
	Slug      string
	Signature tool.Signature
}

// Store resolves tool definitions by ID or slug, mirroring the
// dispatcher-facing lookup shape the engine needs.
type Store interface {
	GetByID(ctx context.Context, id string) (Definition, error)
	GetBySlug(ctx context.Context, slug string) (Definition, error)
}

// OutputSpecLookup adapts a Store into the job package's
// OutputSpecLookup shape, used by CheckAndFixMissingVariables to
// synthesize correctly-typed output placeholders.
func OutputSpecLookup(store Store) func(toolID, outputName string) (schema.Schema, bool) {
	return func(toolID, outputName string) (schema.Schema, bool) {
		def, err := store.GetByID(context.Background(), toolID)
		if err != nil {
			return schema.Schema{}, false
		}
		s, ok := def.Signature.Outputs[outputName]
		return s, ok
	}
}
