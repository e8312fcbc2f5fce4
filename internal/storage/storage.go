package storage

import (
	"context"
	"errors"
)

// Field names a persisted vault field.
type Field string

const (
	FieldAssetID     Field = "asset_id"
	FieldTotalSupply Field = "total_supply"
	FieldTotalAssets Field = "total_assets"
)

var (
	// ErrNotFound is returned by Get when a field has never been set.
	ErrNotFound = errors.New("field not found")
	// ErrExists is returned by Update when an IfAbsent entry targets a field
	// that is already set.
	ErrExists = errors.New("field already set")
)

// Entry is a single field assignment. IfAbsent entries only create a field.
type Entry struct {
	Field    Field
	Value    string
	IfAbsent bool
}

// Fields is a snapshot of all fields of one vault.
type Fields map[Field]string

func (f Fields) Has(field Field) bool {
	_, ok := f[field]
	return ok
}

func (f Fields) Get(field Field) (string, error) {
	value, ok := f[field]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Apply writes entries into f, or nothing when an IfAbsent entry collides.
func (f Fields) Apply(entries ...Entry) error {
	for _, entry := range entries {
		if entry.IfAbsent && f.Has(entry.Field) {
			return ErrExists
		}
	}
	for _, entry := range entries {
		f[entry.Field] = entry.Value
	}
	return nil
}

// UpdateFunc computes the entries to write from the current fields. A
// returned error aborts the update and is passed through unchanged.
type UpdateFunc func(current Fields) ([]Entry, error)

// Store persists the fields of one vault instance.
type Store interface {
	Has(ctx context.Context, field Field) (bool, error)
	Get(ctx context.Context, field Field) (string, error)
	// Load returns a consistent snapshot of all fields.
	Load(ctx context.Context) (Fields, error)
	// Set writes all entries or none of them.
	Set(ctx context.Context, entries ...Entry) error
	// Update runs fn and writes its entries with exclusive access to the
	// vault, across every process sharing the backend.
	Update(ctx context.Context, fn UpdateFunc) error
}
