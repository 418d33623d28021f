package store

import (
	"context"
	"errors"
	"time"

	"parite/internal/declaration"
	"parite/internal/domain"
)

// ErrNotFound signals an unknown (siren, year) key.
var ErrNotFound = errors.New("declaration not found")

// Store persists declarations. Put is an upsert: a draft document goes to
// the draft column without touching the published data or declared_at; a
// validated document replaces data, clears the draft and stamps declared_at
// on first publication only.
type Store interface {
	Put(ctx context.Context, siren string, year int, owner string, data domain.Data, modifiedAt time.Time) error
	Get(ctx context.Context, siren string, year int) (declaration.Record, error)
	Owner(ctx context.Context, siren string, year int) (string, error)
	SetOwner(ctx context.Context, siren string, year int, owner string) error
	OwnedBy(ctx context.Context, owner string) ([]declaration.Metadata, error)
	Completed(ctx context.Context, fn func(declaration.Record) error) error
}
