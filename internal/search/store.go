package search

import "context"

// Store holds the projection rows. Only publicly visible rows participate
// in queries: tranche "1000:" always, "251:999" from the 2020 reporting
// year on, "50:250" never.
type Store interface {
	Upsert(ctx context.Context, row Row) error
	Search(ctx context.Context, q Query, filters Filters, limit, offset int) ([]Hit, error)
	Count(ctx context.Context, q Query, filters Filters) (int, error)
	Stats(ctx context.Context, year int, filters Filters) (Stats, error)
	Truncate(ctx context.Context) error
}
