// Package archive keeps an append-only trail of every published
// declaration, with the author email and source ip of the write.
package archive

import (
	"context"

	"parite/internal/domain"
)

type Store interface {
	Append(ctx context.Context, siren string, year int, data domain.Data, by, ip string) error
}
