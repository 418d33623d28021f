package simulation

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"parite/internal/domain"
)

// ErrNotFound signals an unknown simulation id.
var ErrNotFound = errors.New("simulation not found")

// Store persists simulations. Create mints a fresh time-based id, retrying
// on the unlikely collision; Put upserts under a caller-provided id.
type Store interface {
	Create(ctx context.Context, data domain.Data) (uuid.UUID, error)
	Get(ctx context.Context, id uuid.UUID) (Record, error)
	Put(ctx context.Context, id uuid.UUID, data domain.Data) (Record, error)
}
