// Package simulation stores anonymous what-if documents under an opaque id,
// letting a visitor compute an index before filing a declaration.
package simulation

import (
	"time"

	"github.com/google/uuid"

	"parite/internal/domain"
)

type Record struct {
	ID         uuid.UUID   `json:"id"`
	Data       domain.Data `json:"data"`
	ModifiedAt time.Time   `json:"modified_at"`
}
