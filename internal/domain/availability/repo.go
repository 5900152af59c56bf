package availability

import (
	"context"

	"github.com/google/uuid"
)

type WindowRepository interface {
	Create(ctx context.Context, w *Window) error
	GetByID(ctx context.Context, id uuid.UUID) (*Window, error)
	Update(ctx context.Context, w *Window) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByDoctor returns all of a doctor's windows ordered by weekday then
	// start time. Window sets are small, so the listing is unpaginated.
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Window, error)
}
