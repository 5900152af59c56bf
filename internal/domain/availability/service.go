package availability

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	// ErrInvalidWindow is returned when a window violates start < end or has
	// an out-of-range weekday.
	ErrInvalidWindow = errors.New("invalid availability window")

	ErrWindowNotFound = errors.New("availability window not found")
)

type Service struct {
	windows WindowRepository
}

func NewService(windows WindowRepository) *Service {
	return &Service{windows: windows}
}

func validateWindow(w *Window) error {
	if w.DoctorID == uuid.Nil {
		return fmt.Errorf("%w: doctor_id is required", ErrInvalidWindow)
	}
	if w.Weekday < 0 || w.Weekday > 6 {
		return fmt.Errorf("%w: weekday must be 0-6, got %d", ErrInvalidWindow, w.Weekday)
	}
	if w.StartMinute < 0 || w.EndMinute > 24*60 {
		return fmt.Errorf("%w: times out of range", ErrInvalidWindow)
	}
	if w.StartMinute >= w.EndMinute {
		return fmt.Errorf("%w: start %s must precede end %s", ErrInvalidWindow, w.StartLabel(), w.EndLabel())
	}
	return nil
}

func (s *Service) CreateWindow(ctx context.Context, w *Window) error {
	if err := validateWindow(w); err != nil {
		return err
	}
	return s.windows.Create(ctx, w)
}

func (s *Service) GetWindow(ctx context.Context, id uuid.UUID) (*Window, error) {
	w, err := s.windows.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWindowNotFound
	}
	return w, err
}

func (s *Service) UpdateWindow(ctx context.Context, w *Window) error {
	if err := validateWindow(w); err != nil {
		return err
	}
	return s.windows.Update(ctx, w)
}

func (s *Service) DeleteWindow(ctx context.Context, id uuid.UUID) error {
	return s.windows.Delete(ctx, id)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Window, error) {
	return s.windows.ListByDoctor(ctx, doctorID)
}
