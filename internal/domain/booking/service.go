package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/domain/availability"
	"github.com/clinic/clinic/internal/domain/identity"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
)

var (
	// ErrSlotTaken means the targeted (doctor, date, time) is already held
	// by a non-cancelled appointment.
	ErrSlotTaken = errors.New("slot already booked")

	ErrDoctorNotFound      = errors.New("invalid doctor ID")
	ErrValidation          = errors.New("invalid booking request")
	ErrForbidden           = errors.New("caller may not perform this action")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
)

// Caller is the authenticated identity acting on the booking engine. It is
// trusted as provided by the auth middleware.
type Caller struct {
	ID   string
	Role string
}

func (c Caller) isStaff() bool {
	return c.Role == auth.RoleAdmin || c.Role == auth.RoleMedecin
}

// CallerFromContext extracts the caller placed on the context by the auth
// middleware.
func CallerFromContext(ctx context.Context) Caller {
	return Caller{ID: auth.UserIDFromContext(ctx), Role: auth.RoleFromContext(ctx)}
}

// WindowSource supplies a doctor's recurring availability windows.
type WindowSource interface {
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*availability.Window, error)
}

// UserDirectory supplies doctor existence checks and patient display names.
type UserDirectory interface {
	DoctorExists(ctx context.Context, id uuid.UUID) (bool, error)
	PatientName(ctx context.Context, id uuid.UUID) (first, last string, err error)
}

type Service struct {
	appts        AppointmentRepository
	windows      WindowSource
	users        UserDirectory
	pool         *pgxpool.Pool
	slotDuration int
}

// NewService builds the booking engine. pool may be nil in tests; the
// conflict check then relies on the repository alone.
func NewService(appts AppointmentRepository, windows WindowSource, users UserDirectory, pool *pgxpool.Pool, slotDurationMin int) *Service {
	if slotDurationMin <= 0 {
		slotDurationMin = 60
	}
	return &Service{appts: appts, windows: windows, users: users, pool: pool, slotDuration: slotDurationMin}
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.pool == nil {
		return fn(ctx)
	}
	return db.WithTx(ctx, s.pool, fn)
}

// BookingRequest is a validated attempt to take one slot.
type BookingRequest struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Date      time.Time
	Minute    int
	Notes     *string
}

// AttemptBooking admits or rejects a booking. The insert runs inside a
// transaction and the storage unique index is the arbiter between
// concurrent attempts for the same slot: the loser's unique violation is
// translated to ErrSlotTaken. New appointments start as PENDING, and any
// non-cancelled appointment occupies its slot regardless of status.
func (s *Service) AttemptBooking(ctx context.Context, req BookingRequest, caller Caller) (*Appointment, error) {
	if req.DoctorID == uuid.Nil {
		return nil, fmt.Errorf("%w: doctor_id is required", ErrValidation)
	}
	if req.PatientID == uuid.Nil {
		return nil, fmt.Errorf("%w: patient_id is required", ErrValidation)
	}
	if req.Date.IsZero() {
		return nil, fmt.Errorf("%w: appointment_date is required", ErrValidation)
	}
	if req.Minute < 0 || req.Minute >= 24*60 {
		return nil, fmt.Errorf("%w: appointment_time out of range", ErrValidation)
	}

	// Patients book only for themselves; staff may book for anyone.
	if !caller.isStaff() && caller.ID != req.PatientID.String() {
		return nil, fmt.Errorf("%w: patients may only book for themselves", ErrForbidden)
	}

	exists, err := s.users.DoctorExists(ctx, req.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("doctor lookup: %w", err)
	}
	if !exists {
		return nil, ErrDoctorNotFound
	}

	first, last, err := s.users.PatientName(ctx, req.PatientID)
	if errors.Is(err, identity.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: unknown patient", ErrValidation)
	}
	if err != nil {
		return nil, fmt.Errorf("patient lookup: %w", err)
	}

	date := req.Date.Truncate(24 * time.Hour)
	a := &Appointment{
		DoctorID:    req.DoctorID,
		PatientID:   req.PatientID,
		Date:        date,
		StartMinute: req.Minute,
		DateTime:    date.Add(time.Duration(req.Minute) * time.Minute),
		Status:      StatusPending,
		Notes:       req.Notes,
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		return s.appts.Create(ctx, a)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	a.PatientFirstName = first
	a.PatientLastName = last
	return a, nil
}

// ClassifyOccupied returns the taken slot keys for a doctor in [from, to].
// Cancelled appointments never occupy a slot. Patient names are included
// only when includeNames is set (staff views).
func (s *Service) ClassifyOccupied(ctx context.Context, doctorID uuid.UUID, from, to time.Time, includeNames bool) ([]OccupiedSlot, error) {
	appts, err := s.appts.ListByDoctorRange(ctx, doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	out := make([]OccupiedSlot, 0, len(appts))
	for _, a := range appts {
		if !a.Occupies() {
			continue
		}
		slot := OccupiedSlot{Date: a.DateLabel(), Time: a.TimeLabel(), Status: a.Status}
		if includeNames {
			slot.PatientName = a.PatientFirstName + " " + a.PatientLastName
		}
		out = append(out, slot)
	}
	return out, nil
}

// Calendar merges generated slots with the occupied set into per-date slot
// states. Dates with no availability are absent. Occupied slots outside any
// window are still reported, so a stale booking stays visible.
func (s *Service) Calendar(ctx context.Context, doctorID uuid.UUID, year, month int, includeNames bool) (map[string][]SlotState, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month must be 1-12", ErrValidation)
	}
	windows, err := s.windows.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}

	from, to := MonthRange(year, month)
	slots := GenerateSlots(windows, from, to, s.slotDuration)

	occupied, err := s.ClassifyOccupied(ctx, doctorID, from, to, includeNames)
	if err != nil {
		return nil, err
	}
	taken := make(map[SlotKey]OccupiedSlot, len(occupied))
	for _, o := range occupied {
		taken[SlotKey{Date: o.Date, Time: o.Time}] = o
	}

	out := make(map[string][]SlotState, len(slots))
	for date, minutes := range slots {
		states := make([]SlotState, 0, len(minutes))
		for _, m := range minutes {
			label := availability.MinuteLabel(m)
			st := SlotState{Time: label, State: SlotAvailable}
			if o, ok := taken[SlotKey{Date: date, Time: label}]; ok {
				st.State = SlotOccupied
				st.PatientName = o.PatientName
			}
			states = append(states, st)
		}
		out[date] = states
	}
	return out, nil
}

// canTransition encodes the appointment state machine. There is no way out
// of CANCELLED.
func canTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCancelled
	default:
		return false
	}
}

// UpdateStatus applies a state transition. Staff may perform any valid
// transition; a patient may only cancel their own pending appointment.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string, caller Caller) (*Appointment, error) {
	if !ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	a, err := s.appts.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}

	if !caller.isStaff() {
		if caller.ID != a.PatientID.String() || status != StatusCancelled || a.Status != StatusPending {
			return nil, fmt.Errorf("%w: patients may only cancel their own pending appointment", ErrForbidden)
		}
	}
	if !canTransition(a.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, status)
	}

	if err := s.appts.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	a.Status = status
	return a, nil
}

// DeleteAppointment removes an appointment record. The handler restricts
// this to staff.
func (s *Service) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	return s.appts.Delete(ctx, id)
}

// ListAppointments returns appointments visible to the caller. Patients
// always see only their own regardless of requested filters.
func (s *Service) ListAppointments(ctx context.Context, f ListFilter, limit, offset int, caller Caller) ([]*Appointment, int, error) {
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, 0, fmt.Errorf("%w: unknown status %q", ErrValidation, f.Status)
	}
	if !caller.isStaff() {
		pid, err := uuid.Parse(caller.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: unknown caller identity", ErrForbidden)
		}
		f.PatientID = pid
	}
	return s.appts.List(ctx, f, limit, offset)
}
