package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/domain/availability"
)

const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
)

var validStatuses = map[string]bool{
	StatusPending: true, StatusConfirmed: true, StatusCancelled: true,
}

// ValidStatus reports whether s is a known appointment status.
func ValidStatus(s string) bool { return validStatuses[s] }

// Appointment is a booked slot on a doctor's calendar. Date and StartMinute
// identify the slot; DateTime is the denormalized combined timestamp kept
// consistent with them at write time, retained for sorting and for older
// records.
type Appointment struct {
	ID          uuid.UUID `db:"id" json:"id"`
	DoctorID    uuid.UUID `db:"doctor_id" json:"doctor_id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	Date        time.Time `db:"appointment_date" json:"-"`
	StartMinute int       `db:"start_minute" json:"-"`
	DateTime    time.Time `db:"date_time" json:"date_time"`
	Status      string    `db:"status" json:"status"`
	Notes       *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	// Denormalized for client display, populated by listing queries.
	PatientFirstName string `db:"-" json:"patient_first_name,omitempty"`
	PatientLastName  string `db:"-" json:"patient_last_name,omitempty"`
}

// DateLabel formats the appointment date as YYYY-MM-DD.
func (a *Appointment) DateLabel() string { return a.Date.Format("2006-01-02") }

// TimeLabel formats the appointment time as HH:MM.
func (a *Appointment) TimeLabel() string { return availability.MinuteLabel(a.StartMinute) }

// SlotKey identifies one bookable position on one doctor's calendar.
type SlotKey struct {
	Date string `json:"date"` // YYYY-MM-DD
	Time string `json:"time"` // HH:MM
}

// Key returns the appointment's slot key.
func (a *Appointment) Key() SlotKey {
	return SlotKey{Date: a.DateLabel(), Time: a.TimeLabel()}
}

// Occupies reports whether the appointment blocks its slot. Cancelled
// appointments free their slot for rebooking.
func (a *Appointment) Occupies() bool { return a.Status != StatusCancelled }

// Slot states in the assembled calendar view. A slot absent from the view
// means no availability at all.
const (
	SlotAvailable = "AVAILABLE"
	SlotOccupied  = "OCCUPIED"
)

// SlotState is one calendar cell: a candidate slot and whether an active
// appointment occupies it. PatientName is only filled for staff views.
type SlotState struct {
	Time        string `json:"time"`
	State       string `json:"state"`
	PatientName string `json:"patient_name,omitempty"`
}

// OccupiedSlot is one taken slot in a doctor's calendar range. PatientName
// is only filled for staff views.
type OccupiedSlot struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	Status      string `json:"status"`
	PatientName string `json:"patient_name,omitempty"`
}
