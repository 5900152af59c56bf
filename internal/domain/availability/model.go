package availability

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Window is a weekly recurring interval during which a doctor accepts
// bookings. Times are stored as minutes since midnight. Multiple windows per
// (doctor, weekday) are permitted and are not merged or deduplicated.
type Window struct {
	ID          uuid.UUID `db:"id" json:"id"`
	DoctorID    uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Weekday     int       `db:"weekday" json:"weekday"` // 0 = Sunday
	StartMinute int       `db:"start_minute" json:"start_minute"`
	EndMinute   int       `db:"end_minute" json:"end_minute"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Contains reports whether minute falls inside [StartMinute, EndMinute).
func (w *Window) Contains(minute int) bool {
	return minute >= w.StartMinute && minute < w.EndMinute
}

// StartLabel formats the window start as HH:MM.
func (w *Window) StartLabel() string { return MinuteLabel(w.StartMinute) }

// EndLabel formats the window end as HH:MM.
func (w *Window) EndLabel() string { return MinuteLabel(w.EndMinute) }

// ParseClock parses an HH:MM time of day into minutes since midnight.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q: out of range", s)
	}
	return h*60 + m, nil
}

// MinuteLabel formats minutes since midnight as HH:MM.
func MinuteLabel(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
