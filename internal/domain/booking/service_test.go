package booking

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clinic/clinic/internal/domain/availability"
	"github.com/clinic/clinic/internal/domain/identity"
	"github.com/clinic/clinic/internal/platform/auth"
)

// mockApptRepo emulates the storage unique index: a create that collides
// with a non-cancelled appointment on (doctor, date, minute) fails with a
// 23505 unique violation, under a mutex so concurrent attempts serialize
// exactly as the database would.
type mockApptRepo struct {
	mu    sync.Mutex
	appts map[uuid.UUID]*Appointment
}

func newMockApptRepo() *mockApptRepo {
	return &mockApptRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *mockApptRepo) Create(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.appts {
		if ex.DoctorID == a.DoctorID && ex.Date.Equal(a.Date) && ex.StartMinute == a.StartMinute && ex.Occupies() {
			return &pgconn.PgError{Code: "23505", ConstraintName: "appointment_slot_key"}
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockApptRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (m *mockApptRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	a.Status = status
	return nil
}

func (m *mockApptRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.appts, id)
	return nil
}

func (m *mockApptRepo) ListByDoctorRange(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Appointment
	for _, a := range m.appts {
		if a.DoctorID == doctorID && !a.Date.Before(from) && !a.Date.After(to) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateTime.Before(out[j].DateTime) })
	return out, nil
}

func (m *mockApptRepo) List(_ context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*Appointment
	for _, a := range m.appts {
		if f.DoctorID != uuid.Nil && a.DoctorID != f.DoctorID {
			continue
		}
		if f.PatientID != uuid.Nil && a.PatientID != f.PatientID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if !f.Date.IsZero() && !a.Date.Equal(f.Date) {
			continue
		}
		cp := *a
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].DateTime.After(matched[j].DateTime) })
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

// countAt counts non-cancelled appointments for one slot.
func (m *mockApptRepo) countAt(doctorID uuid.UUID, d time.Time, minute int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.Date.Equal(d) && a.StartMinute == minute && a.Occupies() {
			n++
		}
	}
	return n
}

type mockDirectory struct {
	doctors  map[uuid.UUID]bool
	patients map[uuid.UUID][2]string
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{doctors: make(map[uuid.UUID]bool), patients: make(map[uuid.UUID][2]string)}
}

func (m *mockDirectory) DoctorExists(_ context.Context, id uuid.UUID) (bool, error) {
	return m.doctors[id], nil
}

func (m *mockDirectory) PatientName(_ context.Context, id uuid.UUID) (string, string, error) {
	name, ok := m.patients[id]
	if !ok {
		return "", "", identity.ErrUserNotFound
	}
	return name[0], name[1], nil
}

type mockWindowSource struct {
	windows []*availability.Window
}

func (m *mockWindowSource) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]*availability.Window, error) {
	var out []*availability.Window
	for _, w := range m.windows {
		if w.DoctorID == doctorID {
			out = append(out, w)
		}
	}
	return out, nil
}

type fixture struct {
	svc       *Service
	repo      *mockApptRepo
	dir       *mockDirectory
	windows   *mockWindowSource
	doctorID  uuid.UUID
	patientID uuid.UUID
}

func newFixture() *fixture {
	repo := newMockApptRepo()
	dir := newMockDirectory()
	ws := &mockWindowSource{}

	doctorID := uuid.New()
	patientID := uuid.New()
	dir.doctors[doctorID] = true
	dir.patients[patientID] = [2]string{"Paul", "Durand"}

	return &fixture{
		svc:       NewService(repo, ws, dir, nil, 60),
		repo:      repo,
		dir:       dir,
		windows:   ws,
		doctorID:  doctorID,
		patientID: patientID,
	}
}

func (f *fixture) patientCaller() Caller {
	return Caller{ID: f.patientID.String(), Role: auth.RolePatient}
}

func staffCaller() Caller {
	return Caller{ID: uuid.NewString(), Role: auth.RoleAdmin}
}

func TestAttemptBooking_Success(t *testing.T) {
	f := newFixture()
	d := date(2025, 7, 1)

	a, err := f.svc.AttemptBooking(context.Background(), BookingRequest{
		DoctorID: f.doctorID, PatientID: f.patientID, Date: d, Minute: 840,
	}, f.patientCaller())
	if err != nil {
		t.Fatalf("AttemptBooking() error = %v", err)
	}
	if a.Status != StatusPending {
		t.Errorf("status = %s, want PENDING", a.Status)
	}
	if a.PatientFirstName != "Paul" || a.PatientLastName != "Durand" {
		t.Errorf("patient names not populated: %q %q", a.PatientFirstName, a.PatientLastName)
	}
	if got := a.DateTime; !got.Equal(d.Add(14 * time.Hour)) {
		t.Errorf("date_time = %v, want %v", got, d.Add(14*time.Hour))
	}
	if a.TimeLabel() != "14:00" {
		t.Errorf("time label = %s", a.TimeLabel())
	}
}

func TestAttemptBooking_ConflictKeepsSingleRow(t *testing.T) {
	f := newFixture()
	d := date(2025, 7, 1)
	req := BookingRequest{DoctorID: f.doctorID, PatientID: f.patientID, Date: d, Minute: 840}

	if _, err := f.svc.AttemptBooking(context.Background(), req, f.patientCaller()); err != nil {
		t.Fatalf("first booking error = %v", err)
	}

	other := uuid.New()
	f.dir.patients[other] = [2]string{"Anne", "Petit"}
	req2 := req
	req2.PatientID = other
	_, err := f.svc.AttemptBooking(context.Background(), req2, Caller{ID: other.String(), Role: auth.RolePatient})
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}

	if n := f.repo.countAt(f.doctorID, d, 840); n != 1 {
		t.Errorf("expected exactly 1 appointment at slot, got %d", n)
	}
}

func TestAttemptBooking_CancelledSlotRebookable(t *testing.T) {
	f := newFixture()
	d := date(2025, 7, 1)
	req := BookingRequest{DoctorID: f.doctorID, PatientID: f.patientID, Date: d, Minute: 600}

	a, err := f.svc.AttemptBooking(context.Background(), req, f.patientCaller())
	if err != nil {
		t.Fatalf("first booking error = %v", err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), a.ID, StatusCancelled, staffCaller()); err != nil {
		t.Fatalf("cancel error = %v", err)
	}

	if _, err := f.svc.AttemptBooking(context.Background(), req, f.patientCaller()); err != nil {
		t.Fatalf("rebooking a cancelled slot should succeed, got %v", err)
	}
}

func TestAttemptBooking_UnknownDoctor(t *testing.T) {
	f := newFixture()

	_, err := f.svc.AttemptBooking(context.Background(), BookingRequest{
		DoctorID: uuid.New(), PatientID: f.patientID, Date: date(2025, 7, 1), Minute: 600,
	}, f.patientCaller())
	if !errors.Is(err, ErrDoctorNotFound) {
		t.Errorf("expected ErrDoctorNotFound, got %v", err)
	}
}

func TestAttemptBooking_UnknownPatient(t *testing.T) {
	f := newFixture()
	stranger := uuid.New()

	_, err := f.svc.AttemptBooking(context.Background(), BookingRequest{
		DoctorID: f.doctorID, PatientID: stranger, Date: date(2025, 7, 1), Minute: 600,
	}, Caller{ID: stranger.String(), Role: auth.RolePatient})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestAttemptBooking_PatientCannotBookForOthers(t *testing.T) {
	f := newFixture()
	other := uuid.New()
	f.dir.patients[other] = [2]string{"Anne", "Petit"}

	_, err := f.svc.AttemptBooking(context.Background(), BookingRequest{
		DoctorID: f.doctorID, PatientID: other, Date: date(2025, 7, 1), Minute: 600,
	}, f.patientCaller())
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestAttemptBooking_StaffBooksForAnyone(t *testing.T) {
	f := newFixture()

	_, err := f.svc.AttemptBooking(context.Background(), BookingRequest{
		DoctorID: f.doctorID, PatientID: f.patientID, Date: date(2025, 7, 1), Minute: 600,
	}, Caller{ID: uuid.NewString(), Role: auth.RoleMedecin})
	if err != nil {
		t.Errorf("staff booking for a patient should succeed, got %v", err)
	}
}

func TestAttemptBooking_Validation(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name string
		req  BookingRequest
	}{
		{"missing doctor", BookingRequest{PatientID: f.patientID, Date: date(2025, 7, 1), Minute: 600}},
		{"missing patient", BookingRequest{DoctorID: f.doctorID, Date: date(2025, 7, 1), Minute: 600}},
		{"missing date", BookingRequest{DoctorID: f.doctorID, PatientID: f.patientID, Minute: 600}},
		{"negative minute", BookingRequest{DoctorID: f.doctorID, PatientID: f.patientID, Date: date(2025, 7, 1), Minute: -60}},
		{"minute past midnight", BookingRequest{DoctorID: f.doctorID, PatientID: f.patientID, Date: date(2025, 7, 1), Minute: 1440}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AttemptBooking(context.Background(), tt.req, staffCaller())
			if !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestAttemptBooking_ConcurrentRace(t *testing.T) {
	f := newFixture()
	other := uuid.New()
	f.dir.patients[other] = [2]string{"Anne", "Petit"}
	d := date(2025, 7, 1)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for _, pid := range []uuid.UUID{f.patientID, other} {
		wg.Add(1)
		go func(pid uuid.UUID) {
			defer wg.Done()
			_, err := f.svc.AttemptBooking(context.Background(), BookingRequest{
				DoctorID: f.doctorID, PatientID: pid, Date: d, Minute: 840,
			}, Caller{ID: pid.String(), Role: auth.RolePatient})
			results <- err
		}(pid)
	}
	wg.Wait()
	close(results)

	var successes, conflicts int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrSlotTaken):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || conflicts != 1 {
		t.Errorf("expected exactly 1 success and 1 conflict, got %d/%d", successes, conflicts)
	}
	if n := f.repo.countAt(f.doctorID, d, 840); n != 1 {
		t.Errorf("expected exactly 1 appointment at slot, got %d", n)
	}
}

func TestClassifyOccupied(t *testing.T) {
	f := newFixture()
	d := date(2025, 7, 1)

	book := func(minute int) *Appointment {
		t.Helper()
		a, err := f.svc.AttemptBooking(context.Background(), BookingRequest{
			DoctorID: f.doctorID, PatientID: f.patientID, Date: d, Minute: minute,
		}, f.patientCaller())
		if err != nil {
			t.Fatalf("booking at %d: %v", minute, err)
		}
		return a
	}
	book(540)
	cancelled := book(600)
	if _, err := f.svc.UpdateStatus(context.Background(), cancelled.ID, StatusCancelled, staffCaller()); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	from, to := MonthRange(2025, 7)

	// Public view: cancelled slot free, no names.
	got, err := f.svc.ClassifyOccupied(context.Background(), f.doctorID, from, to, false)
	if err != nil {
		t.Fatalf("ClassifyOccupied() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 occupied slot, got %d: %v", len(got), got)
	}
	if got[0].Time != "09:00" {
		t.Errorf("occupied time = %s, want 09:00", got[0].Time)
	}
	if got[0].PatientName != "" {
		t.Errorf("public view must not carry patient names, got %q", got[0].PatientName)
	}

	// Staff view carries the name.
	got, err = f.svc.ClassifyOccupied(context.Background(), f.doctorID, from, to, true)
	if err != nil {
		t.Fatalf("ClassifyOccupied() error = %v", err)
	}
	if got[0].PatientName != "Paul Durand" {
		t.Errorf("staff view name = %q, want %q", got[0].PatientName, "Paul Durand")
	}
}

func TestCalendar_EndToEnd(t *testing.T) {
	f := newFixture()
	// Doctor takes Tuesdays 09:00-12:00.
	f.windows.windows = []*availability.Window{
		{DoctorID: f.doctorID, Weekday: 2, StartMinute: 540, EndMinute: 720},
	}

	firstTuesday := date(2025, 7, 1) // 2025-07-01 is a Tuesday
	cal, err := f.svc.Calendar(context.Background(), f.doctorID, 2025, 7, false)
	if err != nil {
		t.Fatalf("Calendar() error = %v", err)
	}

	day, ok := cal["2025-07-01"]
	if !ok {
		t.Fatalf("first Tuesday missing from calendar: %v", cal)
	}
	var times []string
	for _, s := range day {
		times = append(times, s.Time)
		if s.State != SlotAvailable {
			t.Errorf("slot %s should start AVAILABLE, got %s", s.Time, s.State)
		}
	}
	if !reflect.DeepEqual(times, []string{"09:00", "10:00", "11:00"}) {
		t.Fatalf("slots = %v, want [09:00 10:00 11:00]", times)
	}

	if _, err := f.svc.AttemptBooking(context.Background(), BookingRequest{
		DoctorID: f.doctorID, PatientID: f.patientID, Date: firstTuesday, Minute: 600,
	}, f.patientCaller()); err != nil {
		t.Fatalf("booking: %v", err)
	}

	cal, err = f.svc.Calendar(context.Background(), f.doctorID, 2025, 7, false)
	if err != nil {
		t.Fatalf("Calendar() error = %v", err)
	}
	for _, s := range cal["2025-07-01"] {
		want := SlotAvailable
		if s.Time == "10:00" {
			want = SlotOccupied
		}
		if s.State != want {
			t.Errorf("slot %s state = %s, want %s", s.Time, s.State, want)
		}
		if s.PatientName != "" {
			t.Errorf("public calendar must not carry patient names, got %q", s.PatientName)
		}
	}

	// Non-Tuesday absent.
	if _, ok := cal["2025-07-02"]; ok {
		t.Error("Wednesday should be absent from the calendar")
	}
}

func TestCalendar_ReadIdempotent(t *testing.T) {
	f := newFixture()
	f.windows.windows = []*availability.Window{
		{DoctorID: f.doctorID, Weekday: 2, StartMinute: 540, EndMinute: 720},
	}
	if _, err := f.svc.AttemptBooking(context.Background(), BookingRequest{
		DoctorID: f.doctorID, PatientID: f.patientID, Date: date(2025, 7, 1), Minute: 540,
	}, f.patientCaller()); err != nil {
		t.Fatalf("booking: %v", err)
	}

	first, err := f.svc.Calendar(context.Background(), f.doctorID, 2025, 7, true)
	if err != nil {
		t.Fatalf("Calendar() error = %v", err)
	}
	second, err := f.svc.Calendar(context.Background(), f.doctorID, 2025, 7, true)
	if err != nil {
		t.Fatalf("Calendar() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("two reads with no writes in between must be identical")
	}
}

func TestUpdateStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to string
		ok       bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCancelled, StatusCancelled, false},
		{StatusPending, StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(tt.from+"_to_"+tt.to, func(t *testing.T) {
			f := newFixture()
			a, err := f.svc.AttemptBooking(context.Background(), BookingRequest{
				DoctorID: f.doctorID, PatientID: f.patientID, Date: date(2025, 7, 1), Minute: 600,
			}, f.patientCaller())
			if err != nil {
				t.Fatalf("booking: %v", err)
			}
			if tt.from != StatusPending {
				if err := f.repo.UpdateStatus(context.Background(), a.ID, tt.from); err != nil {
					t.Fatalf("seed status: %v", err)
				}
			}

			_, err = f.svc.UpdateStatus(context.Background(), a.ID, tt.to, staffCaller())
			if tt.ok && err != nil {
				t.Errorf("transition %s->%s should succeed, got %v", tt.from, tt.to, err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("transition %s->%s should fail with ErrInvalidTransition, got %v", tt.from, tt.to, err)
			}
		})
	}
}

func TestUpdateStatus_PatientRules(t *testing.T) {
	f := newFixture()
	a, err := f.svc.AttemptBooking(context.Background(), BookingRequest{
		DoctorID: f.doctorID, PatientID: f.patientID, Date: date(2025, 7, 1), Minute: 600,
	}, f.patientCaller())
	if err != nil {
		t.Fatalf("booking: %v", err)
	}

	// A patient cannot confirm.
	if _, err := f.svc.UpdateStatus(context.Background(), a.ID, StatusConfirmed, f.patientCaller()); !errors.Is(err, ErrForbidden) {
		t.Errorf("patient confirm: expected ErrForbidden, got %v", err)
	}

	// Another patient cannot cancel it.
	stranger := Caller{ID: uuid.NewString(), Role: auth.RolePatient}
	if _, err := f.svc.UpdateStatus(context.Background(), a.ID, StatusCancelled, stranger); !errors.Is(err, ErrForbidden) {
		t.Errorf("stranger cancel: expected ErrForbidden, got %v", err)
	}

	// The owner may cancel their own pending appointment.
	got, err := f.svc.UpdateStatus(context.Background(), a.ID, StatusCancelled, f.patientCaller())
	if err != nil {
		t.Fatalf("owner cancel: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Errorf("status = %s, want CANCELLED", got.Status)
	}

	// Once confirmed, only staff may cancel.
	b, err := f.svc.AttemptBooking(context.Background(), BookingRequest{
		DoctorID: f.doctorID, PatientID: f.patientID, Date: date(2025, 7, 2), Minute: 600,
	}, f.patientCaller())
	if err != nil {
		t.Fatalf("booking: %v", err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), b.ID, StatusConfirmed, staffCaller()); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), b.ID, StatusCancelled, f.patientCaller()); !errors.Is(err, ErrForbidden) {
		t.Errorf("patient cancelling confirmed: expected ErrForbidden, got %v", err)
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.UpdateStatus(context.Background(), uuid.New(), StatusConfirmed, staffCaller())
	if !errors.Is(err, ErrAppointmentNotFound) {
		t.Errorf("expected ErrAppointmentNotFound, got %v", err)
	}
}

func TestListAppointments_PatientScoped(t *testing.T) {
	f := newFixture()
	other := uuid.New()
	f.dir.patients[other] = [2]string{"Anne", "Petit"}

	if _, err := f.svc.AttemptBooking(context.Background(), BookingRequest{
		DoctorID: f.doctorID, PatientID: f.patientID, Date: date(2025, 7, 1), Minute: 540,
	}, f.patientCaller()); err != nil {
		t.Fatalf("booking: %v", err)
	}
	if _, err := f.svc.AttemptBooking(context.Background(), BookingRequest{
		DoctorID: f.doctorID, PatientID: other, Date: date(2025, 7, 1), Minute: 600,
	}, staffCaller()); err != nil {
		t.Fatalf("booking: %v", err)
	}

	// Patient sees only their own even when asking for everything.
	items, total, err := f.svc.ListAppointments(context.Background(), ListFilter{}, 20, 0, f.patientCaller())
	if err != nil {
		t.Fatalf("ListAppointments() error = %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].PatientID != f.patientID {
		t.Errorf("patient listing leaked: total=%d items=%v", total, items)
	}

	// Staff sees both.
	_, total, err = f.svc.ListAppointments(context.Background(), ListFilter{DoctorID: f.doctorID}, 20, 0, staffCaller())
	if err != nil {
		t.Fatalf("ListAppointments() error = %v", err)
	}
	if total != 2 {
		t.Errorf("staff listing total = %d, want 2", total)
	}
}
