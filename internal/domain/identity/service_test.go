package identity

import (
	"context"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clinic/clinic/internal/platform/auth"
)

type mockUserRepo struct {
	users map[uuid.UUID]*User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockUserRepo) Update(_ context.Context, u *User) error {
	if _, ok := m.users[u.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) ListByRole(_ context.Context, role string, limit, offset int) ([]*User, int, error) {
	var matched []*User
	for _, u := range m.users {
		if u.Role == role {
			cp := *u
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].LastName != matched[j].LastName {
			return matched[i].LastName < matched[j].LastName
		}
		return matched[i].FirstName < matched[j].FirstName
	})
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

func (m *mockUserRepo) ExistsWithRole(_ context.Context, id uuid.UUID, role string) (bool, error) {
	u, ok := m.users[id]
	return ok && u.Role == role, nil
}

func TestCreateUser_Valid(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewService(repo)

	u := &User{Email: "alice@clinic.test", FirstName: "Alice", LastName: "Martin", Role: auth.RolePatient}
	if err := svc.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if u.ID == uuid.Nil {
		t.Error("expected ID to be assigned")
	}
	if len(repo.users) != 1 {
		t.Errorf("expected 1 stored user, got %d", len(repo.users))
	}
}

func TestCreateUser_Validation(t *testing.T) {
	svc := NewService(newMockUserRepo())

	tests := []struct {
		name string
		user User
	}{
		{"missing email", User{FirstName: "A", LastName: "B", Role: auth.RolePatient}},
		{"missing name", User{Email: "a@b.c", Role: auth.RolePatient}},
		{"invalid role", User{Email: "a@b.c", FirstName: "A", LastName: "B", Role: "SUPERUSER"}},
		{"empty role", User{Email: "a@b.c", FirstName: "A", LastName: "B"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := tt.user
			if err := svc.CreateUser(context.Background(), &u); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestGetUser_NotFound(t *testing.T) {
	svc := NewService(newMockUserRepo())

	_, err := svc.GetUser(context.Background(), uuid.New())
	if err != ErrUserNotFound {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestListDoctors_PublicView(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewService(repo)

	spec := "Cardiology"
	doctor := &User{Email: "doc@clinic.test", FirstName: "Diane", LastName: "Leroy", Role: auth.RoleMedecin, Specialty: &spec, Phone: strPtr("0123456789")}
	patient := &User{Email: "pat@clinic.test", FirstName: "Paul", LastName: "Durand", Role: auth.RolePatient}
	for _, u := range []*User{doctor, patient} {
		if err := svc.CreateUser(context.Background(), u); err != nil {
			t.Fatalf("CreateUser() error = %v", err)
		}
	}

	doctors, total, err := svc.ListDoctors(context.Background(), 20, 0)
	if err != nil {
		t.Fatalf("ListDoctors() error = %v", err)
	}
	if total != 1 || len(doctors) != 1 {
		t.Fatalf("expected 1 doctor, got total=%d len=%d", total, len(doctors))
	}
	d := doctors[0]
	if d.FirstName != "Diane" || d.LastName != "Leroy" {
		t.Errorf("unexpected doctor %+v", d)
	}
	if d.Specialty == nil || *d.Specialty != "Cardiology" {
		t.Errorf("expected specialty Cardiology, got %v", d.Specialty)
	}
}

func TestDoctorExists(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewService(repo)

	doctor := &User{Email: "doc@clinic.test", FirstName: "D", LastName: "L", Role: auth.RoleMedecin}
	patient := &User{Email: "pat@clinic.test", FirstName: "P", LastName: "D", Role: auth.RolePatient}
	for _, u := range []*User{doctor, patient} {
		if err := svc.CreateUser(context.Background(), u); err != nil {
			t.Fatalf("CreateUser() error = %v", err)
		}
	}

	ok, err := svc.DoctorExists(context.Background(), doctor.ID)
	if err != nil || !ok {
		t.Errorf("DoctorExists(doctor) = %v, %v; want true", ok, err)
	}
	ok, err = svc.DoctorExists(context.Background(), patient.ID)
	if err != nil || ok {
		t.Errorf("DoctorExists(patient) = %v, %v; want false", ok, err)
	}
	ok, err = svc.DoctorExists(context.Background(), uuid.New())
	if err != nil || ok {
		t.Errorf("DoctorExists(unknown) = %v, %v; want false", ok, err)
	}
}

func TestPatientName(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewService(repo)

	p := &User{Email: "pat@clinic.test", FirstName: "Paul", LastName: "Durand", Role: auth.RolePatient}
	if err := svc.CreateUser(context.Background(), p); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	first, last, err := svc.PatientName(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("PatientName() error = %v", err)
	}
	if first != "Paul" || last != "Durand" {
		t.Errorf("PatientName() = %q %q", first, last)
	}

	if _, _, err := svc.PatientName(context.Background(), uuid.New()); err != ErrUserNotFound {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func strPtr(s string) *string { return &s }
