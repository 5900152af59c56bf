package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clinic/clinic/internal/platform/auth"
)

// ErrUserNotFound is returned when a user lookup matches no row.
var ErrUserNotFound = errors.New("user not found")

type Service struct {
	users UserRepository
}

func NewService(users UserRepository) *Service {
	return &Service{users: users}
}

func (s *Service) CreateUser(ctx context.Context, u *User) error {
	if strings.TrimSpace(u.Email) == "" {
		return fmt.Errorf("email is required")
	}
	if strings.TrimSpace(u.FirstName) == "" || strings.TrimSpace(u.LastName) == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	if !auth.ValidRole(u.Role) {
		return fmt.Errorf("invalid role: %s", u.Role)
	}
	return s.users.Create(ctx, u)
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *Service) UpdateUser(ctx context.Context, u *User) error {
	if strings.TrimSpace(u.Email) == "" {
		return fmt.Errorf("email is required")
	}
	return s.users.Update(ctx, u)
}

func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.users.Delete(ctx, id)
}

func (s *Service) ListByRole(ctx context.Context, role string, limit, offset int) ([]*User, int, error) {
	if !auth.ValidRole(role) {
		return nil, 0, fmt.Errorf("invalid role: %s", role)
	}
	return s.users.ListByRole(ctx, role, limit, offset)
}

// ListDoctors returns the public view of all doctors.
func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]PublicDoctor, int, error) {
	users, total, err := s.users.ListByRole(ctx, auth.RoleMedecin, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	doctors := make([]PublicDoctor, 0, len(users))
	for _, u := range users {
		doctors = append(doctors, u.Public())
	}
	return doctors, total, nil
}

// DoctorExists reports whether id refers to a user with the doctor role.
// The booking engine uses this as its doctor existence check.
func (s *Service) DoctorExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.users.ExistsWithRole(ctx, id, auth.RoleMedecin)
}

// PatientName returns the display name fields for a patient, for
// denormalized booking responses.
func (s *Service) PatientName(ctx context.Context, id uuid.UUID) (first, last string, err error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return "", "", err
	}
	return u.FirstName, u.LastName, nil
}
