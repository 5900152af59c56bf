package identity

import (
	"time"

	"github.com/google/uuid"
)

// User maps to the users table. Patients, doctors, and admins share the
// table and are distinguished by Role.
type User struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Email     string     `db:"email" json:"email"`
	FirstName string     `db:"first_name" json:"first_name"`
	LastName  string     `db:"last_name" json:"last_name"`
	Role      string     `db:"role" json:"role"`
	Phone     *string    `db:"phone" json:"phone,omitempty"`
	Specialty *string    `db:"specialty" json:"specialty,omitempty"`
	BirthDate *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Address   *string    `db:"address" json:"address,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// DisplayName returns the user's full name for client display.
func (u *User) DisplayName() string {
	return u.FirstName + " " + u.LastName
}

// PublicDoctor is the subset of a doctor's record exposed on the public
// booking page.
type PublicDoctor struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Specialty *string   `json:"specialty,omitempty"`
}

// Public strips a doctor record down to its public fields.
func (u *User) Public() PublicDoctor {
	return PublicDoctor{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Specialty: u.Specialty,
	}
}
