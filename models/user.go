package models

import "time"

type UserRole string

const (
	RoleOrganizer UserRole = "organizer"
	RoleManager   UserRole = "manager"
	RolePlayer    UserRole = "player"
)

// User identity is supplied by the surrounding application; the core
// trusts the acting user ID and role and only checks ownership.
type User struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Role      UserRole  `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
