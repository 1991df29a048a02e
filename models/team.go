package models

import "time"

// Team is owned by the surrounding application; the core only reads it
// for names and for the manager ownership check on withdrawals.
type Team struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	ManagerID int       `json:"manager_id" db:"manager_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
