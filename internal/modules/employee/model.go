package employee

import (
	"time"

	"github.com/google/uuid"
)

// Employee is a staff record with an optional store assignment.
type Employee struct {
	ID        uuid.UUID  `json:"id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	DOB       *time.Time `json:"dob,omitempty"`
	HireDate  *time.Time `json:"hire_date,omitempty"`
	StoreID   *uuid.UUID `json:"store_id,omitempty"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CreateEmployeeRequest holds data for creating an employee.
type CreateEmployeeRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	DOB       string `json:"dob,omitempty"`       // YYYY-MM-DD
	HireDate  string `json:"hire_date,omitempty"` // YYYY-MM-DD
	StoreID   string `json:"store_id,omitempty"`
}
