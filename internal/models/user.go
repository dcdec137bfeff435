package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleProfessor UserRole = "PROFESSOR"
	RoleStudent   UserRole = "STUDENT"
)

// User represents an application user stored in the users table.
type User struct {
	ID                  string     `db:"id" json:"id"`
	Email               string     `db:"email" json:"email"`
	PasswordHash        string     `db:"password_hash" json:"-"`
	FullName            string     `db:"full_name" json:"full_name"`
	Role                UserRole   `db:"role" json:"role"`
	Registration        *string    `db:"registration" json:"registration,omitempty"`
	SIAPE               *string    `db:"siape" json:"siape,omitempty"`
	Department          *string    `db:"department" json:"department,omitempty"`
	AcademicCoefficient *float64   `db:"academic_coefficient" json:"academic_coefficient,omitempty"`
	Active              bool       `db:"active" json:"active"`
	LastLogin           *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// Actor identifies the authenticated principal performing an operation.
type Actor struct {
	ID   string
	Role UserRole
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
