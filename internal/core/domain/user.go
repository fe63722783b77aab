package domain

import "time"

// UserRole determines which transitions a user may perform.
type UserRole string

const (
	RoleEmployee UserRole = "EMPLOYEE"
	RoleManager  UserRole = "MANAGER"
	RoleFinance  UserRole = "FINANCE"
)

// IsValid reports whether r is one of the known roles.
func (r UserRole) IsValid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleFinance:
		return true
	}
	return false
}

// User represents a user of the application in the domain.
type User struct {
	UserID       int64     `json:"userID"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HasRole reports whether the user holds role.
func (u *User) HasRole(role UserRole) bool {
	return u != nil && u.Role == role
}
