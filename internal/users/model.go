package users

import (
	"time"

	"github.com/google/uuid"
)

// User is a member of a company. Authentication happens upstream; the
// service keeps the record so it can resolve identities and fan
// notifications out to a company's active members.
type User struct {
	ID           uuid.UUID `json:"id"`
	CompanyID    uuid.UUID `json:"company_id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// InviteUserRequest registers a teammate into the caller's company.
type InviteUserRequest struct {
	FullName string `json:"full_name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email,max=200"`
}
