package users

import (
	"time"

	"github.com/google/uuid"
)

// User is an account that can sign in.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UpdateInput carries the editable profile fields. Nil fields are left
// unchanged.
type UpdateInput struct {
	Username *string `json:"username" validate:"omitempty,min=1"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Phone    *string `json:"phone" validate:"omitempty,min=1"`
	Role     *string `json:"role" validate:"omitempty,oneof=superadmin admin cashier"`
}
