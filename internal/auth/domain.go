package auth

import "github.com/shopmanager/shopmanager/internal/users"

// RegisterInput is the body of POST /auth/register.
type RegisterInput struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=superadmin admin cashier"`
}

// LoginInput is the body of POST /auth/login.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ForgotInput is the body of POST /auth/forgot-password.
type ForgotInput struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetInput is the body of POST /auth/reset-password/{token}.
type ResetInput struct {
	Password string `json:"password" validate:"required,min=6"`
}

// Session is returned by register and login.
type Session struct {
	Token string     `json:"token"`
	User  users.User `json:"user"`
}
