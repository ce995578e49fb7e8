package models

import "time"

// Shop is the tenant. Every item, customer and sale belongs to exactly one shop.
type Shop struct {
	ID           string    `json:"id"`
	OwnerName    string    `json:"owner_name"`
	ShopName     string    `json:"shop_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	Phone        string    `json:"phone"`
	IsPremium    bool      `json:"is_premium"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RegisterRequest represents the request body for shop registration
type RegisterRequest struct {
	OwnerName string `json:"owner_name" validate:"required,max=120"`
	ShopName  string `json:"shop_name" validate:"required,max=120"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	Phone     string `json:"phone" validate:"required,min=10,max=15"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse represents the response after successful authentication
type AuthResponse struct {
	Token string `json:"token"`
	Shop  *Shop  `json:"shop"`
}
