package users

import "time"

type User struct {
	ID           string     `bson:"_id,omitempty" json:"id"`
	Username     string     `bson:"username" json:"username"`
	Email        string     `bson:"email,omitempty" json:"email,omitempty"`
	PasswordHash string     `bson:"passwordHash" json:"-"`
	Role         string     `bson:"role" json:"role"`
	LastLoginAt  *time.Time `bson:"lastLoginAt,omitempty" json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time  `bson:"updatedAt" json:"updatedAt"`
}

type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type CreateRequest struct {
	Username string `json:"username" validate:"required,min=3,max=60"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=10,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=admin editor"`
}

type PasswordRequest struct {
	Password string `json:"password" validate:"required,min=10,max=72"`
}
