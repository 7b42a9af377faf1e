package domain

import "time"

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         UserRole
	CreatedAt    time.Time
}

// Identity is the verified caller handed to services by the identity
// provider. Role claims from clients are never trusted directly.
type Identity struct {
	UserID  string
	IsAdmin bool
}
