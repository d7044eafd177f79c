package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin  = 1
	RoleViewer = 2
)

type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	RoleID       int       `json:"role_id"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

type Claims struct {
	UserID     int
	Username   string
	UserName   string
	UserRoleID int
	SessionID  string
	jwt.RegisteredClaims
}
