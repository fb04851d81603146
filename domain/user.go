// Package domain contains core concepts of the chat system.
// This file defines the User entity as it is exposed to clients.
package domain

import "time"

type UserID = string

// User never carries the password hash outside the repository layer.
type User struct {
	ID        UserID    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Picture   string    `json:"picture,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Credentials is the login view of a user, only handed to the credential service.
type Credentials struct {
	User         User
	PasswordHash string
}
