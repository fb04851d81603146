package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	ErrInvalidRequest    = fmt.Errorf("invalid request")
	ErrInvalidUserID     = fmt.Errorf("invalid user id")
	ErrUserNotFound      = fmt.Errorf("user not found")
	ErrUserAlreadyExists = fmt.Errorf("User is already present.")

	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = fmt.Errorf("Username and password are incorrect")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")

	ErrTokenMissing        = fmt.Errorf("Invalid or missing token")
	ErrTokenExpired        = fmt.Errorf("Access token expired")
	ErrTokenInvalid        = fmt.Errorf("Login First!")
	ErrTokenRevoked        = fmt.Errorf("Login first")
	ErrTokenAlreadyRevoked = fmt.Errorf("token already revoked")

	// ErrNotCaller rejects a user id that is not the authenticated one.
	ErrNotCaller = fmt.Errorf("user id does not match the authenticated user")

	ErrConnectionClosed       = fmt.Errorf("connection closed")
	ErrConnectionBackpressure = fmt.Errorf("connection buffer is full")
)
