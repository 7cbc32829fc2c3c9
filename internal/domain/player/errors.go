package player

import "fmt"

// ErrUserNotFound indicates a player could not be found
type ErrUserNotFound struct {
	UserID string
}

func (e *ErrUserNotFound) Error() string {
	return fmt.Sprintf("user not found: %s", e.UserID)
}

func (e *ErrUserNotFound) NotFound() bool { return true }

// ErrDuplicateUser indicates the username or email is already registered
type ErrDuplicateUser struct {
	Username string
	Email    string
}

func (e *ErrDuplicateUser) Error() string {
	return fmt.Sprintf("user with username %q or email %q already exists", e.Username, e.Email)
}
