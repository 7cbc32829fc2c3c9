package resources

import "fmt"

// ErrBalanceNotFound indicates no resource balance exists for the user
type ErrBalanceNotFound struct {
	UserID string
}

func (e *ErrBalanceNotFound) Error() string {
	return fmt.Sprintf("resources not found for user: %s", e.UserID)
}

func (e *ErrBalanceNotFound) NotFound() bool { return true }

// ErrInsufficientResources indicates a deduction larger than the balance.
// The balance is left unchanged when this is returned.
type ErrInsufficientResources struct {
	UserID    string
	Resource  string
	Required  int
	Available int
}

func (e *ErrInsufficientResources) Error() string {
	return fmt.Sprintf("Insufficient %s. Required: %d, Available: %d",
		e.Resource, e.Required, e.Available)
}

// ErrNegativeAmount indicates a credit or debit with a negative amount
type ErrNegativeAmount struct {
	Resource string
	Amount   int
}

func (e *ErrNegativeAmount) Error() string {
	return fmt.Sprintf("%s amount must not be negative, got %d", e.Resource, e.Amount)
}

// ErrTickFailure wraps the reason a single user's tick could not be applied
type ErrTickFailure struct {
	UserID string
	Err    error
}

func (e *ErrTickFailure) Error() string {
	return fmt.Sprintf("tick failed for user %s: %v", e.UserID, e.Err)
}

func (e *ErrTickFailure) Unwrap() error {
	return e.Err
}
