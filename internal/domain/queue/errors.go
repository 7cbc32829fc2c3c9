package queue

import "fmt"

// ErrLeaseLost indicates the consumer no longer holds the message lease,
// typically because the visibility timeout expired and it was redelivered
type ErrLeaseLost struct {
	MessageID string
}

func (e *ErrLeaseLost) Error() string {
	return fmt.Sprintf("lease lost for message %s", e.MessageID)
}

// ErrDeliveryFailure wraps a processing failure that sends a message back
// for redelivery. It never reaches the request that created the message.
type ErrDeliveryFailure struct {
	MessageID string
	Attempts  int
	Err       error
}

func (e *ErrDeliveryFailure) Error() string {
	return fmt.Sprintf("delivery of message %s failed on attempt %d: %v", e.MessageID, e.Attempts, e.Err)
}

func (e *ErrDeliveryFailure) Unwrap() error {
	return e.Err
}
