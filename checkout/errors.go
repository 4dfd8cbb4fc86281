package checkout

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCart means there was nothing to check out.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrPaymentInit wraps gateway failures during initiate. Orders have
	// already been created and stay Pending; the user should retry with
	// another payment method.
	ErrPaymentInit = errors.New("payment initiation failed")

	// ErrCodeMismatch is returned when the operator-supplied code does
	// not match the stored manual payment code.
	ErrCodeMismatch = errors.New("payment codes do not match")
)

// ItemUnavailableError rejects a whole checkout attempt, identifying the
// offending cart line.
type ItemUnavailableError struct {
	ProductName string
	Size        string
}

func (e *ItemUnavailableError) Error() string {
	return fmt.Sprintf("size %s of %s is no longer available", e.Size, e.ProductName)
}
