package composer

import (
	"errors"
	"fmt"
)

// Validation failures. Each leaves the order untouched.
var (
	ErrNoCustomer         = errors.New("no customer selected")
	ErrNoProduct          = errors.New("no product selected")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrCapacityExceeded   = errors.New("quantity exceeds available stock")
	ErrInvalidPrice       = errors.New("product has no valid price")
	ErrUnknownFlavor      = errors.New("flavor not offered for product")
	ErrInvalidShippingFee = errors.New("shipping fee cannot be negative")
	ErrNoLines            = errors.New("order has no lines")
	ErrLineNotFound       = errors.New("order line not found")
)

var (
	ErrSubmissionInProgress = errors.New("a submission is already in progress")
	ErrSubmissionFailed     = errors.New("order submission failed")
)

// SubmissionError reports a rejected or failed submission
type SubmissionError struct {
	Reason string
	Err    error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", ErrSubmissionFailed, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrSubmissionFailed, e.Reason)
}

func (e *SubmissionError) Is(target error) bool {
	return target == ErrSubmissionFailed
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// CapacityError carries the stock figures behind ErrCapacityExceeded
type CapacityError struct {
	ProductID string
	Requested int
	Available int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s: product %s requested=%d available=%d",
		ErrCapacityExceeded, e.ProductID, e.Requested, e.Available)
}

func (e *CapacityError) Unwrap() error {
	return ErrCapacityExceeded
}

// IsValidation reports whether err is a local validation failure
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrNoCustomer, ErrNoProduct, ErrInvalidQuantity, ErrCapacityExceeded,
		ErrInvalidPrice, ErrUnknownFlavor, ErrInvalidShippingFee, ErrNoLines, ErrLineNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
