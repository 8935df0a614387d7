package order

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInvalidRequest = errors.New("invalid order request")

	ErrProductNotFound   = errors.New("product not found")
	ErrProductInactive   = errors.New("product is inactive")
	ErrInsufficientStock = errors.New("insufficient stock")

	ErrCouponNotFound   = errors.New("invalid coupon code")
	ErrCouponNotStarted = errors.New("coupon has not started yet")
	ErrCouponExpired    = errors.New("coupon has expired")

	ErrOrderNotFound = errors.New("order not found")

	// ErrStorage marks failures of the underlying store (begin/commit, counter, writes).
	ErrStorage = errors.New("storage failure")
)

// StorageError wraps a driver error with the operation that failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsNotFound reports whether err means a referenced entity does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrCouponNotFound) ||
		errors.Is(err, ErrOrderNotFound)
}
