package order

import (
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/choco-orders/internal/domain/loyalty"
	"github.com/xenking/choco-orders/internal/domain/offer"
)

// Sentinel errors for order operations.
var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidShipping is returned for a negative shipping addend.
	ErrInvalidShipping = errors.New("shipping must be a non-negative amount in whole cents")
)

// InvalidItemError indicates a line item that cannot be priced.
type InvalidItemError struct {
	Index  int
	Reason string
}

func (e *InvalidItemError) Error() string {
	return fmt.Sprintf("item %d: %s", e.Index, e.Reason)
}

// StorageError wraps a transaction or connectivity failure. The
// transaction has already been rolled back when it is returned.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: storage: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Stable machine-readable error codes.
const (
	CodeInsufficientPoints = "insufficient_points"
	CodeOfferUnavailable   = "offer_unavailable"
	CodeEmptyCart          = "empty_cart"
	CodeInvalidItem        = "invalid_item"
	CodeInvalidShipping    = "invalid_shipping"
	CodeOrderNotFound      = "order_not_found"
	CodeInvalidStatus      = "invalid_status"
	CodeUnknownUser        = "unknown_user"
	CodeStorage            = "storage_error"
)

// Code maps err to its stable code. Unknown errors map to CodeStorage.
func Code(err error) string {
	var itemErr *InvalidItemError
	switch {
	case errors.Is(err, loyalty.ErrInsufficientPoints):
		return CodeInsufficientPoints
	case errors.Is(err, offer.ErrUnavailable):
		return CodeOfferUnavailable
	case errors.Is(err, ErrEmptyCart):
		return CodeEmptyCart
	case errors.As(err, &itemErr):
		return CodeInvalidItem
	case errors.Is(err, ErrInvalidShipping):
		return CodeInvalidShipping
	case errors.Is(err, ErrOrderNotFound):
		return CodeOrderNotFound
	case errors.Is(err, ErrInvalidStatus):
		return CodeInvalidStatus
	case errors.Is(err, loyalty.ErrAccountNotFound):
		return CodeUnknownUser
	default:
		return CodeStorage
	}
}

// wrapStorage passes domain errors through and wraps everything else.
func wrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	if Code(err) != CodeStorage {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
