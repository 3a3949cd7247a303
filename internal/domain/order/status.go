package order

import "github.com/go-faster/errors"

// Status is the order workflow state. The set is closed and case-sensitive.
type Status string

const (
	// StatusProcessing is set on creation and is never an update target.
	StatusProcessing Status = "Processing"
	StatusPending    Status = "Pending"
	StatusDelivered  Status = "Delivered"
)

// ParseStatus validates a raw status value.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusProcessing, StatusPending, StatusDelivered:
		return st, nil
	default:
		return "", errors.Wrapf(ErrInvalidStatus, "%q", s)
	}
}

// CheckTransition reports whether an order in from may be moved to to.
// Staying in place is always allowed so repeated updates are no-ops.
func CheckTransition(from, to Status) error {
	if from == to {
		return nil
	}
	if to == StatusProcessing {
		return errors.Wrapf(ErrInvalidStatus, "%s -> %s", from, to)
	}
	return nil
}
