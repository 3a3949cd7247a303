package order

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"

	"github.com/xenking/choco-orders/internal/domain/loyalty"
	"github.com/xenking/choco-orders/internal/domain/offer"
)

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{errors.Wrap(loyalty.ErrInsufficientPoints, "debit"), CodeInsufficientPoints},
		{errors.Wrap(offer.ErrUnavailable, "offer 3"), CodeOfferUnavailable},
		{ErrEmptyCart, CodeEmptyCart},
		{&InvalidItemError{Index: 1, Reason: "bad"}, CodeInvalidItem},
		{ErrInvalidShipping, CodeInvalidShipping},
		{ErrOrderNotFound, CodeOrderNotFound},
		{errors.Wrap(ErrInvalidStatus, "Shipped"), CodeInvalidStatus},
		{loyalty.ErrAccountNotFound, CodeUnknownUser},
		{errors.New("connection refused"), CodeStorage},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Code(tt.err))
		})
	}
}

func TestWrapStorage(t *testing.T) {
	assert.NoError(t, wrapStorage("op", nil))
	assert.Same(t, ErrEmptyCart, wrapStorage("op", ErrEmptyCart))

	cause := errors.New("broken pipe")
	err := wrapStorage("create order", cause)
	var se *StorageError
	assert.ErrorAs(t, err, &se)
	assert.Equal(t, "create order", se.Op)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "create order: storage: broken pipe", err.Error())

	assert.Same(t, se, wrapStorage("outer", se))
}
