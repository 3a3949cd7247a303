package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"Processing", "Pending", "Delivered"} {
		st, err := ParseStatus(s)
		require.NoError(t, err)
		assert.Equal(t, Status(s), st)
	}
	for _, s := range []string{"", "pending", "Shipped", "DELIVERED"} {
		_, err := ParseStatus(s)
		assert.ErrorIs(t, err, ErrInvalidStatus, s)
	}
}

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusProcessing, StatusPending, true},
		{StatusProcessing, StatusDelivered, true},
		{StatusPending, StatusDelivered, true},
		{StatusDelivered, StatusPending, true},
		{StatusProcessing, StatusProcessing, true},
		{StatusDelivered, StatusDelivered, true},
		{StatusPending, StatusProcessing, false},
		{StatusDelivered, StatusProcessing, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := CheckTransition(tt.from, tt.to)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidStatus)
			}
		})
	}
}
