package repository

import (
	"reflect"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/choco-orders/internal/domain/order"
)

// fakeRow feeds fixed column values to a pgx row scanner.
type fakeRow struct {
	values []any
}

func (r fakeRow) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r fakeRow) Values() ([]any, error)                       { return r.values, nil }
func (r fakeRow) RawValues() [][]byte                          { return nil }

func (r fakeRow) Scan(dest ...any) error {
	if len(dest) != len(r.values) {
		return errors.Errorf("scan: %d destinations for %d values", len(dest), len(r.values))
	}
	for i, v := range r.values {
		if v == nil {
			continue
		}
		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(v))
	}
	return nil
}

func orderRow(meta []byte, userID *int64, name, email *string) fakeRow {
	return fakeRow{values: []any{
		int64(1001),
		time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		"Processing",
		decimal.NewFromInt(200),
		decimal.NewFromInt(20),
		decimal.Zero,
		decimal.NewFromInt(180),
		userID, name, email,
		meta,
	}}
}

func storedMeta() *order.Meta {
	offerID, spent, earned := int64(3), int64(100), int64(1)
	return &order.Meta{
		Version:       order.MetaVersion,
		Promo:         "SWEET10",
		DiscountLabel: "10% off",
		Payment:       "card",
		Contact:       order.Contact{Name: "Ana", Phone: "+351", Address: "Rua 1", City: "Porto", Notes: "ring"},
		OfferID:       &offerID,
		PointsSpent:   &spent,
		PointsEarned:  &earned,
	}
}

func TestMetaDocument(t *testing.T) {
	in := storedMeta()

	data, err := encodeMeta(in)
	require.NoError(t, err)

	out, err := decodeMeta(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeMeta(t *testing.T) {
	m, err := decodeMeta([]byte(`{"payment":"card","contact":null,"extra":[1,2]}`))
	require.NoError(t, err)
	assert.Equal(t, order.MetaVersion, m.Version)
	assert.Equal(t, "card", m.Payment)
	assert.Nil(t, m.PointsEarned)

	_, err = decodeMeta([]byte(`{"version":99}`))
	require.Error(t, err)

	_, err = decodeMeta([]byte(`{"payment":1}`))
	require.Error(t, err)
}

func TestScanOrder(t *testing.T) {
	data, err := encodeMeta(storedMeta())
	require.NoError(t, err)

	userID, name, email := int64(7), "Ana", "ana@example.com"
	o, err := scanOrder(orderRow(data, &userID, &name, &email))
	require.NoError(t, err)

	assert.Equal(t, int64(1001), o.ID)
	assert.Equal(t, order.StatusProcessing, o.Status)
	assert.True(t, decimal.NewFromInt(180).Equal(o.Total))
	require.NotNil(t, o.User)
	assert.Equal(t, order.UserSummary{ID: 7, Name: "Ana", Email: "ana@example.com"}, *o.User)
	require.NotNil(t, o.Meta)
	assert.Equal(t, storedMeta(), o.Meta)
}

func TestScanOrder_Guest(t *testing.T) {
	o, err := scanOrder(orderRow(nil, nil, nil, nil))
	require.NoError(t, err)
	assert.Nil(t, o.UserID)
	assert.Nil(t, o.User)
	assert.Nil(t, o.Meta)
}

func TestScanOrder_CorruptMeta(t *testing.T) {
	_, err := scanOrder(orderRow([]byte(`{"version":"x"}`), nil, nil, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order 1001")
}
