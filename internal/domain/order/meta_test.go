package order

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeta_EncodeOmitsUnsetOptionals(t *testing.T) {
	m := Meta{Version: MetaVersion, Payment: DefaultPayment, Contact: Contact{Name: "Ana"}}

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"version": 1,
		"promo": "",
		"discountLabel": "",
		"payment": "cod",
		"contact": {"name": "Ana", "phone": "", "address": "", "city": "", "notes": ""}
	}`, string(data))
}

func TestMeta_Decode(t *testing.T) {
	var m Meta
	err := json.Unmarshal([]byte(`{
		"promo": "SWEET10",
		"discountLabel": "SWEET10 (10%)",
		"payment": "card",
		"contact": {"name": "Ana", "city": "Porto", "extra": [1, 2]},
		"offerId": 3,
		"pointsSpent": null,
		"pointsEarned": 4,
		"legacy": {"nested": true}
	}`), &m)
	require.NoError(t, err)

	assert.Equal(t, MetaVersion, m.Version)
	assert.Equal(t, "SWEET10", m.Promo)
	assert.Equal(t, "card", m.Payment)
	assert.Equal(t, "Porto", m.Contact.City)
	require.NotNil(t, m.OfferID)
	assert.Equal(t, int64(3), *m.OfferID)
	assert.Nil(t, m.PointsSpent)
	require.NotNil(t, m.PointsEarned)
	assert.Equal(t, int64(4), *m.PointsEarned)
}

func TestMeta_DecodeNullContact(t *testing.T) {
	var m Meta
	require.NoError(t, json.Unmarshal([]byte(`{"version": 1, "contact": null}`), &m))
	assert.Equal(t, Contact{}, m.Contact)
}

func TestMeta_DecodeRejectsNewerVersion(t *testing.T) {
	var m Meta
	err := json.Unmarshal([]byte(`{"version": 2}`), &m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported version")
}

func TestMeta_RoundTripKeepsPoints(t *testing.T) {
	spent, earned := int64(8), int64(1)
	in := Meta{
		Version:       MetaVersion,
		Promo:         "CHOCO8",
		DiscountLabel: "CHOCO8 (5.00 off)",
		Payment:       "cod",
		Contact:       Contact{Name: "Ana", Phone: "1", Address: "Rua 1", City: "Porto", Notes: "ring twice"},
		PointsSpent:   &spent,
		PointsEarned:  &earned,
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Meta
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}
