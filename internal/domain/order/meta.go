package order

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// MetaVersion is the metadata layout written by this build.
const MetaVersion = 1

// DefaultPayment is used when checkout does not name a payment method.
const DefaultPayment = "cod"

// Meta is the 1:1 companion record of an order: delivery contact, payment
// tag, promo details and the point deltas frozen at creation.
//
// The layout is closed. Decoding ignores unknown keys, and rejects layouts
// newer than MetaVersion.
type Meta struct {
	Version       int
	Promo         string
	DiscountLabel string
	Payment       string
	Contact       Contact
	// OfferID echoes the offer applied to the order, if any.
	OfferID *int64
	// PointsSpent is set only when a points-costing offer was redeemed.
	PointsSpent *int64
	// PointsEarned is set for every order placed by a user.
	PointsEarned *int64
}

// Contact holds delivery details.
type Contact struct {
	Name    string
	Phone   string
	Address string
	City    string
	Notes   string
}

// Encode writes m as a JSON object.
func (m Meta) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("version")
	e.Int(m.Version)
	e.FieldStart("promo")
	e.Str(m.Promo)
	e.FieldStart("discountLabel")
	e.Str(m.DiscountLabel)
	e.FieldStart("payment")
	e.Str(m.Payment)
	e.FieldStart("contact")
	m.Contact.Encode(e)
	if m.OfferID != nil {
		e.FieldStart("offerId")
		e.Int64(*m.OfferID)
	}
	if m.PointsSpent != nil {
		e.FieldStart("pointsSpent")
		e.Int64(*m.PointsSpent)
	}
	if m.PointsEarned != nil {
		e.FieldStart("pointsEarned")
		e.Int64(*m.PointsEarned)
	}
	e.ObjEnd()
}

// Decode reads m from a JSON object.
func (m *Meta) Decode(d *jx.Decoder) error {
	*m = Meta{}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "version":
			m.Version, err = d.Int()
		case "promo":
			m.Promo, err = d.Str()
		case "discountLabel":
			m.DiscountLabel, err = d.Str()
		case "payment":
			m.Payment, err = d.Str()
		case "contact":
			err = m.Contact.Decode(d)
		case "offerId":
			m.OfferID, err = decodeOptInt64(d)
		case "pointsSpent":
			m.PointsSpent, err = decodeOptInt64(d)
		case "pointsEarned":
			m.PointsEarned, err = decodeOptInt64(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "decode meta")
	}
	if m.Version == 0 {
		m.Version = MetaVersion
	}
	if m.Version > MetaVersion {
		return errors.Errorf("decode meta: unsupported version %d", m.Version)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (m Meta) MarshalJSON() ([]byte, error) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	m.Encode(e)
	return append([]byte(nil), e.Bytes()...), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Meta) UnmarshalJSON(data []byte) error {
	return m.Decode(jx.DecodeBytes(data))
}

// Encode writes c as a JSON object.
func (c Contact) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("name")
	e.Str(c.Name)
	e.FieldStart("phone")
	e.Str(c.Phone)
	e.FieldStart("address")
	e.Str(c.Address)
	e.FieldStart("city")
	e.Str(c.City)
	e.FieldStart("notes")
	e.Str(c.Notes)
	e.ObjEnd()
}

// Decode reads c from a JSON object. A null contact decodes as empty.
func (c *Contact) Decode(d *jx.Decoder) error {
	*c = Contact{}
	if d.Next() == jx.Null {
		return d.Null()
	}
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			c.Name, err = d.Str()
		case "phone":
			c.Phone, err = d.Str()
		case "address":
			c.Address, err = d.Str()
		case "city":
			c.City, err = d.Str()
		case "notes":
			c.Notes, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
}

func decodeOptInt64(d *jx.Decoder) (*int64, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	v, err := d.Int64()
	if err != nil {
		return nil, err
	}
	return &v, nil
}
