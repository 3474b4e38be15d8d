package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the calendar date format used for valid_to and check-in dates.
const DateLayout = "2006-01-02"

// CategoryCode identifies the kind of business behind an offer.
type CategoryCode int

const (
	CategoryRestaurant CategoryCode = 1
	CategoryRetail     CategoryCode = 2
	CategoryHotel      CategoryCode = 3
	CategoryActivity   CategoryCode = 4
)

var categoryNames = map[CategoryCode]string{
	CategoryRestaurant: "Restaurant",
	CategoryRetail:     "Retail",
	CategoryHotel:      "Hotel",
	CategoryActivity:   "Activity",
}

// EligibleCategories lists the categories that can be selected, in the
// order the winner table is flattened.
var EligibleCategories = [...]CategoryCode{
	CategoryRestaurant,
	CategoryRetail,
	CategoryActivity,
}

// Valid reports whether c is part of the category mapping.
func (c CategoryCode) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

// Name returns the human readable category name, or "" for unknown codes.
func (c CategoryCode) Name() string {
	return categoryNames[c]
}

// Eligible reports whether offers of this category may be selected.
// Hotel is a valid category but never eligible.
func (c CategoryCode) Eligible() bool {
	for _, e := range EligibleCategories {
		if c == e {
			return true
		}
	}
	return false
}

func (c CategoryCode) String() string {
	if name := c.Name(); name != "" {
		return name
	}
	return "Category(" + strconv.Itoa(int(c)) + ")"
}

// Identifier is an opaque offer or merchant token. It keeps the raw JSON
// value so numeric and string ids are written back exactly as read.
type Identifier json.RawMessage

// MarshalJSON implements json.Marshaler.
func (id Identifier) MarshalJSON() ([]byte, error) {
	if len(id) == 0 {
		return []byte("null"), nil
	}
	return id, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *Identifier) UnmarshalJSON(data []byte) error {
	*id = append((*id)[:0], data...)
	return nil
}

// String renders the identifier for messages. Absent ids render as "Unknown".
func (id Identifier) String() string {
	trimmed := bytes.TrimSpace(id)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "Unknown"
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	return string(trimmed)
}

// Clone returns a copy that shares no memory with id.
func (id Identifier) Clone() Identifier {
	if id == nil {
		return nil
	}
	return append(Identifier(nil), id...)
}

// RawValue is a JSON value copied from the input document. It is written
// back byte for byte, whatever its JSON type.
type RawValue json.RawMessage

// MarshalJSON implements json.Marshaler. Absent values are written as null.
func (v RawValue) MarshalJSON() ([]byte, error) {
	if len(v) == 0 {
		return []byte("null"), nil
	}
	return v, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *RawValue) UnmarshalJSON(data []byte) error {
	*v = append((*v)[:0], data...)
	return nil
}

// String returns string values unquoted and anything else as raw JSON text.
func (v RawValue) String() string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(v))
}

// Clone returns a copy that shares no memory with v.
func (v RawValue) Clone() RawValue {
	if v == nil {
		return nil
	}
	return append(RawValue(nil), v...)
}

// Text builds a RawValue holding s as a JSON string.
func Text(s string) RawValue {
	b, _ := json.Marshal(s)
	return RawValue(b)
}

// Merchant is a location honouring an offer.
type Merchant struct {
	ID       Identifier
	Distance float64
	// Raw is the merchant object as it appeared in the input document.
	Raw json.RawMessage
}

// MarshalJSON writes the merchant's original fields unchanged.
func (m Merchant) MarshalJSON() ([]byte, error) {
	if len(m.Raw) > 0 {
		return m.Raw, nil
	}
	return json.Marshal(struct {
		ID       Identifier `json:"id"`
		Distance float64    `json:"distance"`
	}{m.ID, m.Distance})
}

// UnmarshalJSON restores a merchant written by MarshalJSON.
func (m *Merchant) UnmarshalJSON(data []byte) error {
	var fields struct {
		ID       Identifier `json:"id"`
		Distance float64    `json:"distance"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	m.ID = fields.ID
	m.Distance = fields.Distance
	m.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Clone returns a deep copy of m.
func (m Merchant) Clone() Merchant {
	m.ID = m.ID.Clone()
	if m.Raw != nil {
		m.Raw = append(json.RawMessage(nil), m.Raw...)
	}
	return m
}

// Offer is a validated promotional deal.
type Offer struct {
	ID          Identifier
	Title       RawValue
	Description RawValue
	Category    CategoryCode
	RawCategory RawValue  // category token as given in the input
	ValidTo     string    // as given in the input
	ValidUntil  time.Time // ValidTo parsed as a UTC date
	Merchants   []Merchant
}

// OfferCollection is the validated root document, in input order.
type OfferCollection []Offer

// SelectedOffer is the projection of an offer kept in the output.
type SelectedOffer struct {
	ID          Identifier
	Title       RawValue
	Description RawValue
	Category    CategoryCode
	RawCategory RawValue
	Merchants   []Merchant
	ValidTo     string
}

// selectedOfferJSON fixes the field order of an output record.
type selectedOfferJSON struct {
	ID          Identifier `json:"id"`
	Title       RawValue   `json:"title"`
	Description RawValue   `json:"description"`
	Category    RawValue   `json:"category"`
	Merchants   []Merchant `json:"merchants"`
	ValidTo     string     `json:"valid_to"`
}

// MarshalJSON writes the record with the category token read from the
// input, falling back to the numeric code.
func (s SelectedOffer) MarshalJSON() ([]byte, error) {
	category := s.RawCategory
	if len(category) == 0 {
		category = RawValue(strconv.Itoa(int(s.Category)))
	}
	return json.Marshal(selectedOfferJSON{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		Category:    category,
		Merchants:   s.Merchants,
		ValidTo:     s.ValidTo,
	})
}

// UnmarshalJSON restores a record written by MarshalJSON.
func (s *SelectedOffer) UnmarshalJSON(data []byte) error {
	var wire selectedOfferJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	var code float64
	if err := json.Unmarshal(wire.Category, &code); err != nil {
		return fmt.Errorf("category: %w", err)
	}
	*s = SelectedOffer{
		ID:          wire.ID,
		Title:       wire.Title,
		Description: wire.Description,
		Category:    CategoryCode(code),
		RawCategory: wire.Category,
		Merchants:   wire.Merchants,
		ValidTo:     wire.ValidTo,
	}
	return nil
}

// Distance returns the distance of the offer's sole merchant.
func (s SelectedOffer) Distance() float64 {
	if len(s.Merchants) == 0 {
		return 0
	}
	return s.Merchants[0].Distance
}

// OutputDocument is the root object written for a selection.
type OutputDocument struct {
	Offers []SelectedOffer `json:"offers"`
}

// NewOutputDocument wraps offers, turning nil into an empty list.
func NewOutputDocument(offers []SelectedOffer) OutputDocument {
	if offers == nil {
		offers = []SelectedOffer{}
	}
	return OutputDocument{Offers: offers}
}

// Encode renders the document as indented JSON terminated by a newline.
func (d OutputDocument) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewOutputDocument(d.Offers)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Catalog is a stored offers document.
type Catalog struct {
	ID         string    `json:"id"` // uuid
	OfferCount int       `json:"offer_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
