package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"nearby-offers/internal/models"
)

// ValidationError reports the first offer that breaks the offer contract.
type ValidationError struct {
	OfferID    string
	MerchantID string // set for merchant level failures
	Field      string
	Message    string
}

func (e *ValidationError) Error() string {
	if e.MerchantID != "" {
		return fmt.Sprintf("offer %s: merchant %s: invalid '%s': %s", e.OfferID, e.MerchantID, e.Field, e.Message)
	}
	return fmt.Sprintf("offer %s: invalid '%s': %s", e.OfferID, e.Field, e.Message)
}

// InputError reports a document or argument that cannot be read or parsed.
type InputError struct {
	Source string
	Err    error
}

func (e *InputError) Error() string {
	if e.Source == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// IsClientError reports whether err is an InputError or a ValidationError.
func IsClientError(err error) bool {
	var inputErr *InputError
	var validationErr *ValidationError
	return errors.As(err, &inputErr) || errors.As(err, &validationErr)
}

type rawDocument struct {
	Offers json.RawMessage `json:"offers"`
}

type rawOffer struct {
	ID          models.Identifier `json:"id"`
	Title       json.RawMessage   `json:"title"`
	Description json.RawMessage   `json:"description"`
	Category    json.RawMessage   `json:"category"`
	ValidTo     json.RawMessage   `json:"valid_to"`
	Merchants   json.RawMessage   `json:"merchants"`
}

type rawMerchant struct {
	ID       models.Identifier `json:"id"`
	Distance json.RawMessage   `json:"distance"`
}

// Decode parses an offers document and checks every offer against the
// contract the selector relies on. It stops at the first offending offer.
func Decode(data []byte) (models.OfferCollection, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, &InputError{Source: "document", Err: errors.New("document is empty")}
	}
	if data[0] != '{' {
		return nil, &InputError{Source: "document", Err: errors.New("root must be a JSON object")}
	}

	var doc rawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &InputError{Source: "document", Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	if !isArray(doc.Offers) {
		return nil, &InputError{Source: "document", Err: errors.New("'offers' must be a list")}
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(doc.Offers, &raws); err != nil {
		return nil, &InputError{Source: "document", Err: fmt.Errorf("invalid 'offers': %w", err)}
	}

	offers := make(models.OfferCollection, 0, len(raws))
	for i, raw := range raws {
		offer, err := decodeOffer(i, raw)
		if err != nil {
			return nil, err
		}
		offers = append(offers, offer)
	}
	return offers, nil
}

func decodeOffer(index int, data json.RawMessage) (models.Offer, error) {
	if !isObject(data) {
		return models.Offer{}, &ValidationError{
			OfferID: fmt.Sprintf("#%d", index+1),
			Field:   "offers",
			Message: "entry must be an object",
		}
	}

	var raw rawOffer
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.Offer{}, &InputError{Source: "document", Err: err}
	}
	offerID := raw.ID.String()

	category, err := parseCategory(raw.Category)
	if err != nil {
		return models.Offer{}, &ValidationError{OfferID: offerID, Field: "category", Message: err.Error()}
	}

	validTo, validUntil, err := parseValidTo(raw.ValidTo)
	if err != nil {
		return models.Offer{}, &ValidationError{OfferID: offerID, Field: "valid_to", Message: err.Error()}
	}

	merchants, err := decodeMerchants(offerID, raw.Merchants)
	if err != nil {
		return models.Offer{}, err
	}

	return models.Offer{
		ID:          raw.ID,
		Title:       models.RawValue(raw.Title),
		Description: models.RawValue(raw.Description),
		Category:    category,
		RawCategory: models.RawValue(bytes.TrimSpace(raw.Category)),
		ValidTo:     validTo,
		ValidUntil:  validUntil,
		Merchants:   merchants,
	}, nil
}

// parseCategory accepts any integer valued JSON number present in the
// category mapping.
func parseCategory(raw json.RawMessage) (models.CategoryCode, error) {
	var n json.Number
	if !isNumber(raw) || json.Unmarshal(raw, &n) != nil {
		return 0, fmt.Errorf("invalid category %s (doesn't exist in category mapping)", display(raw))
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid category %s (doesn't exist in category mapping)", display(raw))
	}
	code := models.CategoryCode(f)
	if float64(code) != f || !code.Valid() {
		return 0, fmt.Errorf("invalid category %s (doesn't exist in category mapping)", display(raw))
	}
	return code, nil
}

func parseValidTo(raw json.RawMessage) (string, time.Time, error) {
	if len(raw) == 0 {
		return "", time.Time{}, errors.New("is required")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", time.Time{}, fmt.Errorf("must be a date string in YYYY-MM-DD format, got %s", display(raw))
	}
	t, err := ParseDate(s)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%q does not match format YYYY-MM-DD", s)
	}
	return s, t, nil
}

func decodeMerchants(offerID string, raw json.RawMessage) ([]models.Merchant, error) {
	if !isArray(raw) {
		return nil, &ValidationError{OfferID: offerID, Field: "merchants", Message: "must be a non-empty list"}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		return nil, &ValidationError{OfferID: offerID, Field: "merchants", Message: "must be a non-empty list"}
	}

	merchants := make([]models.Merchant, 0, len(items))
	for _, item := range items {
		var m rawMerchant
		if !isObject(item) || json.Unmarshal(item, &m) != nil {
			return nil, &ValidationError{
				OfferID:    offerID,
				MerchantID: models.Identifier(nil).String(),
				Field:      "distance",
				Message:    "merchant must be an object with a numeric distance",
			}
		}
		distance, err := parseDistance(m.Distance)
		if err != nil {
			return nil, &ValidationError{
				OfferID:    offerID,
				MerchantID: m.ID.String(),
				Field:      "distance",
				Message:    err.Error(),
			}
		}
		merchants = append(merchants, models.Merchant{
			ID:       m.ID,
			Distance: distance,
			Raw:      append(json.RawMessage(nil), item...),
		})
	}
	return merchants, nil
}

func parseDistance(raw json.RawMessage) (float64, error) {
	if !isNumber(raw) {
		return 0, errors.New("must be an integer or floating point number")
	}
	text := string(bytes.TrimSpace(raw))
	f, err := strconv.ParseFloat(text, 64)
	if errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("number %s is out of range", text)
	}
	if err != nil {
		return 0, errors.New("must be an integer or floating point number")
	}
	return f, nil
}

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(models.DateLayout, s)
}

// ParseCheckinDate parses the traveler's check-in date.
func ParseCheckinDate(s string) (time.Time, error) {
	s = SanitizeString(s)
	if s == "" {
		return time.Time{}, &InputError{Source: "checkin", Err: errors.New("date is required, use the format YYYY-MM-DD")}
	}
	t, err := ParseDate(s)
	if err != nil {
		return time.Time{}, &InputError{Source: "checkin", Err: fmt.Errorf("incorrect date format %q, use the format YYYY-MM-DD", s)}
	}
	return t, nil
}

// SanitizeString drops control characters and surrounding whitespace.
func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

// isNumber reports whether raw is a JSON number literal. null unmarshals
// into a float64 without error, so the literal is checked first.
func isNumber(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	c := raw[0]
	return c == '-' || (c >= '0' && c <= '9')
}

func display(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "<missing>"
	}
	return string(raw)
}
