// Package storage holds the column encodings shared by the session repositories.
package storage

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// DecimalArg converts a nullable price to a driver argument: nil or its
// exact decimal text.
func DecimalArg(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

// ParseDecimal reads a price column stored as decimal text.
func ParseDecimal(s *string) decimal.NullDecimal {
	if s == nil {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// IntArg converts an optional integer to a driver argument.
func IntArg(n *int) any {
	if n == nil {
		return nil
	}
	return int64(*n)
}

// EncodeOffers marshals the offer list; an empty list is stored as "[]".
func EncodeOffers(offers []any) (string, error) {
	if len(offers) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(offers)
	if err != nil {
		return "", fmt.Errorf("encode offers: %w", err)
	}
	return string(b), nil
}

// DecodeOffers is the inverse of EncodeOffers. Unreadable values decode to
// an empty list.
func DecodeOffers(s *string) []any {
	offers := []any{}
	if s == nil || *s == "" {
		return offers
	}
	if err := json.Unmarshal([]byte(*s), &offers); err != nil || offers == nil {
		return []any{}
	}
	return offers
}

// EncodeOffer marshals the primary offer; nil stays NULL.
func EncodeOffer(offer any) (*string, error) {
	if offer == nil {
		return nil, nil
	}
	b, err := json.Marshal(offer)
	if err != nil {
		return nil, fmt.Errorf("encode primary offer: %w", err)
	}
	s := string(b)
	return &s, nil
}

// DecodeOffer is the inverse of EncodeOffer.
func DecodeOffer(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	var offer any
	if err := json.Unmarshal([]byte(*s), &offer); err != nil {
		return nil
	}
	return offer
}
