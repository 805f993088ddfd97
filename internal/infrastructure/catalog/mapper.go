package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pricecheck/backend/internal/domain"
	"github.com/shopspring/decimal"
)

// categorySeparator joins the segments of a category path
const categorySeparator = " > "

var hundred = decimal.NewFromInt(100)

// Normalize maps a raw upstream product to the canonical record. It never
// fails; absent or mistyped fields become null or empty defaults.
func Normalize(raw domain.RawProduct, term string) domain.ProductRecord {
	rec := domain.ProductRecord{
		Found:             true,
		SearchTerm:        term,
		ProductID:         optionalString(raw["productId"]),
		RetailerProductID: optionalString(raw["retailerProductId"]),
		Name:              scalarString(raw["name"]),
		Brand:             optionalString(raw["brand"]),
		Currency:          domain.DefaultCurrency,
		Offers:            []any{},
	}

	if available, ok := raw["available"].(bool); ok {
		rec.Available = available
	}

	if image, ok := raw["image"].(map[string]any); ok {
		rec.ImageURL = optionalString(image["src"])
	}

	if path, ok := raw["categoryPath"].([]any); ok {
		segments := make([]string, 0, len(path))
		for _, seg := range path {
			segments = append(segments, scalarString(seg))
		}
		rec.Category = strings.Join(segments, categorySeparator)
	}

	if price, ok := raw["price"].(map[string]any); ok {
		applyPrice(&rec, price)
	}

	if offers, ok := raw["offers"].([]any); ok {
		if len(offers) > domain.MaxOffers {
			offers = offers[:domain.MaxOffers]
		}
		rec.Offers = append(rec.Offers, offers...)
	}

	if offer, ok := raw["offer"]; ok {
		rec.PrimaryOffer = offer
	}

	return rec
}

func applyPrice(rec *domain.ProductRecord, price map[string]any) {
	if current, ok := price["current"].(map[string]any); ok {
		rec.CurrentPrice = parseAmount(current["amount"])
		if currency := scalarString(current["currency"]); currency != "" {
			rec.Currency = currency
		}
	}

	if original, ok := price["original"].(map[string]any); ok {
		rec.OriginalPrice = parseAmount(original["amount"])
	}

	rec.DiscountPercentage = discount(rec.CurrentPrice, rec.OriginalPrice)

	if unit, ok := price["unit"].(map[string]any); ok {
		if current, ok := unit["current"].(map[string]any); ok {
			rec.UnitPrice = parseAmount(current["amount"])
		}
		rec.UnitLabel = optionalString(unit["label"])
	}
}

// discount returns the whole-number percentage saved, or nil unless both
// prices are positive and the original exceeds the current price.
func discount(current, original decimal.NullDecimal) *int {
	if !current.Valid || !original.Valid {
		return nil
	}
	if !current.Decimal.IsPositive() || !original.Decimal.GreaterThan(current.Decimal) {
		return nil
	}

	pct := original.Decimal.Sub(current.Decimal).
		Div(original.Decimal).
		Mul(hundred).
		RoundBank(0)
	n := int(pct.IntPart())
	return &n
}

// parseAmount reads a price that may arrive as a string or a JSON number.
func parseAmount(v any) decimal.NullDecimal {
	var (
		d   decimal.Decimal
		err error
	)
	switch amount := v.(type) {
	case json.Number:
		d, err = decimal.NewFromString(amount.String())
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(amount))
	case float64:
		d = decimal.NewFromFloat(amount)
	case int:
		d = decimal.NewFromInt(int64(amount))
	case int64:
		d = decimal.NewFromInt(amount)
	default:
		return decimal.NullDecimal{}
	}
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// scalarString renders strings and numbers; anything else becomes "".
func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64, int, int64, bool:
		return fmt.Sprint(s)
	default:
		return ""
	}
}

func optionalString(v any) *string {
	s := scalarString(v)
	if s == "" {
		return nil
	}
	return &s
}
