package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when the upstream omits a currency code.
const DefaultCurrency = "CAD"

// MaxOffers caps the number of promotional offers copied into a record.
const MaxOffers = 5

// ProductRecord is the canonical, persisted outcome for one search term.
// Found=false records carry no identifiers or prices.
type ProductRecord struct {
	Found              bool                `json:"found"`
	SearchTerm         string              `json:"searchTerm"`
	ProductID          *string             `json:"productId"`
	RetailerProductID  *string             `json:"retailerProductId"`
	Name               string              `json:"name"`
	Brand              *string             `json:"brand"`
	Available          bool                `json:"available"`
	Category           string              `json:"category"`
	ImageURL           *string             `json:"imageUrl"`
	CurrentPrice       decimal.NullDecimal `json:"currentPrice"`
	OriginalPrice      decimal.NullDecimal `json:"originalPrice"`
	DiscountPercentage *int                `json:"discountPercentage,omitempty"`
	UnitPrice          decimal.NullDecimal `json:"unitPrice"`
	UnitLabel          *string             `json:"unitLabel"`
	Currency           string              `json:"currency"`
	Offers             []any               `json:"offers"`
	PrimaryOffer       any                 `json:"primaryOffer,omitempty"`
	NotFoundMessage    *string             `json:"notFoundMessage"`
}

// NotFoundRecord builds the placeholder for a term the upstream did not recognize.
func NotFoundRecord(term string) ProductRecord {
	msg := fmt.Sprintf("The article \"%s\" was not found. It may not be published yet or could be a typo.", term)
	return placeholder(term, fmt.Sprintf("Article Not Found: %s", term), msg)
}

// ErrorRecord builds the placeholder for a term whose processing failed.
func ErrorRecord(term string) ProductRecord {
	return placeholder(term, fmt.Sprintf("Article Not Found: %s", term), "Error processing the article. Please try again.")
}

func placeholder(term, name, msg string) ProductRecord {
	return ProductRecord{
		Found:           false,
		SearchTerm:      term,
		Name:            name,
		Currency:        DefaultCurrency,
		Offers:          []any{},
		NotFoundMessage: &msg,
	}
}

// RawProduct is one weakly-typed product object as returned by the upstream.
type RawProduct map[string]any

// ProductSet keeps raw products keyed by product id in discovery order.
type ProductSet struct {
	keys  []string
	items map[string]RawProduct
}

// NewProductSet returns an empty set.
func NewProductSet() *ProductSet {
	return &ProductSet{items: make(map[string]RawProduct)}
}

// Put stores p under key. Re-putting an existing key replaces the value
// but keeps its original position.
func (s *ProductSet) Put(key string, p RawProduct) {
	if _, ok := s.items[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.items[key] = p
}

// Get returns the product stored under key.
func (s *ProductSet) Get(key string) (RawProduct, bool) {
	p, ok := s.items[key]
	return p, ok
}

// Len reports the number of distinct products.
func (s *ProductSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Keys returns product ids in discovery order.
func (s *ProductSet) Keys() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// First returns up to n products in discovery order.
func (s *ProductSet) First(n int) []RawProduct {
	if s == nil || n <= 0 {
		return nil
	}
	if n > len(s.keys) {
		n = len(s.keys)
	}
	out := make([]RawProduct, 0, n)
	for _, k := range s.keys[:n] {
		out = append(out, s.items[k])
	}
	return out
}

// FetchOutcome tags the result of one upstream product lookup.
type FetchOutcome int

const (
	// OutcomeFound means at least one product was discovered.
	OutcomeFound FetchOutcome = iota
	// OutcomeNoMatch means the upstream answered but did not recognize the term.
	OutcomeNoMatch
	// OutcomeFailed means the lookup itself failed (status, timeout, transport).
	OutcomeFailed
)

func (o FetchOutcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeNoMatch:
		return "no_match"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FetchResult is the tagged outcome of a fetch. Products is non-nil only
// when Outcome is OutcomeFound; Err explains OutcomeFailed and, for
// resource limits, OutcomeNoMatch.
type FetchResult struct {
	Outcome  FetchOutcome
	Products *ProductSet
	Err      error
}

// RegionInfo describes the delivery region bound to an upstream credential.
type RegionInfo struct {
	RegionID       string `json:"regionId"`
	Nickname       string `json:"nickname"`
	DisplayAddress string `json:"displayAddress"`
	PostalCode     string `json:"postalCode"`
}

// Resolved reports whether the region id is usable.
func (r RegionInfo) Resolved() bool {
	return r.RegionID != "" && r.RegionID != UnknownRegionID
}

// UnknownRegionID marks a region that could not be determined.
const UnknownRegionID = "unknown"
