package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/pricecheck/backend/internal/domain"
)

const (
	defaultMaxDepth = 256

	// retailerKeyPrefix tags identifiers discovered through retailerProductId
	retailerKeyPrefix = "retailer_"

	productIDMarker  = `"productId"`
	retailerIDMarker = `"retailerProductId"`
)

// Identifier and field patterns. Response bodies are scanned as text because
// they can be too large or too deeply nested to decode as a whole.
var (
	productIDPattern  = regexp.MustCompile(`"productId"\s*:\s*"([^"]+)"`)
	retailerIDPattern = regexp.MustCompile(`"retailerProductId"\s*:\s*"([^"]+)"`)

	fieldRetailerIDPattern = stringField("retailerProductId")
	fieldNamePattern       = stringField("name")
	fieldBrandPattern      = stringField("brand")
	fieldImagePattern      = stringField("src")
	fieldAvailablePattern  = regexp.MustCompile(`"available"\s*:\s*(true|false)`)
	fieldPricePattern      = regexp.MustCompile(`"current"\s*:\s*\{\s*"amount"\s*:\s*(?:"([^"]+)"|(-?[0-9]+(?:\.[0-9]+)?))`)

	unescaper = strings.NewReplacer(`\\`, `\`, `\"`, `"`)
)

// stringField matches a JSON string member, allowing escaped characters.
func stringField(name string) *regexp.Regexp {
	return regexp.MustCompile(`"` + regexp.QuoteMeta(name) + `"\s*:\s*"([^"\\]*(?:\\.[^"\\]*)*)"`)
}

// candidate is one product identifier discovered in a response body
type candidate struct {
	key      string // set key, retailer ids carry retailerKeyPrefix
	id       string // identifier without prefix
	retailer bool
	pos      int // offset of the first identifier occurrence
}

// extractor isolates and decodes product objects from a raw response body.
type extractor struct {
	maxDepth int
}

// Extract returns every product discoverable in body, in discovery order.
// An empty set means the upstream did not recognize the term. ErrTooDeep is
// returned when an object nests beyond the configured bound.
func (e extractor) Extract(body, term string) (*domain.ProductSet, error) {
	products := domain.NewProductSet()

	if !strings.Contains(body, productIDMarker) && !strings.Contains(body, retailerIDMarker) {
		return products, nil
	}

	candidates := discoverCandidates(body)

	for _, cand := range candidates {
		obj, err := e.enclosingObject(body, cand.pos)
		if err != nil {
			return nil, err
		}
		if obj == "" {
			continue
		}

		raw, ok := tryStructuredParse(obj)
		if ok {
			key := cand.key
			if cand.retailer {
				if real, ok := raw["productId"].(string); ok && real != "" {
					key = real
				}
			}
			products.Put(key, raw)
			continue
		}

		products.Put(cand.key, extractByPattern(obj, cand))
	}

	if products.Len() == 0 {
		for _, cand := range candidates {
			products.Put(cand.id, placeholderProduct(cand.id, term))
		}
	}

	return products, nil
}

// discoverCandidates lists unique product ids in order of first occurrence,
// falling back to retailer ids when no product id is present.
func discoverCandidates(body string) []candidate {
	out := collect(body, productIDPattern, false)
	if len(out) == 0 {
		out = collect(body, retailerIDPattern, true)
	}
	return out
}

func collect(body string, pattern *regexp.Regexp, retailer bool) []candidate {
	seen := make(map[string]struct{})
	var out []candidate
	for _, m := range pattern.FindAllStringSubmatchIndex(body, -1) {
		id := body[m[2]:m[3]]
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		key := id
		if retailer {
			key = retailerKeyPrefix + id
		}
		out = append(out, candidate{key: key, id: id, retailer: retailer, pos: m[0]})
	}
	return out
}

// enclosingObject returns the object text around offset pos: from the nearest
// preceding '{' to its matching '}'. Braces inside string literals are
// ignored. An unterminated object yields "".
func (e extractor) enclosingObject(body string, pos int) (string, error) {
	start := strings.LastIndexByte(body[:pos], '{')
	if start < 0 {
		return "", nil
	}

	// braces decide the object boundary; brackets only count toward nesting
	braces, brackets := 1, 0
	inString, escaped := false, false

	for i := start + 1; i < len(body); i++ {
		ch := body[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			braces++
		case '[':
			brackets++
		case ']':
			if brackets > 0 {
				brackets--
			}
		case '}':
			braces--
			if braces == 0 {
				return body[start : i+1], nil
			}
		}

		if braces+brackets > e.maxDepth {
			return "", fmt.Errorf("%w: more than %d levels", domain.ErrTooDeep, e.maxDepth)
		}
	}

	return "", nil
}

// tryStructuredParse decodes obj as a single JSON object. Numbers are kept
// as json.Number so prices survive without float rounding.
func tryStructuredParse(obj string) (domain.RawProduct, bool) {
	dec := json.NewDecoder(strings.NewReader(obj))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return nil, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, false
	}
	return domain.RawProduct(raw), true
}

// extractByPattern recovers the essential fields of a malformed object
// one regex at a time.
func extractByPattern(obj string, cand candidate) domain.RawProduct {
	id := cand.id
	if m := productIDPattern.FindStringSubmatch(obj); m != nil {
		id = m[1]
	}

	raw := domain.RawProduct{
		"productId":    id,
		"available":    true,
		"categoryPath": []any{},
	}

	if m := fieldRetailerIDPattern.FindStringSubmatch(obj); m != nil {
		raw["retailerProductId"] = unescaper.Replace(m[1])
	}
	if m := fieldNamePattern.FindStringSubmatch(obj); m != nil {
		raw["name"] = unescaper.Replace(m[1])
	}
	if m := fieldBrandPattern.FindStringSubmatch(obj); m != nil {
		raw["brand"] = unescaper.Replace(m[1])
	}
	if m := fieldAvailablePattern.FindStringSubmatch(obj); m != nil {
		raw["available"] = m[1] == "true"
	}

	current := map[string]any{"currency": domain.DefaultCurrency}
	if m := fieldPricePattern.FindStringSubmatch(obj); m != nil {
		if m[1] != "" {
			current["amount"] = m[1]
		} else {
			current["amount"] = json.Number(m[2])
		}
	}
	raw["price"] = map[string]any{"current": current}

	if m := fieldImagePattern.FindStringSubmatch(obj); m != nil {
		raw["image"] = map[string]any{"src": unescaper.Replace(m[1])}
	}

	return raw
}

// placeholderProduct stands in for an identifier whose object could not be
// recovered by either parsing layer.
func placeholderProduct(id, term string) domain.RawProduct {
	return domain.RawProduct{
		"productId":         id,
		"retailerProductId": term,
		"name":              "Product " + id,
		"available":         true,
	}
}
