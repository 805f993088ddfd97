package catalog

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/pricecheck/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testExtractor() extractor {
	return extractor{maxDepth: defaultMaxDepth}
}

func TestExtract_NoMarker(t *testing.T) {
	products, err := testExtractor().Extract(`{"results":[]}`, "term")

	require.NoError(t, err)
	assert.Equal(t, 0, products.Len())
}

func TestExtract_StructuredObjects(t *testing.T) {
	body := `{"results":[
		{"productId":"p2","name":"Second","price":{"current":{"amount":"1.99"}}},
		{"productId":"p1","name":"First"},
		{"productId":"p2","name":"Duplicate"}
	]}`

	products, err := testExtractor().Extract(body, "term")
	require.NoError(t, err)

	assert.Equal(t, []string{"p2", "p1"}, products.Keys())
	p2, ok := products.Get("p2")
	require.True(t, ok)
	assert.Equal(t, "Second", p2["name"])
	price := p2["price"].(map[string]any)["current"].(map[string]any)
	assert.Equal(t, "1.99", price["amount"])
}

func TestExtract_KeepsNumbersExact(t *testing.T) {
	products, err := testExtractor().Extract(`[{"productId":"p1","price":{"current":{"amount":4.10}}}]`, "term")
	require.NoError(t, err)

	p1, _ := products.Get("p1")
	amount := p1["price"].(map[string]any)["current"].(map[string]any)["amount"]
	assert.Equal(t, json.Number("4.10"), amount)
}

func TestExtract_TrailingCommaFallsBackToPatterns(t *testing.T) {
	body := `{"productId":"p9","retailerProductId":"R9","name":"Oat \"Barista\" Milk","brand":"Oatly","available":false,"price":{"current":{"amount":"5.49"}},"image":{"src":"https://img/p9.png"},}`

	products, err := testExtractor().Extract(body, "oat")
	require.NoError(t, err)
	require.Equal(t, 1, products.Len())

	raw, ok := products.Get("p9")
	require.True(t, ok)
	assert.Equal(t, "p9", raw["productId"])
	assert.Equal(t, "R9", raw["retailerProductId"])
	assert.Equal(t, `Oat "Barista" Milk`, raw["name"])
	assert.Equal(t, "Oatly", raw["brand"])
	assert.Equal(t, false, raw["available"])
	assert.Equal(t, map[string]any{"src": "https://img/p9.png"}, raw["image"])

	current := raw["price"].(map[string]any)["current"].(map[string]any)
	assert.Equal(t, "5.49", current["amount"])
	assert.Equal(t, domain.DefaultCurrency, current["currency"])

	rec := Normalize(raw, "oat")
	assert.True(t, rec.Found)
	require.NotNil(t, rec.ProductID)
	assert.Equal(t, "p9", *rec.ProductID)
}

func TestExtract_PatternFallbackUnescapesBackslashes(t *testing.T) {
	body := `{"productId":"p1","name":"C:\\Path","x":1,}`

	products, err := testExtractor().Extract(body, "term")
	require.NoError(t, err)

	raw, _ := products.Get("p1")
	assert.Equal(t, `C:\Path`, raw["name"])
	assert.Equal(t, true, raw["available"])
}

func TestExtract_RetailerIDResolvesToProductID(t *testing.T) {
	body := `{"items":[{"retailerProductId":"R1","name":"Bread","sku":{"id":"x"}}]}`

	products, err := testExtractor().Extract(body, "bread")
	require.NoError(t, err)
	assert.Equal(t, []string{retailerKeyPrefix + "R1"}, products.Keys())

	withID := `{"items":[{"retailerProductId":"R1","name":"Bread","productId":5}]}`
	products, err = testExtractor().Extract(withID, "bread")
	require.NoError(t, err)
	assert.Equal(t, []string{retailerKeyPrefix + "R1"}, products.Keys(), "non-string productId is not a key")
}

func TestExtract_BracesInsideStrings(t *testing.T) {
	body := `{"productId":"p1","name":"Curly } brace { name","tags":["a]","b"]}`

	products, err := testExtractor().Extract(body, "term")
	require.NoError(t, err)

	raw, ok := products.Get("p1")
	require.True(t, ok)
	assert.Equal(t, "Curly } brace { name", raw["name"])
	assert.Equal(t, []any{"a]", "b"}, raw["tags"])
}

func TestExtract_UnterminatedObjectYieldsPlaceholder(t *testing.T) {
	body := `{"results":[{"productId":"p1","name":"Cut off`

	products, err := testExtractor().Extract(body, "truncated")
	require.NoError(t, err)
	require.Equal(t, []string{"p1"}, products.Keys())

	raw, _ := products.Get("p1")
	assert.Equal(t, placeholderProduct("p1", "truncated"), raw)
	assert.Equal(t, "Product p1", raw["name"])
	assert.Equal(t, true, raw["available"])
}

func TestExtract_RetailerPlaceholderKeyedByID(t *testing.T) {
	body := `"retailerProductId":"R7"`

	products, err := testExtractor().Extract(body, "R7")
	require.NoError(t, err)
	assert.Equal(t, []string{"R7"}, products.Keys())
}

func TestExtract_TooDeep(t *testing.T) {
	body := `{"productId":"p1","a":` + strings.Repeat(`{"b":`, 10) + `1` + strings.Repeat(`}`, 10) + `}`

	_, err := extractor{maxDepth: 5}.Extract(body, "term")
	assert.True(t, errors.Is(err, domain.ErrTooDeep))

	products, err := extractor{maxDepth: 20}.Extract(body, "term")
	require.NoError(t, err)
	assert.Equal(t, 1, products.Len())
}

func TestEnclosingObject(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"simple", `x{"productId":"a"}y`, `{"productId":"a"}`},
		{"nested", `{"outer":{"productId":"a","in":{"k":1}}}`, `{"productId":"a","in":{"k":1}}`},
		{"escaped quote", `{"productId":"a","n":"say \"}\""}`, `{"productId":"a","n":"say \"}\""}`},
		{"stray bracket", `{"productId":"a","n":]}`, `{"productId":"a","n":]}`},
		{"no opening brace", `"productId":"a"}`, ``},
		{"unterminated", `{"productId":"a"`, ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := strings.Index(tt.body, productIDMarker)
			got, err := testExtractor().enclosingObject(tt.body, pos)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTryStructuredParse(t *testing.T) {
	tests := []struct {
		name string
		obj  string
		ok   bool
	}{
		{"valid", `{"productId":"a"}`, true},
		{"trailing comma", `{"productId":"a",}`, false},
		{"trailing data", `{"productId":"a"} {}`, false},
		{"not an object", `["productId"]`, false},
		{"null", `null`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := tryStructuredParse(tt.obj)
			assert.Equal(t, tt.ok, ok)
		})
	}
}
