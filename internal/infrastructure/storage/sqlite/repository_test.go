package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pricecheck/backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "data", "products.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func strPtr(s string) *string { return &s }

func sampleRecord() domain.ProductRecord {
	discount := 20
	return domain.ProductRecord{
		Found:              true,
		SearchTerm:         "20658152EA",
		ProductID:          strPtr("20658152_EA"),
		RetailerProductID:  strPtr("20658152"),
		Name:               "Bananas",
		Brand:              strPtr("Farm Fresh"),
		Available:          true,
		Category:           "Food > Produce",
		ImageURL:           strPtr("https://img.example.com/b.png"),
		CurrentPrice:       decimal.NewNullDecimal(decimal.RequireFromString("8.00")),
		OriginalPrice:      decimal.NewNullDecimal(decimal.RequireFromString("10.00")),
		DiscountPercentage: &discount,
		UnitPrice:          decimal.NewNullDecimal(decimal.RequireFromString("0.33")),
		UnitLabel:          strPtr("per 100g"),
		Currency:           "CAD",
		Offers:             []any{"2 for $5"},
		PrimaryOffer:       map[string]any{"type": "SALE"},
	}
}

func TestRepository_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	id, err := repo.CreateSession(ctx, 4)
	require.NoError(t, err)
	assert.Len(t, id, 36)

	session, err := repo.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, session.ID)
	assert.Equal(t, 4, session.TotalTerms)
	assert.Equal(t, domain.SessionCreated, session.Status())
	assert.WithinDuration(t, time.Now(), session.CreatedAt, time.Minute)

	require.NoError(t, repo.UpdateProgress(ctx, id, 2, 3))
	require.NoError(t, repo.UpdateProgress(ctx, id, 2, 1))

	session, err = repo.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 4, session.ProcessedTerms)
	assert.Equal(t, 4, session.TotalProducts)
	assert.Equal(t, domain.SessionCompleted, session.Status())
}

func TestRepository_MissingSession(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.GetSession(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))

	err = repo.UpdateProgress(ctx, "missing", 1, 1)
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))

	err = repo.AppendProducts(ctx, "missing", []domain.ProductRecord{domain.NotFoundRecord("x")})
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))

	assert.NoError(t, repo.DeleteSession(ctx, "missing"))
}

func TestRepository_ProductsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	id, err := repo.CreateSession(ctx, 2)
	require.NoError(t, err)

	records := []domain.ProductRecord{sampleRecord(), domain.NotFoundRecord("ghost")}
	require.NoError(t, repo.AppendProducts(ctx, id, records))

	got, err := repo.GetProducts(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	want := sampleRecord()
	assert.Equal(t, want.SearchTerm, first.SearchTerm)
	assert.True(t, first.Found)
	assert.Equal(t, *want.ProductID, *first.ProductID)
	assert.Equal(t, *want.RetailerProductID, *first.RetailerProductID)
	assert.Equal(t, *want.Brand, *first.Brand)
	assert.Equal(t, want.Category, first.Category)
	assert.True(t, first.CurrentPrice.Decimal.Equal(want.CurrentPrice.Decimal))
	assert.True(t, first.OriginalPrice.Decimal.Equal(want.OriginalPrice.Decimal))
	assert.True(t, first.UnitPrice.Decimal.Equal(want.UnitPrice.Decimal))
	require.NotNil(t, first.DiscountPercentage)
	assert.Equal(t, 20, *first.DiscountPercentage)
	assert.Equal(t, []any{"2 for $5"}, first.Offers)
	assert.Equal(t, map[string]any{"type": "SALE"}, first.PrimaryOffer)
	assert.Nil(t, first.NotFoundMessage)

	second := got[1]
	assert.False(t, second.Found)
	assert.Equal(t, "ghost", second.SearchTerm)
	assert.Nil(t, second.ProductID)
	assert.False(t, second.CurrentPrice.Valid)
	assert.Nil(t, second.DiscountPercentage)
	assert.Equal(t, []any{}, second.Offers)
	assert.Nil(t, second.PrimaryOffer)
	require.NotNil(t, second.NotFoundMessage)
	assert.Contains(t, *second.NotFoundMessage, "ghost")

	stats, err := repo.GetStats(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStats{Total: 2, Found: 1, NotFound: 1}, stats)
}

func TestRepository_EmptySession(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	id, _ := repo.CreateSession(ctx, 0)

	products, err := repo.GetProducts(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)

	stats, err := repo.GetStats(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStats{}, stats)

	require.NoError(t, repo.AppendProducts(ctx, id, nil))
}

func TestRepository_DeleteSession(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	keep, _ := repo.CreateSession(ctx, 1)
	drop, _ := repo.CreateSession(ctx, 1)
	require.NoError(t, repo.AppendProducts(ctx, keep, []domain.ProductRecord{sampleRecord()}))
	require.NoError(t, repo.AppendProducts(ctx, drop, []domain.ProductRecord{sampleRecord()}))

	require.NoError(t, repo.DeleteSession(ctx, drop))

	_, err := repo.GetSession(ctx, drop)
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))
	products, err := repo.GetProducts(ctx, drop)
	require.NoError(t, err)
	assert.Empty(t, products)

	products, err = repo.GetProducts(ctx, keep)
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestRepository_DeleteSessionsOlderThan(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	repo.now = func() time.Time { return base.Add(-48 * time.Hour) }
	old, _ := repo.CreateSession(ctx, 1)
	require.NoError(t, repo.AppendProducts(ctx, old, []domain.ProductRecord{sampleRecord()}))

	repo.now = func() time.Time { return base }
	fresh, _ := repo.CreateSession(ctx, 1)

	n, err := repo.DeleteSessionsOlderThan(ctx, base.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = repo.GetSession(ctx, old)
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))
	products, _ := repo.GetProducts(ctx, old)
	assert.Empty(t, products)

	_, err = repo.GetSession(ctx, fresh)
	assert.NoError(t, err)
}

func TestRepository_ConcurrentProgress(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	id, err := repo.CreateSession(ctx, 200)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			records := make([]domain.ProductRecord, 10)
			for j := range records {
				records[j] = domain.NotFoundRecord("term")
			}
			assert.NoError(t, repo.AppendProducts(ctx, id, records))
			assert.NoError(t, repo.UpdateProgress(ctx, id, 10, 10))
		}()
	}
	wg.Wait()

	session, err := repo.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 200, session.ProcessedTerms)
	assert.Equal(t, 200, session.TotalProducts)

	stats, err := repo.GetStats(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 200, stats.Total)
}

func TestRepository_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "products.db")

	repo, err := Open(path)
	require.NoError(t, err)
	id, err := repo.CreateSession(ctx, 3)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = Open(path)
	require.NoError(t, err)
	defer repo.Close()

	session, err := repo.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, session.TotalTerms)
}
