// Package postgres implements the session repository on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pricecheck/backend/internal/domain"
	"github.com/pricecheck/backend/internal/infrastructure/storage"
)

const defaultMaxConns = 4

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		last_accessed TIMESTAMPTZ NOT NULL,
		total_terms INTEGER NOT NULL DEFAULT 0,
		processed_terms INTEGER NOT NULL DEFAULT 0,
		total_products INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id BIGSERIAL PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions (session_id) ON DELETE CASCADE,
		search_term TEXT NOT NULL,
		found BOOLEAN NOT NULL,
		product_id TEXT,
		retailer_product_id TEXT,
		name TEXT NOT NULL,
		brand TEXT,
		available BOOLEAN NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		image_url TEXT,
		current_price NUMERIC,
		original_price NUMERIC,
		discount_percentage INTEGER,
		unit_price NUMERIC,
		unit_label TEXT,
		currency TEXT NOT NULL,
		offers JSONB,
		primary_offer JSONB,
		not_found_message TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_session_id ON products (session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions (created_at)`,
}

const insertProduct = `
	INSERT INTO products (
		session_id, search_term, found, product_id, retailer_product_id,
		name, brand, available, category, image_url, current_price,
		original_price, discount_percentage, unit_price, unit_label,
		currency, offers, primary_offer, not_found_message
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`

// Repository stores sessions and product records in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// Open connects a pool to dsn and applies the schema. maxConns <= 0 uses a
// small default.
func Open(ctx context.Context, dsn string, maxConns int) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	cfg.MaxConns = int32(maxConns)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	repo := &Repository{pool: pool, now: time.Now}
	if err := repo.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

func (r *Repository) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	return nil
}

// Close releases every pooled connection.
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

// CreateSession inserts a new session sized to totalTerms.
func (r *Repository) CreateSession(ctx context.Context, totalTerms int) (string, error) {
	id := uuid.NewString()
	now := r.now().UTC()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (session_id, created_at, last_accessed, total_terms)
		VALUES ($1, $2, $3, $4)
	`, id, now, now, totalTerms)
	if err != nil {
		return "", fmt.Errorf("%w: insert session: %w", domain.ErrRepository, err)
	}
	return id, nil
}

// GetSession loads one session.
func (r *Repository) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	var s domain.Session
	err := r.pool.QueryRow(ctx, `
		SELECT session_id, created_at, last_accessed, total_terms, processed_terms, total_products
		FROM sessions WHERE session_id = $1
	`, id).Scan(&s.ID, &s.CreatedAt, &s.LastAccessed, &s.TotalTerms, &s.ProcessedTerms, &s.TotalProducts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: get session: %w", domain.ErrRepository, err)
	}
	return &s, nil
}

// UpdateProgress increments the session counters in one statement.
func (r *Repository) UpdateProgress(ctx context.Context, id string, processedDelta, productsDelta int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sessions
		SET processed_terms = processed_terms + $1,
		    total_products = total_products + $2,
		    last_accessed = $3
		WHERE session_id = $4
	`, processedDelta, productsDelta, r.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("%w: update progress: %w", domain.ErrRepository, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// AppendProducts queues every insert in one batch inside a transaction.
func (r *Repository) AppendProducts(ctx context.Context, id string, records []domain.ProductRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", domain.ErrRepository, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `UPDATE sessions SET last_accessed = $1 WHERE session_id = $2`, r.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("%w: touch session: %w", domain.ErrRepository, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}

	b := &pgx.Batch{}
	for _, p := range records {
		offers, err := storage.EncodeOffers(p.Offers)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrRepository, err)
		}
		offer, err := storage.EncodeOffer(p.PrimaryOffer)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrRepository, err)
		}

		b.Queue(insertProduct,
			id, p.SearchTerm, p.Found, p.ProductID, p.RetailerProductID,
			p.Name, p.Brand, p.Available, p.Category, p.ImageURL,
			storage.DecimalArg(p.CurrentPrice), storage.DecimalArg(p.OriginalPrice),
			storage.IntArg(p.DiscountPercentage), storage.DecimalArg(p.UnitPrice), p.UnitLabel,
			p.Currency, offers, offer, p.NotFoundMessage,
		)
	}

	if b.Len() > 0 {
		br := tx.SendBatch(ctx, b)
		for range b.Len() {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("%w: insert product: %w", domain.ErrRepository, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("%w: close batch: %w", domain.ErrRepository, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %w", domain.ErrRepository, err)
	}
	return nil
}

// GetProducts returns every record of a session in insertion order.
func (r *Repository) GetProducts(ctx context.Context, id string) ([]domain.ProductRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT search_term, found, product_id, retailer_product_id, name, brand,
		       available, category, image_url, current_price::text, original_price::text,
		       discount_percentage, unit_price::text, unit_label, currency, offers::text,
		       primary_offer::text, not_found_message
		FROM products WHERE session_id = $1 ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("%w: list products: %w", domain.ErrRepository, err)
	}
	defer rows.Close()

	out := []domain.ProductRecord{}
	for rows.Next() {
		var (
			p                       domain.ProductRecord
			current, original, unit *string
			discount                *int32
			offers, offer           *string
		)
		if err := rows.Scan(
			&p.SearchTerm, &p.Found, &p.ProductID, &p.RetailerProductID, &p.Name, &p.Brand,
			&p.Available, &p.Category, &p.ImageURL, &current, &original,
			&discount, &unit, &p.UnitLabel, &p.Currency, &offers,
			&offer, &p.NotFoundMessage,
		); err != nil {
			return nil, fmt.Errorf("%w: scan product: %w", domain.ErrRepository, err)
		}

		p.CurrentPrice = storage.ParseDecimal(current)
		p.OriginalPrice = storage.ParseDecimal(original)
		p.UnitPrice = storage.ParseDecimal(unit)
		if discount != nil {
			d := int(*discount)
			p.DiscountPercentage = &d
		}
		p.Offers = storage.DecodeOffers(offers)
		p.PrimaryOffer = storage.DecodeOffer(offer)

		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate products: %w", domain.ErrRepository, err)
	}
	return out, nil
}

// GetStats counts found and not-found records of a session.
func (r *Repository) GetStats(ctx context.Context, id string) (domain.SessionStats, error) {
	var stats domain.SessionStats
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE found),
		       COUNT(*) FILTER (WHERE NOT found)
		FROM products WHERE session_id = $1
	`, id).Scan(&stats.Total, &stats.Found, &stats.NotFound)
	if err != nil {
		return domain.SessionStats{}, fmt.Errorf("%w: session stats: %w", domain.ErrRepository, err)
	}
	return stats, nil
}

// DeleteSession removes a session; its records go with it by cascade.
func (r *Repository) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE session_id = $1`, id); err != nil {
		return fmt.Errorf("%w: delete session: %w", domain.ErrRepository, err)
	}
	return nil
}

// DeleteSessionsOlderThan removes sessions created before cutoff.
func (r *Repository) DeleteSessionsOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE created_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: delete expired sessions: %w", domain.ErrRepository, err)
	}
	return int(tag.RowsAffected()), nil
}
