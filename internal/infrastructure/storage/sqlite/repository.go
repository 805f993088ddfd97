// Package sqlite implements the session repository on an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pricecheck/backend/internal/domain"
	"github.com/pricecheck/backend/internal/infrastructure/storage"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    session_id TEXT PRIMARY KEY,
    created_at INTEGER NOT NULL,
    last_accessed INTEGER NOT NULL,
    total_terms INTEGER NOT NULL DEFAULT 0,
    processed_terms INTEGER NOT NULL DEFAULT 0,
    total_products INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS products (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
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
    current_price TEXT,
    original_price TEXT,
    discount_percentage INTEGER,
    unit_price TEXT,
    unit_label TEXT,
    currency TEXT NOT NULL,
    offers TEXT,
    primary_offer TEXT,
    not_found_message TEXT,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_products_session_id ON products (session_id);
CREATE INDEX IF NOT EXISTS idx_products_found ON products (found);
CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions (created_at);
`

// Repository stores sessions and product records in SQLite. All access goes
// through a single connection, so writers are serialized.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates the database file if needed and applies the schema.
func Open(path string) (*Repository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db, now: time.Now}
	if err := repo.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *Repository) migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

// CreateSession inserts a new session sized to totalTerms.
func (r *Repository) CreateSession(ctx context.Context, totalTerms int) (string, error) {
	id := uuid.NewString()
	now := r.now().UnixMilli()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, created_at, last_accessed, total_terms)
		VALUES (?, ?, ?, ?)
	`, id, now, now, totalTerms)
	if err != nil {
		return "", fmt.Errorf("%w: insert session: %w", domain.ErrRepository, err)
	}
	return id, nil
}

// GetSession loads one session.
func (r *Repository) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	var (
		s                     domain.Session
		createdAt, lastAccess int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT session_id, created_at, last_accessed, total_terms, processed_terms, total_products
		FROM sessions WHERE session_id = ?
	`, id).Scan(&s.ID, &createdAt, &lastAccess, &s.TotalTerms, &s.ProcessedTerms, &s.TotalProducts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: get session: %w", domain.ErrRepository, err)
	}
	s.CreatedAt = time.UnixMilli(createdAt).UTC()
	s.LastAccessed = time.UnixMilli(lastAccess).UTC()
	return &s, nil
}

// UpdateProgress increments the session counters in one statement.
func (r *Repository) UpdateProgress(ctx context.Context, id string, processedDelta, productsDelta int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET processed_terms = processed_terms + ?,
		    total_products = total_products + ?,
		    last_accessed = ?
		WHERE session_id = ?
	`, processedDelta, productsDelta, r.now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("%w: update progress: %w", domain.ErrRepository, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// AppendProducts stores records in one transaction, preserving their order.
func (r *Repository) AppendProducts(ctx context.Context, id string, records []domain.ProductRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", domain.ErrRepository, err)
	}
	defer tx.Rollback()

	now := r.now().UnixMilli()
	res, err := tx.ExecContext(ctx, `UPDATE sessions SET last_accessed = ? WHERE session_id = ?`, now, id)
	if err != nil {
		return fmt.Errorf("%w: touch session: %w", domain.ErrRepository, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrSessionNotFound
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO products (
			session_id, search_term, found, product_id, retailer_product_id,
			name, brand, available, category, image_url, current_price,
			original_price, discount_percentage, unit_price, unit_label,
			currency, offers, primary_offer, not_found_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: prepare insert: %w", domain.ErrRepository, err)
	}
	defer stmt.Close()

	for _, p := range records {
		offers, err := storage.EncodeOffers(p.Offers)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrRepository, err)
		}
		offer, err := storage.EncodeOffer(p.PrimaryOffer)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrRepository, err)
		}

		_, err = stmt.ExecContext(ctx,
			id, p.SearchTerm, p.Found, p.ProductID, p.RetailerProductID,
			p.Name, p.Brand, p.Available, p.Category, p.ImageURL,
			storage.DecimalArg(p.CurrentPrice), storage.DecimalArg(p.OriginalPrice),
			storage.IntArg(p.DiscountPercentage), storage.DecimalArg(p.UnitPrice), p.UnitLabel,
			p.Currency, offers, offer, p.NotFoundMessage, now,
		)
		if err != nil {
			return fmt.Errorf("%w: insert product: %w", domain.ErrRepository, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", domain.ErrRepository, err)
	}
	return nil
}

// GetProducts returns every record of a session in insertion order.
func (r *Repository) GetProducts(ctx context.Context, id string) ([]domain.ProductRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT search_term, found, product_id, retailer_product_id, name, brand,
		       available, category, image_url, current_price, original_price,
		       discount_percentage, unit_price, unit_label, currency, offers,
		       primary_offer, not_found_message
		FROM products WHERE session_id = ? ORDER BY id
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
			discount                sql.NullInt64
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
		if discount.Valid {
			d := int(discount.Int64)
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
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN found THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN found THEN 0 ELSE 1 END), 0)
		FROM products WHERE session_id = ?
	`, id).Scan(&stats.Total, &stats.Found, &stats.NotFound)
	if err != nil {
		return domain.SessionStats{}, fmt.Errorf("%w: session stats: %w", domain.ErrRepository, err)
	}
	return stats, nil
}

// DeleteSession removes a session and its records. Unknown ids are ignored.
func (r *Repository) DeleteSession(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", domain.ErrRepository, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM products WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("%w: delete products: %w", domain.ErrRepository, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("%w: delete session: %w", domain.ErrRepository, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", domain.ErrRepository, err)
	}
	return nil
}

// DeleteSessionsOlderThan removes sessions created before cutoff together
// with their records.
func (r *Repository) DeleteSessionsOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %w", domain.ErrRepository, err)
	}
	defer tx.Rollback()

	ms := cutoff.UnixMilli()
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM products WHERE session_id IN (SELECT session_id FROM sessions WHERE created_at < ?)
	`, ms); err != nil {
		return 0, fmt.Errorf("%w: delete expired products: %w", domain.ErrRepository, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE created_at < ?`, ms)
	if err != nil {
		return 0, fmt.Errorf("%w: delete expired sessions: %w", domain.ErrRepository, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrRepository, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %w", domain.ErrRepository, err)
	}
	return int(n), nil
}
