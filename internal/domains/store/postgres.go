package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"ons/internal/domains/models"
	"ons/pkg/platform/sentinel"
)

// uniqueViolation is the Postgres SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// Schema creates the domains table. The partial unique index is what makes
// "one live record per domain" hold across service instances.
const Schema = `
CREATE TABLE IF NOT EXISTS domains (
	id                    UUID PRIMARY KEY,
	domain                TEXT NOT NULL,
	owner_address         TEXT NOT NULL,
	tx_hash               TEXT NOT NULL,
	deletion_tx_hash      TEXT NOT NULL DEFAULT '',
	status                TEXT NOT NULL,
	reason                TEXT NOT NULL DEFAULT '',
	created_at            TIMESTAMPTZ NOT NULL,
	updated_at            TIMESTAMPTZ NOT NULL,
	last_verified_at      TIMESTAMPTZ,
	deletion_requested_at TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS domains_tx_hash_key ON domains (tx_hash);
CREATE UNIQUE INDEX IF NOT EXISTS domains_live_domain_key ON domains (domain)
	WHERE status NOT IN ('deleted', 'rejected');
CREATE INDEX IF NOT EXISTS domains_owner_idx ON domains (owner_address, created_at DESC);
CREATE INDEX IF NOT EXISTS domains_status_idx ON domains (status, last_verified_at);
`

const selectColumns = `id, domain, owner_address, tx_hash, deletion_tx_hash, status, reason,
	created_at, updated_at, last_verified_at, deletion_requested_at`

// Postgres persists records through database/sql and lib/pq.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate applies Schema. It is idempotent.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate domains: %w", err)
	}
	return nil
}

func (s *Postgres) Create(ctx context.Context, rec *models.DomainRecord) error {
	query := `
		INSERT INTO domains (id, domain, owner_address, tx_hash, deletion_tx_hash, status, reason,
			created_at, updated_at, last_verified_at, deletion_requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Domain, rec.OwnerAddress, rec.TxHash, rec.DeletionTxHash, string(rec.Status), rec.Reason,
		rec.CreatedAt, rec.UpdatedAt, nullTime(rec.LastVerifiedAt), nullTime(rec.DeletionRequestedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create domain %s: %w", rec.Domain, sentinel.ErrConflict)
		}
		return fmt.Errorf("create domain %s: %w", rec.Domain, err)
	}
	return nil
}

func (s *Postgres) FindByDomain(ctx context.Context, domain string) (*models.DomainRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM domains WHERE domain = $1 ORDER BY created_at DESC, updated_at DESC LIMIT 1`
	return s.queryOne(ctx, query, domain)
}

func (s *Postgres) Update(ctx context.Context, rec *models.DomainRecord, from models.Status) error {
	query := `
		UPDATE domains SET
			tx_hash = $3,
			deletion_tx_hash = $4,
			status = $5,
			reason = $6,
			updated_at = $7,
			last_verified_at = $8,
			deletion_requested_at = $9
		WHERE id = $1 AND status = $2
	`
	res, err := s.db.ExecContext(ctx, query,
		rec.ID, string(from), rec.TxHash, rec.DeletionTxHash, string(rec.Status), rec.Reason,
		rec.UpdatedAt, nullTime(rec.LastVerifiedAt), nullTime(rec.DeletionRequestedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update domain %s: %w", rec.Domain, sentinel.ErrConflict)
		}
		return fmt.Errorf("update domain %s: %w", rec.Domain, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update domain %s: %w", rec.Domain, err)
	}
	if n == 1 {
		return nil
	}

	// Distinguish a missing row from a lost compare-and-set race.
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM domains WHERE id = $1)`, rec.ID).Scan(&exists); err != nil {
		return fmt.Errorf("update domain %s: %w", rec.Domain, err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return fmt.Errorf("%s moved from %s: %w", rec.Domain, from, sentinel.ErrInvalidState)
}

func (s *Postgres) Resolve(ctx context.Context, domain string) (*models.DomainRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM domains WHERE domain = $1 AND status = 'active'`
	return s.queryOne(ctx, query, domain)
}

func (s *Postgres) ListByAddress(ctx context.Context, address string) ([]*models.DomainRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM domains WHERE owner_address = $1 ORDER BY created_at DESC`
	return s.queryMany(ctx, query, address)
}

func (s *Postgres) Recent(ctx context.Context, limit int) ([]*models.DomainRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM domains WHERE status = 'active' ORDER BY created_at DESC LIMIT $1`
	return s.queryMany(ctx, query, ClampLimit(limit))
}

func (s *Postgres) ListByStatus(ctx context.Context, limit int, statuses ...models.Status) ([]*models.DomainRecord, error) {
	raw := make([]string, len(statuses))
	for i, st := range statuses {
		raw[i] = string(st)
	}
	query := `SELECT ` + selectColumns + ` FROM domains WHERE status = ANY($1)
		ORDER BY last_verified_at ASC NULLS FIRST LIMIT $2`
	return s.queryMany(ctx, query, pq.Array(raw), ClampLimit(limit))
}

func (s *Postgres) Stats(ctx context.Context, since time.Time) (*models.Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(DISTINCT owner_address),
			COUNT(*) FILTER (WHERE created_at >= $1)
		FROM domains WHERE status = 'active'
	`
	stats := &models.Stats{}
	if err := s.db.QueryRowContext(ctx, query, since).Scan(&stats.TotalDomains, &stats.TotalOwners, &stats.RecentRegistrations); err != nil {
		return nil, fmt.Errorf("domain stats: %w", err)
	}
	return stats, nil
}

func (s *Postgres) queryOne(ctx context.Context, query string, args ...any) (*models.DomainRecord, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("query domain: %w", err)
	}
	return rec, nil
}

func (s *Postgres) queryMany(ctx context.Context, query string, args ...any) ([]*models.DomainRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query domains: %w", err)
	}
	defer rows.Close()

	out := make([]*models.DomainRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate domains: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.DomainRecord, error) {
	var (
		rec          models.DomainRecord
		status       string
		lastVerified sql.NullTime
		delRequested sql.NullTime
	)
	err := row.Scan(&rec.ID, &rec.Domain, &rec.OwnerAddress, &rec.TxHash, &rec.DeletionTxHash, &status, &rec.Reason,
		&rec.CreatedAt, &rec.UpdatedAt, &lastVerified, &delRequested)
	if err != nil {
		return nil, err
	}
	rec.Status = models.Status(status)
	if lastVerified.Valid {
		t := lastVerified.Time
		rec.LastVerifiedAt = &t
	}
	if delRequested.Valid {
		t := delRequested.Time
		rec.DeletionRequestedAt = &t
	}
	return &rec, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
