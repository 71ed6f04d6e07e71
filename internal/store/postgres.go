package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/logistics-locator/internal/domain"
)

const createEntriesTable = `CREATE TABLE IF NOT EXISTS logistics_entries (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	category   TEXT NOT NULL,
	address    TEXT NOT NULL DEFAULT '',
	latitude   DOUBLE PRECISION,
	longitude  DOUBLE PRECISION,
	contact    TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'active',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

const createNameIndex = `CREATE INDEX IF NOT EXISTS idx_logistics_entries_name ON logistics_entries (name, id)`

const entryColumns = `id, name, category, address, latitude, longitude, contact, status, created_at, updated_at`

// Pool is the subset of *pgxpool.Pool used by Postgres, so tests can
// substitute pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Postgres is a DirectoryStore backed by the logistics_entries table.
type Postgres struct {
	pool Pool
}

// OpenPostgres connects to dsn, verifies the connection and applies the schema.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := NewPostgres(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgres wraps an existing pool. Call Migrate before first use on a new database.
func NewPostgres(pool Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the entries table and its name index if missing.
func (s *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range []string{createEntriesTable, createNameIndex} {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate logistics_entries: %w", err)
		}
	}
	return nil
}

// CheckReadiness pings the database.
func (s *Postgres) CheckReadiness(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Postgres) Close() {
	s.pool.Close()
}

func (s *Postgres) List(ctx context.Context) ([]domain.DirectoryEntry, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+entryColumns+` FROM logistics_entries ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DirectoryEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return out, nil
}

func (s *Postgres) Get(ctx context.Context, id string) (domain.DirectoryEntry, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM logistics_entries WHERE id = $1`, id)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DirectoryEntry{}, domain.ErrEntryNotFound
	}
	if err != nil {
		return domain.DirectoryEntry{}, fmt.Errorf("get entry %s: %w", id, err)
	}
	return e, nil
}

func (s *Postgres) Create(ctx context.Context, e domain.DirectoryEntry) (domain.DirectoryEntry, error) {
	e = e.Clone()
	e.ID = uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO logistics_entries (`+entryColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.Name, e.Category, e.Address, e.Latitude, e.Longitude, e.Contact, string(e.Status), e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return domain.DirectoryEntry{}, fmt.Errorf("insert entry: %w", err)
	}
	return e, nil
}

// Insert stores e under its own ID, replacing any existing row. Used for seeding.
func (s *Postgres) Insert(ctx context.Context, e domain.DirectoryEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO logistics_entries (`+entryColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, category = EXCLUDED.category, address = EXCLUDED.address,
			latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude, contact = EXCLUDED.contact,
			status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`,
		e.ID, e.Name, e.Category, e.Address, e.Latitude, e.Longitude, e.Contact, string(e.Status), e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert entry %s: %w", e.ID, err)
	}
	return nil
}

func (s *Postgres) Update(ctx context.Context, e domain.DirectoryEntry) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE logistics_entries SET name = $2, category = $3, address = $4, latitude = $5, longitude = $6,
			contact = $7, status = $8, updated_at = $9 WHERE id = $1`,
		e.ID, e.Name, e.Category, e.Address, e.Latitude, e.Longitude, e.Contact, string(e.Status), e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update entry %s: %w", e.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM logistics_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func scanEntry(row pgx.Row) (domain.DirectoryEntry, error) {
	var (
		e      domain.DirectoryEntry
		status string
	)
	err := row.Scan(&e.ID, &e.Name, &e.Category, &e.Address, &e.Latitude, &e.Longitude,
		&e.Contact, &status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return domain.DirectoryEntry{}, err
	}
	e.Status = domain.Status(status)
	return e, nil
}
