package sqlrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"homesquare/internal/domain"
)

// savedAtLayout is ISO 8601 with microseconds and no zone; values are UTC.
const savedAtLayout = "2006-01-02T15:04:05.000000"

func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func ptrF64(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	return &n.Float64
}

type Repo struct {
	db     *sql.DB
	driver string
}

// Open connects with the named driver ("mysql" or "sqlite") and verifies
// the connection.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("sqlrepo: unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlrepo: open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// one writer; also keeps :memory: databases alive across calls
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlrepo: ping %s: %w", driver, err)
	}
	return db, nil
}

func New(db *sql.DB, driver string) *Repo { return &Repo{db: db, driver: driver} }

// EnsureSchema creates the saved_listings table if it does not exist.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	stmts := sqliteSchemaSQL
	if r.driver == "mysql" {
		stmts = []string{mysqlSchemaSQL}
	}
	for _, s := range stmts {
		if _, err := r.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("sqlrepo: ensure schema: %w", err)
		}
	}
	return nil
}

func (r *Repo) Insert(ctx context.Context, s domain.SavedListing) (int64, error) {
	res, err := r.db.ExecContext(ctx, insertSavedSQL,
		s.URL,
		s.Address,
		valF64(s.Price),
		valF64(s.EstimatedPrice),
		s.Confidence,
		s.Label,
		s.SavedAt.UTC().Format(savedAtLayout),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repo) List(ctx context.Context) ([]domain.SavedListing, error) {
	rows, err := r.db.QueryContext(ctx, listSavedSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.SavedListing{}
	for rows.Next() {
		var (
			s          domain.SavedListing
			price, est sql.NullFloat64
			conf       sql.NullFloat64
			savedAt    string
		)
		if err := rows.Scan(&s.ID, &s.URL, &s.Address, &price, &est, &conf, &s.Label, &savedAt); err != nil {
			return nil, err
		}
		s.Price = ptrF64(price)
		s.EstimatedPrice = ptrF64(est)
		s.Confidence = conf.Float64
		s.SavedAt = parseSavedAt(savedAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, deleteSavedSQL, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: saved listing %d", domain.ErrNotFound, id)
	}
	return nil
}

// parseSavedAt also accepts rows written without fractional seconds.
func parseSavedAt(s string) time.Time {
	for _, layout := range []string{savedAtLayout, "2006-01-02T15:04:05", time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
