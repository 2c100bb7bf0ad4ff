package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/novarobotics/stormdrain/internal/models"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("error creating database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// each :memory: connection is its own database
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS storm_drains (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			lat REAL NOT NULL,
			lng REAL NOT NULL,
			status TEXT NOT NULL,
			last_checked TEXT NOT NULL DEFAULT '',
			manage_no TEXT NOT NULL DEFAULT '',
			drainage_capacity REAL,
			cri INTEGER,
			updated_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_storm_drains_cri ON storm_drains(cri);
		CREATE INDEX IF NOT EXISTS idx_storm_drains_status ON storm_drains(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Upsert(ctx context.Context, d *models.StormDrain) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO storm_drains (id, name, address, lat, lng, status, last_checked, manage_no, drainage_capacity, cri, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			address = excluded.address,
			lat = excluded.lat,
			lng = excluded.lng,
			status = excluded.status,
			last_checked = excluded.last_checked,
			manage_no = excluded.manage_no,
			drainage_capacity = excluded.drainage_capacity,
			cri = excluded.cri,
			updated_at = excluded.updated_at`,
		d.ID, d.Name, d.Address, d.Lat, d.Lng, string(d.Status), d.LastChecked, d.ManageNo,
		nullFloat(d.DrainageCapacity), nullInt(d.CRI), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("error upserting drain %s: %w", d.ID, err)
	}
	return nil
}

// GetByID returns nil, nil when the drain is not in the snapshot.
func (s *SQLiteDB) GetByID(ctx context.Context, id string) (*models.StormDrain, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+drainColumns+` FROM storm_drains WHERE id = ?`, id)
	d, err := scanDrain(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting drain %s: %w", id, err)
	}
	return d, nil
}

// ListDrains returns drains ordered by risk, highest first; drains without a CRI come last.
func (s *SQLiteDB) ListDrains(ctx context.Context, opts Filter) ([]models.StormDrain, error) {
	var (
		where []string
		args  []any
	)
	if opts.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*opts.Status))
	}
	if opts.MinCRI != nil {
		where = append(where, "cri >= ?")
		args = append(args, *opts.MinCRI)
	}
	if q := strings.TrimSpace(opts.Query); q != "" {
		where = append(where, "(name LIKE ? ESCAPE '\\' OR address LIKE ? ESCAPE '\\' OR manage_no LIKE ? ESCAPE '\\')")
		pattern := "%" + escapeLike(q) + "%"
		args = append(args, pattern, pattern, pattern)
	}

	query := `SELECT ` + drainColumns + ` FROM storm_drains`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY cri IS NULL, cri DESC, id"
	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing drains: %w", err)
	}
	defer rows.Close()

	drains := []models.StormDrain{}
	for rows.Next() {
		d, err := scanDrain(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning drain: %w", err)
		}
		drains = append(drains, *d)
	}
	return drains, rows.Err()
}

func (s *SQLiteDB) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM storm_drains`).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting drains: %w", err)
	}
	return n, nil
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

const drainColumns = `id, name, address, lat, lng, status, last_checked, manage_no, drainage_capacity, cri`

type scanner interface {
	Scan(dest ...any) error
}

func scanDrain(sc scanner) (*models.StormDrain, error) {
	var (
		d        models.StormDrain
		status   string
		capacity sql.NullFloat64
		cri      sql.NullInt64
	)
	err := sc.Scan(&d.ID, &d.Name, &d.Address, &d.Lat, &d.Lng, &status, &d.LastChecked, &d.ManageNo, &capacity, &cri)
	if err != nil {
		return nil, err
	}
	d.Status = models.DrainStatus(status)
	if capacity.Valid {
		d.DrainageCapacity = &capacity.Float64
	}
	if cri.Valid {
		v := int(cri.Int64)
		d.CRI = &v
	}
	return &d, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
