// Package sqlite stores arbitrage records in a local SQLite file, for
// single-user installs that do not run PostgreSQL.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/alanyoungcy/surebet/internal/domain"
)

// DB owns the SQLite handle and the schema.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path. ":memory:" gives a
// throwaway database.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// One connection: SQLite serializes writers anyway, and an in-memory
	// database exists per connection.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS arbitrage_records (
		id TEXT PRIMARY KEY,
		recorded_at INTEGER NOT NULL,
		team1 TEXT NOT NULL DEFAULT '',
		team2 TEXT NOT NULL DEFAULT '',
		sport TEXT NOT NULL DEFAULT '',
		competition TEXT NOT NULL DEFAULT '',
		bookmakers TEXT NOT NULL DEFAULT '[]',
		total_stake REAL,
		total_profit REAL,
		profit_percentage REAL,
		roi REAL,
		arbitrage_percentage REAL,
		status TEXT NOT NULL,
		raw_text TEXT NOT NULL DEFAULT '',
		image_path TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_records_recorded_at ON arbitrage_records(recorded_at);
	CREATE INDEX IF NOT EXISTS idx_records_status ON arbitrage_records(status);

	CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event TEXT NOT NULL,
		detail TEXT,
		created_at INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("sqlite: create tables: %w", err)
	}
	return nil
}

// Ping reports whether the database answers.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Records returns the record store over this database.
func (d *DB) Records() *RecordStore { return &RecordStore{db: d.db} }

// Audit returns the audit store over this database.
func (d *DB) Audit() *AuditStore { return &AuditStore{db: d.db} }

// RecordStore implements domain.RecordStore.
type RecordStore struct {
	db *sql.DB
}

var _ domain.RecordStore = (*RecordStore)(nil)

const recordColumns = `id, recorded_at, team1, team2, sport, competition, bookmakers,
	total_stake, total_profit, profit_percentage, roi, arbitrage_percentage,
	status, raw_text, image_path`

// nullable maps NaN and infinities to NULL; SQLite has no NaN.
func nullable(f float64) sql.NullFloat64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func fromNullable(n sql.NullFloat64) float64 {
	if !n.Valid {
		return math.NaN()
	}
	return n.Float64
}

// Save inserts or replaces a record.
func (s *RecordStore) Save(ctx context.Context, rec domain.ArbitrageRecord) error {
	bms, err := json.Marshal(rec.Bookmakers)
	if err != nil {
		return fmt.Errorf("sqlite: marshal bookmakers for %s: %w", rec.ID, err)
	}
	m := rec.Metrics
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO arbitrage_records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, rec.Timestamp.UnixNano(),
		rec.Match.Team1, rec.Match.Team2, rec.Match.Sport, rec.Match.Competition,
		string(bms),
		nullable(m.TotalStake), nullable(m.TotalProfit), nullable(m.ProfitPercentage),
		nullable(m.ROI), nullable(m.ArbitragePercentage),
		string(rec.Status), rec.RawText, rec.ImagePath,
	)
	if err != nil {
		return fmt.Errorf("sqlite: save record %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns the record with the given ID.
func (s *RecordStore) Get(ctx context.Context, id string) (domain.ArbitrageRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM arbitrage_records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ArbitrageRecord{}, fmt.Errorf("sqlite: record %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.ArbitrageRecord{}, fmt.Errorf("sqlite: get record %s: %w", id, err)
	}
	return rec, nil
}

// List returns records newest first.
func (s *RecordStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.ArbitrageRecord, error) {
	where, args := conditions("recorded_at", opts)
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(opts.Status))
	}
	query := `SELECT ` + recordColumns + ` FROM arbitrage_records` + tail("recorded_at", where, opts, &args)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list records: %w", err)
	}
	defer rows.Close()

	records := []domain.ArbitrageRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete removes the record with the given ID.
func (s *RecordStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM arbitrage_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete record %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sqlite: record %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (domain.ArbitrageRecord, error) {
	var rec domain.ArbitrageRecord
	var ts int64
	var bms, status string
	var stake, profit, pct, roi, arb sql.NullFloat64
	err := row.Scan(
		&rec.ID, &ts,
		&rec.Match.Team1, &rec.Match.Team2, &rec.Match.Sport, &rec.Match.Competition,
		&bms, &stake, &profit, &pct, &roi, &arb,
		&status, &rec.RawText, &rec.ImagePath,
	)
	if err != nil {
		return domain.ArbitrageRecord{}, err
	}
	rec.Timestamp = time.Unix(0, ts).UTC()
	rec.Status = domain.RecordStatus(status)
	rec.Metrics = domain.Metrics{
		TotalStake:          fromNullable(stake),
		TotalProfit:         fromNullable(profit),
		ProfitPercentage:    fromNullable(pct),
		ROI:                 fromNullable(roi),
		ArbitragePercentage: fromNullable(arb),
	}
	if err := json.Unmarshal([]byte(bms), &rec.Bookmakers); err != nil {
		return domain.ArbitrageRecord{}, fmt.Errorf("unmarshal bookmakers: %w", err)
	}
	return rec, nil
}

// AuditStore implements domain.AuditStore.
type AuditStore struct {
	db *sql.DB
}

var _ domain.AuditStore = (*AuditStore)(nil)

// Log appends an audit entry.
func (s *AuditStore) Log(ctx context.Context, event string, detail map[string]any) error {
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("sqlite: marshal audit detail: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_log (event, detail, created_at) VALUES (?, ?, ?)`,
		event, string(detailJSON), time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: log audit event %s: %w", event, err)
	}
	return nil
}

// List returns audit entries newest first.
func (s *AuditStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	where, args := conditions("created_at", opts)
	query := `SELECT id, event, detail, created_at FROM audit_log` + tail("created_at", where, opts, &args)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var detail sql.NullString
		var ts int64
		if err := rows.Scan(&e.ID, &e.Event, &detail, &ts); err != nil {
			return nil, fmt.Errorf("sqlite: scan audit entry: %w", err)
		}
		e.CreatedAt = time.Unix(0, ts).UTC()
		if detail.Valid {
			if err := json.Unmarshal([]byte(detail.String), &e.Detail); err != nil {
				return nil, fmt.Errorf("sqlite: unmarshal audit detail: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func conditions(col string, opts domain.ListOpts) ([]string, []any) {
	var where []string
	var args []any
	if opts.Since != nil {
		where = append(where, col+" >= ?")
		args = append(args, opts.Since.UnixNano())
	}
	if opts.Until != nil {
		where = append(where, col+" <= ?")
		args = append(args, opts.Until.UnixNano())
	}
	return where, args
}

func tail(col string, where []string, opts domain.ListOpts, args *[]any) string {
	var b strings.Builder
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY " + col + " DESC")
	if opts.Limit > 0 || opts.Offset > 0 {
		limit := opts.Limit
		if limit <= 0 {
			limit = -1
		}
		b.WriteString(" LIMIT ? OFFSET ?")
		*args = append(*args, limit, opts.Offset)
	}
	return b.String()
}
