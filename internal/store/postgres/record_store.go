package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/surebet/internal/domain"
)

// RecordStore implements domain.RecordStore using PostgreSQL. Bookmakers are
// kept as a JSONB array; match and metrics get their own columns so the
// dashboard can filter and aggregate on them.
type RecordStore struct {
	pool *pgxpool.Pool
}

var _ domain.RecordStore = (*RecordStore)(nil)

// NewRecordStore creates a new RecordStore backed by the given connection pool.
func NewRecordStore(pool *pgxpool.Pool) *RecordStore {
	return &RecordStore{pool: pool}
}

const recordColumns = `id, recorded_at, team1, team2, sport, competition, bookmakers,
	total_stake, total_profit, profit_percentage, roi, arbitrage_percentage,
	status, raw_text, image_path`

// Save inserts a record or replaces the stored copy with the same ID.
func (s *RecordStore) Save(ctx context.Context, rec domain.ArbitrageRecord) error {
	bms, err := json.Marshal(rec.Bookmakers)
	if err != nil {
		return fmt.Errorf("postgres: marshal bookmakers for %s: %w", rec.ID, err)
	}

	const query = `
		INSERT INTO arbitrage_records (` + recordColumns + `, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
		ON CONFLICT (id) DO UPDATE SET
			recorded_at          = EXCLUDED.recorded_at,
			team1                = EXCLUDED.team1,
			team2                = EXCLUDED.team2,
			sport                = EXCLUDED.sport,
			competition          = EXCLUDED.competition,
			bookmakers           = EXCLUDED.bookmakers,
			total_stake          = EXCLUDED.total_stake,
			total_profit         = EXCLUDED.total_profit,
			profit_percentage    = EXCLUDED.profit_percentage,
			roi                  = EXCLUDED.roi,
			arbitrage_percentage = EXCLUDED.arbitrage_percentage,
			status               = EXCLUDED.status,
			raw_text             = EXCLUDED.raw_text,
			image_path           = EXCLUDED.image_path,
			updated_at           = NOW()`

	m := rec.Metrics
	_, err = s.pool.Exec(ctx, query,
		rec.ID, rec.Timestamp,
		rec.Match.Team1, rec.Match.Team2, rec.Match.Sport, rec.Match.Competition,
		bms,
		m.TotalStake, m.TotalProfit, m.ProfitPercentage, m.ROI, m.ArbitragePercentage,
		string(rec.Status), rec.RawText, rec.ImagePath,
	)
	if err != nil {
		return fmt.Errorf("postgres: save record %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns the record with the given ID.
func (s *RecordStore) Get(ctx context.Context, id string) (domain.ArbitrageRecord, error) {
	const query = `SELECT ` + recordColumns + ` FROM arbitrage_records WHERE id = $1`
	rec, err := scanRecord(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ArbitrageRecord{}, fmt.Errorf("postgres: record %s: %w", id, domain.ErrNotFound)
		}
		return domain.ArbitrageRecord{}, fmt.Errorf("postgres: get record %s: %w", id, err)
	}
	return rec, nil
}

// List returns records newest first, filtered by time window and status.
func (s *RecordStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.ArbitrageRecord, error) {
	f := newFilter("recorded_at", opts)
	if opts.Status != "" {
		f.where("status", "=", string(opts.Status))
	}
	query := `SELECT ` + recordColumns + ` FROM arbitrage_records` + f.sql()

	rows, err := s.pool.Query(ctx, query, f.args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list records: %w", err)
	}
	defer rows.Close()

	records := []domain.ArbitrageRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list records rows: %w", err)
	}
	return records, nil
}

// Delete removes the record with the given ID.
func (s *RecordStore) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM arbitrage_records WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("postgres: delete record %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: record %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanRecord(row pgx.Row) (domain.ArbitrageRecord, error) {
	var rec domain.ArbitrageRecord
	var bms []byte
	var status string
	err := row.Scan(
		&rec.ID, &rec.Timestamp,
		&rec.Match.Team1, &rec.Match.Team2, &rec.Match.Sport, &rec.Match.Competition,
		&bms,
		&rec.Metrics.TotalStake, &rec.Metrics.TotalProfit, &rec.Metrics.ProfitPercentage,
		&rec.Metrics.ROI, &rec.Metrics.ArbitragePercentage,
		&status, &rec.RawText, &rec.ImagePath,
	)
	if err != nil {
		return domain.ArbitrageRecord{}, err
	}
	rec.Status = domain.RecordStatus(status)
	if err := json.Unmarshal(bms, &rec.Bookmakers); err != nil {
		return domain.ArbitrageRecord{}, fmt.Errorf("unmarshal bookmakers: %w", err)
	}
	return rec, nil
}
