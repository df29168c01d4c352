package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sw33tLie/adscope/pkg/estimate"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id                   TEXT PRIMARY KEY,
  started_at           TEXT NOT NULL,
  keyword              TEXT,
  country              TEXT,
  source               TEXT,
  input_count          INTEGER NOT NULL DEFAULT 0,
  estimate_count       INTEGER NOT NULL DEFAULT 0,
  low_confidence_count INTEGER NOT NULL DEFAULT 0,
  total_spend          REAL NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE TABLE IF NOT EXISTS estimates (
  id              INTEGER PRIMARY KEY,
  run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  position        INTEGER NOT NULL,
  advertiser      TEXT NOT NULL,
  industry        TEXT NOT NULL,
  cpc             REAL NOT NULL,
  ctr             REAL NOT NULL,
  conversion_rate REAL NOT NULL,
  spend           REAL NOT NULL,
  reach           REAL NOT NULL,
  roas            REAL NOT NULL,
  note            TEXT
);
CREATE INDEX IF NOT EXISTS idx_estimates_run ON estimates(run_id, position);
CREATE TABLE IF NOT EXISTS low_confidence_ads (
  id         INTEGER PRIMARY KEY,
  run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  position   INTEGER NOT NULL,
  advertiser TEXT NOT NULL,
  ad_text    TEXT NOT NULL,
  confidence REAL NOT NULL,
  note       TEXT
);
CREATE INDEX IF NOT EXISTS idx_low_confidence_run ON low_confidence_ads(run_id, position);
    `); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// SaveRun stores a run with its estimates and low-confidence records in one
// transaction. A missing ID or start time is filled in; counts are derived.
func (d *DB) SaveRun(ctx context.Context, run Run, records []estimate.Record, lows []estimate.LowConfidence) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.StartedAt = run.StartedAt.UTC()
	run.EstimateCount = len(records)
	run.LowConfidenceCount = len(lows)
	run.TotalSpend = 0
	for _, r := range records {
		run.TotalSpend += r.Spend
	}

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return run, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs(id, started_at, keyword, country, source, input_count, estimate_count, low_confidence_count, total_spend) VALUES(?,?,?,?,?,?,?,?,?)`,
		run.ID, run.StartedAt.Format(time.RFC3339), nullIfEmpty(run.Keyword), nullIfEmpty(run.Country), nullIfEmpty(run.Source),
		run.InputCount, run.EstimateCount, run.LowConfidenceCount, run.TotalSpend)
	if err != nil {
		return run, fmt.Errorf("inserting run: %w", err)
	}

	for i, r := range records {
		_, err = tx.ExecContext(ctx, `INSERT INTO estimates(run_id, position, advertiser, industry, cpc, ctr, conversion_rate, spend, reach, roas, note) VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
			run.ID, i, r.Advertiser, r.Industry, r.CPC, r.CTR, r.ConvRate, r.Spend, r.Reach, r.ROAS, nullIfEmpty(r.Note))
		if err != nil {
			return run, fmt.Errorf("inserting estimate %d: %w", i, err)
		}
	}
	for i, l := range lows {
		_, err = tx.ExecContext(ctx, `INSERT INTO low_confidence_ads(run_id, position, advertiser, ad_text, confidence, note) VALUES(?,?,?,?,?,?)`,
			run.ID, i, l.Advertiser, l.AdText, l.Confidence, nullIfEmpty(l.Note))
		if err != nil {
			return run, fmt.Errorf("inserting low-confidence ad %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return run, err
	}
	return run, nil
}

const runColumns = "id, started_at, keyword, country, source, input_count, estimate_count, low_confidence_count, total_spend"

// ListRuns returns the most recent runs first.
func (d *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.QueryContext(ctx, "SELECT "+runColumns+" FROM runs ORDER BY started_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// GetRun returns ErrRunNotFound for unknown ids.
func (d *DB) GetRun(ctx context.Context, id string) (Run, error) {
	row := d.sql.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	return r, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (Run, error) {
	var (
		r                        Run
		startedAt                string
		keyword, country, source sql.NullString
	)
	if err := s.Scan(&r.ID, &startedAt, &keyword, &country, &source, &r.InputCount, &r.EstimateCount, &r.LowConfidenceCount, &r.TotalSpend); err != nil {
		return Run{}, err
	}
	r.StartedAt = parseTime(startedAt)
	r.Keyword = keyword.String
	r.Country = country.String
	r.Source = source.String
	return r, nil
}

// parseTime accepts RFC3339 and the SQLite CURRENT_TIMESTAMP layout.
func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}

// ListEstimates returns a run's estimates in output order.
func (d *DB) ListEstimates(ctx context.Context, runID string) ([]estimate.Record, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT advertiser, industry, cpc, ctr, conversion_rate, spend, reach, roas, note FROM estimates WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []estimate.Record{}
	for rows.Next() {
		var r estimate.Record
		var note sql.NullString
		if err := rows.Scan(&r.Advertiser, &r.Industry, &r.CPC, &r.CTR, &r.ConvRate, &r.Spend, &r.Reach, &r.ROAS, &note); err != nil {
			return nil, err
		}
		r.Note = note.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListLowConfidence returns a run's flagged ads in output order.
func (d *DB) ListLowConfidence(ctx context.Context, runID string) ([]estimate.LowConfidence, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT advertiser, ad_text, confidence, note FROM low_confidence_ads WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []estimate.LowConfidence{}
	for rows.Next() {
		var l estimate.LowConfidence
		var note sql.NullString
		if err := rows.Scan(&l.Advertiser, &l.AdText, &l.Confidence, &note); err != nil {
			return nil, err
		}
		l.Note = note.String
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *DB) GetStats(ctx context.Context) (Stats, error) {
	var s Stats
	err := d.sql.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM runs),
			(SELECT COUNT(*) FROM estimates),
			(SELECT COUNT(*) FROM low_confidence_ads)
	`).Scan(&s.Runs, &s.Estimates, &s.LowConfidence)
	if err != nil {
		return s, err
	}

	query := `
		SELECT
			industry,
			COUNT(*),
			AVG(spend),
			AVG(roas)
		FROM
			estimates
		GROUP BY
			industry
		ORDER BY
			COUNT(*) DESC, industry;
	`
	rows, err := d.sql.QueryContext(ctx, query)
	if err != nil {
		return s, err
	}
	defer rows.Close()

	s.ByIndustry = []IndustryStats{}
	for rows.Next() {
		var is IndustryStats
		if err := rows.Scan(&is.Industry, &is.Ads, &is.AvgSpend, &is.AvgROAS); err != nil {
			return s, err
		}
		s.ByIndustry = append(s.ByIndustry, is)
	}
	return s, rows.Err()
}

// Exec runs a raw statement. Used by the interactive shell.
func (d *DB) Exec(ctx context.Context, query string) (int64, error) {
	res, err := d.sql.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Query runs a raw query and returns the column names and stringified rows.
func (d *DB) Query(ctx context.Context, query string) ([]string, [][]string, error) {
	rows, err := d.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var out [][]string
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			switch t := v.(type) {
			case nil:
				row[i] = "NULL"
			case []byte:
				row[i] = string(t)
			default:
				row[i] = fmt.Sprint(t)
			}
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
