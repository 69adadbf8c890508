package kpi

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/districtopt/core/factory"
	corekpi "github.com/kilianp07/districtopt/core/kpi"
	"github.com/kilianp07/districtopt/core/results"
)

// SQLiteStore persists district KPI tables in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func init() {
	_ = results.RegisterSink("sqlite", func(conf map[string]any) (results.Sink, error) {
		var c struct {
			Path string `json:"path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			return nil, fmt.Errorf("sqlite sink requires path")
		}
		return NewSQLiteStore(c.Path)
	})
}

// NewSQLiteStore opens or creates the database and ensures schema. Writes
// from parallel district workers are serialised on a single connection.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	schema := `CREATE TABLE IF NOT EXISTS district_kpi (
        run_id TEXT,
        district TEXT,
        start INTEGER,
        created INTEGER,
        position INTEGER,
        key TEXT,
        value REAL,
        PRIMARY KEY(run_id, district, key)
    );`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Write stores every KPI row of the record, replacing a previous write of
// the same run and district.
func (s *SQLiteStore) Write(ctx context.Context, r results.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO district_kpi (run_id, district, start, created, position, key, value)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(run_id, district, key) DO UPDATE SET
            value = excluded.value,
            position = excluded.position,
            created = excluded.created`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	now := time.Now().UnixNano()
	for i, row := range r.Summary.Rows() {
		if _, err := stmt.ExecContext(ctx, r.RunID, r.Summary.District, r.Summary.Start.Unix(), now, i, row.Key, row.Value); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Latest returns the run ID and KPI rows of the most recent run of district.
// ok is false when the district has never been stored.
func (s *SQLiteStore) Latest(ctx context.Context, district string) (runID string, rows []corekpi.Row, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT run_id FROM district_kpi WHERE district = ?
        ORDER BY created DESC LIMIT 1`, district).Scan(&runID)
	if err == sql.ErrNoRows {
		return "", nil, false, nil
	}
	if err != nil {
		return "", nil, false, err
	}
	rows, err = s.Query(ctx, runID, district)
	return runID, rows, err == nil, err
}

// Query returns the KPI rows of one run and district in report order.
func (s *SQLiteStore) Query(ctx context.Context, runID, district string) ([]corekpi.Row, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM district_kpi
        WHERE run_id = ? AND district = ? ORDER BY position`, runID, district)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []corekpi.Row
	for rows.Next() {
		var r corekpi.Row
		if err := rows.Scan(&r.Key, &r.Value); err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
