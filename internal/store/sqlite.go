// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mlnoga/rainbow/internal/batch"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Run and fit storage in a SQLite database
type SQLite struct {
	db *sql.DB
}

// Opens a SQLite database at the given path and configures WAL mode
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLite{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	model      TEXT NOT NULL,
	total      INTEGER NOT NULL DEFAULT 0,
	failed     INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS fits (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	idx        INTEGER NOT NULL,
	object_id  TEXT NOT NULL DEFAULT '',
	n          INTEGER NOT NULL,
	status     TEXT NOT NULL,
	result     TEXT,
	peak       TEXT,
	color      TEXT NOT NULL DEFAULT '',
	error      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_fits_run_id ON fits(run_id);
CREATE INDEX IF NOT EXISTS idx_fits_object_id ON fits(object_id);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *SQLite) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) CreateRun(ctx context.Context, m RunModel) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	modelJSON, err := json.Marshal(m)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal model")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, model, created_at) VALUES (?, ?, ?)`,
		id, string(modelJSON), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return &Run{ID: id, Model: m, CreatedAt: now}, nil
}

// Stores the outcomes of a batch in one transaction, and adds them to the
// run's totals
func (s *SQLite) SaveOutcomes(ctx context.Context, runID string, outs []batch.Outcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO fits (id, run_id, idx, object_id, n, status, result, peak, color, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare fit insert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	failed := 0
	for _, o := range outs {
		status := FitStatusOK
		switch {
		case o.Filled:
			status = FitStatusFilled
			failed++
		case o.Err != nil || o.Error != "":
			status = FitStatusFailed
			failed++
		}
		resultJSON, err := nullJSON(o.Result)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal result %d", o.Index)
		}
		peakJSON, err := nullJSON(o.Peak)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal peak %d", o.Index)
		}
		_, err = stmt.ExecContext(ctx, uuid.New().String(), runID, o.Index, o.ID, o.N,
			string(status), resultJSON, peakJSON, o.Color, o.Error, now)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert fit %d of run %s", o.Index, runID)
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE runs SET total = total + ?, failed = failed + ? WHERE id = ?`,
		len(outs), failed, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run %s", runID)
	}
	if err := checkRowsAffected(res, "run", runID); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (s *SQLite) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, model, total, failed, created_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

// Most recent runs first, at most limit of them
func (s *SQLite) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, model, total, failed, created_at FROM runs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// Fits of a run in batch order
func (s *SQLite) ListFits(ctx context.Context, runID string) ([]Fit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, idx, object_id, n, status, result, peak, color, error, created_at
		 FROM fits WHERE run_id = ? ORDER BY idx`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list fits of run %s", runID)
	}
	defer rows.Close()

	var fits []Fit
	for rows.Next() {
		var f Fit
		var status string
		var resultJSON, peakJSON sql.NullString
		err := rows.Scan(&f.ID, &f.RunID, &f.Index, &f.ObjectID, &f.N, &status,
			&resultJSON, &peakJSON, &f.Color, &f.Error, &f.CreatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan fit")
		}
		f.Status = FitStatus(status)
		if resultJSON.Valid {
			if err := json.Unmarshal([]byte(resultJSON.String), &f.Result); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal result")
			}
		}
		if peakJSON.Valid {
			if err := json.Unmarshal([]byte(peakJSON.String), &f.Peak); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal peak")
			}
		}
		fits = append(fits, f)
	}
	return fits, eris.Wrap(rows.Err(), "sqlite: list fits iterate")
}

func nullJSON[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var r Run
	var modelJSON string
	err := row.Scan(&r.ID, &modelJSON, &r.Total, &r.Failed, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "run")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if err := json.Unmarshal([]byte(modelJSON), &r.Model); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal model")
	}
	return &r, nil
}
