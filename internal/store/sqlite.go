package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS submission_history (
	transaction_id  TEXT NOT NULL,
	sequence        INTEGER NOT NULL,
	submission_data TEXT NOT NULL,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (transaction_id, sequence)
);

CREATE TABLE IF NOT EXISTS analyses (
	id             TEXT PRIMARY KEY,
	tool           TEXT NOT NULL,
	transaction_id TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL,
	quality_score  REAL NOT NULL DEFAULT 0,
	tier           TEXT NOT NULL DEFAULT '',
	duration_ms    INTEGER NOT NULL DEFAULT 0,
	result         TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_analyses_tool_created ON analyses(tool, created_at);
CREATE INDEX IF NOT EXISTS idx_analyses_transaction ON analyses(transaction_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LatestSubmission(ctx context.Context, txID string) (map[string]any, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT submission_data FROM submission_history WHERE transaction_id = ? ORDER BY sequence DESC LIMIT 1`,
		txID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: latest submission %s", txID)
	}
	return decodeDocument([]byte(raw))
}

func (s *SQLiteStore) PutSubmission(ctx context.Context, v SubmissionVersion) (int, error) {
	if v.TransactionID == "" {
		return 0, eris.New("sqlite: put submission: missing transaction id")
	}
	data, err := json.Marshal(v.Data)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: marshal submission")
	}
	now := time.Now().UTC()

	if v.Sequence > 0 {
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO submission_history (transaction_id, sequence, submission_data, created_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT (transaction_id, sequence) DO UPDATE SET submission_data = excluded.submission_data`,
			v.TransactionID, v.Sequence, string(data), now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: put submission %s/%d", v.TransactionID, v.Sequence)
		}
		return v.Sequence, nil
	}

	var seq int
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO submission_history (transaction_id, sequence, submission_data, created_at)
		 SELECT ?, COALESCE(MAX(sequence), 0) + 1, ?, ? FROM submission_history WHERE transaction_id = ?
		 RETURNING sequence`,
		v.TransactionID, string(data), now, v.TransactionID,
	).Scan(&seq)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: append submission %s", v.TransactionID)
	}
	return seq, nil
}

func (s *SQLiteStore) PutSubmissions(ctx context.Context, vs []SubmissionVersion) (int64, error) {
	if err := validateVersions(vs); err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO submission_history (transaction_id, sequence, submission_data, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (transaction_id, sequence) DO UPDATE SET submission_data = excluded.submission_data`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare bulk insert")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	var n int64
	for _, v := range vs {
		data, err := json.Marshal(v.Data)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: marshal submission %s/%d", v.TransactionID, v.Sequence)
		}
		if _, err := stmt.ExecContext(ctx, v.TransactionID, v.Sequence, string(data), now); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert submission %s/%d", v.TransactionID, v.Sequence)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit bulk insert")
	}
	return n, nil
}

func (s *SQLiteStore) ListVersions(ctx context.Context, txID string) ([]SubmissionVersion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT transaction_id, sequence, submission_data, created_at FROM submission_history WHERE transaction_id = ? ORDER BY sequence`,
		txID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list versions %s", txID)
	}
	defer rows.Close() //nolint:errcheck

	var out []SubmissionVersion
	for rows.Next() {
		var v SubmissionVersion
		var raw string
		if err := rows.Scan(&v.TransactionID, &v.Sequence, &raw, &v.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan version")
		}
		if v.Data, err = decodeDocument([]byte(raw)); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list versions iterate")
}

func (s *SQLiteStore) DeleteSubmission(ctx context.Context, txID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM submission_history WHERE transaction_id = ?`, txID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete submission %s", txID)
	}
	return checkRowsAffected(res, "submission", txID)
}

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, rec *AnalysisRecord) error {
	if err := prepareRecord(rec); err != nil {
		return err
	}
	var result any
	if len(rec.Result) > 0 {
		result = string(rec.Result)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, tool, transaction_id, status, quality_score, tier, duration_ms, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Tool, rec.TransactionID, rec.Status, rec.QualityScore, rec.Tier, rec.DurationMs, result, rec.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: save analysis %s", rec.ID)
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]AnalysisRecord, error) {
	var where []string
	var args []any
	if filter.Tool != "" {
		where = append(where, "tool = ?")
		args = append(args, filter.Tool)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.TransactionID != "" {
		where = append(where, "transaction_id = ?")
		args = append(args, filter.TransactionID)
	}
	if !filter.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, filter.Since.UTC())
	}

	query := `SELECT id, tool, transaction_id, status, quality_score, tier, duration_ms, result, created_at FROM analyses`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit, max(filter.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list analyses")
	}
	defer rows.Close() //nolint:errcheck

	var out []AnalysisRecord
	for rows.Next() {
		var r AnalysisRecord
		var result sql.NullString
		if err := rows.Scan(&r.ID, &r.Tool, &r.TransactionID, &r.Status, &r.QualityScore, &r.Tier, &r.DurationMs, &result, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan analysis")
		}
		if result.Valid {
			r.Result = json.RawMessage(result.String)
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list analyses iterate")
}

// helpers

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
