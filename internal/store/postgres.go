package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/intake-cli/internal/db"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements are prepared on every new connection.
var preparedStatements = map[string]string{
	"latest_submission": `SELECT submission_data FROM submission_history WHERE transaction_id = $1 ORDER BY sequence DESC LIMIT 1`,
	"put_submission":    `INSERT INTO submission_history (transaction_id, sequence, submission_data, created_at) VALUES ($1, $2, $3, $4) ON CONFLICT (transaction_id, sequence) DO UPDATE SET submission_data = EXCLUDED.submission_data`,
	"insert_analysis":   `INSERT INTO analyses (id, tool, transaction_id, status, quality_score, tier, duration_ms, result, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS submission_history (
	transaction_id  TEXT NOT NULL,
	sequence        INTEGER NOT NULL,
	submission_data JSONB NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (transaction_id, sequence)
);

CREATE TABLE IF NOT EXISTS analyses (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	tool           TEXT NOT NULL,
	transaction_id TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL,
	quality_score  DOUBLE PRECISION NOT NULL DEFAULT 0,
	tier           TEXT NOT NULL DEFAULT '',
	duration_ms    BIGINT NOT NULL DEFAULT 0,
	result         JSONB,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_analyses_tool_created ON analyses(tool, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_analyses_transaction ON analyses(transaction_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) LatestSubmission(ctx context.Context, txID string) (map[string]any, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT submission_data FROM submission_history WHERE transaction_id = $1 ORDER BY sequence DESC LIMIT 1`,
		txID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: latest submission %s", txID)
	}
	return decodeDocument(raw)
}

func (s *PostgresStore) PutSubmission(ctx context.Context, v SubmissionVersion) (int, error) {
	if v.TransactionID == "" {
		return 0, eris.New("postgres: put submission: missing transaction id")
	}
	data, err := json.Marshal(v.Data)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: marshal submission")
	}
	now := time.Now().UTC()

	if v.Sequence > 0 {
		_, err = s.pool.Exec(ctx,
			`INSERT INTO submission_history (transaction_id, sequence, submission_data, created_at) VALUES ($1, $2, $3, $4) ON CONFLICT (transaction_id, sequence) DO UPDATE SET submission_data = EXCLUDED.submission_data`,
			v.TransactionID, v.Sequence, data, now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: put submission %s/%d", v.TransactionID, v.Sequence)
		}
		return v.Sequence, nil
	}

	var seq int
	err = s.pool.QueryRow(ctx,
		`INSERT INTO submission_history (transaction_id, sequence, submission_data, created_at)
		 SELECT $1::text, COALESCE(MAX(sequence), 0) + 1, $2::jsonb, $3 FROM submission_history WHERE transaction_id = $1
		 RETURNING sequence`,
		v.TransactionID, data, now,
	).Scan(&seq)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: append submission %s", v.TransactionID)
	}
	return seq, nil
}

// PutSubmissions bulk-loads explicit versions through a COPY-backed upsert.
func (s *PostgresStore) PutSubmissions(ctx context.Context, vs []SubmissionVersion) (int64, error) {
	if err := validateVersions(vs); err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	rows := make([][]any, 0, len(vs))
	for _, v := range vs {
		data, err := json.Marshal(v.Data)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: marshal submission %s/%d", v.TransactionID, v.Sequence)
		}
		rows = append(rows, []any{v.TransactionID, int32(v.Sequence), data, now})
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "submission_history",
		Columns:      []string{"transaction_id", "sequence", "submission_data", "created_at"},
		ConflictKeys: []string{"transaction_id", "sequence"},
		UpdateCols:   []string{"submission_data"},
	}, rows)
	return n, eris.Wrap(err, "postgres: bulk put submissions")
}

func (s *PostgresStore) ListVersions(ctx context.Context, txID string) ([]SubmissionVersion, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT transaction_id, sequence, submission_data, created_at FROM submission_history WHERE transaction_id = $1 ORDER BY sequence`,
		txID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list versions %s", txID)
	}
	defer rows.Close()

	var out []SubmissionVersion
	for rows.Next() {
		var v SubmissionVersion
		var raw []byte
		if err := rows.Scan(&v.TransactionID, &v.Sequence, &raw, &v.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan version")
		}
		if v.Data, err = decodeDocument(raw); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list versions iterate")
}

func (s *PostgresStore) DeleteSubmission(ctx context.Context, txID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM submission_history WHERE transaction_id = $1`, txID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete submission %s", txID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "submission %s", txID)
	}
	return nil
}

func (s *PostgresStore) SaveAnalysis(ctx context.Context, rec *AnalysisRecord) error {
	if err := prepareRecord(rec); err != nil {
		return err
	}
	var result []byte
	if len(rec.Result) > 0 {
		result = rec.Result
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO analyses (id, tool, transaction_id, status, quality_score, tier, duration_ms, result, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.Tool, rec.TransactionID, rec.Status, rec.QualityScore, rec.Tier, rec.DurationMs, result, rec.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: save analysis %s", rec.ID)
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]AnalysisRecord, error) {
	query := `SELECT id, tool, transaction_id, status, quality_score, tier, duration_ms, result, created_at FROM analyses WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Tool != "" {
		query += fmt.Sprintf(` AND tool = $%d`, argIdx)
		args = append(args, filter.Tool)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.TransactionID != "" {
		query += fmt.Sprintf(` AND transaction_id = $%d`, argIdx)
		args = append(args, filter.TransactionID)
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, filter.Since.UTC())
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list analyses")
	}
	defer rows.Close()

	var out []AnalysisRecord
	for rows.Next() {
		var r AnalysisRecord
		var result []byte
		if err := rows.Scan(&r.ID, &r.Tool, &r.TransactionID, &r.Status, &r.QualityScore, &r.Tier, &r.DurationMs, &result, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan analysis")
		}
		if len(result) > 0 {
			r.Result = json.RawMessage(result)
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list analyses iterate")
}
