package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/loomhaven/order-cli/internal/db"
	"github.com/loomhaven/order-cli/internal/model"
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

const (
	insertMergeRunSQL = `INSERT INTO merge_runs
	 (id, slip_file, shipping_file, shipping_pages, label_pages, matched, missing, entries, warnings, created_at)
	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	getMergeRunSQL = `SELECT id, slip_file, shipping_file, shipping_pages, label_pages, matched, missing, entries, warnings, created_at
	 FROM merge_runs WHERE id = $1`

	enqueuePushSQL = `INSERT INTO failed_pushes
	 (id, order_id, payload, error, error_type, retry_count, max_retries, next_retry_at, created_at, last_failed_at)
	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	 ON CONFLICT (id) DO UPDATE SET
	   error = $4, error_type = $5, retry_count = $6,
	   next_retry_at = $8, last_failed_at = $10`
)

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_merge_run": insertMergeRunSQL,
	"get_merge_run":    getMergeRunSQL,
	"enqueue_push":     enqueuePushSQL,
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
CREATE TABLE IF NOT EXISTS order_lines (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source_file        TEXT NOT NULL,
	position           INTEGER NOT NULL DEFAULT 0,
	order_id           TEXT NOT NULL,
	order_date         TEXT NOT NULL DEFAULT '',
	buyer_name         TEXT NOT NULL DEFAULT '',
	quantity           INTEGER NOT NULL DEFAULT 1,
	blanket_color      TEXT NOT NULL DEFAULT '',
	thread_color       TEXT NOT NULL DEFAULT '',
	customization_name TEXT NOT NULL DEFAULT '',
	beanie             BOOLEAN NOT NULL DEFAULT FALSE,
	gift_box           BOOLEAN NOT NULL DEFAULT FALSE,
	gift_note          BOOLEAN NOT NULL DEFAULT FALSE,
	gift_message       TEXT NOT NULL DEFAULT '',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS merge_runs (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	slip_file      TEXT NOT NULL,
	shipping_file  TEXT NOT NULL,
	shipping_pages INTEGER NOT NULL DEFAULT 0,
	label_pages    INTEGER NOT NULL DEFAULT 0,
	matched        INTEGER NOT NULL DEFAULT 0,
	missing        INTEGER NOT NULL DEFAULT 0,
	entries        JSONB NOT NULL,
	warnings       JSONB,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS failed_pushes (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	order_id       TEXT NOT NULL,
	payload        BYTEA NOT NULL,
	error          TEXT NOT NULL,
	error_type     TEXT NOT NULL DEFAULT 'transient',
	retry_count    INTEGER NOT NULL DEFAULT 0,
	max_retries    INTEGER NOT NULL DEFAULT 3,
	next_retry_at  TIMESTAMPTZ NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_failed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_order_lines_source_file ON order_lines(source_file);
CREATE INDEX IF NOT EXISTS idx_order_lines_order_id ON order_lines(order_id);
CREATE INDEX IF NOT EXISTS idx_merge_runs_created_at ON merge_runs(created_at);
CREATE INDEX IF NOT EXISTS idx_failed_pushes_error_type ON failed_pushes(error_type);
CREATE INDEX IF NOT EXISTS idx_failed_pushes_next_retry ON failed_pushes(next_retry_at);
`

// lineColumns is the COPY column list for bulk order line inserts; rows built
// in ReplaceOrderLines must match it positionally.
var lineColumns = []string{
	"id", "source_file", "position", "order_id", "order_date", "buyer_name", "quantity",
	"blanket_color", "thread_color", "customization_name", "beanie", "gift_box", "gift_note", "gift_message", "created_at",
}

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

func (s *PostgresStore) ReplaceOrderLines(ctx context.Context, sourceFile string, lines []model.OrderLine) ([]model.StoredOrderLine, error) {
	now := time.Now().UTC()
	stored := make([]model.StoredOrderLine, 0, len(lines))
	rows := make([][]any, 0, len(lines))
	for i, line := range lines {
		id := uuid.New().String()
		rows = append(rows, []any{
			id, sourceFile, i, line.OrderID, line.OrderDate, line.BuyerName, line.Quantity,
			line.BlanketColor, line.ThreadColor, line.CustomizationName,
			line.Beanie, line.GiftBox, line.GiftNote, line.GiftMessage, now,
		})
		stored = append(stored, model.StoredOrderLine{
			ID:         id,
			SourceFile: sourceFile,
			CreatedAt:  now,
			OrderLine:  line,
		})
	}

	if _, err := db.ReplaceRows(ctx, s.pool, "order_lines", "source_file", sourceFile, lineColumns, rows); err != nil {
		return nil, eris.Wrapf(err, "postgres: replace lines for %s", sourceFile)
	}
	return stored, nil
}

func (s *PostgresStore) ListOrderLines(ctx context.Context, filter LineFilter) ([]model.StoredOrderLine, error) {
	query := `SELECT id, source_file, order_id, order_date, buyer_name, quantity,
	                 blanket_color, thread_color, customization_name, beanie, gift_box, gift_note, gift_message, created_at
	          FROM order_lines WHERE 1=1`
	var args []any
	argIdx := 1

	if filter.OrderID != "" {
		query += fmt.Sprintf(` AND order_id = $%d`, argIdx)
		args = append(args, filter.OrderID)
		argIdx++
	}
	if filter.BuyerName != "" {
		query += fmt.Sprintf(` AND buyer_name = $%d`, argIdx)
		args = append(args, filter.BuyerName)
		argIdx++
	}
	if filter.SourceFile != "" {
		query += fmt.Sprintf(` AND source_file = $%d`, argIdx)
		args = append(args, filter.SourceFile)
		argIdx++
	}
	query += ` ORDER BY created_at ASC, source_file ASC, position ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 500
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
		return nil, eris.Wrap(err, "postgres: list lines")
	}
	defer rows.Close()

	var lines []model.StoredOrderLine
	for rows.Next() {
		var l model.StoredOrderLine
		if err := rows.Scan(&l.ID, &l.SourceFile, &l.OrderID, &l.OrderDate, &l.BuyerName, &l.Quantity,
			&l.BlanketColor, &l.ThreadColor, &l.CustomizationName,
			&l.Beanie, &l.GiftBox, &l.GiftNote, &l.GiftMessage, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan line")
		}
		lines = append(lines, l)
	}
	return lines, eris.Wrap(rows.Err(), "postgres: list lines iterate")
}

func (s *PostgresStore) CreateMergeRun(ctx context.Context, run model.MergeRun) (*model.MergeRun, error) {
	run.ID = uuid.New().String()
	run.CreatedAt = time.Now().UTC()

	entriesJSON, err := json.Marshal(run.Entries)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal entries")
	}
	warningsJSON, err := json.Marshal(run.Warnings)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal warnings")
	}

	_, err = s.pool.Exec(ctx, insertMergeRunSQL,
		run.ID, run.SlipFile, run.ShippingFile, run.ShippingPages, run.LabelPages,
		run.Matched, run.Missing, entriesJSON, warningsJSON, run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert merge run")
	}
	return &run, nil
}

func (s *PostgresStore) GetMergeRun(ctx context.Context, runID string) (*model.MergeRun, error) {
	row := s.pool.QueryRow(ctx, getMergeRunSQL, runID)

	r, err := scanPgMergeRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("merge run not found: %s", runID)
		}
		return nil, eris.Wrap(err, "postgres: get merge run")
	}
	return r, nil
}

func (s *PostgresStore) ListMergeRuns(ctx context.Context, filter RunFilter) ([]model.MergeRun, error) {
	query := `SELECT id, slip_file, shipping_file, shipping_pages, label_pages, matched, missing, entries, warnings, created_at
	          FROM merge_runs ORDER BY created_at DESC`
	var args []any
	argIdx := 1

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
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
		return nil, eris.Wrap(err, "postgres: list merge runs")
	}
	defer rows.Close()

	var runs []model.MergeRun
	for rows.Next() {
		r, err := scanPgMergeRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan merge run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list merge runs iterate")
}

func (s *PostgresStore) EnqueueFailedPush(ctx context.Context, push model.FailedPush) error {
	if push.ID == "" {
		push.ID = uuid.New().String()
	}

	_, err := s.pool.Exec(ctx, enqueuePushSQL,
		push.ID, push.OrderID, push.Payload, push.Error, push.ErrorType,
		push.RetryCount, push.MaxRetries, push.NextRetryAt, push.CreatedAt, push.LastFailedAt,
	)
	return eris.Wrap(err, "postgres: enqueue failed push")
}

func (s *PostgresStore) DequeueFailedPushes(ctx context.Context, filter PushFilter) ([]model.FailedPush, error) {
	query := `SELECT id, order_id, payload, error, error_type, retry_count, max_retries, next_retry_at, created_at, last_failed_at
	          FROM failed_pushes
	          WHERE next_retry_at <= now() AND retry_count < max_retries`
	var args []any
	argIdx := 1

	if filter.ErrorType != "" {
		query += fmt.Sprintf(` AND error_type = $%d`, argIdx)
		args = append(args, filter.ErrorType)
		argIdx++
	}

	query += ` ORDER BY next_retry_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: dequeue failed pushes")
	}
	defer rows.Close()

	var pushes []model.FailedPush
	for rows.Next() {
		var p model.FailedPush
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Payload, &p.Error, &p.ErrorType,
			&p.RetryCount, &p.MaxRetries, &p.NextRetryAt, &p.CreatedAt, &p.LastFailedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan failed push")
		}
		pushes = append(pushes, p)
	}
	return pushes, eris.Wrap(rows.Err(), "postgres: dequeue iterate")
}

func (s *PostgresStore) IncrementPushRetry(ctx context.Context, id string, nextRetryAt time.Time, lastErr string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE failed_pushes
		 SET retry_count = retry_count + 1, next_retry_at = $1, error = $2, last_failed_at = now()
		 WHERE id = $3`,
		nextRetryAt, lastErr, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: increment push retry %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("failed_push not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) RemoveFailedPush(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM failed_pushes WHERE id = $1`, id)
	return eris.Wrap(err, "postgres: remove failed push")
}

func (s *PostgresStore) CountFailedPushes(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM failed_pushes`).Scan(&count)
	return count, eris.Wrap(err, "postgres: count failed pushes")
}

// helpers

func scanPgMergeRun(row scannable) (*model.MergeRun, error) {
	var r model.MergeRun
	var entriesJSON []byte
	var warningsJSON []byte

	if err := row.Scan(&r.ID, &r.SlipFile, &r.ShippingFile, &r.ShippingPages, &r.LabelPages,
		&r.Matched, &r.Missing, &entriesJSON, &warningsJSON, &r.CreatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(entriesJSON, &r.Entries); err != nil {
		return nil, eris.Wrap(err, "unmarshal entries")
	}
	if len(warningsJSON) > 0 {
		if err := json.Unmarshal(warningsJSON, &r.Warnings); err != nil {
			return nil, eris.Wrap(err, "unmarshal warnings")
		}
	}
	return &r, nil
}
