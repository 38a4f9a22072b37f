package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/loomhaven/order-cli/internal/model"
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
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS order_lines (
	id                 TEXT PRIMARY KEY,
	source_file        TEXT NOT NULL,
	position           INTEGER NOT NULL DEFAULT 0,
	order_id           TEXT NOT NULL,
	order_date         TEXT NOT NULL DEFAULT '',
	buyer_name         TEXT NOT NULL DEFAULT '',
	quantity           INTEGER NOT NULL DEFAULT 1,
	blanket_color      TEXT NOT NULL DEFAULT '',
	thread_color       TEXT NOT NULL DEFAULT '',
	customization_name TEXT NOT NULL DEFAULT '',
	beanie             INTEGER NOT NULL DEFAULT 0,
	gift_box           INTEGER NOT NULL DEFAULT 0,
	gift_note          INTEGER NOT NULL DEFAULT 0,
	gift_message       TEXT NOT NULL DEFAULT '',
	created_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS merge_runs (
	id             TEXT PRIMARY KEY,
	slip_file      TEXT NOT NULL,
	shipping_file  TEXT NOT NULL,
	shipping_pages INTEGER NOT NULL DEFAULT 0,
	label_pages    INTEGER NOT NULL DEFAULT 0,
	matched        INTEGER NOT NULL DEFAULT 0,
	missing        INTEGER NOT NULL DEFAULT 0,
	entries        TEXT NOT NULL,
	warnings       TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS failed_pushes (
	id             TEXT PRIMARY KEY,
	order_id       TEXT NOT NULL,
	payload        BLOB NOT NULL,
	error          TEXT NOT NULL,
	error_type     TEXT NOT NULL DEFAULT 'transient',
	retry_count    INTEGER NOT NULL DEFAULT 0,
	max_retries    INTEGER NOT NULL DEFAULT 3,
	next_retry_at  DATETIME NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	last_failed_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_lines_source_file ON order_lines(source_file);
CREATE INDEX IF NOT EXISTS idx_order_lines_order_id ON order_lines(order_id);
CREATE INDEX IF NOT EXISTS idx_merge_runs_created_at ON merge_runs(created_at);
CREATE INDEX IF NOT EXISTS idx_failed_pushes_error_type ON failed_pushes(error_type);
CREATE INDEX IF NOT EXISTS idx_failed_pushes_next_retry ON failed_pushes(next_retry_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ReplaceOrderLines(ctx context.Context, sourceFile string, lines []model.OrderLine) ([]model.StoredOrderLine, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM order_lines WHERE source_file = ?`, sourceFile,
	); err != nil {
		return nil, eris.Wrapf(err, "sqlite: clear lines for %s", sourceFile)
	}

	now := time.Now().UTC()
	stored := make([]model.StoredOrderLine, 0, len(lines))
	for i, line := range lines {
		id := uuid.New().String()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO order_lines
			 (id, source_file, position, order_id, order_date, buyer_name, quantity,
			  blanket_color, thread_color, customization_name, beanie, gift_box, gift_note, gift_message, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, sourceFile, i, line.OrderID, line.OrderDate, line.BuyerName, line.Quantity,
			line.BlanketColor, line.ThreadColor, line.CustomizationName,
			line.Beanie, line.GiftBox, line.GiftNote, line.GiftMessage, now,
		); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert line for order %s", line.OrderID)
		}
		stored = append(stored, model.StoredOrderLine{
			ID:         id,
			SourceFile: sourceFile,
			CreatedAt:  now,
			OrderLine:  line,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit lines")
	}
	return stored, nil
}

func (s *SQLiteStore) ListOrderLines(ctx context.Context, filter LineFilter) ([]model.StoredOrderLine, error) {
	query := `SELECT id, source_file, order_id, order_date, buyer_name, quantity,
	                 blanket_color, thread_color, customization_name, beanie, gift_box, gift_note, gift_message, created_at
	          FROM order_lines WHERE 1=1`
	var args []any

	if filter.OrderID != "" {
		query += ` AND order_id = ?`
		args = append(args, filter.OrderID)
	}
	if filter.BuyerName != "" {
		query += ` AND buyer_name = ?`
		args = append(args, filter.BuyerName)
	}
	if filter.SourceFile != "" {
		query += ` AND source_file = ?`
		args = append(args, filter.SourceFile)
	}
	query += ` ORDER BY created_at ASC, source_file ASC, position ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list lines")
	}
	defer rows.Close()

	var lines []model.StoredOrderLine
	for rows.Next() {
		var l model.StoredOrderLine
		if err := rows.Scan(&l.ID, &l.SourceFile, &l.OrderID, &l.OrderDate, &l.BuyerName, &l.Quantity,
			&l.BlanketColor, &l.ThreadColor, &l.CustomizationName,
			&l.Beanie, &l.GiftBox, &l.GiftNote, &l.GiftMessage, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan line")
		}
		lines = append(lines, l)
	}
	return lines, eris.Wrap(rows.Err(), "sqlite: list lines iterate")
}

func (s *SQLiteStore) CreateMergeRun(ctx context.Context, run model.MergeRun) (*model.MergeRun, error) {
	run.ID = uuid.New().String()
	run.CreatedAt = time.Now().UTC()

	entriesJSON, err := json.Marshal(run.Entries)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal entries")
	}
	warningsJSON, err := json.Marshal(run.Warnings)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal warnings")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO merge_runs
		 (id, slip_file, shipping_file, shipping_pages, label_pages, matched, missing, entries, warnings, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SlipFile, run.ShippingFile, run.ShippingPages, run.LabelPages,
		run.Matched, run.Missing, string(entriesJSON), string(warningsJSON), run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert merge run")
	}
	return &run, nil
}

func (s *SQLiteStore) GetMergeRun(ctx context.Context, runID string) (*model.MergeRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, slip_file, shipping_file, shipping_pages, label_pages, matched, missing, entries, warnings, created_at
		 FROM merge_runs WHERE id = ?`,
		runID,
	)
	return scanMergeRun(row)
}

func (s *SQLiteStore) ListMergeRuns(ctx context.Context, filter RunFilter) ([]model.MergeRun, error) {
	query := `SELECT id, slip_file, shipping_file, shipping_pages, label_pages, matched, missing, entries, warnings, created_at
	          FROM merge_runs ORDER BY created_at DESC`
	var args []any

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list merge runs")
	}
	defer rows.Close()

	var runs []model.MergeRun
	for rows.Next() {
		r, err := scanMergeRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list merge runs iterate")
}

func (s *SQLiteStore) EnqueueFailedPush(ctx context.Context, push model.FailedPush) error {
	if push.ID == "" {
		push.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO failed_pushes
		 (id, order_id, payload, error, error_type, retry_count, max_retries, next_retry_at, created_at, last_failed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   error = excluded.error, error_type = excluded.error_type, retry_count = excluded.retry_count,
		   next_retry_at = excluded.next_retry_at, last_failed_at = excluded.last_failed_at`,
		push.ID, push.OrderID, push.Payload, push.Error, push.ErrorType,
		push.RetryCount, push.MaxRetries, push.NextRetryAt.UTC(), push.CreatedAt.UTC(), push.LastFailedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: enqueue failed push")
}

func (s *SQLiteStore) DequeueFailedPushes(ctx context.Context, filter PushFilter) ([]model.FailedPush, error) {
	// Both sides of the retry-time comparison are driver-bound so the stored
	// and compared timestamps share one text format.
	query := `SELECT id, order_id, payload, error, error_type, retry_count, max_retries, next_retry_at, created_at, last_failed_at
	          FROM failed_pushes
	          WHERE next_retry_at <= ? AND retry_count < max_retries`
	args := []any{time.Now().UTC()}

	if filter.ErrorType != "" {
		query += ` AND error_type = ?`
		args = append(args, filter.ErrorType)
	}

	query += ` ORDER BY next_retry_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: dequeue failed pushes")
	}
	defer rows.Close()

	var pushes []model.FailedPush
	for rows.Next() {
		var p model.FailedPush
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Payload, &p.Error, &p.ErrorType,
			&p.RetryCount, &p.MaxRetries, &p.NextRetryAt, &p.CreatedAt, &p.LastFailedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan failed push")
		}
		pushes = append(pushes, p)
	}
	return pushes, eris.Wrap(rows.Err(), "sqlite: dequeue iterate")
}

func (s *SQLiteStore) IncrementPushRetry(ctx context.Context, id string, nextRetryAt time.Time, lastErr string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE failed_pushes
		 SET retry_count = retry_count + 1, next_retry_at = ?, error = ?, last_failed_at = ?
		 WHERE id = ?`,
		nextRetryAt.UTC(), lastErr, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: increment push retry %s", id)
	}
	return checkRowsAffected(res, "failed_push", id)
}

func (s *SQLiteStore) RemoveFailedPush(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM failed_pushes WHERE id = ?`, id)
	return eris.Wrap(err, "sqlite: remove failed push")
}

func (s *SQLiteStore) CountFailedPushes(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM failed_pushes`).Scan(&count)
	return count, eris.Wrap(err, "sqlite: count failed pushes")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanMergeRun(row scannable) (*model.MergeRun, error) {
	var r model.MergeRun
	var entriesJSON string
	var warningsJSON sql.NullString

	err := row.Scan(&r.ID, &r.SlipFile, &r.ShippingFile, &r.ShippingPages, &r.LabelPages,
		&r.Matched, &r.Missing, &entriesJSON, &warningsJSON, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("merge run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan merge run")
	}

	if err := json.Unmarshal([]byte(entriesJSON), &r.Entries); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal entries")
	}
	if warningsJSON.Valid {
		if err := json.Unmarshal([]byte(warningsJSON.String), &r.Warnings); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal warnings")
		}
	}
	return &r, nil
}
