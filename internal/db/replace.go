package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// ReplaceRows atomically replaces the rows that share a key column value:
// it deletes rows where keyCol = keyVal, then COPYs the new rows in, all in
// one transaction. Re-running the same import therefore never duplicates
// rows. Returns the number of rows copied.
func ReplaceRows(ctx context.Context, pool Pool, table, keyCol string, keyVal any, columns []string, rows [][]any) (int64, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: replace: begin tx")
	}
	defer tx.Rollback(ctx)

	delSQL := fmt.Sprintf("DELETE FROM %s WHERE %s = $1",
		pgx.Identifier{table}.Sanitize(),
		pgx.Identifier{keyCol}.Sanitize(),
	)
	if _, err := tx.Exec(ctx, delSQL, keyVal); err != nil {
		return 0, eris.Wrapf(err, "db: replace: delete from %s", table)
	}

	var n int64
	if len(rows) > 0 {
		copySource := pgx.CopyFromRows(rows)
		n, err = tx.CopyFrom(ctx, pgx.Identifier{table}, columns, copySource)
		if err != nil {
			return 0, eris.Wrapf(err, "db: replace: COPY INTO %s", table)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: replace: commit tx")
	}
	return n, nil
}
