// Package warehouse loads the consolidated, harmonized table into a SQL
// warehouse. The loader batches rows and calls the backend's bulk-insert
// primitive per batch; backends (Postgres, SQLite) live in subpackages and
// implement Repository with whatever their engine does fastest.
package warehouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"iptu/internal/diag"
	"iptu/internal/storage"
	"iptu/pkg/records"
)

// DefaultBatchSize is the flush threshold when the caller passes 0.
const DefaultBatchSize = 5000

// Repository abstracts a warehouse backend's bulk insert capability.
// CopyFrom inserts rows aligned to the columns order and returns the number
// of rows reported as inserted; Exec runs DDL.
type Repository interface {
	Exec(ctx context.Context, sql string) error
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
}

// CreateTableSQL renders an idempotent CREATE TABLE for the load schema.
// The type names are deliberately the portable subset both backends accept.
func CreateTableSQL(table string) string {
	sch := storage.WarehouseSchema()
	parts := make([]string, 0, len(sch))
	for _, c := range sch {
		sqlType := "TEXT"
		switch c.Kind {
		case storage.KindFloat:
			sqlType = "DOUBLE PRECISION"
		case storage.KindInt:
			sqlType = "BIGINT"
		case storage.KindTimestamp:
			sqlType = "TIMESTAMP"
		}
		parts = append(parts, fmt.Sprintf("%s %s", c.Name, sqlType))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", table, strings.Join(parts, ",\n  "))
}

// Load ensures the target table exists and bulk-loads t into it in batches.
// It returns the total number of rows the backend reported inserted.
//
// Progress is logged on every flush with running totals and instantaneous
// rows/sec since the previous flush.
func Load(ctx context.Context, repo Repository, table string, t *records.Table, batchSize int, log diag.Logger) (int64, error) {
	if log == nil {
		log = diag.Nop()
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	if err := repo.Exec(ctx, CreateTableSQL(table)); err != nil {
		return 0, fmt.Errorf("warehouse: ensure table %s: %w", table, err)
	}

	columns := storage.WarehouseColumns()

	var (
		total       int64
		batches     int64
		batch       = make([][]any, 0, batchSize)
		start       = time.Now()
		lastFlushTS = start
		lastTotal   int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := repo.CopyFrom(ctx, columns, batch)
		total += n
		batch = batch[:0]
		if err != nil {
			log.Errorf("copy failed after=%d total=%d err=%v", n, total, err)
			return err
		}

		batches++
		now := time.Now()
		sinceLast := now.Sub(lastFlushTS)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(total-lastTotal) / sinceLast.Seconds()
		}
		log.Infof(
			"batch #%d: rps=%.0f inserted=%d total_inserted=%d elapsed=%s",
			batches, rps, n, total, now.Sub(start).Truncate(time.Millisecond),
		)
		lastFlushTS = now
		lastTotal = total
		return nil
	}

	for _, r := range t.Rows {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		batch = append(batch, storage.WarehouseValues(r))
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	log.Infof("load complete: table=%s total_inserted=%d elapsed=%s", table, total, time.Since(start).Truncate(time.Millisecond))
	return total, nil
}
