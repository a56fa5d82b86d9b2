package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb/v2"
)

const BudgetSnapshotIDs = `CREATE SEQUENCE IF NOT EXISTS budget_snapshot_ids START 1;`

const BudgetSnapshotsSchema = `
	CREATE TABLE IF NOT EXISTS budget_snapshots (
		id BIGINT PRIMARY KEY DEFAULT nextval('budget_snapshot_ids'),
		user_name VARCHAR NOT NULL,
		accounts VARCHAR NOT NULL,
		partition_name VARCHAR NOT NULL,
		report_year INTEGER NOT NULL,
		capacity DOUBLE NOT NULL,
		team_usage DOUBLE NOT NULL,
		user_usage DOUBLE NOT NULL,
		team_percent DOUBLE NOT NULL,
		user_percent DOUBLE NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
`
const UsageSnapshotRowsSchema = `
	CREATE TABLE IF NOT EXISTS usage_snapshot_rows (
		snapshot_id BIGINT NOT NULL,
		cluster VARCHAR NOT NULL,
		login VARCHAR NOT NULL,
		used DOUBLE NOT NULL,
		PRIMARY KEY (snapshot_id, cluster, login)
	);
`

var bootQueries = []string{
	BudgetSnapshotIDs,
	BudgetSnapshotsSchema,
	UsageSnapshotRowsSchema,
}

type Settings struct {
	DbPath string
}

// NewDB opens the history database and creates its tables when missing.
func NewDB(settings Settings) (*sql.DB, error) {
	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=4", settings.DbPath), func(exec driver.ExecerContext) error {
		for _, query := range bootQueries {
			_, err := exec.ExecContext(context.Background(), query, nil)
			if err != nil {
				return fmt.Errorf("boot schema: %w", err)
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return sql.OpenDB(c), nil
}
