package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hpc-tools/usage-atlas/pkg/models/store"
	"github.com/hpc-tools/usage-atlas/pkg/store/duckdb"
)

const (
	insertSnapshot = `
		INSERT INTO budget_snapshots (
			user_name, accounts, partition_name, report_year, capacity,
			team_usage, user_usage, team_percent, user_percent, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`
	insertRow = `
		INSERT INTO usage_snapshot_rows (snapshot_id, cluster, login, used)
		VALUES (?, ?, ?, ?)`
	selectSnapshots = `
		SELECT id, user_name, accounts, partition_name, report_year, capacity,
			team_usage, user_usage, team_percent, user_percent, created_at
		FROM budget_snapshots
		ORDER BY created_at DESC, id DESC
		LIMIT ?`
	selectRows = `
		SELECT snapshot_id, cluster, login, used
		FROM usage_snapshot_rows
		WHERE snapshot_id = ?
		ORDER BY cluster, login`
)

// Store keeps budget snapshots so consumption can be followed over time.
type Store interface {
	Add(ctx context.Context, snapshot store.BudgetSnapshot, rows []store.UsageSnapshotRow) (int64, error)
	List(ctx context.Context, limit int) ([]store.BudgetSnapshot, error)
	Rows(ctx context.Context, snapshotID int64) ([]store.UsageSnapshotRow, error)
}

type historyStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &historyStore{db: db}, nil
}

func (h *historyStore) Add(ctx context.Context, snapshot store.BudgetSnapshot, rows []store.UsageSnapshotRow) (int64, error) {
	var id int64
	err := duckdb.InTransaction(ctx, h.db, func(ctx context.Context, tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, insertSnapshot,
			snapshot.User,
			snapshot.Accounts,
			snapshot.Partition,
			snapshot.Year,
			snapshot.Capacity,
			snapshot.TeamUsage,
			snapshot.UserUsage,
			snapshot.TeamPercent,
			snapshot.UserPercent,
			snapshot.CreatedAt,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, insertRow)
		if err != nil {
			return fmt.Errorf("prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx, id, row.Cluster, row.Login, row.Used); err != nil {
				return fmt.Errorf("insert usage row: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (h *historyStore) List(ctx context.Context, limit int) ([]store.BudgetSnapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.QueryContext(ctx, selectSnapshots, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]store.BudgetSnapshot, 0)
	for rows.Next() {
		var s store.BudgetSnapshot
		if err := rows.Scan(
			&s.ID, &s.User, &s.Accounts, &s.Partition, &s.Year, &s.Capacity,
			&s.TeamUsage, &s.UserUsage, &s.TeamPercent, &s.UserPercent, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

func (h *historyStore) Rows(ctx context.Context, snapshotID int64) ([]store.UsageSnapshotRow, error) {
	rows, err := h.db.QueryContext(ctx, selectRows, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query usage rows: %w", err)
	}
	defer rows.Close()

	result := make([]store.UsageSnapshotRow, 0)
	for rows.Next() {
		var r store.UsageSnapshotRow
		if err := rows.Scan(&r.SnapshotID, &r.Cluster, &r.Login, &r.Used); err != nil {
			return nil, fmt.Errorf("scan usage row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
