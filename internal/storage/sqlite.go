package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/quantfold/commentary-annotator/internal/common"
	"github.com/quantfold/commentary-annotator/internal/model"
	"github.com/quantfold/commentary-annotator/internal/service"
)

// SQLiteStore implements service.Store on a single SQLite database. It keeps
// the same contract as the file store: orders are create-once, decision rows
// are upserted, and a row's existence is the completion signal.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetOrder loads the persisted order for an annotator.
func (s *SQLiteStore) GetOrder(ctx context.Context, annotator string) ([]string, error) {
	if err := validateArgs(ctx, annotator); err != nil {
		return nil, err
	}

	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT task_ids FROM orders WHERE annotator = ?
	`, annotator).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no order for annotator %s", common.ErrNotFound, annotator)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	var order []string
	if err := json.Unmarshal([]byte(raw), &order); err != nil {
		return nil, fmt.Errorf("order row for %s is corrupt: %w", annotator, err)
	}
	return order, nil
}

// CreateOrder persists the order unless one already exists; the insert is a
// no-op on conflict, and the row that won is read back and returned.
func (s *SQLiteStore) CreateOrder(ctx context.Context, annotator string, order []string) ([]string, error) {
	if err := validateArgs(ctx, annotator); err != nil {
		return nil, err
	}
	if order == nil {
		order = []string{}
	}

	raw, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrOrderPersistence, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (annotator, task_ids) VALUES (?, ?)
		ON CONFLICT(annotator) DO NOTHING
	`, annotator, string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrOrderPersistence, err)
	}

	return s.GetOrder(ctx, annotator)
}

// SaveDecision upserts one decision record.
func (s *SQLiteStore) SaveDecision(ctx context.Context, annotator string, id model.TaskID, record model.DecisionRecord) error {
	if err := validateArgs(ctx, annotator); err != nil {
		return err
	}

	buy, err := json.Marshal(record.Buy)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDecisionWrite, err)
	}
	sell, err := json.Marshal(record.Sell)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDecisionWrite, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO decisions (
			annotator, task_id, date, source, scenario, method,
			buy, sell, reason, duration
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(annotator, task_id) DO UPDATE SET
			buy = excluded.buy,
			sell = excluded.sell,
			reason = excluded.reason,
			duration = excluded.duration,
			recorded_at = CURRENT_TIMESTAMP
	`,
		annotator,
		id.String(),
		record.Date,
		record.Source,
		record.Scenario,
		record.Method,
		string(buy),
		string(sell),
		record.Reason,
		record.Duration,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDecisionWrite, err)
	}
	return nil
}

// GetDecision loads one decision record.
func (s *SQLiteStore) GetDecision(ctx context.Context, annotator string, id model.TaskID) (model.DecisionRecord, error) {
	if err := validateArgs(ctx, annotator); err != nil {
		return model.DecisionRecord{}, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT date, source, scenario, method, buy, sell, reason, duration
		FROM decisions WHERE annotator = ? AND task_id = ?
	`, annotator, id.String())

	record, err := scanDecision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DecisionRecord{}, fmt.Errorf("%w: no decision for task %s", common.ErrNotFound, id)
	}
	if err != nil {
		return model.DecisionRecord{}, err
	}
	return record, nil
}

// ListDecisions returns all decision records for an annotator, ordered by
// task id.
func (s *SQLiteStore) ListDecisions(ctx context.Context, annotator string) ([]model.DecisionRecord, error) {
	if err := validateArgs(ctx, annotator); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, source, scenario, method, buy, sell, reason, duration
		FROM decisions WHERE annotator = ? ORDER BY task_id
	`, annotator)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.DecisionRecord
	for rows.Next() {
		record, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate decisions: %w", err)
	}
	return records, nil
}

// CompletedTasks returns the task ids with a decision row.
func (s *SQLiteStore) CompletedTasks(ctx context.Context, annotator string) (map[string]struct{}, error) {
	if err := validateArgs(ctx, annotator); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id FROM decisions WHERE annotator = ?
	`, annotator)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	completed := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan task id: %w", err)
		}
		completed[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate completed tasks: %w", err)
	}
	return completed, nil
}

// Annotators lists every annotator with an order or any decision.
func (s *SQLiteStore) Annotators(ctx context.Context) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT annotator FROM orders
		UNION
		SELECT annotator FROM decisions
		ORDER BY annotator
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query annotators: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan annotator: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate annotators: %w", err)
	}
	return names, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDecision(row scanner) (model.DecisionRecord, error) {
	var record model.DecisionRecord
	var buy, sell string

	err := row.Scan(
		&record.Date,
		&record.Source,
		&record.Scenario,
		&record.Method,
		&buy,
		&sell,
		&record.Reason,
		&record.Duration,
	)
	if err != nil {
		return model.DecisionRecord{}, err
	}

	if err := json.Unmarshal([]byte(buy), &record.Buy); err != nil {
		return model.DecisionRecord{}, fmt.Errorf("buy column is corrupt: %w", err)
	}
	if err := json.Unmarshal([]byte(sell), &record.Sell); err != nil {
		return model.DecisionRecord{}, fmt.Errorf("sell column is corrupt: %w", err)
	}
	return record, nil
}

// Ensure SQLiteStore implements the service.Store interface.
var _ service.Store = (*SQLiteStore)(nil)
