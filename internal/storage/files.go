// Package storage provides the results persistence layer for the annotator.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"

	"github.com/quantfold/commentary-annotator/internal/common"
	"github.com/quantfold/commentary-annotator/internal/model"
	"github.com/quantfold/commentary-annotator/internal/service"
)

// Reserved filenames inside an annotator directory. Everything else ending in
// .json is a decision record.
const (
	orderFileName = "_order.json"
	orderLockName = "_order.lock"
)

// FileStore implements service.Store on a plain directory tree:
//
//	{root}/{annotator}/_order.json   — persisted task order
//	{root}/{annotator}/{task_id}.json — one decision record per task
//
// A record's existence on disk is the completion signal; there is no index to
// keep in sync.
type FileStore struct {
	root string
}

// NewFileStore creates a file store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := validateString(dir, "dir"); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}
	return &FileStore{root: dir}, nil
}

// GetOrder loads the persisted order for an annotator.
func (s *FileStore) GetOrder(ctx context.Context, annotator string) ([]string, error) {
	if err := validateArgs(ctx, annotator); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.orderPath(annotator))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: no order for annotator %s", common.ErrNotFound, annotator)
		}
		return nil, fmt.Errorf("failed to read order file: %w", err)
	}

	var order []string
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("order file for %s is corrupt: %w", annotator, err)
	}
	return order, nil
}

// CreateOrder persists the given order unless one already exists. The
// read-then-create window is guarded by an advisory file lock so two racing
// first loads observe a single persisted order. The write itself goes through
// a temp file and rename; a crash mid-write never leaves a partial order
// observable.
func (s *FileStore) CreateOrder(ctx context.Context, annotator string, order []string) ([]string, error) {
	if err := validateArgs(ctx, annotator); err != nil {
		return nil, err
	}
	if order == nil {
		order = []string{}
	}

	dir := s.annotatorDir(annotator)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrOrderPersistence, err)
	}

	lock := flock.New(filepath.Join(dir, orderLockName))
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("%w: failed to lock order file: %v", common.ErrOrderPersistence, err)
	}
	defer func() { _ = lock.Unlock() }()

	// Another session may have won the race while we waited on the lock.
	existing, err := s.GetOrder(ctx, annotator)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	data, err := json.MarshalIndent(order, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrOrderPersistence, err)
	}

	if err := writeFileAtomic(s.orderPath(annotator), data); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrOrderPersistence, err)
	}
	return order, nil
}

// SaveDecision writes one decision record. Resubmitting the same task
// overwrites the prior record.
func (s *FileStore) SaveDecision(ctx context.Context, annotator string, id model.TaskID, record model.DecisionRecord) error {
	if err := validateArgs(ctx, annotator); err != nil {
		return err
	}

	dir := s.annotatorDir(annotator)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("%w: %v", common.ErrDecisionWrite, err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDecisionWrite, err)
	}

	path := filepath.Join(dir, id.String()+".json")
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("%w: %v", common.ErrDecisionWrite, err)
	}
	return nil
}

// GetDecision loads one decision record.
func (s *FileStore) GetDecision(ctx context.Context, annotator string, id model.TaskID) (model.DecisionRecord, error) {
	if err := validateArgs(ctx, annotator); err != nil {
		return model.DecisionRecord{}, err
	}

	data, err := os.ReadFile(filepath.Join(s.annotatorDir(annotator), id.String()+".json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.DecisionRecord{}, fmt.Errorf("%w: no decision for task %s", common.ErrNotFound, id)
		}
		return model.DecisionRecord{}, fmt.Errorf("failed to read decision file: %w", err)
	}

	var record model.DecisionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.DecisionRecord{}, fmt.Errorf("decision file for task %s is corrupt: %w", id, err)
	}
	return record, nil
}

// ListDecisions returns all decision records for an annotator, ordered by
// task id.
func (s *FileStore) ListDecisions(ctx context.Context, annotator string) ([]model.DecisionRecord, error) {
	ids, err := s.completedIDs(ctx, annotator)
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	records := make([]model.DecisionRecord, 0, len(ids))
	for _, raw := range ids {
		id, err := model.ParseTaskID(raw)
		if err != nil {
			common.LogWarn("skipping unparsable decision file", common.Fields{
				"annotator": annotator,
				"task_id":   raw,
			})
			continue
		}
		record, err := s.GetDecision(ctx, annotator, id)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// CompletedTasks returns the task ids with a decision record on disk. The
// order file and lock file are excluded; file stems are the task ids.
func (s *FileStore) CompletedTasks(ctx context.Context, annotator string) (map[string]struct{}, error) {
	ids, err := s.completedIDs(ctx, annotator)
	if err != nil {
		return nil, err
	}
	completed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		completed[id] = struct{}{}
	}
	return completed, nil
}

// Annotators lists every annotator directory under the store root.
func (s *FileStore) Annotators(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) completedIDs(ctx context.Context, annotator string) ([]string, error) {
	if err := validateArgs(ctx, annotator); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.annotatorDir(annotator))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read annotator directory: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
			continue
		}
		if filepath.Ext(name) != ".json" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}

func (s *FileStore) annotatorDir(annotator string) string {
	return filepath.Join(s.root, annotator)
}

func (s *FileStore) orderPath(annotator string) string {
	return filepath.Join(s.annotatorDir(annotator), orderFileName)
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over the destination.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// Ensure FileStore implements the service.Store interface.
var _ service.Store = (*FileStore)(nil)
