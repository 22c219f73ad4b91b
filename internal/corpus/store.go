// Package corpus loads the fixed set of commentary texts an annotation
// session works through.
package corpus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/quantfold/commentary-annotator/internal/common"
	"github.com/quantfold/commentary-annotator/internal/model"
)

// Entry is one corpus item: a task identifier and its commentary text.
type Entry struct {
	ID   model.TaskID
	Text string
}

// Store holds the corpus for the lifetime of the process. It is immutable
// after Load.
type Store struct {
	entries map[string]Entry
	ids     []string
}

// Load scans dir non-recursively for text files. Each filename without its
// extension becomes a task identifier. Files whose names do not parse are
// skipped with a warning; one bad file must not block the rest of the corpus.
func Load(dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", common.ErrCorpusNotFound, dir)
		}
		return nil, fmt.Errorf("failed to stat corpus directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", common.ErrCorpusNotFound, dir)
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus directory %s: %w", dir, err)
	}

	entries := make(map[string]Entry)
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		raw := strings.TrimSuffix(name, filepath.Ext(name))
		id, err := model.ParseTaskID(raw)
		if err != nil {
			common.LogWarn("skipping corpus file with malformed task id", common.Fields{
				"file":  name,
				"error": err.Error(),
			})
			continue
		}

		text, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read corpus file %s: %w", name, err)
		}

		entries[id.String()] = Entry{ID: id, Text: string(text)}
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", common.ErrCorpusEmpty, dir)
	}

	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return &Store{entries: entries, ids: ids}, nil
}

// Get returns the entry for a task identifier.
func (s *Store) Get(id string) (Entry, bool) {
	e, ok := s.entries[id]
	return e, ok
}

// TaskIDs returns the full task-id set in sorted order. Callers shuffle;
// the store itself stays deterministic.
func (s *Store) TaskIDs() []string {
	ids := make([]string, len(s.ids))
	copy(ids, s.ids)
	return ids
}

// Len returns the number of corpus entries.
func (s *Store) Len() int {
	return len(s.entries)
}
