// Package scheduler assigns annotation tasks: it fixes a per-annotator order
// over the corpus and tracks progress against persisted decision records.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/quantfold/commentary-annotator/internal/common"
	"github.com/quantfold/commentary-annotator/internal/service"
)

// Scheduler owns task ordering and progress derivation for annotators.
type Scheduler struct {
	store service.Store
}

// New creates a scheduler backed by the given store.
func New(store service.Store) *Scheduler {
	return &Scheduler{store: store}
}

// GetOrCreateOrder returns the annotator's fixed task order, creating and
// persisting a fresh uniform shuffle of corpusIDs on first sight.
//
// An existing order is returned verbatim: it is never revalidated against the
// current corpus, so an order created before the corpus changed may reference
// tasks that no longer exist and will not include tasks added since. That is
// accepted behavior; the order an annotator started with never moves under
// them.
func (s *Scheduler) GetOrCreateOrder(ctx context.Context, annotator string, corpusIDs []string) ([]string, error) {
	order, err := s.store.GetOrder(ctx, annotator)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to load order for %s: %w", annotator, err)
	}

	shuffled := make([]string, len(corpusIDs))
	copy(shuffled, corpusIDs)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	// The store resolves creation races; whatever order it returns is the one
	// this annotator will see forever.
	persisted, err := s.store.CreateOrder(ctx, annotator, shuffled)
	if err != nil {
		return nil, err
	}

	slog.Info("Created annotation order", "annotator", annotator, "tasks", len(persisted))
	return persisted, nil
}

// NextPending returns the first task in order without a completed decision,
// or false when every task is done. First-pending-wins keeps progress
// deterministic and resumable: with no new record written, repeated calls
// return the same task.
func NextPending(order []string, completed map[string]struct{}) (string, bool) {
	for _, id := range order {
		if _, done := completed[id]; !done {
			return id, true
		}
	}
	return "", false
}

// Assignment describes where an annotator stands: the next task to present,
// or the terminal all-done state.
type Assignment struct {
	TaskID    string
	Completed int
	Total     int
	Done      bool
}

// Progress derives an annotator's current standing entirely from storage,
// without creating anything. Returns common.ErrNotFound (wrapped) for an
// annotator with no persisted order.
func (s *Scheduler) Progress(ctx context.Context, annotator string) (Assignment, error) {
	order, err := s.store.GetOrder(ctx, annotator)
	if err != nil {
		return Assignment{}, err
	}

	completed, err := s.store.CompletedTasks(ctx, annotator)
	if err != nil {
		return Assignment{}, fmt.Errorf("failed to derive completed tasks for %s: %w", annotator, err)
	}

	a := Assignment{Total: len(order)}
	for _, id := range order {
		if _, done := completed[id]; done {
			a.Completed++
		}
	}

	next, ok := NextPending(order, completed)
	if !ok {
		a.Done = true
		return a, nil
	}
	a.TaskID = next
	return a, nil
}
