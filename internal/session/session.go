// Package session runs the interactive annotation loop for one annotator.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quantfold/commentary-annotator/internal/common"
	"github.com/quantfold/commentary-annotator/internal/corpus"
	"github.com/quantfold/commentary-annotator/internal/model"
	"github.com/quantfold/commentary-annotator/internal/scheduler"
	"github.com/quantfold/commentary-annotator/internal/service"
)

// ErrQuit is returned by a Prompter when the annotator ends the session
// without submitting. Progress is already on disk; quitting loses nothing.
var ErrQuit = errors.New("session ended by user")

// Task is one annotation unit as presented to a prompter.
type Task struct {
	ID    model.TaskID
	Text  string
	Seq   int // 1-based position in the session, for "(k/n)" display
	Total int
}

// Prompter collects a decision for one task. Implementations block until the
// annotator submits or quits.
type Prompter interface {
	Annotate(ctx context.Context, task Task) (model.Decision, error)
	ShowError(msg string)
	ShowCompletion(completed, total int)
}

// maxSaveFailures bounds consecutive failed decision writes before the
// session aborts instead of re-prompting.
const maxSaveFailures = 3

// Driver orchestrates one annotator's session: order lookup, next-pending
// derivation, prompting, and decision recording. Each loop iteration is a
// fresh pass over storage; the only state that lives in memory is the
// reading-start timestamp of the current render, which is safely lost on
// restart (the duration is undercounted, the record is never corrupted).
type Driver struct {
	corpus    *corpus.Store
	sched     *scheduler.Scheduler
	store     service.Store
	prompter  Prompter
	annotator string
	now       func() time.Time
}

// NewDriver creates a session driver. The annotator name is normalized to
// its storage key.
func NewDriver(store service.Store, c *corpus.Store, prompter Prompter, annotator string) (*Driver, error) {
	key := model.NormalizeAnnotator(annotator)
	if key == "" {
		return nil, common.NewUserError("annotator name cannot be empty", nil)
	}

	return &Driver{
		corpus:    c,
		sched:     scheduler.New(store),
		store:     store,
		prompter:  prompter,
		annotator: key,
		now:       time.Now,
	}, nil
}

// Annotator returns the normalized annotator key the driver writes under.
func (d *Driver) Annotator() string {
	return d.annotator
}

// Run executes the annotation loop until the corpus is exhausted, the
// annotator quits, or an unrecoverable error occurs.
func (d *Driver) Run(ctx context.Context) error {
	corpusIDs := d.corpus.TaskIDs()

	order, err := d.sched.GetOrCreateOrder(ctx, d.annotator, corpusIDs)
	if err != nil {
		return err
	}

	// Order entries referencing tasks gone from the corpus can never be
	// completed; they are skipped for this session but left pending on disk.
	skipped := make(map[string]struct{})
	saveFailures := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		completed, err := d.store.CompletedTasks(ctx, d.annotator)
		if err != nil {
			return fmt.Errorf("failed to derive completed tasks: %w", err)
		}

		pending := make(map[string]struct{}, len(completed)+len(skipped))
		for id := range completed {
			pending[id] = struct{}{}
		}
		for id := range skipped {
			pending[id] = struct{}{}
		}

		next, ok := scheduler.NextPending(order, pending)
		if !ok {
			d.prompter.ShowCompletion(len(completed), len(order))
			return nil
		}

		entry, ok := d.corpus.Get(next)
		if !ok {
			common.LogWarn("order references task missing from corpus", common.Fields{
				"annotator": d.annotator,
				"task_id":   next,
			})
			skipped[next] = struct{}{}
			continue
		}

		task := Task{
			ID:    entry.ID,
			Text:  entry.Text,
			Seq:   len(completed) + 1,
			Total: len(order),
		}

		// The reading timer is keyed by this render, not by the task: a
		// refresh or re-offer restarts it.
		renderID := uuid.NewString()
		renderStart := d.now()

		decision, err := d.prompter.Annotate(ctx, task)
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := decision.Validate(); err != nil {
			d.prompter.ShowError(err.Error())
			continue
		}

		duration := d.now().Sub(renderStart)
		record := model.NewDecisionRecord(entry.ID, decision, duration)

		if err := d.store.SaveDecision(ctx, d.annotator, entry.ID, record); err != nil {
			saveFailures++
			common.LogError(err, "failed to record decision", common.Fields{
				"annotator": d.annotator,
				"task_id":   next,
				"render_id": renderID,
			})
			if saveFailures >= maxSaveFailures {
				return fmt.Errorf("giving up after %d failed writes: %w", saveFailures, err)
			}
			// The task stays pending; the next pass re-offers it.
			d.prompter.ShowError("could not save your decision, please try again")
			continue
		}
		saveFailures = 0

		slog.Debug("Recorded decision",
			"annotator", d.annotator,
			"task_id", next,
			"render_id", renderID,
			"duration", record.Duration)
	}
}
