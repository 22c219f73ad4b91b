// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/quantfold/commentary-annotator/internal/model"
)

// Store defines the contract for the results persistence layer.
//
// Two invariants matter to callers: a persisted order is never rewritten once
// created, and the presence of a decision record is the only completion
// signal a task has.
type Store interface {
	// Order operations.
	//
	// GetOrder returns common.ErrNotFound (wrapped) when no order exists for
	// the annotator. CreateOrder persists the given order if and only if none
	// exists yet, and returns whichever order ended up persisted; two racing
	// creations must both observe a single winner.
	GetOrder(ctx context.Context, annotator string) ([]string, error)
	CreateOrder(ctx context.Context, annotator string, order []string) ([]string, error)

	// Decision operations.
	//
	// SaveDecision overwrites silently on resubmission of the same task.
	SaveDecision(ctx context.Context, annotator string, id model.TaskID, record model.DecisionRecord) error
	GetDecision(ctx context.Context, annotator string, id model.TaskID) (model.DecisionRecord, error)
	ListDecisions(ctx context.Context, annotator string) ([]model.DecisionRecord, error)

	// CompletedTasks returns the set of task ids with a persisted decision
	// record, re-derived from storage on every call.
	CompletedTasks(ctx context.Context, annotator string) (map[string]struct{}, error)

	// Annotators lists every annotator with any persisted state.
	Annotators(ctx context.Context) ([]string, error)

	Close() error
}
