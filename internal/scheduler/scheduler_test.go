package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/commentary-annotator/internal/common"
	"github.com/quantfold/commentary-annotator/internal/model"
	"github.com/quantfold/commentary-annotator/internal/storage"
)

func newTestScheduler(t *testing.T) (*Scheduler, *storage.FileStore) {
	t.Helper()
	store, err := storage.NewFileStore(filepath.Join(t.TempDir(), "results"))
	require.NoError(t, err)
	return New(store), store
}

func corpusIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("chatgpt_202009%02d_morning_naive", i+1)
	}
	return ids
}

func TestGetOrCreateOrderIsPermutation(t *testing.T) {
	sched, _ := newTestScheduler(t)
	ctx := context.Background()

	ids := corpusIDs(20)
	order, err := sched.GetOrCreateOrder(ctx, "alice", ids)
	require.NoError(t, err)

	require.Len(t, order, len(ids), "no omissions")
	seen := make(map[string]struct{}, len(order))
	for _, id := range order {
		_, dup := seen[id]
		assert.False(t, dup, "no duplicates: %s", id)
		seen[id] = struct{}{}
	}
	for _, id := range ids {
		_, ok := seen[id]
		assert.True(t, ok, "corpus id %s must appear in the order", id)
	}
}

func TestGetOrCreateOrderEmptyCorpus(t *testing.T) {
	sched, _ := newTestScheduler(t)

	order, err := sched.GetOrCreateOrder(context.Background(), "alice", nil)
	require.NoError(t, err)
	assert.Empty(t, order)

	_, ok := NextPending(order, map[string]struct{}{})
	assert.False(t, ok, "empty corpus is immediately all-done")
}

func TestGetOrCreateOrderIsStableAcrossLoads(t *testing.T) {
	sched, _ := newTestScheduler(t)
	ctx := context.Background()

	ids := corpusIDs(10)
	first, err := sched.GetOrCreateOrder(ctx, "alice", ids)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := sched.GetOrCreateOrder(ctx, "alice", ids)
		require.NoError(t, err)
		assert.Equal(t, first, again, "order must never be regenerated")
	}
}

// Simulates two racing first loads: the second creation must observe the
// first call's persisted result rather than produce a new shuffle.
func TestGetOrCreateOrderIdempotentCreation(t *testing.T) {
	sched, store := newTestScheduler(t)
	ctx := context.Background()

	ids := corpusIDs(10)
	first, err := sched.GetOrCreateOrder(ctx, "alice", ids)
	require.NoError(t, err)

	second := New(store)
	got, err := second.GetOrCreateOrder(ctx, "alice", ids)
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

// A persisted order is returned verbatim even when the corpus has since
// changed: new tasks are not inserted, dangling ids are not dropped.
func TestGetOrCreateOrderIgnoresCorpusDrift(t *testing.T) {
	sched, _ := newTestScheduler(t)
	ctx := context.Background()

	original := corpusIDs(5)
	order, err := sched.GetOrCreateOrder(ctx, "alice", original)
	require.NoError(t, err)

	grown := append(corpusIDs(5), "human_20201001_closing")
	after, err := sched.GetOrCreateOrder(ctx, "alice", grown)
	require.NoError(t, err)
	assert.Equal(t, order, after, "grown corpus must not change the order")

	shrunk := corpusIDs(2)
	after, err = sched.GetOrCreateOrder(ctx, "alice", shrunk)
	require.NoError(t, err)
	assert.Equal(t, order, after, "shrunk corpus must not change the order")
}

func TestOrdersAreIndependentPerAnnotator(t *testing.T) {
	sched, _ := newTestScheduler(t)
	ctx := context.Background()

	ids := corpusIDs(50)
	alice, err := sched.GetOrCreateOrder(ctx, "alice", ids)
	require.NoError(t, err)
	bob, err := sched.GetOrCreateOrder(ctx, "bob", ids)
	require.NoError(t, err)

	assert.ElementsMatch(t, alice, bob, "same corpus, same id set")
	// 50! orderings; identical shuffles would point at a broken source.
	assert.NotEqual(t, alice, bob, "independent shuffles expected")
}

func TestNextPending(t *testing.T) {
	order := []string{"c", "a", "b"}

	next, ok := NextPending(order, map[string]struct{}{})
	require.True(t, ok)
	assert.Equal(t, "c", next, "first in order wins, not first alphabetically")

	// Repeated calls without a new record return the same task.
	for i := 0; i < 3; i++ {
		again, ok := NextPending(order, map[string]struct{}{})
		require.True(t, ok)
		assert.Equal(t, next, again)
	}

	// Completing the head moves to the next in order, and the completed task
	// is never offered again.
	next, ok = NextPending(order, map[string]struct{}{"c": {}})
	require.True(t, ok)
	assert.Equal(t, "a", next)

	next, ok = NextPending(order, map[string]struct{}{"c": {}, "a": {}})
	require.True(t, ok)
	assert.Equal(t, "b", next)

	// Terminal once the completed set covers the order, and it stays
	// terminal on every later call.
	done := map[string]struct{}{"a": {}, "b": {}, "c": {}}
	for i := 0; i < 3; i++ {
		_, ok = NextPending(order, done)
		assert.False(t, ok)
	}

	// Completion is a set property; extra completed ids are harmless.
	done["zzz"] = struct{}{}
	_, ok = NextPending(order, done)
	assert.False(t, ok)
}

func TestProgress(t *testing.T) {
	sched, store := newTestScheduler(t)
	ctx := context.Background()

	_, err := sched.Progress(ctx, "alice")
	assert.True(t, errors.Is(err, common.ErrNotFound), "no order yet")

	ids := corpusIDs(3)
	order, err := sched.GetOrCreateOrder(ctx, "alice", ids)
	require.NoError(t, err)

	a, err := sched.Progress(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, a.Total)
	assert.Equal(t, 0, a.Completed)
	assert.Equal(t, order[0], a.TaskID)
	assert.False(t, a.Done)

	id, err := model.ParseTaskID(order[0])
	require.NoError(t, err)
	record := model.NewDecisionRecord(id, model.Decision{Buy: []string{"2330"}}, time.Second)
	require.NoError(t, store.SaveDecision(ctx, "alice", id, record))

	a, err = sched.Progress(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, a.Completed)
	assert.Equal(t, order[1], a.TaskID)
}
