package testsupport

import (
	"context"
	"testing"

	"amreingest/internal/config"
	"amreingest/internal/logging"
	"amreingest/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustLoad inserts ids as NEW jobs.
func MustLoad(t testing.TB, store *queue.Store, ids ...string) {
	t.Helper()

	if _, err := store.LoadBatch(context.Background(), ids); err != nil {
		t.Fatalf("store.LoadBatch: %v", err)
	}
}

// MustStart loads id and moves it to IN_PROGRESS with transferID.
func MustStart(t testing.TB, store *queue.Store, id, transferID string) {
	t.Helper()

	MustLoad(t, store, id)
	if err := store.SetInProgress(context.Background(), id, transferID); err != nil {
		t.Fatalf("store.SetInProgress: %v", err)
	}
}

// MustGet fetches a job that is expected to exist.
func MustGet(t testing.TB, store *queue.Store, id string) *queue.Job {
	t.Helper()

	job, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("store.Get: %v", err)
	}
	if job == nil {
		t.Fatalf("job %s not found", id)
	}
	return job
}
