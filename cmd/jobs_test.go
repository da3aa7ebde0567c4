package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"loanpilot/internal/model"
	"loanpilot/pkg/config"
	"loanpilot/pkg/store/mysql"
)

// fakeStaleStore is an in-memory staleApplicationStore
type fakeStaleStore struct {
	stale  []*mysql.Application
	failed map[string]string
}

func newFakeStaleStore(applicationIDs ...string) *fakeStaleStore {
	s := &fakeStaleStore{failed: make(map[string]string)}
	for _, id := range applicationIDs {
		s.stale = append(s.stale, &mysql.Application{
			ApplicationID: id,
			Status:        string(model.ApplicationStatusScoring),
		})
	}
	return s
}

func (f *fakeStaleStore) ListStale(ctx context.Context, status string, age time.Duration) ([]*mysql.Application, error) {
	if status != string(model.ApplicationStatusScoring) {
		return nil, nil
	}
	return f.stale, nil
}

func (f *fakeStaleStore) MarkFailed(ctx context.Context, applicationID, message string) error {
	f.failed[applicationID] = message
	return nil
}

// fakeScoreCanceler records cancelled task IDs
type fakeScoreCanceler struct {
	cancelled []string
	cancelErr error
}

func (f *fakeScoreCanceler) CancelScore(applicationID string) error {
	f.cancelled = append(f.cancelled, applicationID)
	return f.cancelErr
}

// fakeJobLock is a DistributedLock with a fixed TryLock outcome
type fakeJobLock struct {
	acquired bool
	held     bool
	unlocked bool
}

func (f *fakeJobLock) TryLock(ctx context.Context) (bool, error) {
	f.held = f.acquired
	return f.acquired, nil
}

func (f *fakeJobLock) Unlock(ctx context.Context) error {
	f.held = false
	f.unlocked = true
	return nil
}

func (f *fakeJobLock) IsHeld() bool {
	return f.held
}

func TestStaleApplicationReaperCancelsAndFails(t *testing.T) {
	config.GlobalConfig = config.Default()

	store := newFakeStaleStore("app-1", "app-2")
	queue := &fakeScoreCanceler{}
	lock := &fakeJobLock{acquired: true}

	job := &staleApplicationReaperJob{
		interval:        time.Minute,
		applicationRepo: store,
		queue:           queue,
		distributedLock: lock,
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(queue.cancelled) != 2 {
		t.Fatalf("expected 2 cancelled tasks, got %d", len(queue.cancelled))
	}
	for _, id := range []string{"app-1", "app-2"} {
		msg, ok := store.failed[id]
		if !ok {
			t.Errorf("expected application %s to be marked failed", id)
			continue
		}
		if msg != "scoring timed out" {
			t.Errorf("unexpected failure message: %s", msg)
		}
	}
	if !lock.unlocked {
		t.Error("expected lock to be released")
	}
}

func TestStaleApplicationReaperFailsEvenWhenCancelErrors(t *testing.T) {
	config.GlobalConfig = config.Default()

	store := newFakeStaleStore("app-1")
	// Task already consumed by a worker, nothing left to delete.
	queue := &fakeScoreCanceler{cancelErr: errors.New("task not found")}

	job := &staleApplicationReaperJob{
		interval:        time.Minute,
		applicationRepo: store,
		queue:           queue,
		distributedLock: &fakeJobLock{acquired: true},
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := store.failed["app-1"]; !ok {
		t.Error("expected application to be marked failed despite cancel error")
	}
}

func TestStaleApplicationReaperSkipsWithoutLock(t *testing.T) {
	config.GlobalConfig = config.Default()

	store := newFakeStaleStore("app-1")
	queue := &fakeScoreCanceler{}

	job := &staleApplicationReaperJob{
		interval:        time.Minute,
		applicationRepo: store,
		queue:           queue,
		distributedLock: &fakeJobLock{acquired: false},
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(queue.cancelled) != 0 || len(store.failed) != 0 {
		t.Error("expected no reaping while another instance holds the lock")
	}
}
