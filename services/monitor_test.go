package services

import (
	"context"
	"errors"
	"testing"

	"stuytown-watcher/config"
	"stuytown-watcher/models"
)

type fakeSource struct {
	listings []*models.Listing
	err      error
	started  bool
	stopped  bool
}

func (f *fakeSource) Start(ctx context.Context) error { f.started = true; return nil }
func (f *fakeSource) Stop()                           { f.stopped = true }
func (f *fakeSource) Snapshot() ([]*models.Listing, error) {
	return f.listings, f.err
}

type fakeStore struct {
	state models.KnownState
	saved []models.KnownState
}

func (f *fakeStore) Load() models.KnownState {
	if f.state == nil {
		return models.KnownState{}
	}
	return f.state
}

func (f *fakeStore) Save(state models.KnownState) error {
	f.saved = append(f.saved, state)
	return nil
}

type fakeSender struct {
	batches [][]*models.Listing
	err     error
}

func (f *fakeSender) NotifyNew(listings []*models.Listing) error {
	f.batches = append(f.batches, listings)
	return f.err
}

func (f *fakeSender) SendTest() error { return f.err }

type fakeArchiver struct {
	snapshots int
	newItems  int
}

func (f *fakeArchiver) Archive(snapshot, newItems []*models.Listing) error {
	f.snapshots += len(snapshot)
	f.newItems += len(newItems)
	return nil
}

func (f *fakeArchiver) Close() error { return nil }

func testConfig() *config.Config {
	return &config.Config{CheckIntervalSec: 30}
}

func newTestMonitor(source *fakeSource, store *fakeStore, sender *fakeSender) *Monitor {
	return NewMonitor(testConfig(), newTestLogger(), source, store, nil, sender)
}

func TestMonitorEmptySnapshotSkipsCycle(t *testing.T) {
	source := &fakeSource{listings: nil}
	store := &fakeStore{}
	sender := &fakeSender{}

	m := newTestMonitor(source, store, sender)
	m.known = models.KnownState{"12 Ave A": listing("12 Ave A", "$3,000")}

	m.checkOnce()

	if len(store.saved) != 0 {
		t.Error("state was persisted on an empty snapshot")
	}
	if len(sender.batches) != 0 {
		t.Error("notification was sent on an empty snapshot")
	}
	if len(m.known) != 1 {
		t.Errorf("known state modified on empty snapshot: %d entries", len(m.known))
	}
}

func TestMonitorSnapshotErrorSkipsCycle(t *testing.T) {
	source := &fakeSource{err: errors.New("render timeout")}
	store := &fakeStore{}
	sender := &fakeSender{}

	m := newTestMonitor(source, store, sender)
	m.checkOnce()

	if len(store.saved) != 0 || len(sender.batches) != 0 {
		t.Error("cycle side effects occurred after a snapshot error")
	}
}

func TestMonitorNotifiesOnlyNewListings(t *testing.T) {
	known := listing("12 Ave A", "$3,000")
	fresh := listing("285 Ave C", "$3,500")
	source := &fakeSource{listings: []*models.Listing{known, fresh}}
	store := &fakeStore{}
	sender := &fakeSender{}

	m := newTestMonitor(source, store, sender)
	m.known = models.KnownState{"12 Ave A": known}

	m.checkOnce()

	if len(store.saved) != 1 {
		t.Fatalf("saves: got %d, want 1", len(store.saved))
	}
	if len(store.saved[0]) != 2 {
		t.Errorf("persisted state size: got %d, want 2", len(store.saved[0]))
	}
	if len(sender.batches) != 1 {
		t.Fatalf("notification batches: got %d, want 1", len(sender.batches))
	}
	if len(sender.batches[0]) != 1 || sender.batches[0][0].Address != "285 Ave C" {
		t.Errorf("notified batch = %+v, want only 285 Ave C", sender.batches[0])
	}
}

func TestMonitorNoNotificationWithoutNewListings(t *testing.T) {
	known := listing("12 Ave A", "$3,000")
	source := &fakeSource{listings: []*models.Listing{known}}
	store := &fakeStore{}
	sender := &fakeSender{}

	m := newTestMonitor(source, store, sender)
	m.known = models.KnownState{"12 Ave A": known}

	m.checkOnce()

	if len(store.saved) != 1 {
		t.Errorf("saves: got %d, want 1 (state persists every non-empty cycle)", len(store.saved))
	}
	if len(sender.batches) != 0 {
		t.Error("notification sent although nothing was new")
	}
}

func TestMonitorNotifyFailureDoesNotUndoPersistence(t *testing.T) {
	source := &fakeSource{listings: []*models.Listing{listing("12 Ave A", "$3,000")}}
	store := &fakeStore{}
	sender := &fakeSender{err: errors.New("smtp auth failed")}

	m := newTestMonitor(source, store, sender)
	m.checkOnce()

	if len(store.saved) != 1 {
		t.Errorf("saves: got %d, want 1 (delivery failure must not affect persistence)", len(store.saved))
	}
	if len(m.known) != 1 {
		t.Errorf("known state: got %d entries, want 1", len(m.known))
	}
}

func TestMonitorArchivesEveryCycle(t *testing.T) {
	source := &fakeSource{listings: []*models.Listing{
		listing("12 Ave A", "$3,000"),
		listing("285 Ave C", "$3,500"),
	}}
	store := &fakeStore{}
	sender := &fakeSender{}
	archiver := &fakeArchiver{}

	m := NewMonitor(testConfig(), newTestLogger(), source, store, archiver, sender)
	m.checkOnce()

	if archiver.snapshots != 2 {
		t.Errorf("archived snapshot rows: got %d, want 2", archiver.snapshots)
	}
	if archiver.newItems != 2 {
		t.Errorf("archived new items: got %d, want 2", archiver.newItems)
	}
}

func TestMonitorSaveBaselineSkipsNotification(t *testing.T) {
	source := &fakeSource{listings: []*models.Listing{
		listing("12 Ave A", "$3,000"),
		listing("285 Ave C", "$3,500"),
	}}
	store := &fakeStore{}
	sender := &fakeSender{}

	m := newTestMonitor(source, store, sender)
	if err := m.SaveBaseline(context.Background()); err != nil {
		t.Fatalf("SaveBaseline: %v", err)
	}

	if !source.started || !source.stopped {
		t.Error("baseline did not manage the session lifecycle")
	}
	if len(store.saved) != 1 || len(store.saved[0]) != 2 {
		t.Errorf("baseline persistence wrong: %+v", store.saved)
	}
	if len(sender.batches) != 0 {
		t.Error("baseline sent a notification")
	}
}
