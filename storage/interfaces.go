package storage

import "stuytown-watcher/models"

// StateStore persists the known-listings state between check cycles.
// Load never fails: an unreadable or corrupt store is reported as empty.
type StateStore interface {
	Load() models.KnownState
	Save(state models.KnownState) error
}

// SnapshotArchiver records every extracted snapshot for later inspection.
type SnapshotArchiver interface {
	Archive(snapshot []*models.Listing, newItems []*models.Listing) error
	Close() error
}
