package services

import (
	"context"
	"fmt"
	"time"

	"stuytown-watcher/config"
	"stuytown-watcher/models"
	"stuytown-watcher/storage"
	"stuytown-watcher/utils"
)

// ListingSource produces one full snapshot of the listing page per call.
type ListingSource interface {
	Start(ctx context.Context) error
	Stop()
	Snapshot() ([]*models.Listing, error)
}

// NotificationSender delivers listing notifications.
type NotificationSender interface {
	NotifyNew(listings []*models.Listing) error
	SendTest() error
}

// Monitor owns the check cadence and the in-memory known state, and
// sequences scrape, diff, persistence, and notification for each cycle.
// Cycles run strictly one at a time.
type Monitor struct {
	cfg      *config.Config
	logger   *utils.Logger
	source   ListingSource
	store    storage.StateStore
	archive  storage.SnapshotArchiver // nil when no archive is configured
	detector *Detector
	notifier NotificationSender

	known models.KnownState
}

// NewMonitor wires a Monitor from its collaborators. archive may be nil.
func NewMonitor(cfg *config.Config, logger *utils.Logger, source ListingSource,
	store storage.StateStore, archive storage.SnapshotArchiver, notifier NotificationSender) *Monitor {
	return &Monitor{
		cfg:      cfg,
		logger:   logger,
		source:   source,
		store:    store,
		archive:  archive,
		detector: NewDetector(logger),
		notifier: notifier,
		known:    models.KnownState{},
	}
}

// RunContinuous acquires the browser session, then checks the page on a
// fixed interval until ctx is canceled. Failure to acquire the session is
// fatal and propagated; everything inside the loop is logged and survived.
// The session is released on every exit path.
func (m *Monitor) RunContinuous(ctx context.Context) error {
	if err := m.source.Start(ctx); err != nil {
		return fmt.Errorf("monitor: acquire rendering session: %w", err)
	}
	defer m.source.Stop()

	m.known = m.store.Load()

	interval := time.Duration(m.cfg.CheckIntervalSec) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m.checkOnce()

		m.logger.Info("[monitor] Waiting %s before next check", interval)
		select {
		case <-ctx.Done():
			m.logger.Info("[monitor] Shutting down")
			return nil
		case <-ticker.C:
		}
	}
}

// checkOnce runs a single check cycle. Every failure inside a cycle is
// logged and the cycle is abandoned or continued as the taxonomy dictates;
// nothing here ends the loop.
func (m *Monitor) checkOnce() {
	m.logger.Info("[monitor] Starting listing check")

	current, err := m.source.Snapshot()
	if err != nil {
		m.logger.Error("[monitor] Snapshot failed: %v", err)
		return
	}

	// An empty extraction reads as a failed render, not an empty page:
	// skip the cycle so a transient failure never wipes state.
	if len(current) == 0 {
		m.logger.Warn("[monitor] No listings extracted — skipping cycle (check selectors)")
		return
	}

	newItems, merged := m.detector.Detect(current, m.known)
	m.known = merged

	if err := m.store.Save(merged); err != nil {
		m.logger.Error("[monitor] Failed to persist state: %v", err)
	}

	if m.archive != nil {
		if err := m.archive.Archive(current, newItems); err != nil {
			m.logger.Error("[monitor] Snapshot archive failed: %v", err)
		}
	}

	if len(newItems) == 0 {
		m.logger.Info("[monitor] No new listings found")
		return
	}

	m.logger.Info("[monitor] Found %d new listing(s)", len(newItems))
	if err := m.notifier.NotifyNew(newItems); err != nil {
		m.logger.Error("[monitor] Notification failed: %v", err)
	}
}

// SaveBaseline performs a one-shot scrape and stores every extracted
// listing as already known, without detection or notification. Used for
// initial setup so the first real check does not report the entire page.
func (m *Monitor) SaveBaseline(ctx context.Context) error {
	if err := m.source.Start(ctx); err != nil {
		return fmt.Errorf("monitor: acquire rendering session: %w", err)
	}
	defer m.source.Stop()

	current, err := m.source.Snapshot()
	if err != nil {
		return fmt.Errorf("monitor: baseline snapshot: %w", err)
	}
	if len(current) == 0 {
		m.logger.Warn("[monitor] No listings extracted — baseline not saved (check selectors)")
		return nil
	}

	_, merged := m.detector.Detect(current, models.KnownState{})
	m.known = merged

	if err := m.store.Save(merged); err != nil {
		return fmt.Errorf("monitor: save baseline: %w", err)
	}

	m.logger.Info("[monitor] Saved %d listings as initial baseline", len(merged))
	return nil
}

// SendTestNotification sends the connectivity-test email.
func (m *Monitor) SendTestNotification() error {
	return m.notifier.SendTest()
}
