// Package ingestion keeps the local storm-drain snapshot in step with the
// data backend and raises alerts when a drain becomes high risk.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/novarobotics/stormdrain/internal/config"
	"github.com/novarobotics/stormdrain/internal/metrics"
	"github.com/novarobotics/stormdrain/internal/models"
	"github.com/novarobotics/stormdrain/internal/repository"
	"github.com/novarobotics/stormdrain/internal/worker"
)

// DrainLister is the part of the backend client the poller needs.
type DrainLister interface {
	List(ctx context.Context, limit int) ([]models.StormDrain, error)
}

// AlertPublisher receives alerts for drains that crossed the threshold.
type AlertPublisher interface {
	Broadcast(a *models.Alert) int
}

type Manager struct {
	cfg       *config.Config
	source    DrainLister
	repo      repository.DrainRepository
	publisher AlertPublisher
	pool      *worker.Pool[models.StormDrain]
	onSync    func(error)
	wg        sync.WaitGroup

	mu       sync.RWMutex
	lastSync time.Time
	lastErr  error
}

func NewManager(cfg *config.Config, source DrainLister, repo repository.DrainRepository, publisher AlertPublisher) *Manager {
	return &Manager{
		cfg:       cfg,
		source:    source,
		repo:      repo,
		publisher: publisher,
	}
}

// OnSync registers a callback invoked after every poll with its error (nil on success).
// Must be called before Start.
func (m *Manager) OnSync(fn func(error)) {
	m.onSync = fn
}

func (m *Manager) Start(ctx context.Context) {
	m.pool = worker.NewPool[models.StormDrain]("snapshot", m.cfg.Worker.Count, m.cfg.Worker.BufferSize, m.process)
	m.pool.Start(ctx)

	if m.cfg.Backend.SyncEnabled && m.cfg.Backend.URL != "" && m.source != nil {
		m.wg.Add(1)
		go m.runPoller(ctx, m.cfg.Backend.PollInterval)
	} else {
		slog.Info("backend sync disabled")
	}
}

func (m *Manager) runPoller(ctx context.Context, interval time.Duration) {
	defer m.wg.Done()
	slog.Info("starting poller", "source", "backend", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial poll
	m.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("poller shutting down", "source", "backend")
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

func (m *Manager) poll(ctx context.Context) {
	err := m.Sync(ctx)
	if err != nil {
		slog.Error("poll failed", "source", "backend", "error", err)
	}
	if m.onSync != nil {
		m.onSync(err)
	}
}

// Sync fetches one page of drains and queues them for the snapshot writers.
func (m *Manager) Sync(ctx context.Context) error {
	drains, err := m.source.List(ctx, m.cfg.Backend.SyncLimit)

	m.mu.Lock()
	m.lastErr = err
	if err == nil {
		m.lastSync = time.Now()
	}
	m.mu.Unlock()

	if err != nil {
		metrics.SyncRuns.WithLabelValues("error").Inc()
		return fmt.Errorf("listing drains: %w", err)
	}
	metrics.SyncRuns.WithLabelValues("ok").Inc()

	queued := 0
	for _, d := range drains {
		if !m.pool.Submit(ctx, d) {
			break
		}
		queued++
	}

	slog.Debug("poll complete", "source", "backend", "count", len(drains), "queued", queued)
	return nil
}

// LastSync reports when the last successful poll finished and the error of the latest poll.
func (m *Manager) LastSync() (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSync, m.lastErr
}

func (m *Manager) process(ctx context.Context, d models.StormDrain) error {
	prev, err := m.repo.GetByID(ctx, d.ID)
	if err != nil {
		return fmt.Errorf("loading drain %s: %w", d.ID, err)
	}

	if err := m.repo.Upsert(ctx, &d); err != nil {
		return fmt.Errorf("saving drain %s: %w", d.ID, err)
	}
	metrics.DrainsSynced.Inc()

	if m.publisher != nil && crossedThreshold(prev, &d, m.cfg.Alerts.CRIThreshold) {
		alert := newAlert(prev, &d)
		n := m.publisher.Broadcast(alert)
		metrics.AlertsRaised.Inc()
		slog.Info("raised alert", "id", d.ID, "cri", alert.CRI, "subscribers", n)
	}
	return nil
}

// crossedThreshold is true when cur is at or above threshold and prev was
// either unknown or below it. Repeated high readings do not re-alert.
func crossedThreshold(prev, cur *models.StormDrain, threshold int) bool {
	if cur.CRI == nil || *cur.CRI < threshold {
		return false
	}
	if prev == nil || prev.CRI == nil {
		return true
	}
	return *prev.CRI < threshold
}

func newAlert(prev, cur *models.StormDrain) *models.Alert {
	a := &models.Alert{
		ID:        uuid.NewString(),
		DrainID:   cur.ID,
		Name:      cur.Name,
		CRI:       *cur.CRI,
		Status:    cur.Status,
		Latitude:  cur.Lat,
		Longitude: cur.Lng,
		RaisedAt:  time.Now().UTC(),
	}
	if prev != nil && prev.CRI != nil {
		p := *prev.CRI
		a.PrevCRI = &p
	}
	return a
}

func (m *Manager) Stop() {
	m.wg.Wait()
	m.pool.Stop()
	slog.Info("ingestion manager stopped")
}
