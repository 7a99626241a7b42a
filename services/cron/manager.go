// Package cron runs the service's background maintenance jobs.
package cron

import (
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/inferly/content-tags/database"
)

// Manager manages all scheduled maintenance jobs
type Manager struct {
	cron  *cron.Cron
	store *database.KeyStore
}

// NewManager creates a new cron manager
func NewManager(db *gorm.DB) *Manager {
	return &Manager{
		cron:  cron.New(cron.WithSeconds()),
		store: database.NewKeyStore(db),
	}
}

// Start registers and starts all jobs
func (m *Manager) Start() error {
	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()
	logrus.Info("cron jobs started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (m *Manager) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	logrus.Info("cron jobs stopped")
}

// registerJobs registers all jobs with their schedules
func (m *Manager) registerJobs() error {
	// Hourly: drop rate window entries that can no longer affect
	// admission. Keeps request_counts columns small for idle keys.
	_, err := m.cron.AddFunc("0 0 * * * *", func() {
		logrus.Debug("cron: prune_request_windows starting")
		m.PruneRequestWindows()
	})
	if err != nil {
		return err
	}

	// Daily at 3 AM: trim usage log rows past the analytics retention
	// horizon.
	_, err = m.cron.AddFunc("0 0 3 * * *", func() {
		logrus.Debug("cron: prune_usage_logs starting")
		m.PruneUsageLogs()
	})
	if err != nil {
		return err
	}

	return nil
}
