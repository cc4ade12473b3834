package cleanup

import (
	"time"

	"platewatch-go/internal/db/repository"
	"platewatch-go/internal/storage"

	log "github.com/sirupsen/logrus"
)

// Service handles the automatic cleanup of old detection events and their
// stored image attachments.
type Service struct {
	repo          repository.Repository
	store         *storage.Store
	retentionDays int
	checkInterval time.Duration
	stopChan      chan struct{} // Channel to signal stopping the background routine
}

// NewService creates a new cleanup service. Returns nil when cleanup is
// disabled (retention_days <= 0).
func NewService(repo repository.Repository, store *storage.Store, retentionDays int, checkInterval time.Duration) *Service {
	if retentionDays <= 0 {
		log.Info("Automatic cleanup disabled (retention_days <= 0).")
		return nil
	}
	log.Infof("Initializing cleanup service: RetentionDays=%d, CheckInterval=%s", retentionDays, checkInterval)
	return &Service{
		repo:          repo,
		store:         store,
		retentionDays: retentionDays,
		checkInterval: checkInterval,
		stopChan:      make(chan struct{}),
	}
}

// StartBackgroundCleanup starts a goroutine that periodically runs the cleanup cycle.
func (s *Service) StartBackgroundCleanup() {
	if s == nil {
		return // Service was not initialized (cleanup disabled)
	}
	log.Info("Starting background cleanup routine...")

	// Run cleanup once immediately on start
	go func() {
		log.Info("Running initial cleanup check on startup...")
		s.RunCleanupCycle()
	}()

	ticker := time.NewTicker(s.checkInterval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				log.Info("Running scheduled cleanup cycle...")
				s.RunCleanupCycle()
			case <-s.stopChan:
				log.Info("Stopping background cleanup routine.")
				return
			}
		}
	}()
}

// StopBackgroundCleanup signals the background cleanup routine to stop.
// Repeated calls are a no-op.
func (s *Service) StopBackgroundCleanup() {
	if s == nil || s.stopChan == nil {
		return
	}
	select {
	case <-s.stopChan:
		// Already closed
	default:
		close(s.stopChan)
	}
}

// RunCleanupCycle performs one cleanup cycle, deleting events older than
// the retention period together with their attachment files.
func (s *Service) RunCleanupCycle() {
	if s == nil || s.retentionDays <= 0 {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	log.Infof("Cleanup: Deleting events older than %s", cutoff.Format(time.RFC3339))

	deleted, err := s.repo.DeleteEventsBefore(cutoff)
	if err != nil {
		log.Errorf("Cleanup: Failed to delete old events: %v", err)
		return
	}
	if len(deleted) == 0 {
		log.Info("Cleanup: No old events found to delete.")
		return
	}

	// Zugehörige Bilddateien entfernen
	removedFiles := 0
	for _, event := range deleted {
		for _, name := range []*string{event.PlateImage, event.VehicleImage, event.SceneImage} {
			if name == nil {
				continue
			}
			if err := s.store.Remove(*name); err != nil {
				log.Warnf("Cleanup: Failed to remove attachment %s: %v", *name, err)
				continue
			}
			removedFiles++
		}
	}

	log.Infof("Cleanup: Removed %d event(s) and %d attachment file(s).", len(deleted), removedFiles)
}
