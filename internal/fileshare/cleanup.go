package fileshare

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// CleanupWorker runs the recurring expiry sweep and, less frequently,
// a storage sync that drops orphaned objects. Stop deterministically
// prevents further ticks; an in-flight sweep completes.
type CleanupWorker struct {
	service       *Service
	interval      time.Duration
	syncInterval  time.Duration
	done          chan struct{}
	cleanupTicker *time.Ticker
	syncTicker    *time.Ticker
}

func NewCleanupWorker(service *Service, interval time.Duration) *CleanupWorker {
	return &CleanupWorker{
		service:      service,
		interval:     interval,
		syncInterval: 6 * time.Hour,
		done:         make(chan struct{}),
	}
}

func (w *CleanupWorker) Start(ctx context.Context) {
	// Perform initial cleanup
	w.performInitialCleanup(ctx)

	w.cleanupTicker = time.NewTicker(w.interval)
	w.syncTicker = time.NewTicker(w.syncInterval)

	go w.run(ctx)

	log.Info().
		Dur("interval", w.interval).
		Dur("sync_interval", w.syncInterval).
		Msg("started cleanup worker")
}

func (w *CleanupWorker) Stop() {
	select {
	case <-w.done:
		return // already stopped
	default:
	}

	if w.cleanupTicker != nil {
		w.cleanupTicker.Stop()
	}
	if w.syncTicker != nil {
		w.syncTicker.Stop()
	}
	close(w.done)
	log.Info().Msg("cleanup worker stopped")
}

func (w *CleanupWorker) performInitialCleanup(ctx context.Context) {
	if err := w.service.CleanupExpired(ctx); err != nil {
		log.Error().
			Err(err).
			Msg("error during initial cleanup sweep")
	}

	if err := w.service.SyncStorage(ctx); err != nil {
		log.Error().
			Err(err).
			Msg("error during initial storage sync")
	}
}

func (w *CleanupWorker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("context cancelled, cleanup worker shutting down")
			return
		case <-w.done:
			return
		case <-w.cleanupTicker.C:
			if err := w.service.CleanupExpired(ctx); err != nil {
				log.Error().
					Err(err).
					Msg("error during cleanup sweep")
			}
		case <-w.syncTicker.C:
			if err := w.service.SyncStorage(ctx); err != nil {
				log.Error().
					Err(err).
					Msg("error syncing storage with metadata store")
			}
		}
	}
}
