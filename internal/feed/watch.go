package feed

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"studiobook/internal/availability"
	"studiobook/internal/metrics"
)

// Sink receives whole reservation snapshots.
type Sink interface {
	Replace(reservations []availability.Reservation)
}

// Watcher polls a Source and pushes the snapshot into a Sink whenever it changes.
type Watcher struct {
	src      Source
	sink     Sink
	interval time.Duration
	logger   *zerolog.Logger

	last [sha256.Size]byte
	seen bool
}

// NewWatcher creates a watcher; interval defaults to 15s.
func NewWatcher(src Source, sink Sink, interval time.Duration, logger *zerolog.Logger) *Watcher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Watcher{src: src, sink: sink, interval: interval, logger: logger}
}

// Poll reads the source once and pushes the snapshot if it differs from the last
// pushed one. It reports whether a push happened.
func (w *Watcher) Poll(ctx context.Context) (bool, error) {
	res, err := w.src.Reservations(ctx)
	if err != nil {
		metrics.IncFeedError()
		return false, err
	}

	data, err := json.Marshal(res)
	if err != nil {
		return false, err
	}
	sum := sha256.Sum256(data)
	if w.seen && sum == w.last {
		return false, nil
	}

	w.sink.Replace(res)
	w.last, w.seen = sum, true
	metrics.SetReservations(len(res))
	w.logger.Info().Int("reservations", len(res)).Msg("reservation snapshot updated")
	return true, nil
}

// Run polls until ctx is done. Poll errors are logged and retried on the next tick.
func (w *Watcher) Run(ctx context.Context) {
	if _, err := w.Poll(ctx); err != nil {
		w.logger.Error().Err(err).Msg("initial reservation load failed")
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Poll(ctx); err != nil {
				w.logger.Warn().Err(err).Msg("reservation refresh failed")
			}
		}
	}
}
