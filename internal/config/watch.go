package config

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// RatesWatcher polls the rate card file and publishes every successfully validated
// version into a LiveRates. A broken edit is logged and the previous card stays live.
type RatesWatcher struct {
	path     string
	interval time.Duration
	live     *LiveRates
	logger   *zerolog.Logger

	lastMod time.Time
}

func NewRatesWatcher(path string, interval time.Duration, live *LiveRates, logger *zerolog.Logger) *RatesWatcher {
	if path == "" {
		path = "configs/rates.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &RatesWatcher{path: path, interval: interval, live: live, logger: logger}
}

// Load performs the initial load. A missing or invalid file is an error here.
func (w *RatesWatcher) Load() error {
	info, err := os.Stat(w.path)
	if err != nil {
		return err
	}
	card, err := LoadRates(w.path)
	if err != nil {
		return err
	}
	w.live.Set(card)
	w.lastMod = info.ModTime()
	return nil
}

// Reload loads the file again if it changed since the last good load and reports
// whether a new card went live.
func (w *RatesWatcher) Reload() bool {
	info, err := os.Stat(w.path)
	if err != nil || !info.ModTime().After(w.lastMod) {
		return false
	}

	card, err := LoadRates(w.path)
	if err != nil {
		w.logger.Error().Err(err).Str("path", w.path).Msg("rate card reload rejected")
		return false
	}
	w.live.Set(card)
	w.lastMod = info.ModTime()
	w.logger.Info().Str("path", w.path).Msg("rate card reloaded")
	return true
}

// Run checks the file every interval until ctx is done.
func (w *RatesWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Reload()
		}
	}
}
