// Package notify delivers confirmed booking requests to the studio: a Telegram
// message to the managers and a row per session in a Google Sheets ledger.
package notify

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"studiobook/internal/metrics"
	"studiobook/internal/summary"
)

// Notifier delivers a booking request summary.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, s *summary.Summary) error
}

// Fanout delivers to every notifier and joins their errors. One failing channel
// does not stop the others.
type Fanout struct {
	notifiers []Notifier
	logger    *zerolog.Logger
}

func NewFanout(logger *zerolog.Logger, notifiers ...Notifier) *Fanout {
	return &Fanout{notifiers: notifiers, logger: logger}
}

func (f *Fanout) Name() string { return "fanout" }

func (f *Fanout) Notify(ctx context.Context, s *summary.Summary) error {
	var errs []error
	for _, n := range f.notifiers {
		if err := n.Notify(ctx, s); err != nil {
			metrics.IncNotification(n.Name(), "failed")
			f.logger.Error().Err(err).Str("channel", n.Name()).Str("cart_id", s.CartID).Msg("booking request delivery failed")
			errs = append(errs, err)
			continue
		}
		metrics.IncNotification(n.Name(), "ok")
		f.logger.Info().Str("channel", n.Name()).Str("cart_id", s.CartID).Msg("booking request delivered")
	}
	return errors.Join(errs...)
}
