// Package api exposes carts and package quotes over JSON HTTP. Each cart lives in an
// in-memory session keyed by its id.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"studiobook/internal/availability"
	"studiobook/internal/cart"
	"studiobook/internal/config"
	"studiobook/internal/events"
	"studiobook/internal/metrics"
	"studiobook/internal/notify"
)

// Deps are the collaborators of a Server. Notifier and Bus may be nil.
type Deps struct {
	Rates    *config.LiveRates
	Store    *availability.Store
	Notifier notify.Notifier
	Bus      *events.Bus
	Logger   *zerolog.Logger

	WhatsAppNumber    string
	SessionTimeout    time.Duration
	RequestsPerSecond float64
	Burst             int
	// TrustProxyHeaders takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool
	Now               func() time.Time
}

type Server struct {
	rates    *config.LiveRates
	store    *availability.Store
	notifier notify.Notifier
	bus      *events.Bus
	logger   *zerolog.Logger
	whatsapp string
	now      func() time.Time

	trustProxy bool

	sessions *SessionStore
	limiter  *clientLimiter
}

func NewServer(d Deps) *Server {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	if d.RequestsPerSecond <= 0 {
		d.RequestsPerSecond = 10
	}
	if d.Burst <= 0 {
		d.Burst = 20
	}
	if d.Logger == nil {
		nop := zerolog.Nop()
		d.Logger = &nop
	}

	s := &Server{
		rates:    d.Rates,
		store:    d.Store,
		notifier: d.Notifier,
		bus:      d.Bus,
		logger:   d.Logger,
		whatsapp: d.WhatsAppNumber,
		now:      now,

		trustProxy: d.TrustProxyHeaders,
		sessions: NewSessionStore(d.SessionTimeout, now),
		limiter:  newClientLimiter(d.RequestsPerSecond, d.Burst),
	}
	if s.bus != nil {
		s.bus.Subscribe(events.TypeReservationsUpdated, s.onReservationsUpdated)
	}
	return s
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(s.limiter.middleware(s.now))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/packages/quote", s.quotePackage)

		r.Post("/carts", s.createCart)
		r.Route("/carts/{id}", func(r chi.Router) {
			r.Get("/", s.getCart)
			r.Post("/items", s.addItem)
			r.Delete("/items", s.clearCart)
			r.Delete("/items/{bookingID}", s.removeItem)
			r.Post("/preview", s.preview)
			r.Put("/schedule", s.schedule)
			r.Get("/availability", s.checkAvailability)
			r.Get("/clock", s.clock)
			r.Post("/confirm", s.confirm)
			r.Get("/quote.xlsx", s.quoteXLSX)
		})
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

// RunJanitor drops idle carts and forgotten rate-limit buckets every interval.
func (s *Server) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.Cleanup(); n > 0 {
				s.logger.Info().Int("removed", n).Msg("expired carts removed")
			}
			s.limiter.purge(s.now().Add(-10 * time.Minute))
			metrics.SetActiveCarts(s.sessions.Len())
		}
	}
}

// onReservationsUpdated re-runs every slot check of every live cart against the new
// snapshot and reports slots that just became unavailable.
func (s *Server) onReservationsUpdated(events.Event) error {
	s.sessions.each(func(sess *session) {
		for _, slot := range s.refreshConflicts(sess) {
			s.logger.Warn().
				Str("cart_id", sess.cart.ID()).
				Str("booking_id", slot.BookingID).
				Str("date", sess.cart.Date()).
				Str("start", slot.Start).
				Str("reason", string(slot.Reason)).
				Msg("slot became unavailable after reservations update")
		}
	})
	return nil
}

// refreshConflicts recomputes slot states and returns the slots that are
// conflicting now but were not before. The session must be locked.
func (s *Server) refreshConflicts(sess *session) []cart.Slot {
	var flipped []cart.Slot
	seen := make(map[string]bool)
	for _, slot := range sess.cart.Slots() {
		if slot.State != cart.SlotConflicting {
			continue
		}
		seen[slot.BookingID] = true
		if !sess.conflicting[slot.BookingID] {
			flipped = append(flipped, slot)
		}
	}
	sess.conflicting = seen
	return flipped
}
