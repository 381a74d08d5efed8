package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"studiobook/internal/availability"
	"studiobook/internal/cart"
	"studiobook/internal/events"
	"studiobook/internal/metrics"
	"studiobook/internal/pricing"
	"studiobook/internal/summary"
	"studiobook/internal/timeutil"
)

const notifyTimeout = 15 * time.Second

// withSession resolves the cart in the URL and runs fn with its session locked.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(sess *session)) {
	sess, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "cart not found")
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touch(s.now())
	fn(sess)
}

func (s *Server) createCart(w http.ResponseWriter, r *http.Request) {
	c := cart.New(s.rates.Current(), s.store, cart.WithClock(s.now))
	s.sessions.Add(c)
	metrics.IncCartMutation("create")
	metrics.SetActiveCarts(s.sessions.Len())

	s.logger.Debug().Str("cart_id", c.ID()).Msg("cart created")
	writeJSON(w, http.StatusCreated, newCartView(c))
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		writeJSON(w, http.StatusOK, newCartView(sess.cart))
	})
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		sess.cart.Clear()
		sess.conflicting = map[string]bool{}
		metrics.IncCartMutation("clear")
		writeJSON(w, http.StatusOK, newCartView(sess.cart))
	})
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decode(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	kind := pricing.ServiceKind(req.ServiceKind)

	s.withSession(w, r, func(sess *session) {
		minHours, err := sess.cart.DefaultHours(kind, req.CameraCount)
		if err != nil {
			writeCartError(w, err)
			return
		}
		if req.Hours < minHours {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("hours must be at least %d for this setup", minHours))
			return
		}
		if _, err := sess.cart.Add(kind, req.CameraCount, req.Hours); err != nil {
			writeCartError(w, err)
			return
		}
		metrics.IncCartMutation("add")
		s.refreshConflicts(sess)
		writeJSON(w, http.StatusOK, newCartView(sess.cart))
	})
}

func (s *Server) removeItem(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		if err := sess.cart.Remove(chi.URLParam(r, "bookingID")); err != nil {
			writeCartError(w, err)
			return
		}
		metrics.IncCartMutation("remove")
		s.refreshConflicts(sess)
		writeJSON(w, http.StatusOK, newCartView(sess.cart))
	})
}

func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decode(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	kind := pricing.ServiceKind(req.ServiceKind)

	s.withSession(w, r, func(sess *session) {
		p, err := sess.cart.Preview(kind, req.CameraCount, req.Hours)
		if err != nil {
			writeCartError(w, err)
			return
		}
		minHours, _ := sess.cart.DefaultHours(kind, req.CameraCount)
		writeJSON(w, http.StatusOK, previewResponse{Cost: p.Cost, Savings: p.Savings, MinHours: minHours})
	})
}

func (s *Server) schedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := decode(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.withSession(w, r, func(sess *session) {
		if err := sess.cart.ApplySchedule(cart.ScheduleChange{
			Split:  req.Split,
			Date:   req.Date,
			Start:  req.Start,
			Starts: req.Starts,
			Active: req.Active,
		}); err != nil {
			writeCartError(w, err)
			return
		}
		metrics.IncCartMutation("schedule")
		s.refreshConflicts(sess)
		writeJSON(w, http.StatusOK, newCartView(sess.cart))
	})
}

// slotHours resolves the duration to check: the query value, else the booking's
// hours, else the whole cart.
func slotHours(c *cart.Cart, raw, bookingID string) (int, error) {
	if raw != "" {
		h, err := strconv.Atoi(raw)
		if err != nil || h < 1 {
			return 0, errors.New("hours must be a positive integer")
		}
		return h, nil
	}
	if bookingID != "" {
		for _, b := range c.Items() {
			if b.ID == bookingID {
				return b.Hours, nil
			}
		}
		return 0, fmt.Errorf("%w: %s", cart.ErrUnknownBooking, bookingID)
	}
	if h := c.TotalHours(); h > 0 {
		return h, nil
	}
	return 1, nil
}

func (s *Server) checkAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start := q.Get("start")
	if start == "" {
		writeError(w, http.StatusBadRequest, "start is required")
		return
	}

	s.withSession(w, r, func(sess *session) {
		bookingID := q.Get("booking_id")
		hours, err := slotHours(sess.cart, q.Get("hours"), bookingID)
		if err != nil {
			writeCartError(w, err)
			return
		}
		res := sess.cart.Check(start, hours, bookingID)

		outcome := "available"
		if !res.Available {
			outcome = string(res.Reason)
		}
		metrics.IncAvailabilityCheck(outcome)
		writeJSON(w, http.StatusOK, res)
	})
}

var clockFace = []int{12, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}

func (s *Server) clock(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	s.withSession(w, r, func(sess *session) {
		c := sess.cart
		if c.Date() == "" {
			writeError(w, http.StatusBadRequest, "date is not selected")
			return
		}
		bookingID := q.Get("booking_id")
		hours, err := slotHours(c, q.Get("hours"), bookingID)
		if err != nil {
			writeCartError(w, err)
			return
		}

		others := c.Placed()
		face := func(p timeutil.Period) []clockHour {
			out := make([]clockHour, 0, len(clockFace))
			for _, h := range clockFace {
				out = append(out, clockHour{
					Hour:       h,
					Selectable: s.store.HourSelectable(c.Date(), h, p, hours, bookingID, others),
				})
			}
			return out
		}
		writeJSON(w, http.StatusOK, clockResponse{
			Date:  c.Date(),
			Hours: hours,
			AM:    face(timeutil.AM),
			PM:    face(timeutil.PM),
		})
	})
}

func (s *Server) confirm(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "cart not found")
		return
	}
	sess.mu.Lock()
	sess.touch(s.now())
	sm, err := sess.cart.Confirm()
	sess.mu.Unlock()

	if err != nil {
		var ce *cart.ConfirmError
		if !errors.As(err, &ce) {
			metrics.IncConfirmation("error")
			writeError(w, http.StatusInternalServerError, "confirmation failed")
			return
		}
		metrics.IncConfirmation(string(ce.Kind))
		s.logger.Info().Str("cart_id", chi.URLParam(r, "id")).Str("kind", string(ce.Kind)).Msg("confirmation rejected")
		writeConfirmError(w, ce)
		return
	}

	resp := confirmResponse{Summary: sm, Text: sm.Text()}
	if s.whatsapp != "" {
		resp.WhatsAppLink = summary.WhatsAppLink(s.whatsapp, resp.Text)
	}

	// The request has been accepted at this point; delivery problems are only logged.
	if s.notifier != nil {
		ctx, cancel := context.WithTimeout(r.Context(), notifyTimeout)
		err := s.notifier.Notify(ctx, sm)
		cancel()
		if err != nil {
			s.logger.Error().Err(err).Str("cart_id", sm.CartID).Msg("booking request delivery failed")
		}
		resp.Delivered = err == nil
	}

	if s.bus != nil {
		_ = s.bus.PublishJSON(events.TypeBookingConfirmed, events.BookingConfirmed{
			CartID:     sm.CartID,
			Date:       timeutil.DateKey(sm.Date),
			Items:      len(sm.Items),
			TotalHours: sm.TotalHours,
			GrandTotal: sm.GrandTotal,
		})
	}

	metrics.IncConfirmation("ok")
	s.logger.Info().
		Str("cart_id", sm.CartID).
		Int("items", len(sm.Items)).
		Int("hours", sm.TotalHours).
		Float64("total", sm.GrandTotal).
		Msg("booking request confirmed")
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) quoteXLSX(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		var buf bytes.Buffer
		if err := sess.cart.Summary().WriteXLSX(&buf); err != nil {
			s.logger.Error().Err(err).Str("cart_id", sess.cart.ID()).Msg("render quote")
			writeError(w, http.StatusInternalServerError, "render quote failed")
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="quote-%s.xlsx"`, sess.cart.ID()))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	})
}

func (s *Server) quotePackage(w http.ResponseWriter, r *http.Request) {
	var req packageRequest
	if err := decode(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rates := s.rates.Current().Package
	if req.ReelCount < rates.MinReels {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("reel_count must be at least %d", rates.MinReels))
		return
	}

	q := rates.Quote(pricing.PackageRequest{
		CameraCount:     req.CameraCount,
		ReelCount:       req.ReelCount,
		FullLengthCount: req.FullLengthCount,
		PosterCount:     req.PosterCount,
		SameShoot:       req.SameShoot,
	})
	metrics.IncPackageQuote(strconv.Itoa(req.CameraCount))
	writeJSON(w, http.StatusOK, q)
}

var _ cart.Checker = (*availability.Store)(nil)
