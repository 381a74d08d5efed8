package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studiobook/internal/availability"
	"studiobook/internal/config"
	"studiobook/internal/events"
	"studiobook/internal/pricing"
	"studiobook/internal/summary"
)

type recordingNotifier struct {
	mu   sync.Mutex
	got  []*summary.Summary
	fail error
}

func (n *recordingNotifier) Name() string { return "recording" }

func (n *recordingNotifier) Notify(_ context.Context, s *summary.Summary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, s)
	return n.fail
}

type testEnv struct {
	srv      *Server
	store    *availability.Store
	bus      *events.Bus
	notifier *recordingNotifier
	handler  http.Handler
	now      time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		bus:      events.NewBus(nil),
		notifier: &recordingNotifier{},
		now:      time.Date(2026, 10, 15, 12, 0, 0, 0, time.Local),
	}
	env.store = availability.NewStore(env.bus)
	env.srv = NewServer(Deps{
		Rates:             config.NewLiveRates(pricing.DefaultRateCard()),
		Store:             env.store,
		Notifier:          env.notifier,
		Bus:               env.bus,
		WhatsAppNumber:    "919876543210",
		SessionTimeout:    time.Hour,
		RequestsPerSecond: 1000,
		Burst:             1000,
		Now:               func() time.Time { return env.now },
	})
	env.handler = env.srv.Router()
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.1:5000"
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createCart(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/v1/carts", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	v := decodeBody[cartView](t, rec)
	require.NotEmpty(t, v.ID)
	return v.ID
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func item(kind string, cameras, hours int) map[string]any {
	return map[string]any{"service_kind": kind, "camera_count": cameras, "hours": hours}
}

func TestAddItemsPricesCart(t *testing.T) {
	env := newTestEnv(t)
	id := env.createCart(t)

	rec := env.do(t, http.MethodPost, "/v1/carts/"+id+"/items", item("video", 1, 2))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = env.do(t, http.MethodPost, "/v1/carts/"+id+"/items", item("video", 2, 3))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	v := decodeBody[cartView](t, rec)
	require.Len(t, v.Items, 2)
	assert.Equal(t, 3000.0, v.Items[0].Cost)
	assert.Equal(t, 6625.0, v.Items[1].Cost)
	assert.Equal(t, 2, v.Items[1].PriorHours)
	assert.Equal(t, 875.0, v.Items[1].Savings)
	assert.Equal(t, 9625.0, v.GrandTotal)
	assert.Equal(t, 875.0, v.TotalSavings)
	assert.Equal(t, 5, v.TotalHours)
	assert.Equal(t, v.Items[0].ID, v.Active)
}

func TestAddItemValidation(t *testing.T) {
	env := newTestEnv(t)
	id := env.createCart(t)

	tests := []struct {
		name string
		body any
		want string
	}{
		{"unknown kind", item("photo", 1, 2), "service_kind must be one of video audio"},
		{"too many cameras", item("video", 4, 2), "camera_count must be less than or equal to 3"},
		{"zero hours", item("video", 1, 0), "hours is required"},
		{"below minimum", item("video", 0, 2), "hours must be at least 3 for this setup"},
		{"unknown field", `{"service_kind":"video","hours":1,"extra":true}`, "invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/v1/carts/"+id+"/items", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decodeBody[errorResponse](t, rec).Error)
		})
	}
}

func TestUnknownCart(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/carts/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/carts/missing/confirm", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoveAndClear(t *testing.T) {
	env := newTestEnv(t)
	id := env.createCart(t)
	env.do(t, http.MethodPost, "/v1/carts/"+id+"/items", item("video", 1, 2))
	rec := env.do(t, http.MethodPost, "/v1/carts/"+id+"/items", item("audio", 0, 1))
	v := decodeBody[cartView](t, rec)
	require.Len(t, v.Items, 2)

	rec = env.do(t, http.MethodDelete, "/v1/carts/"+id+"/items/"+v.Items[0].ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	v = decodeBody[cartView](t, rec)
	require.Len(t, v.Items, 1)
	assert.Equal(t, v.Items[0].ID, v.Active)

	rec = env.do(t, http.MethodDelete, "/v1/carts/"+id+"/items/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/v1/carts/"+id+"/items", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[cartView](t, rec).Items)
}

func TestPreview(t *testing.T) {
	env := newTestEnv(t)
	id := env.createCart(t)
	env.do(t, http.MethodPost, "/v1/carts/"+id+"/items", item("video", 1, 2))

	rec := env.do(t, http.MethodPost, "/v1/carts/"+id+"/preview", item("video", 2, 3))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, previewResponse{Cost: 6625, Savings: 875, MinHours: 1}, decodeBody[previewResponse](t, rec))
}

func TestScheduleRejectsPastDate(t *testing.T) {
	env := newTestEnv(t)
	id := env.createCart(t)

	rec := env.do(t, http.MethodPut, "/v1/carts/"+id+"/schedule", map[string]any{"date": "2026-10-14"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/v1/carts/"+id+"/schedule", map[string]any{"date": "20-10-2026"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "date must match 2006-01-02", decodeBody[errorResponse](t, rec).Error)
}

func TestRejectedScheduleLeavesCartUnchanged(t *testing.T) {
	env := newTestEnv(t)
	id := env.createCart(t)
	rec := env.do(t, http.MethodPost, "/v1/carts/"+id+"/items", item("video", 1, 2))
	bookingID := decodeBody[cartView](t, rec).Items[0].ID
	rec = env.do(t, http.MethodPut, "/v1/carts/"+id+"/schedule", map[string]any{"date": "2026-10-20", "start": "09:00"})
	require.Equal(t, http.StatusOK, rec.Code)
	before := decodeBody[cartView](t, rec)

	bodies := []map[string]any{
		{"split": true, "date": "2026-10-14", "start": "11:00"},
		{"split": true, "start": "11:00", "starts": map[string]string{bookingID: "12:00", "nope": "14:00"}},
		{"split": true, "date": "2026-10-22", "start": "25:00"},
	}
	for _, body := range bodies {
		rec = env.do(t, http.MethodPut, "/v1/carts/"+id+"/schedule", body)
		assert.Contains(t, []int{http.StatusBadRequest, http.StatusNotFound}, rec.Code)

		rec = env.do(t, http.MethodGet, "/v1/carts/"+id, nil)
		assert.Equal(t, before, decodeBody[cartView](t, rec))
	}
}

func TestAvailability(t *testing.T) {
	env := newTestEnv(t)
	env.store.Replace([]availability.Reservation{{Date: "2026-10-20", Start: "10:00", End: "12:00"}})
	id := env.createCart(t)
	env.do(t, http.MethodPost, "/v1/carts/"+id+"/items", item("video", 1, 2))
	env.do(t, http.MethodPut, "/v1/carts/"+id+"/schedule", map[string]any{"date": "2026-10-20"})

	rec := env.do(t, http.MethodGet, "/v1/carts/"+id+"/availability?start=11:00", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, availability.Result{Reason: availability.ReasonBooked}, decodeBody[availability.Result](t, rec))

	rec = env.do(t, http.MethodGet, "/v1/carts/"+id+"/availability?start=12:00&hours=2", nil)
	assert.True(t, decodeBody[availability.Result](t, rec).Available)

	rec = env.do(t, http.MethodGet, "/v1/carts/"+id+"/availability?start=23:00", nil)
	assert.Equal(t, availability.ReasonPastMidnight, decodeBody[availability.Result](t, rec).Reason)

	rec = env.do(t, http.MethodGet, "/v1/carts/"+id+"/availability", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClock(t *testing.T) {
	env := newTestEnv(t)
	env.store.Replace([]availability.Reservation{{Date: "2026-10-20", Start: "10:00", End: "12:00"}})
	id := env.createCart(t)
	env.do(t, http.MethodPost, "/v1/carts/"+id+"/items", item("video", 1, 2))

	rec := env.do(t, http.MethodGet, "/v1/carts/"+id+"/clock", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.do(t, http.MethodPut, "/v1/carts/"+id+"/schedule", map[string]any{"date": "2026-10-20"})
	rec = env.do(t, http.MethodGet, "/v1/carts/"+id+"/clock", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	v := decodeBody[clockResponse](t, rec)
	assert.Equal(t, 2, v.Hours)
	selectable := func(face []clockHour, hour int) bool {
		for _, h := range face {
			if h.Hour == hour {
				return h.Selectable
			}
		}
		t.Fatalf("hour %d missing", hour)
		return false
	}
	require.Len(t, v.AM, 12)
	assert.Equal(t, 12, v.AM[0].Hour)
	assert.True(t, selectable(v.AM, 12))
	assert.True(t, selectable(v.AM, 8))
	assert.False(t, selectable(v.AM, 9))
	assert.False(t, selectable(v.AM, 10))
	assert.False(t, selectable(v.AM, 11))
	assert.True(t, selectable(v.PM, 12))
	assert.False(t, selectable(v.PM, 11))
}

func TestConfirmFlow(t *testing.T) {
	env := newTestEnv(t)
	var confirmed []events.BookingConfirmed
	env.bus.Subscribe(events.TypeBookingConfirmed, func(ev events.Event) error {
		var p events.BookingConfirmed
		require.NoError(t, ev.Decode(&p))
		confirmed = append(confirmed, p)
		return nil
	})

	id := env.createCart(t)
	env.do(t, http.MethodPost, "/v1/carts/"+id+"/items", item("video", 1, 2))
	env.do(t, http.MethodPut, "/v1/carts/"+id+"/schedule", map[string]any{"date": "2026-10-20", "start": "11:00"})

	// Reservations have not arrived yet.
	rec := env.do(t, http.MethodPost, "/v1/carts/"+id+"/confirm", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	env.store.Replace([]availability.Reservation{{Date: "2026-10-20", Start: "10:00", End: "12:00"}})
	rec = env.do(t, http.MethodPost, "/v1/carts/"+id+"/confirm", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	er := decodeBody[errorResponse](t, rec)
	assert.Equal(t, "conflict", string(er.Kind))
	require.Len(t, er.Issues, 1)

	env.do(t, http.MethodPut, "/v1/carts/"+id+"/schedule", map[string]any{"start": "13:00"})
	rec = env.do(t, http.MethodPost, "/v1/carts/"+id+"/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[confirmResponse](t, rec)
	assert.True(t, resp.Delivered)
	assert.Equal(t, 3000.0, resp.Summary.GrandTotal)
	assert.Equal(t, "13:00", resp.Summary.Start)
	assert.Equal(t, "15:00", resp.Summary.End)
	assert.True(t, strings.HasPrefix(resp.WhatsAppLink, "https://wa.me/919876543210?text="))
	assert.NotContains(t, resp.WhatsAppLink, "+")
	assert.NotEmpty(t, resp.Text)

	require.Len(t, env.notifier.got, 1)
	assert.Equal(t, id, env.notifier.got[0].CartID)
	assert.Equal(t, []events.BookingConfirmed{{CartID: id, Date: "2026-10-20", Items: 1, TotalHours: 2, GrandTotal: 3000}}, confirmed)
}

func TestConfirmSucceedsWhenDeliveryFails(t *testing.T) {
	env := newTestEnv(t)
	env.notifier.fail = errors.New("telegram down")
	env.store.Replace(nil)

	id := env.createCart(t)
	env.do(t, http.MethodPost, "/v1/carts/"+id+"/items", item("audio", 0, 1))
	env.do(t, http.MethodPut, "/v1/carts/"+id+"/schedule", map[string]any{"date": "2026-10-20", "start": "09:00"})

	rec := env.do(t, http.MethodPost, "/v1/carts/"+id+"/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeBody[confirmResponse](t, rec).Delivered)
}

func TestConfirmValidationFailure(t *testing.T) {
	env := newTestEnv(t)
	env.store.Replace(nil)
	id := env.createCart(t)

	rec := env.do(t, http.MethodPost, "/v1/carts/"+id+"/confirm", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	er := decodeBody[errorResponse](t, rec)
	assert.Equal(t, "validation", string(er.Kind))
	assert.Equal(t, "cart is empty", er.Issues[0].Problem)
}

func TestReservationsUpdateFlagsNewConflicts(t *testing.T) {
	env := newTestEnv(t)
	env.store.Replace(nil)

	id := env.createCart(t)
	rec := env.do(t, http.MethodPost, "/v1/carts/"+id+"/items", item("video", 1, 2))
	bookingID := decodeBody[cartView](t, rec).Items[0].ID
	env.do(t, http.MethodPut, "/v1/carts/"+id+"/schedule", map[string]any{"date": "2026-10-20", "start": "13:00"})

	sess, ok := env.srv.sessions.Get(id)
	require.True(t, ok)
	assert.Empty(t, sess.conflicting)

	env.store.Replace([]availability.Reservation{{Date: "2026-10-20", Start: "14:00", End: "15:00"}})
	assert.Equal(t, map[string]bool{bookingID: true}, sess.conflicting)

	rec = env.do(t, http.MethodGet, "/v1/carts/"+id, nil)
	v := decodeBody[cartView](t, rec)
	assert.Equal(t, "conflicting", string(v.Slots[0].State))
	assert.Equal(t, availability.ReasonBooked, v.Slots[0].Reason)
}

func TestQuoteXLSX(t *testing.T) {
	env := newTestEnv(t)
	id := env.createCart(t)
	env.do(t, http.MethodPost, "/v1/carts/"+id+"/items", item("video", 1, 2))

	rec := env.do(t, http.MethodGet, "/v1/carts/"+id+"/quote.xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "quote-"+id+".xlsx")
	// XLSX files are zip archives.
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestPackageQuote(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/packages/quote", map[string]any{
		"camera_count": 1, "reel_count": 6, "poster_count": 2,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	q := decodeBody[pricing.PackageQuote](t, rec)
	assert.Equal(t, 3, q.ShootHours)
	assert.Equal(t, 3500, q.ShootCost)
	assert.Equal(t, 21000, q.ReelCost)
	assert.Equal(t, 1000, q.PosterCost)
	assert.Equal(t, 25500, q.TotalCost)

	rec = env.do(t, http.MethodPost, "/v1/packages/quote", map[string]any{"camera_count": 1, "reel_count": 3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "reel_count must be at least 5", decodeBody[errorResponse](t, rec).Error)
}

func TestSessionExpires(t *testing.T) {
	env := newTestEnv(t)
	id := env.createCart(t)

	env.now = env.now.Add(2 * time.Hour)
	rec := env.do(t, http.MethodGet, "/v1/carts/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t)
	env.srv.limiter = newClientLimiter(1, 2)
	env.handler = env.srv.Router()

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodPost, "/v1/packages/quote", map[string]any{"camera_count": 1, "reel_count": 6})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := env.do(t, http.MethodPost, "/v1/packages/quote", map[string]any{"camera_count": 1, "reel_count": 6})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestClientIPIgnoresProxyHeaders(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "198.51.100.7:4444"
	r.Header.Set("X-Real-IP", "203.0.113.5")
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "198.51.100.7", clientIP(r))

	r.RemoteAddr = "198.51.100.7"
	assert.Equal(t, "198.51.100.7", clientIP(r))
}

func TestRateLimitNotBypassedByForwardedFor(t *testing.T) {
	env := newTestEnv(t)
	env.srv.limiter = newClientLimiter(1, 1)
	env.handler = env.srv.Router()

	send := func(forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/packages/quote", strings.NewReader(`{"camera_count":1,"reel_count":6}`))
		req.RemoteAddr = "192.0.2.1:5000"
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, send("203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.2"))
}

func TestRateLimitTrustsProxyHeadersWhenEnabled(t *testing.T) {
	env := newTestEnv(t)
	env.srv.trustProxy = true
	env.srv.limiter = newClientLimiter(1, 1)
	env.handler = env.srv.Router()

	send := func(realIP string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/packages/quote", strings.NewReader(`{"camera_count":1,"reel_count":6}`))
		req.RemoteAddr = "192.0.2.1:5000"
		req.Header.Set("X-Real-IP", realIP)
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, send("203.0.113.1"))
	assert.Equal(t, http.StatusOK, send("203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.1"))
}
