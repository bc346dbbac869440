package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/slot-booking/internal/model"
	"github.com/Shivanand-hulikatti/slot-booking/internal/repository/memstore"
	"github.com/Shivanand-hulikatti/slot-booking/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logrus.SetOutput(io.Discard)
}

func newTestServer(t *testing.T, limiter *RateLimiter) *httptest.Server {
	t.Helper()
	store := memstore.New()
	router := NewRouter(RouterConfig{
		Slots:        NewSlotHandler(service.NewSlotService(store)),
		Reservations: NewReservationHandler(service.NewCoordinator(store)),
		Limiter:      limiter,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, user, body string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	if user != "" {
		req.Header.Set(UserIDHeader, user)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createSlot(t *testing.T, srv *httptest.Server, center int, start string, capacity int) model.Slot {
	t.Helper()
	body := `{"center_id":` + strconv.Itoa(center) + `,"date":"2026-05-04","start_time":"` + start + `","capacity":` + strconv.Itoa(capacity) + `}`
	resp := do(t, srv, http.MethodPost, "/slots", "", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[model.Slot](t, resp)
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t, nil)
	resp := do(t, srv, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, resp))
}

func TestCreateSlot_BadRequests(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := do(t, srv, http.MethodPost, "/slots", "", `{"center_id":1,"unknown":true}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, srv, http.MethodPost, "/slots", "", `{"center_id":1,"date":"2026-05-04","start_time":"10:00","capacity":0}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[model.ErrorResponse](t, resp).Error, "capacity")

	createSlot(t, srv, 1, "10:00", 1)
	resp = do(t, srv, http.MethodPost, "/slots", "", `{"center_id":1,"date":"2026-05-04","start_time":"10:00","capacity":2}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestBookingFlow(t *testing.T) {
	srv := newTestServer(t, nil)
	slot := createSlot(t, srv, 1, "10:00", 1)
	bookPath := "/slots/" + slot.ID.String() + "/bookings"

	resp := do(t, srv, http.MethodPost, bookPath, "1", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	confirmed := decode[model.BookingResult](t, resp)
	assert.Equal(t, model.OutcomeConfirmed, confirmed.Outcome)
	require.NotNil(t, confirmed.BookingID)

	resp = do(t, srv, http.MethodPost, bookPath, "2", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, model.OutcomeWaitlisted, decode[model.BookingResult](t, resp).Outcome)

	resp = do(t, srv, http.MethodGet, "/availability?center_id=1&date=2026-05-04&start_time=10:00", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	avail := decode[model.Availability](t, resp)
	assert.Equal(t, 1, avail.Booked)
	assert.Equal(t, 1, avail.WaitlistCount)

	cancelPath := "/bookings/" + confirmed.BookingID.String()
	resp = do(t, srv, http.MethodDelete, cancelPath, "2", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = do(t, srv, http.MethodDelete, cancelPath, "1", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, srv, http.MethodDelete, cancelPath, "1", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, srv, http.MethodGet, "/users/2/bookings?date=2026-05-04", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	promoted := decode[[]model.Booking](t, resp)
	require.Len(t, promoted, 1)
	assert.Equal(t, model.BookingConfirmed, promoted[0].Status)

	resp = do(t, srv, http.MethodGet, "/slots/"+slot.ID.String()+"/audit", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[model.SlotAudit](t, resp).Consistent)
}

func TestBook_UnavailableSlot(t *testing.T) {
	srv := newTestServer(t, nil)
	slot := createSlot(t, srv, 1, "10:00", 1)

	resp := do(t, srv, http.MethodPatch, "/slots/"+slot.ID.String()+"/status", "", `{"status":"CLOSED"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.SlotClosed, decode[model.Slot](t, resp).Status)

	resp = do(t, srv, http.MethodPost, "/slots/"+slot.ID.String()+"/bookings", "1", "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, model.OutcomeFailure, decode[model.BookingResult](t, resp).Outcome)
}

func TestBook_RequestErrors(t *testing.T) {
	srv := newTestServer(t, nil)
	slot := createSlot(t, srv, 1, "10:00", 1)

	tests := []struct {
		name string
		path string
		user string
		want int
	}{
		{"missing user", "/slots/" + slot.ID.String() + "/bookings", "", http.StatusBadRequest},
		{"bad user", "/slots/" + slot.ID.String() + "/bookings", "abc", http.StatusBadRequest},
		{"bad slot id", "/slots/not-a-uuid/bookings", "1", http.StatusBadRequest},
		{"unknown slot", "/slots/00000000-0000-0000-0000-000000000001/bookings", "1", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, srv, http.MethodPost, tt.path, tt.user, "")
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestReads_BadQuery(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := do(t, srv, http.MethodGet, "/availability?center_id=x&date=2026-05-04&start_time=10:00", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, srv, http.MethodGet, "/availability?center_id=1&date=tomorrow&start_time=10:00", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, srv, http.MethodGet, "/availability?center_id=1&date=2026-05-04&start_time=10:00", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, srv, http.MethodGet, "/users/7/bookings?date=2026-05-04", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]model.Booking](t, resp))
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, NewRateLimiter(0.001, 1, time.Minute))
	slot := createSlot(t, srv, 1, "10:00", 5)
	bookPath := "/slots/" + slot.ID.String() + "/bookings"

	resp := do(t, srv, http.MethodPost, bookPath, "1", "")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, srv, http.MethodPost, bookPath, "1", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	resp = do(t, srv, http.MethodPost, bookPath, "2", "")
	assert.Equal(t, http.StatusCreated, resp.StatusCode, "budgets are per user")

	resp = do(t, srv, http.MethodGet, "/slots/"+slot.ID.String(), "1", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "reads are not limited")
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, nil)
	resp := do(t, srv, http.MethodOptions, "/slots", "", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
