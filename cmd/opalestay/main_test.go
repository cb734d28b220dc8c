package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opalestay/internal/infra/config"
	ginserver "opalestay/internal/infra/http/gin"
	"opalestay/internal/infra/obs"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Config{
		Env:               "test",
		StoreMode:         config.StoreMemory,
		CacheMode:         config.CacheMemory,
		IdempotencyTTL:    time.Hour,
		PriceCacheTTL:     time.Minute,
		ActionTokenSecret: "integration-secret",
		ActionTokenTTL:    time.Hour,
		PublicBaseURL:     "http://localhost:8080",
		OwnerEmail:        "owner@example.com",
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app, err := buildApplication(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { app.close(logger) })

	srv := httptest.NewServer(ginserver.NewRouter(obs.Middleware{Logger: logger}, app.health, app.handlers))
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path string, body any, headers map[string]string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestBlockedDatesRejectBookings(t *testing.T) {
	srv := newTestServer(t)
	base := "/api/v1/properties/valery-sources-baie"

	status, body := call(t, srv, http.MethodPost, base+"/blocked-periods",
		map[string]string{"start": "2030-07-10", "end": "2030-07-12", "reason": "maintenance"}, nil)
	require.Equal(t, http.StatusCreated, status, body)

	status, body = call(t, srv, http.MethodPost, base+"/blocked-periods",
		map[string]string{"start": "2030-07-12", "end": "2030-07-14"}, nil)
	assert.Equal(t, http.StatusConflict, status, body)

	status, body = call(t, srv, http.MethodGet, base+"/availability?start=2030-07-11&end=2030-07-12", nil, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, false, body["available"])

	status, body = call(t, srv, http.MethodPost, "/api/v1/bookings", map[string]any{
		"guest": map[string]string{"name": "Ada", "email": "ada@example.com"},
		"stays": []map[string]string{{"property": "valery-sources-baie", "check_in": "2030-07-11", "check_out": "2030-07-13"}},
	}, nil)
	assert.Equal(t, http.StatusConflict, status, body)
	assert.Equal(t, false, body["result"])

	// the end date of a multi-day block is open for arrival, as disabled-dates shows
	status, body = call(t, srv, http.MethodGet, base+"/availability?start=2030-07-12&end=2030-07-14", nil, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["available"])
	status, body = call(t, srv, http.MethodPost, "/api/v1/bookings", map[string]any{
		"guest": map[string]string{"name": "Ada", "email": "ada@example.com"},
		"stays": []map[string]string{{"property": "valery-sources-baie", "check_in": "2030-07-12", "check_out": "2030-07-14"}},
	}, nil)
	assert.Equal(t, http.StatusAccepted, status, body)
}

func TestBookingRequestIsPricedAndReplayed(t *testing.T) {
	srv := newTestServer(t)
	base := "/api/v1/properties/touquet-pinede"

	status, body := call(t, srv, http.MethodPost, base+"/price-rules", map[string]any{
		"name": "summer", "start": "2030-08-01", "end": "2030-08-31", "price_per_night": 200, "currency": "eur", "priority": 1,
	}, nil)
	require.Equal(t, http.StatusCreated, status, body)

	status, body = call(t, srv, http.MethodGet, base+"/price?date=2030-08-02", nil, nil)
	require.Equal(t, http.StatusOK, status, body)
	price := body["price"].(map[string]any)
	assert.EqualValues(t, 200, price["amount"])
	assert.Equal(t, "summer", body["rule_name"])

	request := map[string]any{
		"guest": map[string]string{"name": "Ada", "email": "ada@example.com"},
		"stays": []map[string]string{{"property": "touquet-pinede", "check_in": "2030-07-31", "check_out": "2030-08-03"}},
	}
	headers := map[string]string{"Idempotency-Key": "checkout-1"}
	status, first := call(t, srv, http.MethodPost, "/api/v1/bookings", request, headers)
	require.Equal(t, http.StatusAccepted, status, first)
	total := first["total"].(map[string]any)
	// One default night at 150 followed by two summer nights.
	assert.EqualValues(t, 550, total["amount"])

	status, replay := call(t, srv, http.MethodPost, "/api/v1/bookings", request, headers)
	require.Equal(t, http.StatusAccepted, status, replay)
	assert.Equal(t, first["bookings"], replay["bookings"])

	status, list := call(t, srv, http.MethodGet, base+"/bookings", nil, nil)
	require.Equal(t, http.StatusOK, status, list)
	assert.Len(t, list["items"], 1)

	booking := first["bookings"].([]any)[0].(map[string]any)
	status, accepted := call(t, srv, http.MethodPost, "/api/v1/bookings/"+booking["id"].(string)+"/accept", nil, nil)
	require.Equal(t, http.StatusOK, status, accepted)
	assert.Equal(t, "ACCEPTED", accepted["booking"].(map[string]any)["status"])

	status, dates := call(t, srv, http.MethodGet, base+"/disabled-dates", nil, nil)
	require.Equal(t, http.StatusOK, status, dates)
	assert.Subset(t, dates["disabled_dates"], []any{"2030-07-31", "2030-08-01", "2030-08-02"})
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	resp, err := srv.Client().Get(srv.URL + "/livez")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = srv.Client().Get(srv.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
