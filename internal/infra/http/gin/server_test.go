package ginserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opalestay/internal/app/commands"
	"opalestay/internal/app/dto"
	availabilityapp "opalestay/internal/app/handlers/availability"
	bookingapp "opalestay/internal/app/handlers/booking"
	pricingapp "opalestay/internal/app/handlers/pricing"
	"opalestay/internal/app/queries"
	"opalestay/internal/domain/booking"
	"opalestay/internal/domain/calendar"
	"opalestay/internal/domain/shared/daterange"
	"opalestay/internal/domain/shared/failure"
	"opalestay/internal/infra/obs"
)

type fakeCommands struct {
	got    commands.Command
	result any
	err    error
}

func (f *fakeCommands) Dispatch(_ context.Context, cmd commands.Command) (any, error) {
	f.got = cmd
	return f.result, f.err
}

type fakeQueries struct {
	got    queries.Query
	result any
	err    error
}

func (f *fakeQueries) Ask(_ context.Context, q queries.Query) (any, error) {
	f.got = q
	return f.result, f.err
}

func newRouter(cmds *fakeCommands, qs *fakeQueries) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Availability: AvailabilityHandler{Commands: cmds, Queries: qs},
		Pricing:      PricingHandler{Commands: cmds, Queries: qs},
		Booking:      BookingHandler{Commands: cmds, Queries: qs},
	})
}

func do(t *testing.T, r http.Handler, method, path, body string, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestCheckAvailabilitySpreadsPayload(t *testing.T) {
	qs := &fakeQueries{result: dto.Availability{Property: "touquet-pinede", Start: "2025-09-21", End: "2025-09-24", Available: true}}
	r := newRouter(&fakeCommands{}, qs)

	rec, body := do(t, r, http.MethodGet, "/api/v1/properties/touquet-pinede/availability?start=2025-09-21&end=2025-09-24", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["result"])
	assert.Equal(t, true, body["available"])
	assert.Equal(t, "touquet-pinede", body["property"])
	assert.Equal(t, availabilityapp.CheckAvailabilityQuery{Property: "touquet-pinede", Start: "2025-09-21", End: "2025-09-24"}, qs.got)
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", daterange.ErrInvalidRange, http.StatusBadRequest},
		{"conflict", fmt.Errorf("stay 1: %w", booking.ErrStayUnavailable), http.StatusConflict},
		{"invalid state", booking.ErrInvalidState, http.StatusConflict},
		{"not found", calendar.ErrPeriodNotFound, http.StatusNotFound},
		{"unavailable", failure.Unavailable(errors.New("no reachable servers")), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(&fakeCommands{}, &fakeQueries{err: tc.err})
			rec, body := do(t, r, http.MethodGet, "/api/v1/properties/touquet-pinede/disabled-dates", "")
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, false, body["result"])
			assert.Equal(t, tc.err.Error(), body["error"])
		})
	}
}

func TestBlockRangeBindsBody(t *testing.T) {
	cmds := &fakeCommands{result: dto.BlockedPeriod{ID: "p-1", Property: "touquet-pinede", Start: "2025-01-01", End: "2025-01-10"}}
	r := newRouter(cmds, &fakeQueries{})

	rec, body := do(t, r, http.MethodPost, "/api/v1/properties/touquet-pinede/blocked-periods", `{"start":"2025-01-01","end":"2025-01-10","reason":" works "}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["result"])
	period := body["period"].(map[string]any)
	assert.Equal(t, "p-1", period["id"])
	assert.Equal(t, availabilityapp.BlockRangeCommand{Property: "touquet-pinede", Start: "2025-01-01", End: "2025-01-10", Reason: "works"}, cmds.got)

	rec, body = do(t, r, http.MethodPost, "/api/v1/properties/touquet-pinede/blocked-periods", `{"start":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["result"])
}

func TestUnblockRolledBackReportsResidual(t *testing.T) {
	split := &calendar.SplitError{Failures: []calendar.ResidualFailure{{ParentID: "p-1", Err: failure.Unavailable(errors.New("write failed"))}}}
	cmds := &fakeCommands{err: split}
	r := newRouter(cmds, &fakeQueries{})

	rec, body := do(t, r, http.MethodPost, "/api/v1/properties/touquet-pinede/unblock", `{"start":"2025-01-03","end":"2025-01-05"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, false, body["result"])
	assert.Contains(t, body["error"], "p-1")
	assert.Contains(t, body["error"], "write failed")
	assert.NotContains(t, body, "deleted_count")
}

func TestUnblockNothingToDo(t *testing.T) {
	cmds := &fakeCommands{result: &dto.UnblockResult{Property: "touquet-pinede", Message: "nothing to unblock"}}
	r := newRouter(cmds, &fakeQueries{})

	rec, body := do(t, r, http.MethodPost, "/api/v1/properties/touquet-pinede/unblock", `{"start":"2025-01-03","end":"2025-01-05"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["result"])
	assert.Equal(t, "nothing to unblock", body["message"])
}

func TestRequestBookingsPassesIdempotencyKey(t *testing.T) {
	cmds := &fakeCommands{result: &dto.Checkout{Total: dto.MoneyDTO{Amount: 450, Currency: "EUR"}}}
	r := newRouter(cmds, &fakeQueries{})

	payload := `{"guest":{"name":"Ada","email":"ada@example.com"},"stays":[{"property":"touquet-pinede","check_in":"2025-09-21","check_out":"2025-09-24"}]}`
	rec, body := do(t, r, http.MethodPost, "/api/v1/bookings", payload, "Idempotency-Key", "cart-42")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, true, body["result"])

	cmd, ok := cmds.got.(bookingapp.RequestBookingsCommand)
	require.True(t, ok)
	assert.Equal(t, "cart-42", cmd.IdempotencyKey())
	require.Len(t, cmd.Stays, 1)
	assert.Equal(t, "2025-09-24", cmd.Stays[0].CheckOut)
	assert.Equal(t, "ada@example.com", cmd.Guest.Email)
}

func TestBookingRoutes(t *testing.T) {
	cmds := &fakeCommands{result: dto.Booking{ID: "b-1", Status: "REFUSED"}}
	r := newRouter(cmds, &fakeQueries{})

	rec, body := do(t, r, http.MethodPost, "/api/v1/bookings/b-1/refuse", `{"reason":"maintenance"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "REFUSED", body["booking"].(map[string]any)["status"])
	assert.Equal(t, bookingapp.RefuseBookingCommand{ID: "b-1", Reason: "maintenance"}, cmds.got)

	rec, _ = do(t, r, http.MethodPost, "/api/v1/bookings/b-1/accept", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, bookingapp.AcceptBookingCommand{ID: "b-1"}, cmds.got)

	rec, _ = do(t, r, http.MethodGet, "/api/v1/bookings/actions/tok.en.sig", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, bookingapp.BookingActionCommand{Token: "tok.en.sig"}, cmds.got)
}

func TestPriceRuleDefaultsToActive(t *testing.T) {
	cmds := &fakeCommands{result: dto.PriceRule{ID: "r-1"}}
	r := newRouter(cmds, &fakeQueries{})

	rec, body := do(t, r, http.MethodPost, "/api/v1/properties/touquet-pinede/price-rules",
		`{"name":"Summer","start":"2025-07-01","end":"2025-08-31","price_per_night":180,"currency":"eur","priority":2}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "r-1", body["rule"].(map[string]any)["id"])

	cmd, ok := cmds.got.(pricingapp.CreatePriceRuleCommand)
	require.True(t, ok)
	assert.True(t, cmd.Active)
	assert.Equal(t, "EUR", cmd.Currency)
	assert.Equal(t, 2, cmd.Priority)
}

func TestListsAreWrapped(t *testing.T) {
	body, err := envelope([]string{"a", "b"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"result":true,"items":["a","b"]}`, string(body))

	body, err = envelope(struct{}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"result":true}`, string(body))
}

func TestUnknownRoute(t *testing.T) {
	r := newRouter(&fakeCommands{}, &fakeQueries{})
	rec, body := do(t, r, http.MethodGet, "/api/v1/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, body["result"])
}
