package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"taxbook/internal/models"
	"taxbook/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(ts.URL+"/api/", time.Second, nil)
}

func TestClient_GetAvailability(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/availability", r.URL.Path)
		assert.Equal(t, "st-1", r.URL.Query().Get("staff"))
		assert.Equal(t, "2024-03-01", r.URL.Query().Get("date"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"start":"2024-03-01T09:00:00Z","end":"2024-03-01T12:00:00Z"}]`))
	})

	ranges, err := client.GetAvailability(context.Background(), "st-1", "2024-03-01")
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), ranges[0].Start.UTC())
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), ranges[0].End.UTC())
}

func TestClient_GetAvailability_HTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"message":"upstream failed","statusCode":502}`))
	})

	_, err := client.GetAvailability(context.Background(), "st-1", "2024-03-01")
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
	assert.Equal(t, "upstream failed", httpErr.Message)
}

func TestClient_ListServices_Shapes(t *testing.T) {
	t.Run("BareArray", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/services", r.URL.Path)
			_, _ = w.Write([]byte(`[{"id":"svc-1","name":"Tax Consultation","isActive":true}]`))
		})
		services, err := client.ListServices(context.Background())
		require.NoError(t, err)
		require.Len(t, services, 1)
		assert.Equal(t, "Tax Consultation", services[0].Name)
	})

	t.Run("Wrapped", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"services":[{"id":"svc-2","name":"Bookkeeping","staff":[{"id":"st-1","firstName":"Jane","lastName":"Doe"}]}]}`))
		})
		services, err := client.ListServices(context.Background())
		require.NoError(t, err)
		require.Len(t, services, 1)
		require.Len(t, services[0].Staff, 1)
		assert.Equal(t, "Jane Doe", services[0].Staff[0].FullName())
	})
}

func TestClient_ListServices_Cached(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`[{"id":"svc-1","name":"Tax Consultation"}]`))
	})
	client.UseCache(repository.NewMemoryQueryCache(), time.Minute)

	for i := 0; i < 3; i++ {
		services, err := client.ListServices(context.Background())
		require.NoError(t, err)
		require.Len(t, services, 1)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_CreateAppointment(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/appointments", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "draft-1", r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "svc-1", body["serviceId"])
		assert.Equal(t, "st-1", body["staffId"])
		assert.Equal(t, "2024-03-01T10:00:00Z", body["start"])
		assert.Equal(t, "2024-03-01T11:00:00Z", body["end"])
		assert.Equal(t, "UTC", body["timeZone"])
		assert.Equal(t, "first visit", body["comments"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"abc123","status":"pending"}`))
	})

	appt, err := client.CreateAppointment(context.Background(), "tok", "draft-1", models.AppointmentRequest{
		ServiceID: "svc-1",
		StaffID:   "st-1",
		Start:     start,
		End:       start.Add(time.Hour),
		TimeZone:  "UTC",
		Comments:  "first visit",
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", appt.ID)
	assert.True(t, appt.Booked())
}

func TestClient_CreateAppointment_MissingToken(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Second, nil)
	_, err := client.CreateAppointment(context.Background(), "", "", models.AppointmentRequest{})
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestClient_ListAppointments(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pending", r.URL.Query().Get("status"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"id":"a1","status":"pending","zoomMeetingLink":"https://zoom.example/1"}]`))
	})

	appts, err := client.ListAppointments(context.Background(), "tok", models.AppointmentPending)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "https://zoom.example/1", appts[0].ZoomMeetingLink)
}

func TestClient_Auth(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/signin":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if body["password"] != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"message":["Credentials are not valid"],"statusCode":401}`))
				return
			}
			_, _ = w.Write([]byte(`{"email":"jane@example.com","token":"tok-1"}`))
		case "/api/auth/check-status":
			if r.Header.Get("Authorization") != "Bearer tok-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"token":"tok-2","user":{"email":"jane@example.com"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	user, err := client.SignIn(ctx, "jane@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", user.Token)

	_, err = client.SignIn(ctx, "jane@example.com", "wrong")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Contains(t, err.Error(), "Credentials are not valid")

	user, err = client.CheckStatus(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", user.Token)
	assert.Equal(t, "jane@example.com", user.Email)

	_, err = client.CheckStatus(ctx, "stale")
	assert.True(t, IsUnauthorized(err))
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	client.UseRateLimit(0.001, 1)

	_, err := client.GetAvailability(context.Background(), "st-1", "2024-03-01")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.GetAvailability(ctx, "st-1", "2024-03-01")
	assert.Error(t, err)
}

func TestHTTPError_Message(t *testing.T) {
	assert.Equal(t, "http 500", (&HTTPError{StatusCode: 500}).Error())
	assert.Equal(t, "http 400: bad", (&HTTPError{StatusCode: 400, Message: "bad"}).Error())
	assert.False(t, IsUnauthorized(errors.New("plain")))
}

func TestClient_Expenses(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/expense":
			assert.Equal(t, "11", r.URL.Query().Get("limit"))
			assert.Equal(t, "10", r.URL.Query().Get("offset"))
			_, _ = w.Write([]byte(`{"expenses":[{"id":3,"merchant":"Office Depot","total":"42.50","tax":"3.40"}]}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/expense/3":
			_, _ = w.Write([]byte(`{"id":3,"merchant":"Office Depot","total":42.5,"tax":3.4,"category":{"name":"Supplies"}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/expense":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Cafe", body["merchant"])
			assert.Equal(t, 12.5, body["total"])
			assert.Equal(t, 1.0, body["accountId"])
			assert.Equal(t, "2024-03-01T10:00:00Z", body["date"])
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":4,"merchant":"Cafe","total":"12.5","tax":"0"}`))
		case r.Method == http.MethodPatch && r.URL.Path == "/api/expense/4":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			_, hasDate := body["date"]
			assert.False(t, hasDate)
			_, _ = w.Write([]byte(`{"id":4,"merchant":"Cafe Luna","total":"13","tax":"0"}`))
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	list, err := client.ListExpenses(ctx, "tok", 11, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.Amount("42.50"), list[0].Total)

	got, err := client.GetExpense(ctx, "tok", 3)
	require.NoError(t, err)
	assert.Equal(t, models.Amount("42.5"), got.Total)
	require.NotNil(t, got.Category)
	assert.Equal(t, "Supplies", got.Category.Name)

	created, err := client.CreateExpense(ctx, "tok", models.ExpenseRequest{
		AccountID: 1, CategoryID: 2, Date: "2024-03-01T10:00:00Z", Merchant: "Cafe", Total: 12.5,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), created.ID)

	updated, err := client.UpdateExpense(ctx, "tok", 4, models.ExpenseRequest{AccountID: 1, CategoryID: 2, Merchant: "Cafe Luna", Total: 13})
	require.NoError(t, err)
	assert.Equal(t, "Cafe Luna", updated.Merchant)

	_, err = client.ListExpenses(ctx, "", 10, 0)
	assert.ErrorIs(t, err, ErrMissingToken)
	_, err = client.UpdateExpense(ctx, "", 4, models.ExpenseRequest{})
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "/expense/:id", routeLabel("/expense/42"))
	assert.Equal(t, "/expense", routeLabel("/expense"))
	assert.Equal(t, "/auth/signin", routeLabel("/auth/signin"))
}
