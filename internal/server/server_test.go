package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fitclass/internal/auth"
	"fitclass/internal/booking"
	"fitclass/internal/config"
	"fitclass/internal/gym"
	"fitclass/internal/membership"
	"fitclass/internal/schedule"
	"fitclass/internal/storage/memstore"
	"fitclass/internal/tenant"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type gymStub struct {
	store *memstore.Store
}

func (g gymStub) ListGyms(ctx context.Context) ([]gym.Gym, error) {
	scope, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	all, err := g.store.ListGyms(ctx)
	if err != nil {
		return nil, err
	}
	var out []gym.Gym
	for _, gm := range all {
		if gm.OrganisationID == scope.OrganisationID {
			out = append(out, gm)
		}
	}
	return out, nil
}

func (g gymStub) GetGym(ctx context.Context, id string) (*gym.Gym, error) {
	gyms, err := g.ListGyms(ctx)
	if err != nil {
		return nil, err
	}
	for _, gm := range gyms {
		if gm.ID == id {
			return &gm, nil
		}
	}
	return nil, gym.ErrGymNotFound
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memstore.New()
	store.AddGym("org-a", "gym-1")
	store.AddGym("org-a", "gym-2")
	store.AddGym("org-b", "gym-9")

	cfg := &config.Config{
		Port:             "0",
		JWTSecret:        testSecret,
		JWTRefreshSecret: "refresh-" + testSecret,
		RateLimitRPS:     1000,
		RateLimitBurst:   1000,
	}
	return New(cfg, Services{
		Directory:   store,
		Gyms:        gymStub{store: store},
		Schedules:   schedule.NewService(store.Schedules()),
		Bookings:    booking.NewEngine(store.Bookings()),
		Memberships: membership.NewService(store.Memberships(), store),
	})
}

func token(t *testing.T, userID, role, gymID string) string {
	t.Helper()
	tok, err := auth.GenerateAccessToken(auth.Principal{
		UserID:         userID,
		Email:          userID + "@example.com",
		Role:           role,
		OrganisationID: "org-a",
		GymID:          gymID,
	}, testSecret)
	require.NoError(t, err)
	return tok
}

type request struct {
	method, path, body, token string
	header                    map[string]string
}

func serve(s *Server, r request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(r.method, r.path, bytes.NewBufferString(r.body))
	if r.body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	for k, v := range r.header {
		req.Header.Set(k, v)
	}
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_PublicRoutes(t *testing.T) {
	s := newTestServer(t)

	w := serve(s, request{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = serve(s, request{method: http.MethodGet, path: "/metrics"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(s, request{method: http.MethodGet, path: "/schedules"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServer_RefreshToken(t *testing.T) {
	s := newTestServer(t)
	refresh, err := auth.GenerateRefreshToken(auth.Principal{UserID: "alice", Role: auth.RoleMember, OrganisationID: "org-a", GymID: "gym-1"}, "refresh-"+testSecret)
	require.NoError(t, err)

	w := serve(s, request{method: http.MethodPost, path: "/auth/refresh", body: `{"refresh_token":"` + refresh + `"}`})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	w = serve(s, request{method: http.MethodGet, path: "/gyms", token: body.AccessToken})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_ActiveGymHeader(t *testing.T) {
	s := newTestServer(t)
	member := token(t, "alice", auth.RoleMember, "gym-1")

	w := serve(s, request{method: http.MethodGet, path: "/schedules", token: member, header: map[string]string{tenant.HeaderActiveGym: "gym-2"}})
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(s, request{method: http.MethodGet, path: "/schedules", token: member, header: map[string]string{tenant.HeaderActiveGym: "gym-9"}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(s, request{method: http.MethodGet, path: "/gyms/gym-9", token: member})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_StaffRoutesNeedRole(t *testing.T) {
	s := newTestServer(t)
	member := token(t, "alice", auth.RoleMember, "gym-1")

	for _, r := range []request{
		{method: http.MethodPost, path: "/classes", body: `{"name":"Spin","duration_minutes":45}`},
		{method: http.MethodPost, path: "/schedules", body: `{}`},
		{method: http.MethodPost, path: "/bookings/b-1/check-in"},
		{method: http.MethodPost, path: "/memberships", body: `{"member_id":"alice","valid_days":30}`},
	} {
		r.token = member
		assert.Equal(t, http.StatusForbidden, serve(s, r).Code, r.path)
	}
}

func TestServer_BookingFlow(t *testing.T) {
	s := newTestServer(t)
	staff := token(t, "coach", auth.RoleStaff, "gym-1")
	alice := token(t, "alice", auth.RoleMember, "gym-1")
	bob := token(t, "bob", auth.RoleMember, "gym-1")

	w := serve(s, request{method: http.MethodPost, path: "/classes", token: staff, body: `{"name":"Spin","duration_minutes":60,"capacity":1,"credit_cost":1}`})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var class schedule.ClassDefinition
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &class))

	start := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Minute)
	body, err := json.Marshal(schedule.CreateInstanceRequest{ClassID: class.ID, TrainerID: ptr("trainer-1"), StartTime: start})
	require.NoError(t, err)
	w = serve(s, request{method: http.MethodPost, path: "/schedules", token: staff, body: string(body)})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var inst schedule.Instance
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &inst))

	// Same trainer, overlapping slot.
	body, err = json.Marshal(schedule.CreateInstanceRequest{ClassID: class.ID, TrainerID: ptr("trainer-1"), StartTime: start.Add(30 * time.Minute)})
	require.NoError(t, err)
	w = serve(s, request{method: http.MethodPost, path: "/schedules", token: staff, body: string(body)})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = serve(s, request{method: http.MethodPost, path: "/schedules/" + inst.ID + "/book", token: alice})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	for _, member := range []string{"alice", "bob"} {
		w = serve(s, request{method: http.MethodPost, path: "/memberships", token: staff, body: `{"member_id":"` + member + `","credits":3,"valid_days":30}`})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w = serve(s, request{method: http.MethodPost, path: "/schedules/" + inst.ID + "/book", token: alice})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var first booking.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.Equal(t, booking.StatusConfirmed, first.Status)

	w = serve(s, request{method: http.MethodPost, path: "/schedules/" + inst.ID + "/book", token: bob})
	require.Equal(t, http.StatusCreated, w.Code)
	var second booking.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.Equal(t, booking.StatusWaitlisted, second.Status)

	w = serve(s, request{method: http.MethodPost, path: "/bookings/" + first.ID + "/cancel", token: bob})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(s, request{method: http.MethodPost, path: "/bookings/" + first.ID + "/cancel", token: alice, body: `{"reason":"travel"}`})
	require.Equal(t, http.StatusOK, w.Code)
	var result booking.CancelResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.NotNil(t, result.Promoted)
	assert.Equal(t, second.ID, result.Promoted.ID)
	assert.Equal(t, booking.StatusConfirmed, result.Promoted.Status)

	w = serve(s, request{method: http.MethodGet, path: "/schedules/" + inst.ID + "/bookings", token: staff})
	require.Equal(t, http.StatusOK, w.Code)
	var roster []booking.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &roster))
	assert.Len(t, roster, 2)

	// The schedule is not visible from another gym.
	w = serve(s, request{method: http.MethodGet, path: "/schedules/" + inst.ID, token: alice, header: map[string]string{tenant.HeaderActiveGym: "gym-2"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func ptr[T any](v T) *T { return &v }
