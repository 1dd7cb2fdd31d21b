package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brekfst/mcdirectory/config"
	"github.com/brekfst/mcdirectory/database"
	"github.com/brekfst/mcdirectory/middleware"
	"github.com/brekfst/mcdirectory/models"
	"github.com/brekfst/mcdirectory/pkg/cache"
	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testAPIKey = "ingest-key"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Errors  []struct {
		Field string `json:"field"`
	} `json:"errors"`
	Meta json.RawMessage `json:"meta"`
}

type apiEnv struct {
	srv   *httptest.Server
	repos *Repositories
}

func setupAPI(t *testing.T) (*apiEnv, func()) {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(filepath.Join(t.TempDir(), "api.db"), database.Migrations(), logger, 0)
	require.NoError(t, err)

	cfg := &config.Config{
		JWT:    config.JWTConfig{Secret: "route-secret", Expiry: time.Hour},
		Ingest: config.IngestConfig{APIKey: testAPIKey},
		Retention: config.RetentionConfig{
			MeasurementDays: 30,
			PredictionDays:  7,
			Interval:        time.Hour,
		},
	}

	c := cache.New(cache.NewMemoryStore(), logger)
	repos := initRepositories(db)
	svcs, limiters := initServices(db, repos, c, nil, cfg, logger)
	h := initHandlers(svcs, limiters, c)

	mux := http.NewServeMux()
	initRoutes(mux, h, svcs, cfg.Ingest.APIKey)
	srv := httptest.NewServer(middleware.AccessLog(logger, true)(mux))

	cleanup := func() {
		srv.Close()
		limiters.Close()
		c.Close()
		db.Close()
	}
	return &apiEnv{srv: srv, repos: repos}, cleanup
}

type call struct {
	method  string
	path    string
	body    any
	token   string
	headers map[string]string
}

func (e *apiEnv) do(t *testing.T, c call) (int, *envelope, http.Header) {
	t.Helper()

	var body bytes.Buffer
	if c.body != nil {
		raw, err := sonic.Marshal(c.body)
		require.NoError(t, err)
		body.Write(raw)
	}

	req, err := http.NewRequestWithContext(t.Context(), c.method, e.srv.URL+c.path, &body)
	require.NoError(t, err)
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, &env, resp.Header
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, sonic.Unmarshal(raw, &v))
	return v
}

// register signs up a user and returns its token and id. admin promotes the
// account the way the promote command does.
func (e *apiEnv) register(t *testing.T, username string, admin bool) (string, string) {
	t.Helper()
	status, env, _ := e.do(t, call{method: "POST", path: "/api/auth/register", body: map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	}})
	require.Equal(t, http.StatusCreated, status, env.Message)
	auth := decode[models.AuthResponse](t, env.Data)

	if admin {
		require.NoError(t, e.repos.User.SetRole(t.Context(), auth.User.ID, models.RoleAdmin))
	}
	return auth.Token, auth.User.ID
}

var ipSeq atomic.Int64

func (e *apiEnv) submitServer(t *testing.T, name, host string) int64 {
	t.Helper()
	status, env, _ := e.do(t, call{method: "POST", path: "/api/servers", body: map[string]any{
		"name":        name,
		"ip":          "203.0.113." + strconv.FormatInt(ipSeq.Add(1), 10),
		"hostname":    host,
		"country":     "US",
		"gamemode":    []string{"survival"},
		"max_players": 100,
	}})
	require.Equal(t, http.StatusCreated, status, env.Message)
	return decode[models.Server](t, env.Data).ID
}

func TestHealth(t *testing.T) {
	t.Parallel()
	api, cleanup := setupAPI(t)
	defer cleanup()

	status, env, headers := api.do(t, call{method: "GET", path: "/api/health"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]string{"status": "ok", "cache": "memory"}, decode[map[string]string](t, env.Data))
	assert.NotEmpty(t, headers.Get(middleware.RequestIDHeader))
}

func TestServerSubmissionFlow(t *testing.T) {
	t.Parallel()
	api, cleanup := setupAPI(t)
	defer cleanup()

	adminToken, _ := api.register(t, "admin", true)
	userToken, userID := api.register(t, "player", false)
	id := api.submitServer(t, "Flow Server", "flow.example.com")
	path := fmt.Sprintf("/api/servers/%d", id)

	t.Run("duplicate reports the existing id", func(t *testing.T) {
		status, env, _ := api.do(t, call{method: "POST", path: "/api/servers", body: map[string]any{
			"name": "Copy", "ip": "198.51.100.1", "hostname": "FLOW.example.com",
			"country": "US", "gamemode": []string{"pvp"}, "max_players": 10,
		}})
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, map[string]int64{"server_id": id}, decode[map[string]int64](t, env.Data))
	})

	t.Run("pending servers are not listed", func(t *testing.T) {
		status, env, _ := api.do(t, call{method: "GET", path: "/api/servers"})
		assert.Equal(t, http.StatusOK, status)
		assert.Empty(t, decode[[]models.Server](t, env.Data))
	})

	t.Run("admin routes", func(t *testing.T) {
		status, env, _ := api.do(t, call{method: "GET", path: "/api/admin/servers/pending"})
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "Authentication required", env.Message)

		status, env, _ = api.do(t, call{method: "GET", path: "/api/admin/servers/pending", token: userToken})
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, "Admin privileges required", env.Message)

		status, env, _ = api.do(t, call{method: "GET", path: "/api/admin/servers/pending", token: "garbage"})
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "Invalid token", env.Message)

		status, env, _ = api.do(t, call{method: "GET", path: "/api/admin/servers/pending", token: adminToken})
		assert.Equal(t, http.StatusOK, status)
		assert.Len(t, decode[[]models.Server](t, env.Data), 1)
	})

	status, env, _ := api.do(t, call{method: "POST", path: fmt.Sprintf("/api/admin/servers/%d/approve", id), token: adminToken})
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env, _ = api.do(t, call{method: "POST", path: fmt.Sprintf("/api/admin/servers/%d/approve", id), token: adminToken})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Server is already active", env.Message)

	t.Run("owner edits", func(t *testing.T) {
		patch := map[string]any{"name": "Renamed"}

		status, _, _ := api.do(t, call{method: "PUT", path: path, body: patch, token: userToken})
		assert.Equal(t, http.StatusForbidden, status)

		status, _, _ = api.do(t, call{method: "PUT", path: "/api/servers/99999", body: patch, token: userToken})
		assert.Equal(t, http.StatusNotFound, status)

		require.NoError(t, api.repos.Owner.Create(t.Context(), id, userID))
		status, env, _ := api.do(t, call{method: "PUT", path: path, body: patch, token: userToken})
		require.Equal(t, http.StatusOK, status, env.Message)
		assert.Equal(t, "Renamed", decode[models.Server](t, env.Data).Name)
	})

	t.Run("public read", func(t *testing.T) {
		status, env, _ := api.do(t, call{method: "GET", path: path})
		require.Equal(t, http.StatusOK, status)
		details := decode[models.ServerDetails](t, env.Data)
		assert.Equal(t, "Renamed", details.Server.Name)
		assert.True(t, details.Server.HasOwner)
		assert.Nil(t, details.Stats)

		status, _, _ = api.do(t, call{method: "GET", path: "/api/servers/abc"})
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestIngestion(t *testing.T) {
	t.Parallel()
	api, cleanup := setupAPI(t)
	defer cleanup()

	adminToken, _ := api.register(t, "operator", true)
	id := api.submitServer(t, "Probed", "probed.example.com")
	status, _, _ := api.do(t, call{method: "POST", path: fmt.Sprintf("/api/admin/servers/%d/approve", id), token: adminToken})
	require.Equal(t, http.StatusOK, status)

	sample := map[string]any{
		"server_id":    id,
		"is_online":    true,
		"player_count": 17,
		"motd":         "Welcome",
		"version":      "1.21",
	}

	t.Run("api key required", func(t *testing.T) {
		status, env, _ := api.do(t, call{method: "POST", path: "/api/measurements", body: sample})
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "Invalid API key", env.Message)

		status, _, _ = api.do(t, call{method: "POST", path: "/api/measurements", body: sample,
			headers: map[string]string{middleware.APIKeyHeader: "wrong"}})
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	key := map[string]string{middleware.APIKeyHeader: testAPIKey}

	status, env, _ := api.do(t, call{method: "GET", path: fmt.Sprintf("/api/measurements/%d/latest", id)})
	assert.Equal(t, http.StatusNotFound, status, env.Message)

	status, env, _ = api.do(t, call{method: "POST", path: "/api/measurements", body: sample, headers: key})
	require.Equal(t, http.StatusCreated, status, env.Message)

	status, env, _ = api.do(t, call{method: "GET", path: fmt.Sprintf("/api/measurements/%d/latest", id)})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 17, decode[models.Measurement](t, env.Data).PlayerCount)

	t.Run("validation lists every field", func(t *testing.T) {
		status, env, _ := api.do(t, call{method: "POST", path: "/api/measurements",
			body: map[string]any{"server_id": id}, headers: key})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "Validation failed", env.Message)
		assert.Len(t, env.Errors, 3)
	})

	t.Run("history", func(t *testing.T) {
		now := time.Now().UTC()
		window := fmt.Sprintf("start=%s&end=%s",
			now.Add(-time.Hour).Format(time.RFC3339), now.Add(time.Hour).Format(time.RFC3339))

		status, env, _ := api.do(t, call{method: "GET", path: fmt.Sprintf("/api/measurements/%d/history?interval=1%%20hour&%s", id, window)})
		require.Equal(t, http.StatusOK, status, env.Message)
		meta := decode[models.HistoryMeta](t, env.Meta)
		assert.Equal(t, 1, meta.Count)
		require.NotNil(t, meta.Interval)
		assert.Equal(t, "1 hour", *meta.Interval)

		status, _, _ = api.do(t, call{method: "GET", path: fmt.Sprintf("/api/measurements/%d/history?interval=fortnight", id)})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("global player count", func(t *testing.T) {
		status, env, _ := api.do(t, call{method: "GET", path: "/api/measurements/global/player-count"})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, map[string]int{"total_players": 17}, decode[map[string]int](t, env.Data))
	})

	t.Run("predictions", func(t *testing.T) {
		at := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)
		status, env, _ := api.do(t, call{method: "POST", path: "/api/predictions", headers: key, body: map[string]any{
			"server_id":            id,
			"prediction_type":      "player_count",
			"prediction_timestamp": at,
			"prediction_value":     40,
			"insight":              "Evening rush",
		}})
		require.Equal(t, http.StatusCreated, status, env.Message)

		status, env, _ = api.do(t, call{method: "GET", path: fmt.Sprintf("/api/predictions/%d/next24hours", id)})
		require.Equal(t, http.StatusOK, status)
		assert.Len(t, decode[[]models.PredictedPoint](t, env.Data), 1)

		status, env, _ = api.do(t, call{method: "GET", path: fmt.Sprintf("/api/predictions/%d/latest/weather", id)})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "Invalid prediction type", env.Message)
	})

	t.Run("admin purge", func(t *testing.T) {
		status, env, _ := api.do(t, call{method: "POST", path: "/api/admin/purge", token: adminToken})
		require.Equal(t, http.StatusOK, status, env.Message)
		assert.Equal(t, "Retention pass complete", env.Message)
	})
}

func TestClaimOverHTTP(t *testing.T) {
	t.Parallel()
	api, cleanup := setupAPI(t)
	defer cleanup()

	adminToken, _ := api.register(t, "moderator", true)
	id := api.submitServer(t, "Claimed", "claimed.example.com")
	claimPath := fmt.Sprintf("/api/servers/%d/claim", id)
	claimBody := map[string]string{"username": "rightful", "email": "rightful@example.com"}

	status, _, _ := api.do(t, call{method: "POST", path: claimPath, body: claimBody})
	assert.Equal(t, http.StatusNotFound, status, "pending servers cannot be claimed")

	status, _, _ = api.do(t, call{method: "POST", path: fmt.Sprintf("/api/admin/servers/%d/approve", id), token: adminToken})
	require.Equal(t, http.StatusOK, status)

	status, env, _ := api.do(t, call{method: "POST", path: claimPath, body: claimBody})
	require.Equal(t, http.StatusCreated, status, env.Message)
	claim := decode[models.Claim](t, env.Data)

	status, _, _ = api.do(t, call{method: "POST", path: claimPath, body: claimBody})
	assert.Equal(t, http.StatusConflict, status)

	status, env, _ = api.do(t, call{method: "GET", path: "/api/admin/claims/pending", token: adminToken})
	require.Equal(t, http.StatusOK, status)
	pending := decode[[]models.Claim](t, env.Data)
	require.Len(t, pending, 1)
	assert.Equal(t, "Claimed", pending[0].ServerName)

	status, env, _ = api.do(t, call{method: "POST", path: fmt.Sprintf("/api/admin/claims/%d/approve", claim.ID), token: adminToken})
	require.Equal(t, http.StatusOK, status, env.Message)
	approval := decode[models.ClaimApproval](t, env.Data)
	assert.True(t, approval.UserCreated)

	status, _, _ = api.do(t, call{method: "POST", path: fmt.Sprintf("/api/admin/claims/%d/approve", claim.ID), token: adminToken})
	assert.Equal(t, http.StatusConflict, status)

	// The invited owner has no password yet.
	status, _, _ = api.do(t, call{method: "POST", path: "/api/auth/login", body: map[string]string{
		"email": "rightful@example.com", "password": "!",
	}})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLoginRateLimit(t *testing.T) {
	t.Parallel()
	api, cleanup := setupAPI(t)
	defer cleanup()

	creds := map[string]string{"email": "nobody@example.com", "password": "wrongpass"}
	headers := map[string]string{"X-Forwarded-For": "192.0.2.10"}

	for range 5 {
		status, _, _ := api.do(t, call{method: "POST", path: "/api/auth/login", body: creds, headers: headers})
		require.Equal(t, http.StatusUnauthorized, status)
	}

	status, env, resp := api.do(t, call{method: "POST", path: "/api/auth/login", body: creds, headers: headers})
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Contains(t, env.Message, "Too many login attempts")
	assert.NotEmpty(t, resp.Get("Retry-After"))

	// Other clients are unaffected.
	status, _, _ = api.do(t, call{method: "POST", path: "/api/auth/login", body: creds,
		headers: map[string]string{"X-Forwarded-For": "192.0.2.11"}})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestFeaturedOverHTTP(t *testing.T) {
	t.Parallel()
	api, cleanup := setupAPI(t)
	defer cleanup()

	adminToken, _ := api.register(t, "curator", true)
	var ids []int64
	for _, host := range []string{"one.example.com", "two.example.com"} {
		id := api.submitServer(t, host, host)
		status, _, _ := api.do(t, call{method: "POST", path: fmt.Sprintf("/api/admin/servers/%d/approve", id), token: adminToken})
		require.Equal(t, http.StatusOK, status)
		ids = append(ids, id)
	}

	for _, id := range ids {
		status, env, _ := api.do(t, call{method: "POST", path: "/api/admin/featured", token: adminToken,
			body: map[string]any{"server_id": id, "position": 1}})
		require.Equal(t, http.StatusCreated, status, env.Message)
	}

	status, env, _ := api.do(t, call{method: "GET", path: "/api/servers/featured"})
	require.Equal(t, http.StatusOK, status)
	listing := decode[[]models.FeaturedListing](t, env.Data)
	require.Len(t, listing, 2)
	assert.Equal(t, ids[1], listing[0].ID)
	assert.Equal(t, ids[0], listing[1].ID)
}
