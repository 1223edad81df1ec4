package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/NickCamacho15/bbb-truck-sales-sub000/auth"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/config"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/db"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/middleware"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/models"
	srv "github.com/NickCamacho15/bbb-truck-sales-sub000/internal/server"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/storage"
)

func setupFullTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dbi, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(dbi); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return dbi
}

func newServer(t *testing.T) (http.Handler, *gorm.DB) {
	t.Helper()
	dbi := setupFullTestDB(t)
	require.NoError(t, db.Seed(context.Background(), dbi, db.AdminSeed{
		Username: "admin", Email: "admin@example.com", Password: "correct-horse",
	}))
	dir := t.TempDir()
	store, err := storage.NewLocalStore(dir, "http://localhost:8080/uploads")
	require.NoError(t, err)

	cfg := &config.Config{
		Server:  config.ServerConfig{CORSOrigins: []string{"http://localhost:3000"}},
		Storage: config.StorageConfig{UploadDir: dir, BaseURL: "http://localhost:8080/uploads"},
		App:     config.AppConfig{MetricsEnabled: true, ViewHashSalt: "test-salt"},
	}
	h := srv.New(srv.Deps{
		DB:       dbi,
		Config:   cfg,
		Auth:     auth.NewService("router-test-secret", time.Hour),
		Store:    store,
		Registry: prometheus.NewRegistry(),
	})
	return h, dbi
}

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func jsonRequest(method, path string, body any, token string) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func login(t *testing.T, h http.Handler) string {
	t.Helper()
	w := serve(h, jsonRequest(http.MethodPost, "/api/auth/login", map[string]string{"username": "admin", "password": "correct-horse"}, ""))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res.Token
}

func TestHealthEndpoints(t *testing.T) {
	h, _ := newServer(t)
	for _, path := range []string{"/health", "/healthz"} {
		w := serve(h, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	h, _ := newServer(t)
	cases := []struct{ method, path string }{
		{http.MethodPost, "/api/trucks"},
		{http.MethodPut, "/api/trucks/x"},
		{http.MethodPatch, "/api/trucks/x"},
		{http.MethodDelete, "/api/trucks/x"},
		{http.MethodGet, "/api/inquiries"},
		{http.MethodPatch, "/api/inquiries/x"},
		{http.MethodGet, "/api/financing"},
		{http.MethodGet, "/api/analytics"},
		{http.MethodGet, "/api/admin/stats"},
		{http.MethodPost, "/api/upload"},
		{http.MethodGet, "/api/auth/me"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := serve(h, jsonRequest(tc.method, tc.path, map[string]string{}, ""))
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
		})
	}

	w := serve(h, jsonRequest(http.MethodGet, "/api/analytics", nil, "not-a-jwt"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTokenOfRemovedAdminIsRejected(t *testing.T) {
	h, dbi := newServer(t)
	token := login(t, h)

	w := serve(h, jsonRequest(http.MethodGet, "/api/admin/stats", nil, token))
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, dbi.Where("username = ?", "admin").Delete(&models.User{}).Error)
	w = serve(h, jsonRequest(http.MethodGet, "/api/admin/stats", nil, token))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCatalogFlow(t *testing.T) {
	h, dbi := newServer(t)
	token := login(t, h)

	w := serve(h, jsonRequest(http.MethodPost, "/api/trucks", map[string]any{
		"year": 2022, "make": "Toyota", "model": "Tundra", "listingType": "LEASE",
		"monthlyPrice": 799, "leaseTermMonths": 36, "featured": true,
	}, token))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var tr models.Truck
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tr))

	// Public listing and detail.
	w = serve(h, httptest.NewRequest(http.MethodGet, "/api/trucks?listingType=lease&featured=true", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), tr.ID)

	visitor := &http.Cookie{Name: middleware.VisitorCookie, Value: "visitor-abc"}
	first := httptest.NewRequest(http.MethodGet, "/api/trucks/"+tr.Slug, nil)
	first.RemoteAddr = "203.0.113.50:1234"
	first.AddCookie(visitor)
	w = serve(h, first)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Result().Cookies(), "known visitors keep their cookie")

	// Same visitor from another network is deduplicated by session.
	again := httptest.NewRequest(http.MethodGet, "/api/trucks/"+tr.ID, nil)
	again.RemoteAddr = "198.51.100.60:1234"
	again.AddCookie(visitor)
	require.Equal(t, http.StatusOK, serve(h, again).Code)

	var views int64
	dbi.Model(&models.TruckView{}).Count(&views)
	assert.Equal(t, int64(1), views)

	// A new network without a cookie counts and is issued one.
	other := httptest.NewRequest(http.MethodGet, "/api/trucks/"+tr.ID, nil)
	other.RemoteAddr = "192.0.2.70:1234"
	w = serve(h, other)
	require.Equal(t, http.StatusOK, w.Code)
	var issued bool
	for _, c := range w.Result().Cookies() {
		issued = issued || c.Name == middleware.VisitorCookie
	}
	assert.True(t, issued)

	w = serve(h, jsonRequest(http.MethodGet, "/api/analytics?period=day", nil, token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rep struct {
		Period          string `json:"period"`
		TotalViews      int64  `json:"totalViews"`
		TopViewedTrucks []struct {
			ID    string `json:"id"`
			Views int64  `json:"views"`
		} `json:"topViewedTrucks"`
		ViewsByDay [][]any `json:"viewsByDay"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	assert.Equal(t, "day", rep.Period)
	assert.Equal(t, int64(2), rep.TotalViews)
	require.Len(t, rep.TopViewedTrucks, 1)
	assert.Equal(t, tr.ID, rep.TopViewedTrucks[0].ID)
	assert.Len(t, rep.ViewsByDay, 1)

	w = serve(h, jsonRequest(http.MethodGet, "/api/analytics?period=decade", nil, token))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Mark sold; the truck leaves the featured set.
	w = serve(h, jsonRequest(http.MethodPatch, "/api/trucks/"+tr.ID, map[string]any{"status": "SOLD"}, token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = serve(h, httptest.NewRequest(http.MethodGet, "/api/trucks?featured=true", nil))
	assert.NotContains(t, w.Body.String(), tr.ID)

	w = serve(h, jsonRequest(http.MethodGet, "/api/admin/stats", nil, token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"soldTrucks":1`)

	w = serve(h, jsonRequest(http.MethodDelete, "/api/trucks/"+tr.ID, nil, token))
	require.Equal(t, http.StatusOK, w.Code)
	dbi.Model(&models.TruckView{}).Count(&views)
	assert.Zero(t, views, "views are removed with the truck")
}

func TestPublicFormsAreRateLimited(t *testing.T) {
	h, _ := newServer(t)
	body := map[string]string{"name": "Lee", "email": "lee@example.com", "message": "Hello"}
	var last int
	for i := 0; i < 11; i++ {
		r := jsonRequest(http.MethodPost, "/api/inquiries", body, "")
		r.Header.Set("X-Forwarded-For", "203.0.113.99")
		last = serve(h, r).Code
		if i < 10 {
			require.Equal(t, http.StatusCreated, last)
		}
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestMetricsAndCORS(t *testing.T) {
	h, _ := newServer(t)
	serve(h, httptest.NewRequest(http.MethodGet, "/api/trucks", nil))

	w := serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `trucks_http_requests_total{method="GET",route="GET /api/trucks",status="200"} 1`)

	pre := httptest.NewRequest(http.MethodOptions, "/api/trucks", nil)
	pre.Header.Set("Origin", "http://localhost:3000")
	pre.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = serve(h, pre)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
