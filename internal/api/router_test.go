package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	recipeService "recipe-suggester/internal/core/recipe"
	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/infrastructure/metrics"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type stubSuggester struct{}

func (stubSuggester) Suggest(_ context.Context, req recipeService.SuggestRequest) ([]recipeService.EnrichedSuggestion, error) {
	if len(recipeService.Normalize(req.Ingredients)) == 0 {
		return nil, recipeService.ErrInvalidRequest
	}
	return []recipeService.EnrichedSuggestion{{
		Name:        "Canh chua",
		Description: "Món canh chua miền Nam",
		Citation: recipeService.Citation{
			SourceName: recipeService.CitationAI,
			SourceType: recipeService.SourceAI,
		},
	}}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dataset := filepath.Join(t.TempDir(), "recipes.csv")
	require.NoError(t, os.WriteFile(dataset, []byte("name,ingredients\nPhở,\"bánh phở, thịt bò\"\n"), 0o644))

	cfg := &config.Config{DedupWindow: time.Second}
	cfg.App.Version = "1.2.3"
	cfg.Server.RequestTimeout = 5 * time.Second
	cfg.Server.MaxBodyBytes = 1 << 20
	cfg.Dataset.Path = dataset
	return cfg
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_HealthEndpoints(t *testing.T) {
	cfg := testConfig(t)
	r := SetupRouter(cfg, Dependencies{
		Suggester: stubSuggester{},
		Sources:   map[string]bool{"web": true, "video": false},
	})

	w := serve(r, http.MethodGet, "/live", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	var health struct {
		Status  string          `json:"status"`
		Version string          `json:"version"`
		Sources map[string]bool `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "1.2.3", health.Version)
	assert.Equal(t, map[string]bool{"web": true, "video": false}, health.Sources)
}

func TestRouter_ReadyFailsWithoutDataset(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dataset.Path = filepath.Join(t.TempDir(), "missing.csv")
	r := SetupRouter(cfg, Dependencies{Suggester: stubSuggester{}})

	w := serve(r, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not_ready")
}

func TestRouter_Suggest(t *testing.T) {
	r := SetupRouter(testConfig(t), Dependencies{Suggester: stubSuggester{}})

	w := serve(r, http.MethodPost, "/api/v1/recipe/suggest", `{"ingredients":["cá","me","cà chua"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Contains(t, w.Body.String(), `"source_name":"AI Creative Suggestion"`)
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = serve(r, http.MethodPost, "/api/v1/recipe/suggest", `{"ingredients":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"INVALID_REQUEST"`)
}

func TestRouter_Normalize(t *testing.T) {
	r := SetupRouter(testConfig(t), Dependencies{Suggester: stubSuggester{}})

	w := serve(r, http.MethodPost, "/api/v1/ingredients/normalize", `{"ingredients":["2 quả trứng","Hành lá"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hành lá")
}

func TestRouter_BodyTooLarge(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.MaxBodyBytes = 32
	r := SetupRouter(cfg, Dependencies{Suggester: stubSuggester{}})

	w := serve(r, http.MethodPost, "/api/v1/recipe/suggest", `{"ingredients":["trứng","cà chua","hành lá","nước mắm"]}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRouter_RateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Requests = 1
	cfg.RateLimit.Window = time.Minute
	r := SetupRouter(cfg, Dependencies{Suggester: stubSuggester{}})

	w := serve(r, http.MethodPost, "/api/v1/ingredients/normalize", `{"ingredients":["trứng"]}`)
	assert.Equal(t, http.StatusOK, w.Code)
	w = serve(r, http.MethodPost, "/api/v1/ingredients/normalize", `{"ingredients":["cà chua"]}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// 健康檢查不受限流
	w = serve(r, http.MethodGet, "/live", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_Metrics(t *testing.T) {
	collector := metrics.New()
	r := SetupRouter(testConfig(t), Dependencies{Suggester: stubSuggester{}, Metrics: collector})

	serve(r, http.MethodGet, "/live", "")
	w := serve(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",path="/live",status="200"} 1`)
}

func TestRouter_CORSPreflight(t *testing.T) {
	r := SetupRouter(testConfig(t), Dependencies{Suggester: stubSuggester{}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/recipe/suggest", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
