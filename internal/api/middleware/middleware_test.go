package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func ok(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Code
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, w))
}

func TestLogger_PassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(Logger())
	r.GET("/ping", ok)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBodySizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodySizeLimit(16))
	r.POST("/echo", ok)

	w := post(r, "/echo", `{"ingredients":["trứng","cà chua"]}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "BODY_TOO_LARGE", errorCode(t, w))

	w = post(r, "/echo", `{}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBodySizeLimit_UnknownLengthCaughtOnRead(t *testing.T) {
	r := gin.New()
	r.Use(BodySizeLimit(16))
	r.Use(Deduplication(time.Second))
	r.POST("/echo", ok)

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"ingredients":["trứng","cà chua"]}`))
	req.ContentLength = -1
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestDeduplication(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDeduplicator(time.Second)
	d.now = func() time.Time { return now }

	var hits int
	r := gin.New()
	r.Use(d.Handler())
	r.POST("/suggest", func(c *gin.Context) {
		hits++
		ok(c)
	})
	r.GET("/suggest", ok)

	body := `{"ingredients":["trứng"]}`
	assert.Equal(t, http.StatusOK, post(r, "/suggest", body).Code)

	w := post(r, "/suggest", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "TOO_MANY_REQUESTS", errorCode(t, w))

	// 不同請求體不受影響
	assert.Equal(t, http.StatusOK, post(r, "/suggest", `{"ingredients":["gà"]}`).Code)

	// GET 不去重
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/suggest", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	now = now.Add(2 * time.Second)
	assert.Equal(t, http.StatusOK, post(r, "/suggest", body).Code)
	assert.Equal(t, 3, hits)
}

func TestDeduplication_BodyRestoredForHandler(t *testing.T) {
	r := gin.New()
	r.Use(Deduplication(time.Second))
	r.POST("/echo", func(c *gin.Context) {
		var req struct {
			Ingredients []string `json:"ingredients"`
		}
		require.NoError(t, c.ShouldBindJSON(&req))
		c.JSON(http.StatusOK, req)
	})

	w := post(r, "/echo", `{"ingredients":["trứng","cà chua"]}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ingredients":["trứng","cà chua"]}`, w.Body.String())
}

func TestDeduplication_PrunesExpired(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDeduplicator(time.Second)
	d.now = func() time.Time { return now }

	for i := 0; i < pruneThreshold; i++ {
		assert.False(t, d.seen(time.Duration(i).String()))
	}
	now = now.Add(time.Minute)
	assert.False(t, d.seen("fresh"))
	assert.Len(t, d.requests, 1)
}

func TestRateLimiter_PerClient(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))

	// 兩個請求/分鐘，約 30 秒補回一個令牌
	now = now.Add(31 * time.Second)
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, time.Minute)
	rl.now = func() time.Time { return now }

	rl.Allow("10.0.0.1")
	now = now.Add(idleLimiterTTL + time.Second)
	rl.Allow("10.0.0.2")

	assert.Len(t, rl.clients, 1)
	assert.Contains(t, rl.clients, "10.0.0.2")
}

func TestRateLimit_Middleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(2, time.Minute))
	r.GET("/ping", ok)

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		r.ServeHTTP(last, httptest.NewRequest(http.MethodGet, "/ping", nil))
		codes = append(codes, last.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, "30", last.Header().Get("Retry-After"))
	assert.Equal(t, "TOO_MANY_REQUESTS", errorCode(t, last))
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(20 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	r.GET("/partial", func(c *gin.Context) {
		<-c.Request.Context().Done()
		ok(c)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, "GATEWAY_TIMEOUT", errorCode(t, w))

	// 已寫出的回應不被覆蓋
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/partial", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
