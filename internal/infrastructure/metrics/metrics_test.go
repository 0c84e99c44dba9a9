package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceCall(t *testing.T) {
	c := New()
	c.SourceCall("web", OutcomeSuccess, 50*time.Millisecond)
	c.SourceCall("web", OutcomeError, time.Second)
	c.SourceCall("video", OutcomeSkipped, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.sourceCallsTotal.WithLabelValues("web", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sourceCallsTotal.WithLabelValues("web", OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sourceCallsTotal.WithLabelValues("video", OutcomeSkipped)))
}

func TestHTTPMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := New()

	r := gin.New()
	r.Use(c.HTTPMiddleware())
	r.GET("/ping", func(ctx *gin.Context) { ctx.String(http.StatusOK, "pong") })
	r.GET("/metrics", gin.WrapH(c.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("GET", "/ping", "200")))

	c.SuggestionsReturned(3)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), "recipe_suggestions_returned_count 1")
}
