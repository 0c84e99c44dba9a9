package health

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"recipe-suggester/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Sources   map[string]bool        `json:"sources"`
	Runtime   map[string]interface{} `json:"runtime"`
}

// Handler 健康檢查處理器
type Handler struct {
	version     string
	datasetPath string
	sources     map[string]bool
	startedAt   time.Time
}

// NewHandler 創建健康檢查處理器；sources 為各外部來源是否已設定
func NewHandler(version, datasetPath string, sources map[string]bool) *Handler {
	if sources == nil {
		sources = map[string]bool{}
	}
	return &Handler{
		version:     version,
		datasetPath: datasetPath,
		sources:     sources,
		startedAt:   time.Now(),
	}
}

// HealthCheck 健康檢查
func (h *Handler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.version,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		Sources:   h.sources,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查：本地資料集必須可讀
func (h *Handler) ReadinessCheck(c *gin.Context) {
	f, err := os.Open(h.datasetPath)
	if err != nil {
		common.LogWarn("Dataset not readable",
			zap.String("path", h.datasetPath),
			zap.Error(err),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not_ready",
			"dataset": false,
		})
		return
	}
	_ = f.Close()

	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"dataset": true,
	})
}

// LivenessCheck 存活檢查
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
