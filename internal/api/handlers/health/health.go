package health

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"plateful/internal/pkg/common"
)

// 單一依賴檢查的逾時
const checkTimeout = 2 * time.Second

// Checker 依賴健康檢查，回傳 nil 表示可用
type Checker func(ctx context.Context) error

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Checks    map[string]string      `json:"checks,omitempty"`
}

// Handler 健康檢查處理器
type Handler struct {
	version  string
	checkers map[string]Checker
}

// NewHandler 創建健康檢查處理器，checkers 以依賴名稱為鍵（database、redis）
func NewHandler(version string, checkers map[string]Checker) *Handler {
	if checkers == nil {
		checkers = map[string]Checker{}
	}
	return &Handler{version: version, checkers: checkers}
}

// runChecks 依名稱順序執行所有檢查
func (h *Handler) runChecks(ctx context.Context) (map[string]string, bool) {
	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := h.checkers[name](checkCtx)
		cancel()
		if err != nil {
			common.LogWarn("Dependency check failed",
				zap.String("dependency", name),
				zap.Error(err),
			)
			results[name] = "down"
			healthy = false
			continue
		}
		results[name] = "up"
	}
	return results, healthy
}

// HealthCheck 回傳版本、執行期資訊與依賴狀態
func (h *Handler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	checks, healthy := h.runChecks(c.Request.Context())
	status := "ok"
	if !healthy {
		status = "degraded"
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Version:   h.version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
		Checks: checks,
	})
}

// ReadinessCheck 任一依賴不可用時回傳 503
func (h *Handler) ReadinessCheck(c *gin.Context) {
	checks, healthy := h.runChecks(c.Request.Context())
	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"checks": checks,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"checks": checks,
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
