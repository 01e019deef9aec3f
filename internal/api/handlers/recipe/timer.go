package recipe

import (
	"net/http"

	"github.com/gin-gonic/gin"

	recipeService "plateful/internal/core/recipe"
	"plateful/internal/pkg/common"
)

// StartTimerRequest 開始倒數請求
type StartTimerRequest struct {
	Duration int `json:"duration"` // 秒
}

// HandleAddTimer 為食譜新增步驟計時器
func (h *Handler) HandleAddTimer(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		WriteError(c, err)
		return
	}

	var t recipeService.Timer
	if err := bindJSON(c, &t); err != nil {
		WriteError(c, err)
		return
	}

	added, err := h.service.AddTimer(c.Request.Context(), id, t)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"timer": added})
}

// HandleListTimers 列出食譜的步驟計時器
func (h *Handler) HandleListTimers(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		WriteError(c, err)
		return
	}

	timers, err := h.service.ListTimers(c.Request.Context(), id)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timers": timers})
}

// HandleStartTimer 開始倒數計時，未指定 timer_id 時產生新的識別碼
func (h *Handler) HandleStartTimer(c *gin.Context) {
	if h.timers == nil {
		WriteError(c, common.ErrServiceUnavailable)
		return
	}

	var req StartTimerRequest
	if err := bindJSON(c, &req); err != nil {
		WriteError(c, err)
		return
	}

	id := c.Param("timer_id")
	if id == "" {
		id = common.GenerateUUID()
	}

	running, err := h.timers.Start(c.Request.Context(), id, req.Duration)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, running)
}

// HandleGetTimer 查詢剩餘時間
func (h *Handler) HandleGetTimer(c *gin.Context) {
	if h.timers == nil {
		WriteError(c, common.ErrServiceUnavailable)
		return
	}

	running, err := h.timers.Get(c.Request.Context(), c.Param("timer_id"))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, running)
}
