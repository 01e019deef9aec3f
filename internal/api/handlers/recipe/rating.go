package recipe

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RateRequest 評分請求
type RateRequest struct {
	UserID uint `json:"user_id"`
	Score  int  `json:"score"`
}

// HandleRateRecipe 新增或覆寫評分，回傳重新計算的平均
func (h *Handler) HandleRateRecipe(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		WriteError(c, err)
		return
	}

	var req RateRequest
	if err := bindJSON(c, &req); err != nil {
		WriteError(c, err)
		return
	}

	summary, err := h.service.Rate(c.Request.Context(), id, req.UserID, req.Score)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
