package recipe

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"plateful/internal/core/nutrition"
	recipeService "plateful/internal/core/recipe"
	"plateful/internal/pkg/common"
)

// UserIDHeader 呼叫者身分標頭
const UserIDHeader = "X-User-ID"

// WriteError 將錯誤轉換為統一的 JSON 錯誤回應
func WriteError(c *gin.Context, err error) {
	var (
		ve     *common.ValidationError
		custom *common.CustomError
	)

	switch {
	case errors.As(err, &ve):
		c.AbortWithStatusJSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeValidation,
			Message: ve.Message,
			Field:   ve.Field,
		})
		return
	case errors.As(err, &custom):
	case errors.Is(err, recipeService.ErrRecipeNotFound):
		custom = common.ErrNotFound.WithErr(err)
	case errors.Is(err, recipeService.ErrForbidden):
		custom = common.ErrForbidden.WithErr(err)
	case errors.Is(err, recipeService.ErrTimerNotFound):
		custom = common.ErrTimerNotFound.WithErr(err)
	case errors.Is(err, nutrition.ErrAllIngredientsUnresolved):
		custom = common.ErrNutritionUnresolved.WithErr(err)
	case errors.Is(err, context.DeadlineExceeded):
		custom = common.ErrGatewayTimeout.WithErr(err)
	default:
		custom = common.ErrInternalError.WithErr(err)
	}

	resp := common.ErrorResponse{
		Code:    custom.Code,
		Message: custom.Message,
	}
	if gin.IsDebugging() && custom.Err != nil {
		resp.Details = custom.Err.Error()
	}

	if custom.Status >= http.StatusInternalServerError {
		common.LogError("請求處理失敗",
			zap.String("request_id", requestid.Get(c)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(custom.Status, resp)
}

// parseID 解析路徑中的正整數 ID
func parseID(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, common.NewValidationError(name, "must be a positive integer")
	}
	return uint(id), nil
}

// parseServings 解析 servings 查詢參數；缺少時使用 def，def < 1 表示必填
func parseServings(c *gin.Context, def int) (int, error) {
	raw := strings.TrimSpace(c.Query("servings"))
	if raw == "" {
		if def < 1 {
			return 0, common.NewValidationError("servings", "is required")
		}
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, common.NewValidationError("servings", "must be an integer")
	}
	return n, nil
}

// callerID 從標頭取得呼叫者 ID
func callerID(c *gin.Context) (uint, error) {
	raw := strings.TrimSpace(c.GetHeader(UserIDHeader))
	if raw == "" {
		return 0, common.ErrUnauthorized
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, common.NewValidationError(UserIDHeader, "must be a positive integer")
	}
	return uint(id), nil
}

// bindJSON 解析請求體，格式錯誤時回傳 INVALID_REQUEST
func bindJSON(c *gin.Context, v interface{}) error {
	if c.Request.Body == nil {
		return common.ErrInvalidRequest
	}
	if err := common.DecodeJSON(c.Request.Body, v); err != nil {
		return common.ErrInvalidRequest.WithErr(err)
	}
	return nil
}
