package recipe

import (
	"net/http"
	"strconv"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	recipeService "plateful/internal/core/recipe"
	"plateful/internal/pkg/common"
)

// Handler 食譜處理程序
type Handler struct {
	service *recipeService.Service
	timers  *recipeService.TimerService
}

// NewHandler 創建新的食譜處理程序；timers 為 nil 時計時器端點回傳 503
func NewHandler(service *recipeService.Service, timers *recipeService.TimerService) *Handler {
	return &Handler{
		service: service,
		timers:  timers,
	}
}

// RecipeResponse 建立或更新食譜的回應
type RecipeResponse struct {
	Recipe             *recipeService.Recipe `json:"recipe"`
	SkippedIngredients int                   `json:"skipped_ingredients"`
}

// HandleCreateRecipe 建立食譜並計算每份營養
func (h *Handler) HandleCreateRecipe(c *gin.Context) {
	var in recipeService.RecipeInput
	if err := bindJSON(c, &in); err != nil {
		WriteError(c, err)
		return
	}

	res, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		WriteError(c, err)
		return
	}

	common.LogInfo("食譜建立完成",
		zap.String("request_id", requestid.Get(c)),
		zap.Uint("recipe_id", res.Recipe.ID),
		zap.Int("skipped_ingredients", res.Skipped),
	)
	c.JSON(http.StatusCreated, RecipeResponse{Recipe: res.Recipe, SkippedIngredients: res.Skipped})
}

// HandleListRecipes 依分類、標籤、建立者篩選食譜
func (h *Handler) HandleListRecipes(c *gin.Context) {
	filter := recipeService.ListFilter{
		Category: c.Query("category"),
		Tag:      c.Query("tag"),
		SortBy:   c.Query("sort_by"),
	}
	if raw := c.Query("creator_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			WriteError(c, common.NewValidationError("creator_id", "must be a positive integer"))
			return
		}
		filter.CreatorID = uint(id)
	}
	h.listRecipes(c, filter)
}

// HandleListUserRecipes 列出某位使用者建立的食譜
func (h *Handler) HandleListUserRecipes(c *gin.Context) {
	userID, err := parseID(c, "user_id")
	if err != nil {
		WriteError(c, err)
		return
	}
	h.listRecipes(c, recipeService.ListFilter{
		CreatorID: userID,
		SortBy:    c.Query("sort_by"),
	})
}

func (h *Handler) listRecipes(c *gin.Context, filter recipeService.ListFilter) {
	recipes, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipes)
}

// HandleGetRecipe 取得單一食譜
func (h *Handler) HandleGetRecipe(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		WriteError(c, err)
		return
	}

	r, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// HandleUpdateRecipe 建立者更新食譜，營養資訊重新計算
func (h *Handler) HandleUpdateRecipe(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		WriteError(c, err)
		return
	}
	userID, err := callerID(c)
	if err != nil {
		WriteError(c, err)
		return
	}

	var in recipeService.RecipeInput
	if err := bindJSON(c, &in); err != nil {
		WriteError(c, err)
		return
	}
	// 建立者不可透過更新轉移
	in.CreatorID = userID

	res, err := h.service.Update(c.Request.Context(), id, userID, in)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, RecipeResponse{Recipe: res.Recipe, SkippedIngredients: res.Skipped})
}

// HandleDeleteRecipe 建立者刪除食譜
func (h *Handler) HandleDeleteRecipe(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		WriteError(c, err)
		return
	}
	userID, err := callerID(c)
	if err != nil {
		WriteError(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, userID); err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "recipe deleted"})
}

// HandleScaleRecipe 依目標份數換算食材
func (h *Handler) HandleScaleRecipe(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		WriteError(c, err)
		return
	}
	servings, err := parseServings(c, 0)
	if err != nil {
		WriteError(c, err)
		return
	}

	scaled, err := h.service.Scale(c.Request.Context(), id, servings)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scaled_ingredients": scaled})
}

// HandleShoppingList 產生購物清單，預設 1 人份
func (h *Handler) HandleShoppingList(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		WriteError(c, err)
		return
	}
	servings, err := parseServings(c, 1)
	if err != nil {
		WriteError(c, err)
		return
	}

	items, err := h.service.ShoppingList(c.Request.Context(), id, servings)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shopping_list": items})
}
