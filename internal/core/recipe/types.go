package recipe

import (
	"errors"
	"time"

	"plateful/internal/core/nutrition"
)

var (
	// ErrRecipeNotFound 食譜不存在
	ErrRecipeNotFound = errors.New("recipe not found")
	// ErrScoreOutOfRange 評分必須介於 1 到 5
	ErrScoreOutOfRange = errors.New("score must be between 1 and 5")
	// ErrForbidden 只有建立者可以刪除或修改食譜
	ErrForbidden = errors.New("only the recipe creator may modify it")
	// ErrTimerNotFound 計時器不存在或已倒數結束
	ErrTimerNotFound = errors.New("timer not found")
)

const (
	MinScore = 1
	MaxScore = 5
)

// Recipe 食譜
type Recipe struct {
	ID          uint                        `json:"id"`
	Name        string                      `json:"name"`
	Description string                      `json:"description"`
	Category    string                      `json:"category"`
	Tags        []string                    `json:"tags"`
	CookingTime int                         `json:"cooking_time"`
	Servings    int                         `json:"servings"`
	CreatorID   uint                        `json:"creator_id"`
	Ingredients []nutrition.IngredientEntry `json:"ingredients"`
	Nutrition   *NutritionInfo              `json:"nutritional_info"`
	Timers      []Timer                     `json:"timers"`
	Rating      float64                     `json:"rating"`
	RatingCount int                         `json:"rating_count"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

// NutritionInfo 每份營養資訊；Unknown 表示所有食材皆無法解析且依設定保留為未知
type NutritionInfo struct {
	nutrition.NutritionRecord
	Unknown bool `json:"unknown"`
}

// Timer 食譜步驟計時器定義
type Timer struct {
	ID         uint   `json:"id,omitempty"`
	StepNumber int    `json:"step_number" validate:"gte=1"`
	Duration   int    `json:"duration" validate:"gt=0"` // 秒
	Label      string `json:"label"`
}

// RecipeInput 建立或更新食譜的輸入
type RecipeInput struct {
	Name        string                      `json:"name" validate:"required,max=200"`
	Description string                      `json:"description"`
	Category    string                      `json:"category" validate:"max=100"`
	Tags        []string                    `json:"tags"`
	CookingTime int                         `json:"cooking_time" validate:"gte=0"`
	Servings    int                         `json:"servings"`
	CreatorID   uint                        `json:"creator_id" validate:"required"`
	Ingredients []nutrition.IngredientEntry `json:"ingredients"`
	Timers      []Timer                     `json:"timers" validate:"dive"`
}

// ListFilter 食譜列表篩選條件
type ListFilter struct {
	Category  string
	Tag       string
	CreatorID uint   // 0 表示不限
	SortBy    string // rating 或 created_at
}

const (
	SortByRating    = "rating"
	SortByCreatedAt = "created_at"
)

// ScaledIngredient 依份數換算後的食材
type ScaledIngredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// Rating 使用者對食譜的評分，(RecipeID, UserID) 唯一
type Rating struct {
	RecipeID uint `json:"recipe_id"`
	UserID   uint `json:"user_id"`
	Score    int  `json:"score"`
}

// RatingSummary 由所有評分重新計算的平均與數量
type RatingSummary struct {
	Rating      float64 `json:"rating"`
	RatingCount int     `json:"rating_count"`
}

// CreateResult 建立或更新食譜的結果
type CreateResult struct {
	Recipe  *Recipe                `json:"recipe"`
	Skipped int                    `json:"skipped_ingredients"`
	Skips   []*nutrition.SkipError `json:"-"`
}

// RunningTimer 正在倒數的計時器
type RunningTimer struct {
	ID        string `json:"timer_id"`
	Duration  int    `json:"duration"`
	Remaining int    `json:"time_left"`
}
