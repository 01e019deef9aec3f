package nutrition

import (
	"fmt"
	"strings"

	"plateful/internal/pkg/common"
)

// IngredientEntry 食材輸入（自由文字名稱、數量、單位）
type IngredientEntry struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// Validate 檢查食材前置條件：名稱去除空白後不可為空、數量必須大於 0
func (e IngredientEntry) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return common.NewValidationError("name", "ingredient name must not be empty")
	}
	if !(e.Quantity > 0) {
		return common.NewValidationError("quantity", fmt.Sprintf("quantity for %q must be positive, got %v", e.Name, e.Quantity))
	}
	return nil
}

// ValidateEntries 逐一檢查食材，錯誤欄位帶上索引
func ValidateEntries(entries []IngredientEntry) error {
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			ve := err.(*common.ValidationError)
			return common.NewValidationError(fmt.Sprintf("ingredients[%d].%s", i, ve.Field), ve.Message)
		}
	}
	return nil
}

// NutrientProfile 每 100 單位（食材原生量測單位）的營養值
type NutrientProfile struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
}

// Contribution 單一食材對總營養的絕對貢獻
type Contribution struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
}

// Scale 依數量換算：每個欄位乘以 quantity/100
func (p NutrientProfile) Scale(quantity float64) Contribution {
	return Contribution{
		Calories: p.Calories * quantity / 100,
		Protein:  p.Protein * quantity / 100,
		Carbs:    p.Carbs * quantity / 100,
		Fats:     p.Fats * quantity / 100,
	}
}

func (c Contribution) add(o Contribution) Contribution {
	return Contribution{
		Calories: c.Calories + o.Calories,
		Protein:  c.Protein + o.Protein,
		Carbs:    c.Carbs + o.Carbs,
		Fats:     c.Fats + o.Fats,
	}
}

// NutritionRecord 每份營養紀錄，與食譜一對一
type NutritionRecord struct {
	Calories    float64 `json:"calories"`
	Protein     float64 `json:"protein"`
	Carbs       float64 `json:"carbs"`
	Fats        float64 `json:"fats"`
	PortionSize float64 `json:"portion_size"`
}

// Result 聚合結果，附帶被略過的食材
type Result struct {
	Record   NutritionRecord `json:"record"`
	Resolved int             `json:"resolved"`
	Skipped  int             `json:"skipped"`
	Skips    []*SkipError    `json:"-"`
}
