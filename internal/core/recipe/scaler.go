package recipe

import (
	"plateful/internal/core/nutrition"
	"plateful/internal/pkg/common"
)

// Scale 依目標份數等比例換算食材數量，結果四捨五入到小數點後兩位。
// 不會修改輸入，也不會改變食材順序；食材數量必須大於 0。
func Scale(ingredients []nutrition.IngredientEntry, originalServings, targetServings int) ([]ScaledIngredient, error) {
	if originalServings < 1 {
		return nil, nutrition.InvalidServings("original_servings", originalServings)
	}
	if targetServings < 1 {
		return nil, nutrition.InvalidServings("servings", targetServings)
	}
	if err := nutrition.ValidateEntries(ingredients); err != nil {
		return nil, err
	}

	factor := float64(targetServings) / float64(originalServings)
	scaled := make([]ScaledIngredient, 0, len(ingredients))
	for _, ing := range ingredients {
		scaled = append(scaled, ScaledIngredient{
			Name:     ing.Name,
			Quantity: common.Round2(ing.Quantity * factor),
			Unit:     ing.Unit,
		})
	}
	return scaled, nil
}
