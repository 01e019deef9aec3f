package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"plateful/internal/core/nutrition"
	"plateful/internal/core/recipe"
	"plateful/internal/pkg/common"
)

// RecipeRepository 以 gorm 實作 recipe.Repository
type RecipeRepository struct {
	db *gorm.DB
}

// NewRecipeRepository 創建食譜儲存
func NewRecipeRepository(db *gorm.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

func preloadRecipe(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("NutritionInfo").
		Preload("Timers", func(db *gorm.DB) *gorm.DB { return db.Order("step_number ASC, id ASC") })
}

// Create 在單一交易中寫入食譜、食材、營養資訊與計時器
func (r *RecipeRepository) Create(ctx context.Context, rec *recipe.Recipe) error {
	m := toModel(rec)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*rec = *toDomain(m)
	return nil
}

// Update 更新欄位並整批替換食材、營養資訊與計時器；評分摘要不受影響
func (r *RecipeRepository) Update(ctx context.Context, rec *recipe.Recipe) error {
	m := toModel(rec)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Recipe{}).Where("id = ?", rec.ID).Updates(map[string]interface{}{
			"name":         m.Name,
			"description":  m.Description,
			"category":     m.Category,
			"tags":         m.Tags,
			"cooking_time": m.CookingTime,
			"servings":     m.Servings,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return recipe.ErrRecipeNotFound
		}

		if err := deleteChildren(tx, rec.ID, &Ingredient{}, &NutritionInfo{}, &CookingTimer{}); err != nil {
			return err
		}
		if len(m.Ingredients) > 0 {
			if err := tx.Create(&m.Ingredients).Error; err != nil {
				return err
			}
		}
		if m.NutritionInfo != nil {
			if err := tx.Create(m.NutritionInfo).Error; err != nil {
				return err
			}
		}
		if len(m.Timers) > 0 {
			if err := tx.Create(&m.Timers).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	updated, err := r.Get(ctx, rec.ID)
	if err != nil {
		return err
	}
	*rec = *updated
	return nil
}

// Get 取得食譜與其關聯資料
func (r *RecipeRepository) Get(ctx context.Context, id uint) (*recipe.Recipe, error) {
	var m Recipe
	err := preloadRecipe(r.db.WithContext(ctx)).First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, recipe.ErrRecipeNotFound
	}
	if err != nil {
		return nil, err
	}
	return toDomain(&m), nil
}

// List 依分類、標籤與建立者篩選；標籤為整個字詞比對
func (r *RecipeRepository) List(ctx context.Context, filter recipe.ListFilter) ([]recipe.Recipe, error) {
	q := preloadRecipe(r.db.WithContext(ctx).Model(&Recipe{}))
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.CreatorID != 0 {
		q = q.Where("creator_id = ?", filter.CreatorID)
	}
	if filter.Tag != "" {
		q = q.Where(`(',' || tags || ',') LIKE ? ESCAPE '\'`, "%,"+escapeLike(filter.Tag)+",%")
	}
	switch filter.SortBy {
	case recipe.SortByCreatedAt:
		q = q.Order("created_at DESC").Order("id DESC")
	default:
		q = q.Order("rating DESC").Order("id ASC")
	}

	var models []Recipe
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]recipe.Recipe, 0, len(models))
	for i := range models {
		out = append(out, *toDomain(&models[i]))
	}
	return out, nil
}

// Delete 刪除食譜及所有關聯資料
func (r *RecipeRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteChildren(tx, id, &Ingredient{}, &NutritionInfo{}, &Rating{}, &CookingTimer{}); err != nil {
			return err
		}
		res := tx.Delete(&Recipe{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return recipe.ErrRecipeNotFound
		}
		return nil
	})
}

// AddTimer 新增步驟計時器
func (r *RecipeRepository) AddTimer(ctx context.Context, recipeID uint, t *recipe.Timer) error {
	m := CookingTimer{RecipeID: recipeID, StepNumber: t.StepNumber, Duration: t.Duration, Label: t.Label}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	t.ID = m.ID
	return nil
}

// ListTimers 依步驟順序列出計時器
func (r *RecipeRepository) ListTimers(ctx context.Context, recipeID uint) ([]recipe.Timer, error) {
	var models []CookingTimer
	err := r.db.WithContext(ctx).
		Where("recipe_id = ?", recipeID).
		Order("step_number ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	timers := make([]recipe.Timer, 0, len(models))
	for _, m := range models {
		timers = append(timers, timerToDomain(m))
	}
	return timers, nil
}

// escapeLike 跳脫 LIKE 萬用字元，搭配 ESCAPE '\' 使用
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func deleteChildren(tx *gorm.DB, recipeID uint, models ...interface{}) error {
	for _, m := range models {
		if err := tx.Where("recipe_id = ?", recipeID).Delete(m).Error; err != nil {
			return fmt.Errorf("delete %T: %w", m, err)
		}
	}
	return nil
}

func toModel(r *recipe.Recipe) *Recipe {
	m := &Recipe{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Tags:        common.TagsToString(r.Tags),
		CookingTime: r.CookingTime,
		Servings:    r.Servings,
		CreatorID:   r.CreatorID,
		Rating:      r.Rating,
		RatingCount: r.RatingCount,
	}
	for i, ing := range r.Ingredients {
		m.Ingredients = append(m.Ingredients, Ingredient{
			RecipeID: r.ID,
			Position: i,
			Name:     ing.Name,
			Quantity: ing.Quantity,
			Unit:     ing.Unit,
		})
	}
	if r.Nutrition != nil {
		m.NutritionInfo = &NutritionInfo{
			RecipeID:    r.ID,
			Calories:    r.Nutrition.Calories,
			Protein:     r.Nutrition.Protein,
			Carbs:       r.Nutrition.Carbs,
			Fats:        r.Nutrition.Fats,
			PortionSize: r.Nutrition.PortionSize,
			Unknown:     r.Nutrition.Unknown,
		}
	}
	for _, t := range r.Timers {
		m.Timers = append(m.Timers, CookingTimer{
			RecipeID:   r.ID,
			StepNumber: t.StepNumber,
			Duration:   t.Duration,
			Label:      t.Label,
		})
	}
	return m
}

func toDomain(m *Recipe) *recipe.Recipe {
	r := &recipe.Recipe{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Category:    m.Category,
		Tags:        common.StringToTags(m.Tags),
		CookingTime: m.CookingTime,
		Servings:    m.Servings,
		CreatorID:   m.CreatorID,
		Rating:      m.Rating,
		RatingCount: m.RatingCount,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		Ingredients: make([]nutrition.IngredientEntry, 0, len(m.Ingredients)),
		Timers:      make([]recipe.Timer, 0, len(m.Timers)),
	}
	for _, ing := range m.Ingredients {
		r.Ingredients = append(r.Ingredients, nutrition.IngredientEntry{
			Name:     ing.Name,
			Quantity: ing.Quantity,
			Unit:     ing.Unit,
		})
	}
	if m.NutritionInfo != nil {
		r.Nutrition = &recipe.NutritionInfo{
			NutritionRecord: nutrition.NutritionRecord{
				Calories:    m.NutritionInfo.Calories,
				Protein:     m.NutritionInfo.Protein,
				Carbs:       m.NutritionInfo.Carbs,
				Fats:        m.NutritionInfo.Fats,
				PortionSize: m.NutritionInfo.PortionSize,
			},
			Unknown: m.NutritionInfo.Unknown,
		}
	}
	for _, t := range m.Timers {
		r.Timers = append(r.Timers, timerToDomain(t))
	}
	return r
}

func timerToDomain(m CookingTimer) recipe.Timer {
	return recipe.Timer{
		ID:         m.ID,
		StepNumber: m.StepNumber,
		Duration:   m.Duration,
		Label:      m.Label,
	}
}
