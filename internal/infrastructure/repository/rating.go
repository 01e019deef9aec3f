package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"plateful/internal/core/recipe"
)

// RatingRepository 以 gorm 交易實作 recipe.RatingStore
type RatingRepository struct {
	db *gorm.DB
}

// NewRatingRepository 創建評分儲存
func NewRatingRepository(db *gorm.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// WithinTx 在資料庫交易中執行 fn，fn 回傳錯誤時回滾
func (r *RatingRepository) WithinTx(ctx context.Context, fn func(tx recipe.RatingTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ratingTx{tx: tx})
	})
}

type ratingTx struct {
	tx *gorm.DB
}

// RecipeExists 以 SELECT ... FOR UPDATE 鎖定食譜列（SQLite 會忽略鎖定子句）
func (t *ratingTx) RecipeExists(recipeID uint) (bool, error) {
	var m Recipe
	err := t.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&m, recipeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *ratingTx) UpsertRating(r recipe.Rating) error {
	m := Rating{RecipeID: r.RecipeID, UserID: r.UserID, Score: r.Score}
	return t.tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "recipe_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "updated_at"}),
	}).Create(&m).Error
}

func (t *ratingTx) ListScores(recipeID uint) ([]int, error) {
	var scores []int
	err := t.tx.Model(&Rating{}).
		Where("recipe_id = ?", recipeID).
		Pluck("score", &scores).Error
	return scores, err
}

func (t *ratingTx) SaveSummary(recipeID uint, s recipe.RatingSummary) error {
	return t.tx.Model(&Recipe{}).
		Where("id = ?", recipeID).
		Updates(map[string]interface{}{
			"rating":       s.Rating,
			"rating_count": s.RatingCount,
		}).Error
}
