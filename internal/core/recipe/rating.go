package recipe

import (
	"context"
	"fmt"

	"plateful/internal/infrastructure/metrics"
	"plateful/internal/pkg/common"

	"go.uber.org/zap"
)

// RatingStore 提供單一交易範圍的評分存取
type RatingStore interface {
	WithinTx(ctx context.Context, fn func(tx RatingTx) error) error
}

// RatingTx 交易內的評分操作。RecipeExists 在支援的資料庫上會鎖定食譜列。
type RatingTx interface {
	RecipeExists(recipeID uint) (bool, error)
	UpsertRating(r Rating) error
	ListScores(recipeID uint) ([]int, error)
	SaveSummary(recipeID uint, summary RatingSummary) error
}

// RatingAggregator 寫入評分並由所有評分重新計算平均
type RatingAggregator struct {
	store RatingStore
}

// NewRatingAggregator 創建評分聚合器
func NewRatingAggregator(store RatingStore) *RatingAggregator {
	return &RatingAggregator{store: store}
}

// Submit 新增或覆寫使用者對食譜的評分，回傳重新計算後的平均與數量。
// 寫入、重新讀取與摘要更新在同一個交易中完成。
func (a *RatingAggregator) Submit(ctx context.Context, recipeID, userID uint, score int) (*RatingSummary, error) {
	if score < MinScore || score > MaxScore {
		metrics.RatingSubmissions.WithLabelValues("rejected").Inc()
		return nil, &common.ValidationError{
			Field:   "score",
			Message: fmt.Sprintf("must be between %d and %d, got %d", MinScore, MaxScore, score),
			Err:     ErrScoreOutOfRange,
		}
	}
	if userID == 0 {
		metrics.RatingSubmissions.WithLabelValues("rejected").Inc()
		return nil, common.NewValidationError("user_id", "is required")
	}

	var summary RatingSummary
	err := a.store.WithinTx(ctx, func(tx RatingTx) error {
		exists, err := tx.RecipeExists(recipeID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrRecipeNotFound
		}

		if err := tx.UpsertRating(Rating{RecipeID: recipeID, UserID: userID, Score: score}); err != nil {
			return fmt.Errorf("upsert rating: %w", err)
		}

		scores, err := tx.ListScores(recipeID)
		if err != nil {
			return fmt.Errorf("list ratings: %w", err)
		}
		summary = Summarize(scores)
		return tx.SaveSummary(recipeID, summary)
	})
	if err != nil {
		metrics.RatingSubmissions.WithLabelValues("rejected").Inc()
		return nil, err
	}

	metrics.RatingSubmissions.WithLabelValues("accepted").Inc()
	common.LogInfo("評分已更新",
		zap.Uint("recipe_id", recipeID),
		zap.Uint("user_id", userID),
		zap.Int("score", score),
		zap.Float64("rating", summary.Rating),
		zap.Int("rating_count", summary.RatingCount),
	)
	return &summary, nil
}

// Summarize 計算平均分數與評分數量；沒有評分時回傳零值
func Summarize(scores []int) RatingSummary {
	if len(scores) == 0 {
		return RatingSummary{}
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return RatingSummary{
		Rating:      float64(sum) / float64(len(scores)),
		RatingCount: len(scores),
	}
}
