package recipe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"plateful/internal/core/nutrition"
	"plateful/internal/pkg/common"

	"go.uber.org/zap"
)

// UnresolvedPolicy 所有食材皆無法解析時的處理方式
type UnresolvedPolicy string

const (
	// PolicyReject 拒絕建立食譜
	PolicyReject UnresolvedPolicy = "reject"
	// PolicyStoreUnknown 照常儲存，營養資訊標記為未知
	PolicyStoreUnknown UnresolvedPolicy = "store_unknown"
)

// ParsePolicy 解析設定字串，無法辨識時回傳錯誤
func ParsePolicy(s string) (UnresolvedPolicy, error) {
	switch p := UnresolvedPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyReject, PolicyStoreUnknown:
		return p, nil
	case "":
		return PolicyReject, nil
	default:
		return "", fmt.Errorf("unknown unresolved policy %q", s)
	}
}

// Repository 食譜持久化
type Repository interface {
	Create(ctx context.Context, r *Recipe) error
	// Update 以整批替換的方式更新食材、營養資訊與計時器
	Update(ctx context.Context, r *Recipe) error
	Get(ctx context.Context, id uint) (*Recipe, error)
	List(ctx context.Context, filter ListFilter) ([]Recipe, error)
	// Delete 連同食材、營養資訊、評分與計時器一併刪除
	Delete(ctx context.Context, id uint) error
	AddTimer(ctx context.Context, recipeID uint, t *Timer) error
	ListTimers(ctx context.Context, recipeID uint) ([]Timer, error)
}

// Service 食譜服務：營養計算、份量換算與評分
type Service struct {
	repo       Repository
	aggregator *nutrition.Aggregator
	ratings    *RatingAggregator
	policy     UnresolvedPolicy
}

// NewService 創建新的食譜服務
func NewService(repo Repository, aggregator *nutrition.Aggregator, ratings *RatingAggregator, policy UnresolvedPolicy) *Service {
	if policy == "" {
		policy = PolicyReject
	}
	return &Service{
		repo:       repo,
		aggregator: aggregator,
		ratings:    ratings,
		policy:     policy,
	}
}

// Create 計算營養資訊並建立食譜
func (s *Service) Create(ctx context.Context, in RecipeInput) (*CreateResult, error) {
	if err := common.ValidateStruct(in); err != nil {
		return nil, err
	}

	info, skips, err := s.computeNutrition(ctx, in.Ingredients, in.Servings)
	if err != nil {
		return nil, err
	}

	r := &Recipe{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Category:    in.Category,
		Tags:        in.Tags,
		CookingTime: in.CookingTime,
		Servings:    in.Servings,
		CreatorID:   in.CreatorID,
		Ingredients: in.Ingredients,
		Nutrition:   info,
		Timers:      withDefaultLabels(in.Timers),
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create recipe: %w", err)
	}

	common.LogInfo("食譜已建立",
		zap.Uint("recipe_id", r.ID),
		zap.Int("ingredients", len(r.Ingredients)),
		zap.Int("skipped", len(skips)),
	)
	return &CreateResult{Recipe: r, Skipped: len(skips), Skips: skips}, nil
}

// Update 由建立者更新食譜，營養資訊整筆重新計算
func (s *Service) Update(ctx context.Context, id, userID uint, in RecipeInput) (*CreateResult, error) {
	if err := common.ValidateStruct(in); err != nil {
		return nil, err
	}

	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.CreatorID != userID {
		return nil, ErrForbidden
	}

	info, skips, err := s.computeNutrition(ctx, in.Ingredients, in.Servings)
	if err != nil {
		return nil, err
	}

	r.Name = strings.TrimSpace(in.Name)
	r.Description = in.Description
	r.Category = in.Category
	r.Tags = in.Tags
	r.CookingTime = in.CookingTime
	r.Servings = in.Servings
	r.Ingredients = in.Ingredients
	r.Nutrition = info
	r.Timers = withDefaultLabels(in.Timers)
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("update recipe: %w", err)
	}

	common.LogInfo("食譜已更新", zap.Uint("recipe_id", r.ID), zap.Int("skipped", len(skips)))
	return &CreateResult{Recipe: r, Skipped: len(skips), Skips: skips}, nil
}

// Get 取得單一食譜
func (s *Service) Get(ctx context.Context, id uint) (*Recipe, error) {
	return s.repo.Get(ctx, id)
}

// List 依分類、標籤篩選並排序
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Recipe, error) {
	switch filter.SortBy {
	case "":
		filter.SortBy = SortByRating
	case SortByRating, SortByCreatedAt:
	default:
		return nil, common.NewValidationError("sort_by", "must be one of [rating created_at]")
	}
	return s.repo.List(ctx, filter)
}

// Delete 只有建立者可以刪除食譜
func (s *Service) Delete(ctx context.Context, id, userID uint) error {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if r.CreatorID != userID {
		return ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	common.LogInfo("食譜已刪除", zap.Uint("recipe_id", id), zap.Uint("user_id", userID))
	return nil
}

// Scale 依目標份數換算食譜食材
func (s *Service) Scale(ctx context.Context, id uint, servings int) ([]ScaledIngredient, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return Scale(r.Ingredients, r.Servings, servings)
}

// ShoppingList 產生指定份數的購物清單
func (s *Service) ShoppingList(ctx context.Context, id uint, servings int) ([]ScaledIngredient, error) {
	return s.Scale(ctx, id, servings)
}

// Rate 提交評分
func (s *Service) Rate(ctx context.Context, recipeID, userID uint, score int) (*RatingSummary, error) {
	return s.ratings.Submit(ctx, recipeID, userID, score)
}

// AddTimer 為食譜新增步驟計時器
func (s *Service) AddTimer(ctx context.Context, recipeID uint, t Timer) (*Timer, error) {
	if err := common.ValidateStruct(t); err != nil {
		return nil, err
	}
	if _, err := s.repo.Get(ctx, recipeID); err != nil {
		return nil, err
	}
	t = withDefaultLabels([]Timer{t})[0]
	if err := s.repo.AddTimer(ctx, recipeID, &t); err != nil {
		return nil, fmt.Errorf("add timer: %w", err)
	}
	return &t, nil
}

// ListTimers 列出食譜的步驟計時器
func (s *Service) ListTimers(ctx context.Context, recipeID uint) ([]Timer, error) {
	if _, err := s.repo.Get(ctx, recipeID); err != nil {
		return nil, err
	}
	return s.repo.ListTimers(ctx, recipeID)
}

// computeNutrition 依設定策略處理全部食材無法解析的情況
func (s *Service) computeNutrition(ctx context.Context, entries []nutrition.IngredientEntry, servings int) (*NutritionInfo, []*nutrition.SkipError, error) {
	res, err := s.aggregator.Aggregate(ctx, entries, servings)
	if err != nil {
		var unresolved *nutrition.AllIngredientsUnresolvedError
		if errors.As(err, &unresolved) && s.policy == PolicyStoreUnknown {
			common.LogWarn("所有食材皆無法解析，營養資訊標記為未知", zap.Int("ingredients", len(entries)))
			return &NutritionInfo{Unknown: true}, unresolved.Skips, nil
		}
		return nil, nil, err
	}
	return &NutritionInfo{NutritionRecord: res.Record}, res.Skips, nil
}

func withDefaultLabels(timers []Timer) []Timer {
	out := make([]Timer, len(timers))
	for i, t := range timers {
		if strings.TrimSpace(t.Label) == "" {
			t.Label = fmt.Sprintf("Step %d", t.StepNumber)
		}
		out[i] = t
	}
	return out
}
