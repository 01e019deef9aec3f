package nutrition

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"plateful/internal/infrastructure/metrics"
	"plateful/internal/pkg/common"

	"go.uber.org/zap"
)

// DefaultConcurrency 同一食譜同時解析的食材上限
const DefaultConcurrency = 8

// Aggregator 將各食材的營養貢獻加總並換算為每份數值
type Aggregator struct {
	resolver    *Resolver
	concurrency int
}

// NewAggregator 創建營養聚合器
func NewAggregator(resolver *Resolver, concurrency int) *Aggregator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Aggregator{
		resolver:    resolver,
		concurrency: concurrency,
	}
}

type resolution struct {
	contribution Contribution
	skip         *SkipError
}

// Aggregate 計算每份營養紀錄。
//
// 前置條件（servings >= 1、每項食材合法）在任何 I/O 之前檢查。
// 個別食材解析失敗只會被略過並計入 Skipped；
// 非空清單中全部失敗時回傳 *AllIngredientsUnresolvedError，而不是全零紀錄。
func (a *Aggregator) Aggregate(ctx context.Context, entries []IngredientEntry, servings int) (*Result, error) {
	if servings < 1 {
		return nil, InvalidServings("servings", servings)
	}
	if err := ValidateEntries(entries); err != nil {
		return nil, err
	}

	results := make([]resolution, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			c, err := a.resolver.Resolve(gctx, entry)
			if err != nil {
				var skip *SkipError
				if !errors.As(err, &skip) {
					return err
				}
				results[i].skip = skip
				return nil
			}
			results[i].contribution = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 依輸入順序加總，確保浮點結果可重現
	var total Contribution
	var quantity float64
	result := &Result{}
	for i, r := range results {
		quantity += entries[i].Quantity
		if r.skip != nil {
			result.Skipped++
			result.Skips = append(result.Skips, r.skip)
			common.LogWarn("略過無法解析的食材",
				zap.String("ingredient", r.skip.Name),
				zap.String("reason", string(r.skip.Reason)),
				zap.Error(r.skip.Err),
			)
			continue
		}
		result.Resolved++
		total = total.add(r.contribution)
	}

	if len(entries) > 0 && result.Resolved == 0 {
		metrics.NutritionAggregations.WithLabelValues("unresolved").Inc()
		return nil, &AllIngredientsUnresolvedError{Skips: result.Skips}
	}

	s := float64(servings)
	result.Record = NutritionRecord{
		Calories:    common.Round2(total.Calories / s),
		Protein:     common.Round2(total.Protein / s),
		Carbs:       common.Round2(total.Carbs / s),
		Fats:        common.Round2(total.Fats / s),
		PortionSize: common.Round2(quantity / s),
	}

	if result.Skipped > 0 {
		metrics.NutritionAggregations.WithLabelValues("partial").Inc()
	} else {
		metrics.NutritionAggregations.WithLabelValues("ok").Inc()
	}
	common.LogInfo("營養計算完成",
		zap.Int("ingredients", len(entries)),
		zap.Int("resolved", result.Resolved),
		zap.Int("skipped", result.Skipped),
		zap.Int("servings", servings),
		zap.Float64("calories", result.Record.Calories),
	)
	return result, nil
}
