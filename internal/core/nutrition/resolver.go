package nutrition

import (
	"context"
	"errors"
	"time"

	"plateful/internal/infrastructure/metrics"
	"plateful/internal/pkg/common"

	"go.uber.org/zap"
)

// DefaultLookupTimeout 單一食材解析的預設逾時
const DefaultLookupTimeout = 5 * time.Second

// Resolver 解析單一食材：正規化名稱、查詢營養來源、依數量換算
type Resolver struct {
	normalizer *Normalizer
	source     NutrientSource
	timeout    time.Duration
}

// NewResolver 創建食材解析器；timeout <= 0 時使用預設值
func NewResolver(normalizer *Normalizer, source NutrientSource, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	return &Resolver{
		normalizer: normalizer,
		source:     source,
		timeout:    timeout,
	}
}

// Resolve 回傳食材的營養貢獻。無法解析時回傳 *SkipError，呼叫端應略過該食材而非中止整體計算。
// 前置條件不符（名稱空白、數量 <= 0）則回傳 *common.ValidationError。
func (r *Resolver) Resolve(ctx context.Context, entry IngredientEntry) (Contribution, error) {
	if err := entry.Validate(); err != nil {
		return Contribution{}, err
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	name, err := r.normalizer.Normalize(ctx, entry.Name)
	if err != nil {
		reason := SkipNormalization
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = SkipTimeout
		}
		return Contribution{}, r.skip(entry, reason, err, start)
	}

	profile, err := r.source.Lookup(ctx, name)
	if err != nil {
		return Contribution{}, r.skip(entry, classifyLookup(ctx, err), err, start)
	}

	metrics.IngredientResolutions.WithLabelValues("resolved").Inc()
	metrics.LookupDuration.Observe(time.Since(start).Seconds())
	common.LogDebug("食材解析完成",
		zap.String("ingredient", entry.Name),
		zap.String("canonical", name),
		zap.Float64("quantity", entry.Quantity),
	)
	return profile.Scale(entry.Quantity), nil
}

func (r *Resolver) skip(entry IngredientEntry, reason SkipReason, err error, start time.Time) *SkipError {
	metrics.IngredientResolutions.WithLabelValues(string(reason)).Inc()
	metrics.LookupDuration.Observe(time.Since(start).Seconds())
	return &SkipError{Name: entry.Name, Reason: reason, Err: err}
}

func classifyLookup(ctx context.Context, err error) SkipReason {
	switch {
	case errors.Is(err, ErrNotFound):
		return SkipNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return SkipTimeout
	default:
		return SkipSourceUnavailable
	}
}
