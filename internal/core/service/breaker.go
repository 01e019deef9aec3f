package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"plateful/internal/core/nutrition"
	"plateful/internal/infrastructure/config"
	"plateful/internal/infrastructure/metrics"
	"plateful/internal/pkg/common"
)

const defaultBreakerTimeout = 30 * time.Second

// BreakerSource 以熔斷器包裝營養來源，外部服務持續失敗時快速略過查詢
type BreakerSource struct {
	source nutrition.NutrientSource
	cb     *gobreaker.CircuitBreaker[nutrition.NutrientProfile]
	name   string
}

// NewBreakerSource 創建帶熔斷器的營養來源。
// 查無資料 (ErrNotFound) 與呼叫端取消不計入失敗。
func NewBreakerSource(name string, source nutrition.NutrientSource, cfg config.BreakerConfig) *BreakerSource {
	minRequests := cfg.MinRequests
	if minRequests == 0 {
		minRequests = 10
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultBreakerTimeout
	}
	ratio := cfg.FailureRatio
	if ratio <= 0 {
		ratio = 0.6
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[nutrition.NutrientProfile](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= ratio
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, nutrition.ErrNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			common.LogWarn("熔斷器狀態轉換",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &BreakerSource{source: source, cb: cb, name: name}
}

// Lookup 熔斷器開啟或半開狀態請求過多時回傳 nutrition.ErrSourceUnavailable
func (b *BreakerSource) Lookup(ctx context.Context, canonicalName string) (nutrition.NutrientProfile, error) {
	p, err := b.cb.Execute(func() (nutrition.NutrientProfile, error) {
		return b.source.Lookup(ctx, canonicalName)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nutrition.NutrientProfile{}, fmt.Errorf("%w: %s: %v", nutrition.ErrSourceUnavailable, b.name, err)
	}
	return p, err
}

// State 目前熔斷器狀態
func (b *BreakerSource) State() gobreaker.State {
	return b.cb.State()
}

// stateToFloat 將熔斷器狀態轉為指標數值
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
