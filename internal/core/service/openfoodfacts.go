package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"plateful/internal/core/nutrition"
	"plateful/internal/infrastructure/config"
	"plateful/internal/infrastructure/metrics"
	"plateful/internal/pkg/common"
)

const openFoodFactsAPI = "openfoodfacts"

// OpenFoodFactsSource 以 Open Food Facts 搜尋 API 查詢每 100 g 營養值
type OpenFoodFactsSource struct {
	client   *resty.Client
	limiter  *rate.Limiter
	pageSize int
}

// NewOpenFoodFactsSource 創建 Open Food Facts 營養來源。
// 網路錯誤、5xx 與 429 由 resty 依 retry_count 重試。
func NewOpenFoodFactsSource(cfg config.NutritionConfig) *OpenFoodFactsSource {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 5
	}
	retryWait := cfg.RetryWait
	if retryWait <= 0 {
		retryWait = 200 * time.Millisecond
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json").
		SetJSONUnmarshaler(common.Unmarshal).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(4 * retryWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
			}
			return r.StatusCode() >= http.StatusInternalServerError || r.StatusCode() == http.StatusTooManyRequests
		})

	return &OpenFoodFactsSource{
		client:   client,
		limiter:  rate.NewLimiter(limit, 1),
		pageSize: pageSize,
	}
}

type offSearchResponse struct {
	Count    int          `json:"count"`
	Products []offProduct `json:"products"`
}

type offProduct struct {
	ProductName string `json:"product_name"`
	Nutriments  struct {
		EnergyKcal100g    json.Number `json:"energy-kcal_100g"`
		Proteins100g      json.Number `json:"proteins_100g"`
		Carbohydrates100g json.Number `json:"carbohydrates_100g"`
		Fat100g           json.Number `json:"fat_100g"`
	} `json:"nutriments"`
}

// Lookup 回傳第一個熱量大於 0 的產品；沒有符合的產品時回傳 nutrition.ErrNotFound
func (s *OpenFoodFactsSource) Lookup(ctx context.Context, canonicalName string) (nutrition.NutrientProfile, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nutrition.NutrientProfile{}, fmt.Errorf("open food facts throttle: %w", err)
	}

	start := time.Now()
	var result offSearchResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"search_terms":  canonicalName,
			"search_simple": "1",
			"action":        "process",
			"json":          "1",
			"page_size":     strconv.Itoa(s.pageSize),
			"fields":        "product_name,nutriments",
		}).
		SetResult(&result).
		Get("/cgi/search.pl")

	if err != nil {
		metrics.ExternalRequests.WithLabelValues(openFoodFactsAPI, "failure").Inc()
		common.LogLookup(openFoodFactsAPI, canonicalName, time.Since(start), err)
		return nutrition.NutrientProfile{}, fmt.Errorf("open food facts request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		metrics.ExternalRequests.WithLabelValues(openFoodFactsAPI, "failure").Inc()
		err := fmt.Errorf("open food facts returned %d", resp.StatusCode())
		common.LogLookup(openFoodFactsAPI, canonicalName, time.Since(start), err)
		return nutrition.NutrientProfile{}, err
	}
	metrics.ExternalRequests.WithLabelValues(openFoodFactsAPI, "success").Inc()

	for _, p := range result.Products {
		kcal, _ := p.Nutriments.EnergyKcal100g.Float64()
		if kcal <= 0 {
			continue
		}
		protein, _ := p.Nutriments.Proteins100g.Float64()
		carbs, _ := p.Nutriments.Carbohydrates100g.Float64()
		fat, _ := p.Nutriments.Fat100g.Float64()

		common.LogLookup(openFoodFactsAPI, canonicalName, time.Since(start), nil)
		common.LogDebug("Open Food Facts 命中", zap.String("ingredient", canonicalName), zap.String("product", p.ProductName))
		return nutrition.NutrientProfile{
			Calories: kcal,
			Protein:  protein,
			Carbs:    carbs,
			Fats:     fat,
		}, nil
	}

	return nutrition.NutrientProfile{}, fmt.Errorf("%w: %q on open food facts", nutrition.ErrNotFound, canonicalName)
}
