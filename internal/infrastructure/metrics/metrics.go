package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 營養計算、評分與外部依賴的 Prometheus 指標
var (
	// IngredientResolutions 食材解析結果，outcome 為 resolved 或略過原因
	IngredientResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plateful_ingredient_resolutions_total",
			Help: "Ingredient resolutions by outcome (resolved, not_found, normalization_failed, timeout, source_unavailable)",
		},
		[]string{"outcome"},
	)

	// LookupDuration 單一食材解析（正規化 + 查詢）耗時
	LookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "plateful_ingredient_lookup_duration_seconds",
			Help:    "Duration of a single ingredient normalization and nutrient lookup",
			Buckets: prometheus.DefBuckets,
		},
	)

	// NutritionAggregations 營養聚合次數，result 為 ok、partial、unresolved
	NutritionAggregations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plateful_nutrition_aggregations_total",
			Help: "Nutrition aggregations by result (ok, partial, unresolved)",
		},
		[]string{"result"},
	)

	// ExternalRequests 外部 API 請求，status 為 success 或 failure
	ExternalRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plateful_external_requests_total",
			Help: "Outbound requests to external APIs",
		},
		[]string{"api", "status"},
	)

	// CircuitBreakerState 熔斷器狀態 (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "plateful_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// CircuitBreakerTransitions 熔斷器狀態轉換次數
	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plateful_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// RatingSubmissions 評分提交，result 為 accepted 或 rejected
	RatingSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plateful_rating_submissions_total",
			Help: "Rating submissions by result (accepted, rejected)",
		},
		[]string{"result"},
	)

	// HTTPRequestDuration API 請求耗時
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plateful_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
