package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	gobreaker "github.com/sony/gobreaker/v2"

	"plateful/internal/core/nutrition"
	"plateful/internal/infrastructure/config"
	"plateful/internal/infrastructure/metrics"
)

func testBreakerConfig() config.BreakerConfig {
	return config.BreakerConfig{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		MinRequests:  4,
		FailureRatio: 0.5,
	}
}

func TestBreakerSource_OpensOnFailures(t *testing.T) {
	failing := nutrition.SourceFunc(func(ctx context.Context, name string) (nutrition.NutrientProfile, error) {
		return nutrition.NutrientProfile{}, errors.New("connection refused")
	})
	b := NewBreakerSource("test-open", failing, testBreakerConfig())

	for i := 0; i < 4; i++ {
		_, _ = b.Lookup(context.Background(), "rice")
	}
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("Expected breaker to be open, got %v", b.State())
	}

	_, err := b.Lookup(context.Background(), "rice")
	if !errors.Is(err, nutrition.ErrSourceUnavailable) {
		t.Errorf("Expected ErrSourceUnavailable, got %v", err)
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("test-open")); got != 2 {
		t.Errorf("Expected state gauge 2, got %v", got)
	}
}

func TestBreakerSource_NotFoundDoesNotTrip(t *testing.T) {
	missing := nutrition.SourceFunc(func(ctx context.Context, name string) (nutrition.NutrientProfile, error) {
		return nutrition.NutrientProfile{}, nutrition.ErrNotFound
	})
	b := NewBreakerSource("test-notfound", missing, testBreakerConfig())

	for i := 0; i < 10; i++ {
		_, err := b.Lookup(context.Background(), "unicorn")
		if !errors.Is(err, nutrition.ErrNotFound) {
			t.Fatalf("Expected ErrNotFound, got %v", err)
		}
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("Expected breaker to stay closed, got %v", b.State())
	}
}

func TestBreakerSource_PassesThroughProfile(t *testing.T) {
	b := NewBreakerSource("test-pass", nutrition.NewStaticSource(nutrition.DefaultProfiles()), testBreakerConfig())

	got, err := b.Lookup(context.Background(), "rice")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if got.Calories != 130 {
		t.Errorf("Expected 130 calories, got %v", got.Calories)
	}
}
