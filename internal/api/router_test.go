package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"plateful/internal/api/handlers/health"
	"plateful/internal/core/nutrition"
	recipeService "plateful/internal/core/recipe"
	"plateful/internal/infrastructure/config"
)

type emptyRepository struct{}

func (emptyRepository) Create(ctx context.Context, r *recipeService.Recipe) error { return nil }
func (emptyRepository) Update(ctx context.Context, r *recipeService.Recipe) error { return nil }
func (emptyRepository) Get(ctx context.Context, id uint) (*recipeService.Recipe, error) {
	return nil, recipeService.ErrRecipeNotFound
}
func (emptyRepository) List(ctx context.Context, filter recipeService.ListFilter) ([]recipeService.Recipe, error) {
	return []recipeService.Recipe{}, nil
}
func (emptyRepository) Delete(ctx context.Context, id uint) error { return nil }
func (emptyRepository) AddTimer(ctx context.Context, recipeID uint, t *recipeService.Timer) error {
	return nil
}
func (emptyRepository) ListTimers(ctx context.Context, recipeID uint) ([]recipeService.Timer, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:         config.AppConfig{Version: "test"},
		Server:      config.ServerConfig{MaxBodyBytes: 1 << 20},
		DedupWindow: time.Second,
	}
}

func testDependencies(checkers map[string]health.Checker) Dependencies {
	resolver := nutrition.NewResolver(nutrition.NewNormalizer(nil, "en"),
		nutrition.NewStaticSource(nutrition.DefaultProfiles()), time.Second)
	svc := recipeService.NewService(emptyRepository{}, nutrition.NewAggregator(resolver, 2), nil, recipeService.PolicyReject)
	return Dependencies{Recipes: svc, Checkers: checkers}
}

func TestSetupRouter_Routes(t *testing.T) {
	router, err := SetupRouter(testConfig(), testDependencies(nil))
	if err != nil {
		t.Fatalf("SetupRouter: %v", err)
	}

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/ready", http.StatusOK},
		{http.MethodGet, "/live", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/v1/recipes", http.StatusOK},
		{http.MethodGet, "/api/v1/recipes/1", http.StatusNotFound},
		{http.MethodGet, "/api/v1/shopping-list/1", http.StatusNotFound},
		{http.MethodGet, "/api/v1/users/1/recipes", http.StatusOK},
		{http.MethodGet, "/api/v1/timers/abc", http.StatusServiceUnavailable},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestSetupRouter_RequestID(t *testing.T) {
	router, err := SetupRouter(testConfig(), testDependencies(nil))
	if err != nil {
		t.Fatalf("SetupRouter: %v", err)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/live", nil))
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header")
	}
}

func TestSetupRouter_ReadinessFailure(t *testing.T) {
	router, err := SetupRouter(testConfig(), testDependencies(map[string]health.Checker{
		"database": func(ctx context.Context) error { return errors.New("closed") },
	}))
	if err != nil {
		t.Fatalf("SetupRouter: %v", err)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestSetupRouter_BodyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxBodyBytes = 16
	router, err := SetupRouter(cfg, testDependencies(nil))
	if err != nil {
		t.Fatalf("SetupRouter: %v", err)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recipes", strings.NewReader(strings.Repeat("x", 64)))
	router.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status 413, got %d", w.Code)
	}
}

func TestSetupRouter_RequiresService(t *testing.T) {
	if _, err := SetupRouter(testConfig(), Dependencies{}); err == nil {
		t.Error("Expected error without recipe service")
	}
}
