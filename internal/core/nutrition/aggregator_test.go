package nutrition

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"plateful/internal/infrastructure/metrics"
	"plateful/internal/pkg/common"
)

func newTestAggregator(source NutrientSource, timeout time.Duration, concurrency int) *Aggregator {
	return NewAggregator(newTestResolver(source, timeout), concurrency)
}

func TestAggregate_RiceAndOil(t *testing.T) {
	source := NewStaticSource(map[string]NutrientProfile{
		"rice": {Calories: 130, Protein: 2.7, Carbs: 28, Fats: 0.3},
		"oil":  {Calories: 884, Protein: 0, Carbs: 0, Fats: 100},
	})
	a := newTestAggregator(source, time.Second, 0)

	res, err := a.Aggregate(context.Background(), []IngredientEntry{
		{Name: "rice", Quantity: 200, Unit: "g"},
		{Name: "oil", Quantity: 50, Unit: "g"},
	}, 2)
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}

	want := NutritionRecord{Calories: 351.0, Protein: 2.7, Carbs: 28, Fats: 25.3, PortionSize: 125}
	if res.Record != want {
		t.Errorf("Expected %+v, got %+v", want, res.Record)
	}
	if res.Resolved != 2 || res.Skipped != 0 {
		t.Errorf("Expected 2 resolved / 0 skipped, got %d / %d", res.Resolved, res.Skipped)
	}
}

func TestAggregate_MatchesPerEntrySum(t *testing.T) {
	profiles := DefaultProfiles()
	source := NewStaticSource(profiles)
	a := newTestAggregator(source, time.Second, 2)

	tests := []struct {
		name     string
		entries  []IngredientEntry
		servings int
	}{
		{"single", []IngredientEntry{{Name: "flour", Quantity: 333}}, 3},
		{"three", []IngredientEntry{{Name: "butter", Quantity: 17}, {Name: "sugar", Quantity: 91}, {Name: "milk", Quantity: 245}}, 7},
		{"many", []IngredientEntry{
			{Name: "pasta", Quantity: 500}, {Name: "tomato", Quantity: 400}, {Name: "onion", Quantity: 110},
			{Name: "olive oil", Quantity: 30}, {Name: "cheese", Quantity: 80}, {Name: "chicken", Quantity: 350},
		}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var total Contribution
			for _, e := range tt.entries {
				total = total.add(profiles[e.Name].Scale(e.Quantity))
			}
			s := float64(tt.servings)

			res, err := a.Aggregate(context.Background(), tt.entries, tt.servings)
			if err != nil {
				t.Fatalf("Aggregate returned error: %v", err)
			}
			if res.Record.Calories != common.Round2(total.Calories/s) {
				t.Errorf("calories: expected %v, got %v", common.Round2(total.Calories/s), res.Record.Calories)
			}
			if res.Record.Protein != common.Round2(total.Protein/s) {
				t.Errorf("protein: expected %v, got %v", common.Round2(total.Protein/s), res.Record.Protein)
			}
			if res.Record.Carbs != common.Round2(total.Carbs/s) {
				t.Errorf("carbs: expected %v, got %v", common.Round2(total.Carbs/s), res.Record.Carbs)
			}
			if res.Record.Fats != common.Round2(total.Fats/s) {
				t.Errorf("fats: expected %v, got %v", common.Round2(total.Fats/s), res.Record.Fats)
			}
		})
	}
}

func TestAggregate_SkipsUnresolvedIngredient(t *testing.T) {
	before := testutil.ToFloat64(metrics.NutritionAggregations.WithLabelValues("partial"))
	a := newTestAggregator(NewStaticSource(DefaultProfiles()), time.Second, 0)

	res, err := a.Aggregate(context.Background(), []IngredientEntry{
		{Name: "rice", Quantity: 100},
		{Name: "dragon fruit powder", Quantity: 20},
		{Name: "oil", Quantity: 10},
	}, 1)
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if res.Skipped != 1 || res.Resolved != 2 {
		t.Errorf("Expected 2 resolved / 1 skipped, got %d / %d", res.Resolved, res.Skipped)
	}
	if len(res.Skips) != 1 || res.Skips[0].Reason != SkipNotFound {
		t.Errorf("Expected one not_found skip, got %+v", res.Skips)
	}
	if res.Record.Calories != common.Round2(130+88.4) {
		t.Errorf("Expected calories from resolved ingredients only, got %v", res.Record.Calories)
	}
	// 份量仍包含被略過的食材
	if res.Record.PortionSize != 130 {
		t.Errorf("Expected portion size 130, got %v", res.Record.PortionSize)
	}

	after := testutil.ToFloat64(metrics.NutritionAggregations.WithLabelValues("partial"))
	if after-before != 1 {
		t.Errorf("Expected partial aggregation counter to increase by 1, got %v", after-before)
	}
}

func TestAggregate_AllUnresolved(t *testing.T) {
	a := newTestAggregator(NewStaticSource(nil), time.Second, 0)

	res, err := a.Aggregate(context.Background(), []IngredientEntry{
		{Name: "rice", Quantity: 100},
		{Name: "oil", Quantity: 10},
	}, 2)
	if res != nil {
		t.Errorf("Expected nil result, got %+v", res)
	}
	if !errors.Is(err, ErrAllIngredientsUnresolved) {
		t.Fatalf("Expected ErrAllIngredientsUnresolved, got %v", err)
	}
	var all *AllIngredientsUnresolvedError
	if !errors.As(err, &all) || len(all.Skips) != 2 {
		t.Errorf("Expected 2 skips in error, got %v", err)
	}
}

func TestAggregate_EmptyList(t *testing.T) {
	a := newTestAggregator(NewStaticSource(nil), time.Second, 0)

	res, err := a.Aggregate(context.Background(), nil, 4)
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if res.Record != (NutritionRecord{}) {
		t.Errorf("Expected zero record, got %+v", res.Record)
	}
}

func TestAggregate_PreconditionsBeforeLookup(t *testing.T) {
	var calls atomic.Int32
	source := SourceFunc(func(ctx context.Context, name string) (NutrientProfile, error) {
		calls.Add(1)
		return NutrientProfile{Calories: 100}, nil
	})
	a := newTestAggregator(source, time.Second, 0)
	valid := []IngredientEntry{{Name: "rice", Quantity: 100}}

	tests := []struct {
		name      string
		entries   []IngredientEntry
		servings  int
		wantField string
	}{
		{"zero servings", valid, 0, "servings"},
		{"negative servings", valid, -1, "servings"},
		{"zero quantity", []IngredientEntry{{Name: "rice", Quantity: 100}, {Name: "oil", Quantity: 0}}, 2, "ingredients[1].quantity"},
		{"negative quantity", []IngredientEntry{{Name: "rice", Quantity: -3}}, 2, "ingredients[0].quantity"},
		{"blank name", []IngredientEntry{{Name: " ", Quantity: 3}}, 2, "ingredients[0].name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Aggregate(context.Background(), tt.entries, tt.servings)
			var ve *common.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Expected *common.ValidationError, got %v", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Expected field %q, got %q", tt.wantField, ve.Field)
			}
			if tt.wantField == "servings" && !errors.Is(err, ErrInvalidServings) {
				t.Errorf("Expected ErrInvalidServings, got %v", err)
			}
		})
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("Expected no source lookups, got %d", n)
	}
}

func TestAggregate_SlowIngredientDoesNotStallOthers(t *testing.T) {
	static := NewStaticSource(DefaultProfiles())
	source := SourceFunc(func(ctx context.Context, name string) (NutrientProfile, error) {
		if name == "egg" {
			<-ctx.Done()
			return NutrientProfile{}, ctx.Err()
		}
		return static.Lookup(ctx, name)
	})
	a := newTestAggregator(source, 50*time.Millisecond, 0)

	start := time.Now()
	res, err := a.Aggregate(context.Background(), []IngredientEntry{
		{Name: "rice", Quantity: 100},
		{Name: "egg", Quantity: 50},
		{Name: "milk", Quantity: 200},
	}, 1)
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Expected aggregation bounded by the per-ingredient timeout, took %v", elapsed)
	}
	if res.Skipped != 1 || res.Skips[0].Reason != SkipTimeout {
		t.Errorf("Expected one timeout skip, got %+v", res.Skips)
	}
	if res.Resolved != 2 {
		t.Errorf("Expected 2 resolved, got %d", res.Resolved)
	}
}

func TestAggregate_RespectsConcurrencyLimit(t *testing.T) {
	var (
		mu       sync.Mutex
		inFlight int
		peak     int
	)
	source := SourceFunc(func(ctx context.Context, name string) (NutrientProfile, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return NutrientProfile{Calories: 100}, nil
	})
	a := newTestAggregator(source, time.Second, 2)

	entries := make([]IngredientEntry, 10)
	for i := range entries {
		entries[i] = IngredientEntry{Name: "rice", Quantity: 10}
	}
	res, err := a.Aggregate(context.Background(), entries, 1)
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if res.Record.Calories != 100 {
		t.Errorf("Expected 100 calories, got %v", res.Record.Calories)
	}
	if peak > 2 {
		t.Errorf("Expected at most 2 concurrent lookups, got %d", peak)
	}
}

func TestAggregate_DeterministicAcrossRuns(t *testing.T) {
	a := newTestAggregator(NewStaticSource(DefaultProfiles()), time.Second, 4)
	entries := []IngredientEntry{
		{Name: "flour", Quantity: 123.45}, {Name: "butter", Quantity: 67.8},
		{Name: "sugar", Quantity: 91.1}, {Name: "egg", Quantity: 55.5},
	}

	first, err := a.Aggregate(context.Background(), entries, 3)
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := a.Aggregate(context.Background(), entries, 3)
		if err != nil {
			t.Fatalf("Aggregate returned error: %v", err)
		}
		if again.Record != first.Record {
			t.Fatalf("Expected identical records, got %+v and %+v", first.Record, again.Record)
		}
	}
}
