package recipe

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"plateful/internal/core/nutrition"
	"plateful/internal/pkg/common"
)

// memoryRepository 測試用的記憶體食譜儲存
type memoryRepository struct {
	mu      sync.Mutex
	nextID  uint
	recipes map[uint]*Recipe
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{recipes: make(map[uint]*Recipe)}
}

func (m *memoryRepository) Create(ctx context.Context, r *Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	r.ID = m.nextID
	r.CreatedAt = time.Now()
	for i := range r.Timers {
		r.Timers[i].ID = uint(i + 1)
	}
	cp := *r
	m.recipes[r.ID] = &cp
	return nil
}

func (m *memoryRepository) Update(ctx context.Context, r *Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recipes[r.ID]; !ok {
		return ErrRecipeNotFound
	}
	cp := *r
	m.recipes[r.ID] = &cp
	return nil
}

func (m *memoryRepository) Get(ctx context.Context, id uint) (*Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recipes[id]
	if !ok {
		return nil, ErrRecipeNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memoryRepository) List(ctx context.Context, filter ListFilter) ([]Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Recipe
	for _, r := range m.recipes {
		if filter.Category != "" && r.Category != filter.Category {
			continue
		}
		if filter.CreatorID != 0 && r.CreatorID != filter.CreatorID {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	return out, nil
}

func (m *memoryRepository) Delete(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recipes, id)
	return nil
}

func (m *memoryRepository) AddTimer(ctx context.Context, recipeID uint, t *Timer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.recipes[recipeID]
	t.ID = uint(len(r.Timers) + 1)
	r.Timers = append(r.Timers, *t)
	return nil
}

func (m *memoryRepository) ListTimers(ctx context.Context, recipeID uint) ([]Timer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Timer(nil), m.recipes[recipeID].Timers...), nil
}

func newTestService(policy UnresolvedPolicy) (*Service, *memoryRepository) {
	source := nutrition.NewStaticSource(map[string]nutrition.NutrientProfile{
		"rice": {Calories: 130, Protein: 2.7, Carbs: 28, Fats: 0.3},
		"oil":  {Calories: 884, Protein: 0, Carbs: 0, Fats: 100},
	})
	resolver := nutrition.NewResolver(nutrition.NewNormalizer(nil, "en"), source, time.Second)
	repo := newMemoryRepository()
	svc := NewService(repo, nutrition.NewAggregator(resolver, 0), NewRatingAggregator(newMemoryRatingStore()), policy)
	return svc, repo
}

func riceAndOil() RecipeInput {
	return RecipeInput{
		Name:      "Fried rice",
		Category:  "dinner",
		Servings:  2,
		CreatorID: 7,
		Ingredients: []nutrition.IngredientEntry{
			{Name: "rice", Quantity: 200, Unit: "g"},
			{Name: "oil", Quantity: 50, Unit: "g"},
		},
		Timers: []Timer{{StepNumber: 1, Duration: 600}},
	}
}

func TestService_Create(t *testing.T) {
	svc, _ := newTestService(PolicyReject)

	res, err := svc.Create(context.Background(), riceAndOil())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if res.Recipe.ID == 0 {
		t.Error("Expected recipe ID to be assigned")
	}
	if res.Recipe.Nutrition == nil || res.Recipe.Nutrition.Calories != 351 {
		t.Errorf("Expected 351 calories per serving, got %+v", res.Recipe.Nutrition)
	}
	if res.Skipped != 0 {
		t.Errorf("Expected no skipped ingredients, got %d", res.Skipped)
	}
	if res.Recipe.Timers[0].Label != "Step 1" {
		t.Errorf("Expected default timer label, got %q", res.Recipe.Timers[0].Label)
	}
}

func TestService_CreateValidation(t *testing.T) {
	svc, _ := newTestService(PolicyReject)

	tests := []struct {
		name      string
		mutate    func(in *RecipeInput)
		wantField string
	}{
		{"missing name", func(in *RecipeInput) { in.Name = "" }, "name"},
		{"missing creator", func(in *RecipeInput) { in.CreatorID = 0 }, "creator_id"},
		{"zero servings", func(in *RecipeInput) { in.Servings = 0 }, "servings"},
		{"zero quantity", func(in *RecipeInput) { in.Ingredients[1].Quantity = 0 }, "ingredients[1].quantity"},
		{"bad timer", func(in *RecipeInput) { in.Timers[0].Duration = 0 }, "timers[0].duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := riceAndOil()
			tt.mutate(&in)
			_, err := svc.Create(context.Background(), in)
			var ve *common.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Expected validation error, got %v", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Expected field %q, got %q", tt.wantField, ve.Field)
			}
		})
	}
}

func TestService_UnresolvedPolicy(t *testing.T) {
	in := riceAndOil()
	in.Ingredients = []nutrition.IngredientEntry{{Name: "mystery spice", Quantity: 5, Unit: "g"}}

	t.Run("reject", func(t *testing.T) {
		svc, repo := newTestService(PolicyReject)
		_, err := svc.Create(context.Background(), in)
		if !errors.Is(err, nutrition.ErrAllIngredientsUnresolved) {
			t.Fatalf("Expected ErrAllIngredientsUnresolved, got %v", err)
		}
		if len(repo.recipes) != 0 {
			t.Error("Expected no recipe to be stored")
		}
	})

	t.Run("store unknown", func(t *testing.T) {
		svc, _ := newTestService(PolicyStoreUnknown)
		res, err := svc.Create(context.Background(), in)
		if err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
		if res.Recipe.Nutrition == nil || !res.Recipe.Nutrition.Unknown {
			t.Errorf("Expected unknown nutrition, got %+v", res.Recipe.Nutrition)
		}
		if res.Skipped != 1 {
			t.Errorf("Expected 1 skipped ingredient, got %d", res.Skipped)
		}
	})
}

func TestService_UpdateAndDeleteOwnership(t *testing.T) {
	svc, repo := newTestService(PolicyReject)
	ctx := context.Background()
	created, err := svc.Create(ctx, riceAndOil())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	id := created.Recipe.ID

	in := riceAndOil()
	in.Servings = 1
	if _, err := svc.Update(ctx, id, 8, in); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden for non-owner update, got %v", err)
	}

	updated, err := svc.Update(ctx, id, 7, in)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Recipe.Nutrition.Calories != 702 {
		t.Errorf("Expected recomputed 702 calories, got %v", updated.Recipe.Nutrition.Calories)
	}

	if err := svc.Delete(ctx, id, 8); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden for non-owner delete, got %v", err)
	}
	if err := svc.Delete(ctx, id, 7); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, ok := repo.recipes[id]; ok {
		t.Error("Expected recipe to be deleted")
	}
	if err := svc.Delete(ctx, id, 7); !errors.Is(err, ErrRecipeNotFound) {
		t.Errorf("Expected ErrRecipeNotFound, got %v", err)
	}
}

func TestService_ScaleAndShoppingList(t *testing.T) {
	svc, _ := newTestService(PolicyReject)
	ctx := context.Background()
	created, err := svc.Create(ctx, riceAndOil())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	scaled, err := svc.Scale(ctx, created.Recipe.ID, 3)
	if err != nil {
		t.Fatalf("Scale returned error: %v", err)
	}
	if scaled[0].Quantity != 300 || scaled[1].Quantity != 75 {
		t.Errorf("Expected 300/75, got %+v", scaled)
	}

	list, err := svc.ShoppingList(ctx, created.Recipe.ID, 1)
	if err != nil {
		t.Fatalf("ShoppingList returned error: %v", err)
	}
	if list[0].Quantity != 100 || list[1].Quantity != 25 {
		t.Errorf("Expected 100/25, got %+v", list)
	}

	if _, err := svc.Scale(ctx, created.Recipe.ID, 0); !errors.Is(err, nutrition.ErrInvalidServings) {
		t.Errorf("Expected ErrInvalidServings, got %v", err)
	}
	if _, err := svc.Scale(ctx, 404, 2); !errors.Is(err, ErrRecipeNotFound) {
		t.Errorf("Expected ErrRecipeNotFound, got %v", err)
	}
}

func TestService_ListSortValidation(t *testing.T) {
	svc, _ := newTestService(PolicyReject)
	if _, err := svc.List(context.Background(), ListFilter{SortBy: "name"}); !common.IsValidationError(err) {
		t.Errorf("Expected validation error, got %v", err)
	}
	if _, err := svc.List(context.Background(), ListFilter{}); err != nil {
		t.Errorf("Expected default sort to succeed, got %v", err)
	}
}

func TestService_Timers(t *testing.T) {
	svc, _ := newTestService(PolicyReject)
	ctx := context.Background()
	created, err := svc.Create(ctx, riceAndOil())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	added, err := svc.AddTimer(ctx, created.Recipe.ID, Timer{StepNumber: 2, Duration: 90, Label: "rest"})
	if err != nil {
		t.Fatalf("AddTimer returned error: %v", err)
	}
	if added.ID == 0 {
		t.Error("Expected timer ID to be assigned")
	}

	timers, err := svc.ListTimers(ctx, created.Recipe.ID)
	if err != nil {
		t.Fatalf("ListTimers returned error: %v", err)
	}
	if len(timers) != 2 {
		t.Errorf("Expected 2 timers, got %d", len(timers))
	}

	if _, err := svc.AddTimer(ctx, 404, Timer{StepNumber: 1, Duration: 10}); !errors.Is(err, ErrRecipeNotFound) {
		t.Errorf("Expected ErrRecipeNotFound, got %v", err)
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    UnresolvedPolicy
		wantErr bool
	}{
		{"", PolicyReject, false},
		{"reject", PolicyReject, false},
		{"STORE_UNKNOWN", PolicyStoreUnknown, false},
		{"ignore", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParsePolicy(%q) = %q, %v", tt.in, got, err)
		}
	}
}
