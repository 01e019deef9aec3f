package nutrition

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// NutrientSource 外部營養資料庫，以正規化後的食材名稱查詢每 100 單位營養值。
// 查無資料時回傳的錯誤須滿足 errors.Is(err, ErrNotFound)。
type NutrientSource interface {
	Lookup(ctx context.Context, canonicalName string) (NutrientProfile, error)
}

// SourceFunc 將函式轉為 NutrientSource
type SourceFunc func(ctx context.Context, canonicalName string) (NutrientProfile, error)

func (f SourceFunc) Lookup(ctx context.Context, canonicalName string) (NutrientProfile, error) {
	return f(ctx, canonicalName)
}

// StaticSource 以記憶體表格提供固定營養值
type StaticSource struct {
	mu       sync.RWMutex
	profiles map[string]NutrientProfile
}

// NewStaticSource 建立靜態營養來源，鍵一律轉小寫
func NewStaticSource(profiles map[string]NutrientProfile) *StaticSource {
	s := &StaticSource{profiles: make(map[string]NutrientProfile, len(profiles))}
	for name, p := range profiles {
		s.profiles[strings.ToLower(strings.TrimSpace(name))] = p
	}
	return s
}

// Set 新增或覆寫一筆營養值
func (s *StaticSource) Set(name string, p NutrientProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[strings.ToLower(strings.TrimSpace(name))] = p
}

// Lookup 實作 NutrientSource
func (s *StaticSource) Lookup(ctx context.Context, canonicalName string) (NutrientProfile, error) {
	if err := ctx.Err(); err != nil {
		return NutrientProfile{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[strings.ToLower(canonicalName)]
	if !ok {
		return NutrientProfile{}, fmt.Errorf("%w: %q", ErrNotFound, canonicalName)
	}
	return p, nil
}

// DefaultProfiles 常見食材每 100 g/ml 的參考營養值，用於 static 來源
func DefaultProfiles() map[string]NutrientProfile {
	return map[string]NutrientProfile{
		"rice":      {Calories: 130, Protein: 2.7, Carbs: 28, Fats: 0.3},
		"oil":       {Calories: 884, Protein: 0, Carbs: 0, Fats: 100},
		"olive oil": {Calories: 884, Protein: 0, Carbs: 0, Fats: 100},
		"flour":     {Calories: 364, Protein: 10, Carbs: 76, Fats: 1},
		"sugar":     {Calories: 387, Protein: 0, Carbs: 100, Fats: 0},
		"butter":    {Calories: 717, Protein: 0.9, Carbs: 0.1, Fats: 81},
		"milk":      {Calories: 42, Protein: 3.4, Carbs: 5, Fats: 1},
		"egg":       {Calories: 155, Protein: 13, Carbs: 1.1, Fats: 11},
		"eggs":      {Calories: 155, Protein: 13, Carbs: 1.1, Fats: 11},
		"chicken":   {Calories: 239, Protein: 27, Carbs: 0, Fats: 14},
		"tomato":    {Calories: 18, Protein: 0.9, Carbs: 3.9, Fats: 0.2},
		"onion":     {Calories: 40, Protein: 1.1, Carbs: 9.3, Fats: 0.1},
		"potato":    {Calories: 77, Protein: 2, Carbs: 17, Fats: 0.1},
		"pasta":     {Calories: 131, Protein: 5, Carbs: 25, Fats: 1.1},
		"cheese":    {Calories: 402, Protein: 25, Carbs: 1.3, Fats: 33},
	}
}
