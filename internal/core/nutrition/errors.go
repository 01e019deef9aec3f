package nutrition

import (
	"errors"
	"fmt"
	"strings"

	"plateful/internal/pkg/common"
)

var (
	// ErrNotFound 營養資料庫查無此食材
	ErrNotFound = errors.New("nutrient profile not found")
	// ErrSourceUnavailable 營養來源暫時不可用（熔斷或服務錯誤）
	ErrSourceUnavailable = errors.New("nutrient source unavailable")
	// ErrNormalization 名稱正規化（翻譯）失敗
	ErrNormalization = errors.New("ingredient name normalization failed")
	// ErrAllIngredientsUnresolved 非空食材清單中沒有任何一項能取得營養資料
	ErrAllIngredientsUnresolved = errors.New("all ingredients unresolved")
	// ErrInvalidServings 份數必須 >= 1
	ErrInvalidServings = errors.New("invalid servings")
)

// InvalidServings 建立指向特定欄位的份數驗證錯誤，可用 errors.Is(err, ErrInvalidServings) 判斷
func InvalidServings(field string, got int) error {
	return &common.ValidationError{
		Field:   field,
		Message: fmt.Sprintf("must be at least 1, got %d", got),
		Err:     ErrInvalidServings,
	}
}

// SkipReason 略過食材的原因
type SkipReason string

const (
	SkipNotFound          SkipReason = "not_found"
	SkipNormalization     SkipReason = "normalization_failed"
	SkipTimeout           SkipReason = "timeout"
	SkipSourceUnavailable SkipReason = "source_unavailable"
)

// SkipError 單一食材無法解析；屬於可恢復的逐項錯誤
type SkipError struct {
	Name   string
	Reason SkipReason
	Err    error
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("skip ingredient %q (%s): %v", e.Name, e.Reason, e.Err)
}

func (e *SkipError) Unwrap() error {
	return e.Err
}

// NormalizationError 翻譯嘗試次數用盡
type NormalizationError struct {
	Name     string
	Attempts int
	Err      error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize %q failed after %d attempt(s): %v", e.Name, e.Attempts, e.Err)
}

func (e *NormalizationError) Unwrap() []error {
	return []error{ErrNormalization, e.Err}
}

// AllIngredientsUnresolvedError 所有食材皆被略過
type AllIngredientsUnresolvedError struct {
	Skips []*SkipError
}

func (e *AllIngredientsUnresolvedError) Error() string {
	names := make([]string, 0, len(e.Skips))
	for _, s := range e.Skips {
		names = append(names, fmt.Sprintf("%s(%s)", s.Name, s.Reason))
	}
	return fmt.Sprintf("%v: %s", ErrAllIngredientsUnresolved, strings.Join(names, ", "))
}

func (e *AllIngredientsUnresolvedError) Unwrap() error {
	return ErrAllIngredientsUnresolved
}
