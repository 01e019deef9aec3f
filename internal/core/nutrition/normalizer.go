package nutrition

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"plateful/internal/pkg/common"
)

// Translator 外部翻譯能力
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// TranslatorFunc 將函式轉為 Translator
type TranslatorFunc func(ctx context.Context, text, source, target string) (string, error)

func (f TranslatorFunc) Translate(ctx context.Context, text, source, target string) (string, error) {
	return f(ctx, text, source, target)
}

const (
	defaultMaxAttempts     = 3
	defaultInitialInterval = 200 * time.Millisecond
)

// Normalizer 將自由文字食材名稱轉為營養來源使用的查詢鍵
type Normalizer struct {
	translator      Translator
	target          string
	isCanonical     ScriptPredicate
	accept          ScriptPredicate
	maxAttempts     int
	initialInterval time.Duration
}

// NormalizerOption 調整 Normalizer 設定
type NormalizerOption func(*Normalizer)

// WithMaxAttempts 設定翻譯最多嘗試次數
func WithMaxAttempts(n int) NormalizerOption {
	return func(nm *Normalizer) {
		if n > 0 {
			nm.maxAttempts = n
		}
	}
}

// WithBackoff 設定重試的初始間隔
func WithBackoff(initial time.Duration) NormalizerOption {
	return func(nm *Normalizer) {
		if initial > 0 {
			nm.initialInterval = initial
		}
	}
}

// WithAcceptPredicate 覆寫翻譯結果的驗收條件
func WithAcceptPredicate(p ScriptPredicate) NormalizerOption {
	return func(nm *Normalizer) {
		if p != nil {
			nm.accept = p
		}
	}
}

// WithCanonicalPredicate 覆寫「已是目標文字」的判斷
func WithCanonicalPredicate(p ScriptPredicate) NormalizerOption {
	return func(nm *Normalizer) {
		if p != nil {
			nm.isCanonical = p
		}
	}
}

// NewNormalizer 創建名稱正規化器。target 為營養來源期望的語言代碼。
// translator 可為 nil，此時只接受已是目標文字的名稱。
func NewNormalizer(translator Translator, target string, opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		translator:      translator,
		target:          strings.ToLower(target),
		isCanonical:     never,
		accept:          NonEmpty,
		maxAttempts:     defaultMaxAttempts,
		initialInterval: defaultInitialInterval,
	}
	if table, ok := ScriptForLanguage(target); ok {
		n.isCanonical = AllInScript(table)
		n.accept = ScriptRatio(table, DefaultScriptRatio)
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Target 目標語言代碼
func (n *Normalizer) Target() string {
	return n.target
}

// Normalize 修剪、合併空白並轉小寫；非目標文字時呼叫翻譯，嘗試次數有上限。
// 已是目標文字的名稱不會呼叫翻譯。
func (n *Normalizer) Normalize(ctx context.Context, raw string) (string, error) {
	name := strings.Join(strings.Fields(raw), " ")
	if name == "" {
		return "", common.NewValidationError("name", "ingredient name must not be empty")
	}
	if n.isCanonical(name) {
		return strings.ToLower(name), nil
	}
	if n.translator == nil {
		return "", &NormalizationError{Name: name, Err: errors.New("no translator configured")}
	}

	attempts := 0
	var translated string
	op := func() error {
		attempts++
		out, err := n.translator.Translate(ctx, name, "auto", n.target)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		out = strings.Join(strings.Fields(out), " ")
		if !n.accept(out) {
			return fmt.Errorf("translation %q rejected for target language %q", out, n.target)
		}
		translated = out
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = n.initialInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(n.maxAttempts-1)), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		return "", &NormalizationError{Name: name, Attempts: attempts, Err: err}
	}
	return strings.ToLower(translated), nil
}
