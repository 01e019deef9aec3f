package service

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"plateful/internal/infrastructure/config"
	"plateful/internal/infrastructure/metrics"
	"plateful/internal/pkg/common"
)

const translateAPI = "google_translate"

// TranslateService Google Cloud Translation v2 客戶端，實作 nutrition.Translator
type TranslateService struct {
	client *resty.Client
	apiKey string
}

// NewTranslateService 創建翻譯服務
func NewTranslateService(cfg config.TranslatorConfig) *TranslateService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetJSONMarshaler(common.Marshal).
		SetJSONUnmarshaler(common.Unmarshal)

	return &TranslateService{
		client: client,
		apiKey: cfg.APIKey,
	}
}

type translateRequest struct {
	Q      string `json:"q"`
	Target string `json:"target"`
	Source string `json:"source,omitempty"`
	Format string `json:"format"`
}

type translateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText         string `json:"translatedText"`
			DetectedSourceLanguage string `json:"detectedSourceLanguage"`
		} `json:"translations"`
	} `json:"data"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Translate 翻譯單一文字；source 為 "auto" 或空字串時由 API 自動偵測。
// 重試由呼叫端（名稱正規化）負責，這裡每次呼叫只送出一個請求。
func (s *TranslateService) Translate(ctx context.Context, text, source, target string) (string, error) {
	req := translateRequest{
		Q:      text,
		Target: target,
		Format: "text",
	}
	if source != "" && source != "auto" {
		req.Source = source
	}

	var result translateResponse
	start := time.Now()
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("key", s.apiKey).
		SetBody(req).
		SetResult(&result).
		SetError(&result).
		Post("/language/translate/v2")
	if err != nil {
		metrics.ExternalRequests.WithLabelValues(translateAPI, "failure").Inc()
		return "", fmt.Errorf("failed to send request to translate API: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		metrics.ExternalRequests.WithLabelValues(translateAPI, "failure").Inc()
		msg := resp.Status()
		if result.Error != nil {
			msg = result.Error.Message
		}
		return "", fmt.Errorf("translate API returned %d: %s", resp.StatusCode(), msg)
	}

	if len(result.Data.Translations) == 0 {
		metrics.ExternalRequests.WithLabelValues(translateAPI, "failure").Inc()
		return "", fmt.Errorf("no translations in translate API response")
	}

	metrics.ExternalRequests.WithLabelValues(translateAPI, "success").Inc()
	out := html.UnescapeString(result.Data.Translations[0].TranslatedText)
	common.LogDebug("翻譯完成",
		zap.String("text", text),
		zap.String("translated", out),
		zap.String("detected", result.Data.Translations[0].DetectedSourceLanguage),
		zap.Duration("耗時", time.Since(start)),
	)
	return out, nil
}
