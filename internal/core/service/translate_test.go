package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"plateful/internal/infrastructure/config"
)

func TestTranslate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/language/translate/v2" {
			t.Errorf("Expected translate path, got %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("Expected api key query param, got %q", got)
		}
		var body translateRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if body.Q != "אורז" || body.Target != "en" || body.Source != "" {
			t.Errorf("Unexpected request body %+v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"translations":[{"translatedText":"Rice &amp; beans","detectedSourceLanguage":"iw"}]}}`))
	}))
	defer server.Close()

	svc := NewTranslateService(config.TranslatorConfig{BaseURL: server.URL, APIKey: "test-key"})
	got, err := svc.Translate(context.Background(), "אורז", "auto", "en")
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if got != "Rice & beans" {
		t.Errorf("Expected %q, got %q", "Rice & beans", got)
	}
}

func TestTranslate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"API key not valid"}}`))
	}))
	defer server.Close()

	svc := NewTranslateService(config.TranslatorConfig{BaseURL: server.URL, APIKey: "bad"})
	if _, err := svc.Translate(context.Background(), "сахар", "auto", "en"); err == nil {
		t.Error("Expected error for 403 response")
	}
}

func TestTranslate_EmptyTranslations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"translations":[]}}`))
	}))
	defer server.Close()

	svc := NewTranslateService(config.TranslatorConfig{BaseURL: server.URL, APIKey: "k"})
	if _, err := svc.Translate(context.Background(), "сахар", "ru", "en"); err == nil {
		t.Error("Expected error for empty translations")
	}
}
