package common

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
)

// DecodeJSON 解析請求體到結構體，不允許多餘資料
func DecodeJSON(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(r)
	if err := dec.Decode(v); err != nil {
		return err
	}

	// 確保沒有多餘資料
	if dec.More() {
		return fmt.Errorf("unexpected extra JSON data")
	}
	return nil
}

// Marshal 供 HTTP 客戶端使用的 JSON 編碼器
func Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal 供 HTTP 客戶端使用的 JSON 解碼器
func Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// TagsToString 將標籤切片轉換為逗號分隔字串（資料庫儲存格式）
func TagsToString(tags []string) string {
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			cleaned = append(cleaned, tag)
		}
	}
	return strings.Join(cleaned, ",")
}

// StringToTags 將逗號分隔字串還原為標籤切片
func StringToTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
