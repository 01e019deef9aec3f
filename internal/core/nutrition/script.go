package nutrition

import (
	"strings"
	"unicode"
)

// ScriptPredicate 判斷文字是否符合某種書寫系統，可注入以取代寫死的語言檢查
type ScriptPredicate func(text string) bool

// DefaultScriptRatio 翻譯結果中目標文字所需的最低比例
const DefaultScriptRatio = 0.3

var languageScripts = map[string]*unicode.RangeTable{
	"en": unicode.Latin,
	"fr": unicode.Latin,
	"de": unicode.Latin,
	"es": unicode.Latin,
	"it": unicode.Latin,
	"pt": unicode.Latin,
	"he": unicode.Hebrew,
	"iw": unicode.Hebrew,
	"ru": unicode.Cyrillic,
	"uk": unicode.Cyrillic,
	"ar": unicode.Arabic,
	"el": unicode.Greek,
}

// ScriptForLanguage 取得語言代碼對應的 Unicode 書寫系統
func ScriptForLanguage(code string) (*unicode.RangeTable, bool) {
	table, ok := languageScripts[strings.ToLower(code)]
	return table, ok
}

// letterCounts 回傳字母總數與屬於 table 的字母數
func letterCounts(text string, table *unicode.RangeTable) (letters, inScript int) {
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(table, r) {
			inScript++
		}
	}
	return letters, inScript
}

// ScriptRatio 字母中屬於 table 的比例 >= min
func ScriptRatio(table *unicode.RangeTable, min float64) ScriptPredicate {
	return func(text string) bool {
		letters, inScript := letterCounts(text, table)
		if letters == 0 {
			return false
		}
		return float64(inScript)/float64(letters) >= min
	}
}

// AllInScript 至少有一個字母，且所有字母都屬於 table
func AllInScript(table *unicode.RangeTable) ScriptPredicate {
	return func(text string) bool {
		letters, inScript := letterCounts(text, table)
		return letters > 0 && letters == inScript
	}
}

// NonEmpty 只要求非空白
func NonEmpty(text string) bool {
	return strings.TrimSpace(text) != ""
}

func never(string) bool { return false }
