package domain

import (
	"strings"
	"unicode"
)

// CategoryAliases maps a category token to the human readable category name
// stored on products. This is the only copy of the table.
var CategoryAliases = map[string]string{
	"beverages":            "Beverages",
	"babyCare":             "Baby Care",
	"hairCare":             "Hair Care",
	"personalCare":         "Personal Care",
	"skinCare":             "Skin Care",
	"homeCare":             "Home Care",
	"oralCare":             "Oral Care",
	"cleaningDisinfectant": "Cleaning & Disinfectants",
	"stationary":           "Stationary",
}

func AliasName(token string) (string, bool) {
	name, ok := CategoryAliases[token]
	return name, ok
}

// DisplayName is for page titles only. Unknown tokens are split on camelCase
// boundaries and each word is capitalised.
func DisplayName(token string) string {
	if name, ok := AliasName(token); ok {
		return name
	}

	var b strings.Builder
	runes := []rune(token)
	startOfWord := true
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			b.WriteRune(' ')
			startOfWord = true
		}
		if unicode.IsSpace(r) {
			b.WriteRune(r)
			startOfWord = true
			continue
		}
		if startOfWord {
			b.WriteRune(unicode.ToUpper(r))
			startOfWord = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
