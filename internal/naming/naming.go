// Package naming derives resource names from type names: "OrderItem" becomes "order_items".
package naming

import (
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// handler type suffixes stripped before deriving a resource name
var handlerSuffixes = []string{"Controller", "Handler"}

// Resource pluralizes a PascalCase type name and converts it to snake_case
func Resource(typeName string) string {
	if typeName == "" {
		return ""
	}
	return Snake(inflection.Plural(typeName))
}

// StripHandlerSuffix removes a conventional handler suffix from name
func StripHandlerSuffix(name string) string {
	for _, suffix := range handlerSuffixes {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return name
}

// Snake converts PascalCase or camelCase to snake_case.
// An upper case run is kept as one word: "HTTPRequests" becomes "http_requests".
func Snake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)

	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && wordBoundary(runes, i) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if r == '-' || r == ' ' {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

// wordBoundary tells if an upper case rune at i starts a new word
func wordBoundary(runes []rune, i int) bool {
	prev := runes[i-1]
	if prev == '_' || prev == '-' || prev == ' ' {
		return false
	}
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}
	// end of an upper case run: the "R" in "HTTPRequest"
	return i+1 < len(runes) && unicode.IsLower(runes[i+1])
}
