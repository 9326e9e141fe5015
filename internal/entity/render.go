package entity

import (
	"regexp"
	"strings"
)

var (
	fieldRef   = regexp.MustCompile(`\{d\[(\w+)\]\}`)
	nonWord    = regexp.MustCompile(`[^\w\s]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Render substitutes {d[field]} references in a template string with
// values from the entity field map. Unknown references are left
// untouched so a typo in a customization file is visible in the
// published payload rather than silently dropped.
func Render(template string, fields map[string]string) string {
	return fieldRef.ReplaceAllStringFunc(template, func(match string) string {
		key := fieldRef.FindStringSubmatch(match)[1]
		if v, ok := fields[key]; ok {
			return v
		}
		return match
	})
}

// SanitizeName converts an Indigo display name into an MQTT-safe
// identifier: lowercase, punctuation stripped, whitespace runs
// collapsed to single underscores. The transform is idempotent.
func SanitizeName(name string) string {
	n := strings.ToLower(name)
	n = nonWord.ReplaceAllString(n, "")
	n = strings.TrimSpace(n)
	n = whitespace.ReplaceAllString(n, "_")
	return n
}
