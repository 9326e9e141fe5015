package entity

import (
	"fmt"
	"strconv"
	"strings"
)

// Overrides holds per-entity customizations loaded from the
// customization file. Root holds bridge-level keys recognised outside
// the discovery config (bridge_type, on_value and friends); ConfigVars
// holds keys merged into or replacing values in the discovery payload.
type Overrides struct {
	Root       map[string]any
	ConfigVars map[string]any
}

// lookup returns the override for key from the given section. Nil
// values and empty strings count as unset so a blank line in the
// customization file cannot blank out a published value by accident.
func (o Overrides) lookup(section map[string]any, key string) (any, bool) {
	if section == nil {
		return nil, false
	}
	v, ok := section[key]
	if !ok || v == nil {
		return nil, false
	}
	if s, isStr := v.(string); isStr && s == "" {
		return nil, false
	}
	return v, true
}

// ConfigVar returns the config_vars override for key.
func (o Overrides) ConfigVar(key string) (any, bool) {
	return o.lookup(o.ConfigVars, key)
}

// RootVar returns the root-level override for key.
func (o Overrides) RootVar(key string) (any, bool) {
	return o.lookup(o.Root, key)
}

// coerceString renders an override value as a string.
func coerceString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// coerceInt renders an override value as an int, falling back to def
// when it does not parse.
func coerceInt(v any, def int) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return def
}

// coerceBool interprets an override value as a boolean. Strings follow
// the customization file convention: yes, true, t and 1 are truthy,
// anything else is false.
func coerceBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "yes", "true", "t", "1":
			return true
		}
	}
	return false
}
