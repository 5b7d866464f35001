package configs

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/vidyaverse/core/internal/config"
)

func deepMergeJSON(oldVal, newVal interface{}) interface{} {
	oldMap, oldIsMap := oldVal.(map[string]interface{})
	newMap, newIsMap := newVal.(map[string]interface{})
	if oldIsMap && newIsMap {
		out := make(map[string]interface{}, len(oldMap))
		for k, v := range oldMap {
			out[k] = v
		}
		for k, v := range newMap {
			if existing, ok := out[k]; ok {
				out[k] = deepMergeJSON(existing, v)
				continue
			}
			out[k] = v
		}
		return out
	}

	// Arrays should be replaced as a whole.
	if _, ok := newVal.([]interface{}); ok {
		return newVal
	}

	return newVal
}

func hasEnabledAIProvider(providers []config.AIProvider) bool {
	for _, provider := range providers {
		if provider.Enabled {
			return true
		}
	}
	return false
}

func parseBoolFromAny(v interface{}) (bool, bool) {
	switch value := v.(type) {
	case bool:
		return value, true
	case string:
		trimmed := strings.TrimSpace(strings.ToLower(value))
		switch trimmed {
		case "1", "true", "yes", "on":
			return true, true
		case "0", "false", "no", "off":
			return false, true
		}
	case float64:
		return value != 0, true
	case float32:
		return value != 0, true
	case int:
		return value != 0, true
	case int64:
		return value != 0, true
	}
	return false, false
}

func normalizeConfigSection(key string, v interface{}) interface{} {
	switch key {
	case "upload_options":
		return normalizeUploadOptions(v)
	case "s3_options":
		return normalizeS3Options(v)
	case "bark_options":
		return normalizeBarkOptions(v)
	case "ai":
		return normalizeAIOptions(v)
	default:
		return v
	}
}

func normalizeUploadOptions(v interface{}) interface{} {
	sectionMap, ok := v.(map[string]interface{})
	if !ok {
		return v
	}
	if _, exists := sectionMap["max_size_mb"]; !exists {
		if legacy, ok := sectionMap["max_size"]; ok {
			sectionMap["max_size_mb"] = legacy
		}
	}
	delete(sectionMap, "max_size")
	return sectionMap
}

func normalizeS3Options(v interface{}) interface{} {
	sectionMap, ok := v.(map[string]interface{})
	if !ok {
		return v
	}
	if _, exists := sectionMap["path_style_access"]; !exists {
		if legacy, ok := sectionMap["path_style"]; ok {
			sectionMap["path_style_access"] = legacy
		}
	}
	delete(sectionMap, "path_style")
	return sectionMap
}

func normalizeBarkOptions(v interface{}) interface{} {
	sectionMap, ok := v.(map[string]interface{})
	if !ok {
		return v
	}
	if _, exists := sectionMap["server_url"]; !exists {
		if legacy, ok := sectionMap["server"]; ok {
			sectionMap["server_url"] = legacy
		}
	}
	delete(sectionMap, "server")
	return sectionMap
}

// normalizeAIOptions coerces the enable_* flags so admin panels that send
// string or numeric booleans still round-trip cleanly.
func normalizeAIOptions(v interface{}) interface{} {
	sectionMap, ok := v.(map[string]interface{})
	if !ok {
		return v
	}
	for _, field := range []string{"enable_analysis", "enable_auto_analysis", "enable_semantic_search", "enable_recommendations"} {
		raw, exists := sectionMap[field]
		if !exists {
			continue
		}
		if _, isBool := raw.(bool); isBool {
			continue
		}
		if parsed, ok := parseBoolFromAny(raw); ok {
			sectionMap[field] = parsed
		}
	}
	return sectionMap
}

var optionKeyAliases = map[string]string{
	"site":           "site",
	"url":            "url",
	"backup_options": "backup_options",
	"s3_options":     "s3_options",
	"upload_options": "upload_options",
	"bark_options":   "bark_options",
	"ai":             "ai",
}

func normalizeOptionKey(key string) string {
	snake := camelToSnakeKey(key)
	if _, ok := optionKeyAliases[snake]; ok {
		return snake
	}
	return snake
}

func normalizeJSONKeys(raw json.RawMessage, keyFn func(string) string) (json.RawMessage, error) {
	var data interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("invalid json body")
	}
	normalized := convertMapKeys(data, keyFn)
	out, err := json.Marshal(normalized)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func convertMapKeys(v interface{}, keyFn func(string) string) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, child := range val {
			out[keyFn(k)] = convertMapKeys(child, keyFn)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, child := range val {
			out[i] = convertMapKeys(child, keyFn)
		}
		return out
	case *config.FullConfig:
		if val == nil {
			return nil
		}
		b, _ := json.Marshal(val)
		var m map[string]interface{}
		_ = json.Unmarshal(b, &m)
		return convertMapKeys(m, keyFn)
	case config.FullConfig:
		b, _ := json.Marshal(val)
		var m map[string]interface{}
		_ = json.Unmarshal(b, &m)
		return convertMapKeys(m, keyFn)
	default:
		return val
	}
}

func snakeToCamelKey(s string) string {
	if s == "" {
		return s
	}
	parts := strings.Split(s, "_")
	if len(parts) == 1 {
		return s
	}
	out := make([]rune, 0, len(s))
	out = append(out, []rune(parts[0])...)
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lower := strings.ToLower(part)
		switch lower {
		case "mb":
			out = append(out, []rune("MB")...)
			continue
		case "ttl":
			out = append(out, []rune("TTL")...)
			continue
		}
		runes := []rune(lower)
		runes[0] = unicode.ToUpper(runes[0])
		out = append(out, runes...)
	}
	return string(out)
}

func camelToSnakeKey(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.TrimSpace(s))
	if len(runes) == 0 {
		return ""
	}
	out := make([]rune, 0, len(runes)+4)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || nextLower {
					out = append(out, '_')
				}
			}
			out = append(out, unicode.ToLower(r))
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
