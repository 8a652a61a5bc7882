package upload

import (
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

func hasImageExtension(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range imageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ensureImageExtension appends ".png" unless name already ends in a
// recognized image extension.
func ensureImageExtension(name string) string {
	if hasImageExtension(name) {
		return name
	}
	return name + ".png"
}

// contentTypeFor infers an image MIME type from the filename extension.
func contentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}

// replaceJSONSuffix swaps a trailing ".json" (any case) for ".png".
func replaceJSONSuffix(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".json") {
		return name[:len(name)-len(".json")] + ".png"
	}
	return name
}

func synthesizedName(now time.Time, ext string) string {
	return fmt.Sprintf("upload-%d%s", now.UnixMilli(), ext)
}

// coerceString renders scalar JSON values as strings. Objects, arrays and
// null are not names.
func coerceString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, t != ""
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// firstString returns the first of keys whose value coerces to a non-empty string.
func firstString(doc map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := coerceString(doc[k]); ok {
			return s, true
		}
	}
	return "", false
}

func explicitName(doc map[string]any) (string, bool) {
	return firstString(doc, "name", "filename")
}

func explicitType(doc map[string]any) (string, bool) {
	for _, k := range []string{"type", "mimeType"} {
		if s, ok := doc[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), true
		}
	}
	return "", false
}
