package upload

import (
	"encoding/base64"
	"errors"
	"regexp"
	"strings"
)

// Field lookup order for a JSON request body. Automations depend on this
// order; the first field holding a non-empty string wins.
var bodyFields = []string{"data", "image", "base64", "content", "file"}

// Field lookup order for a JSON file uploaded as a multipart part.
var partFields = []string{"data", "image", "base64"}

var dataURIPrefix = regexp.MustCompile(`(?i)^data:image/[a-z0-9.+-]+;base64,`)

// Extraction is the outcome of looking for a base64 string in a JSON object.
type Extraction struct {
	Field string
	Value string
	Found bool
}

// extract walks fields in order and returns the first non-empty string value.
func extract(doc map[string]any, fields []string) Extraction {
	for _, field := range fields {
		if s, ok := doc[field].(string); ok && strings.TrimSpace(s) != "" {
			return Extraction{Field: field, Value: s, Found: true}
		}
	}
	return Extraction{}
}

var errEmptyPayload = errors.New("payload decodes to zero bytes")

// decodeBase64 strips an optional image data-URI prefix and decodes the rest.
// Whitespace is ignored and padding is optional.
func decodeBase64(s string) ([]byte, error) {
	s = dataURIPrefix.ReplaceAllString(strings.TrimSpace(s), "")
	s = strings.Join(strings.Fields(s), "")

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		var rawErr error
		data, rawErr = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
		if rawErr != nil {
			return nil, err
		}
	}
	if len(data) == 0 {
		return nil, errEmptyPayload
	}
	return data, nil
}
