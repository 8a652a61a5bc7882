package upload

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPriorityOrder(t *testing.T) {
	tests := []struct {
		name      string
		doc       map[string]any
		wantField string
		wantFound bool
	}{
		{"data beats image", map[string]any{"image": "b", "data": "a"}, "data", true},
		{"image beats base64", map[string]any{"base64": "c", "image": "b"}, "image", true},
		{"content before file", map[string]any{"file": "e", "content": "d"}, "content", true},
		{"file last", map[string]any{"file": "e"}, "file", true},
		{"non-string skipped", map[string]any{"data": 42, "image": "b"}, "image", true},
		{"empty string skipped", map[string]any{"data": "  ", "base64": "c"}, "base64", true},
		{"nothing usable", map[string]any{"data": nil, "other": "x"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extract(tt.doc, bodyFields)
			assert.Equal(t, tt.wantFound, got.Found)
			assert.Equal(t, tt.wantField, got.Field)
		})
	}
}

func TestExtractPartFieldsIgnoreContentAndFile(t *testing.T) {
	got := extract(map[string]any{"content": "d", "file": "e"}, partFields)
	assert.False(t, got.Found)
}

func TestDecodeBase64StripsDataURI(t *testing.T) {
	raw := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	b64 := base64.StdEncoding.EncodeToString(raw)

	for _, prefix := range []string{
		"",
		"data:image/png;base64,",
		"DATA:IMAGE/PNG;BASE64,",
		"data:image/Jpeg;base64,",
		"data:image/svg+xml;base64,",
	} {
		t.Run(prefix, func(t *testing.T) {
			got, err := decodeBase64(prefix + b64)
			require.NoError(t, err)
			assert.Equal(t, raw, got)
		})
	}
}

func TestDecodeBase64Tolerance(t *testing.T) {
	raw := []byte("hello, world")
	padded := base64.StdEncoding.EncodeToString(raw)

	got, err := decodeBase64(padded[:8] + "\n" + padded[8:])
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	unpadded := base64.RawStdEncoding.EncodeToString([]byte("hi"))
	got, err = decodeBase64(unpadded)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), got)
}

func TestDecodeBase64Rejects(t *testing.T) {
	for _, in := range []string{"%%%not-base64%%%", "data:image/png;base64,", "a"} {
		t.Run(in, func(t *testing.T) {
			_, err := decodeBase64(in)
			assert.Error(t, err)
		})
	}
}
