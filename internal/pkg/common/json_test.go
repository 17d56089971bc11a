package common

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONKeepsNumbers(t *testing.T) {
	var v map[string]interface{}
	require.NoError(t, ParseJSON(`{"count": 3, "ratio": 0.25}`, &v))
	assert.Equal(t, json.Number("3"), v["count"])
	assert.Equal(t, json.Number("0.25"), v["ratio"])
}

func TestDecodeJSONRejectsTrailingData(t *testing.T) {
	var v map[string]interface{}
	err := DecodeJSON(strings.NewReader(`{"a": 1} {"b": 2}`), &v)
	assert.Error(t, err)

	err = DecodeJSON(strings.NewReader(`{"a": 1}`+"\n"), &v)
	assert.NoError(t, err)
}

func TestQuoteJSONKeys(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{name: "salt"}`, `{"name": "salt"}`},
		{`{"name": "salt", level: "SAFE"}`, `{"name": "salt", "level": "SAFE"}`},
		{`{"a": 1,
 b : 2}`, `{"a": 1,
 "b": 2}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, QuoteJSONKeys(tt.in))
	}
}

func TestRelaxedRewritesSkipStringContents(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) string
		in   string
		want string
	}{
		{"key pattern in value", QuoteJSONKeys, `{description: "Clear, note: pure", level: "SAFE"}`, `{"description": "Clear, note: pure", "level": "SAFE"}`},
		{"escaped quote in value", QuoteJSONKeys, `{a: "say \"hi\", b: c", d: 1}`, `{"a": "say \"hi\", b: c", "d": 1}`},
		{"unterminated string", QuoteJSONKeys, `{a: "open, b: c`, `{"a": "open, b: c`},
		{"comma bracket in value", StripTrailingCommas, `{"tags": ["x,]", "y",],}`, `{"tags": ["x,]", "y"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fn(tt.in))
		})
	}
}

func TestStripTrailingCommas(t *testing.T) {
	assert.Equal(t, `{"a": [1, 2]}`, StripTrailingCommas(`{"a": [1, 2,],}`))
	assert.Equal(t, "[1\n]", StripTrailingCommas("[1,\n]"))
}
