package jsonrepair

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classafix/caf-copilot/internal/domain"
)

func decode(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestRecoverRoundTrip(t *testing.T) {
	objects := []map[string]any{
		{},
		{"category": "Plumbing", "hazards": []any{}, "confidence": 0.8},
		{"nested": map[string]any{"list": []any{"a", "b"}, "n": 3.0}, "quote": "don't know"},
	}
	for _, obj := range objects {
		raw, err := json.Marshal(obj)
		require.NoError(t, err)

		got, err := Recover(string(raw))
		require.NoError(t, err)
		assert.Equal(t, obj, decode(t, got))

		wrapped := "```json\n" + string(raw) + "\n```"
		got, err = Recover(wrapped)
		require.NoError(t, err)
		assert.Equal(t, obj, decode(t, got))
	}
}

func TestRecoverRepairs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want map[string]any
	}{
		{
			name: "trailing comma before brace",
			in:   `{"a": 1, "b": [1, 2,],}`,
			want: map[string]any{"a": 1.0, "b": []any{1.0, 2.0}},
		},
		{
			name: "uppercase fence tag",
			in:   "```JSON\n{\"a\": \"x\"}\n```",
			want: map[string]any{"a": "x"},
		},
		{
			name: "commentary around object",
			in:   "Sure! Here is the JSON you asked for:\n{\"a\": true}\nLet me know if you need more.",
			want: map[string]any{"a": true},
		},
		{
			name: "smart quotes",
			in:   "{“category”: “Electrical”}",
			want: map[string]any{"category": "Electrical"},
		},
		{
			name: "single quoted throughout",
			in:   "{'category': 'Roofing', 'hazards': ['height',]}",
			want: map[string]any{"category": "Roofing", "hazards": []any{"height"}},
		},
		{
			name: "apostrophe kept when double quotes present",
			in:   "{\"answer\": \"tenant doesn't know\",}",
			want: map[string]any{"answer": "tenant doesn't know"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Recover(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, decode(t, got))
		})
	}
}

func TestRecoverMalformed(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		cleaned string
	}{
		{name: "no braces", in: "```json\nI cannot help with that\n```", cleaned: "I cannot help with that"},
		{name: "broken object", in: `{"a": [1, 2}`, cleaned: `{"a": [1, 2}`},
		{name: "empty", in: "   ", cleaned: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Recover(tc.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrMalformedOutput))

			f, ok := domain.AsFailure(err)
			require.True(t, ok)
			assert.Equal(t, domain.FailureMalformedOutput, f.Kind)
			assert.Equal(t, tc.in, f.Raw)
			assert.Equal(t, tc.cleaned, f.Cleaned)
		})
	}
}

func TestRecoverObjectRejectsArrays(t *testing.T) {
	_, _, err := RecoverObject(`[1, 2, 3]`)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMalformedOutput)

	obj, raw, err := RecoverObject("noise {\"ok\": 1} noise")
	require.NoError(t, err)
	assert.Equal(t, 1.0, obj["ok"])
	assert.JSONEq(t, `{"ok": 1}`, string(raw))
}
