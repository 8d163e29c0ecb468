package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "json code block",
			input: "Here is the result:\n```json\n{\"decision\": \"approve\"}\n```\nDone.",
			want:  `{"decision": "approve"}`,
		},
		{
			name:  "untagged code block",
			input: "```\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "raw object with trailing prose",
			input: `The answer is {"a": [1, 2], "b": "x"} as computed.`,
			want:  `{"a": [1, 2], "b": "x"}`,
		},
		{
			name:  "raw array",
			input: `[1, 2, 3] and some text`,
			want:  `[1, 2, 3]`,
		},
		{
			name:  "nested braces inside strings",
			input: `{"note": "uses { and } freely", "n": 1}`,
			want:  `{"note": "uses { and } freely", "n": 1}`,
		},
		{
			name:    "no json at all",
			input:   "plain prose with no structure",
			wantErr: true,
		},
		{
			name:    "unbalanced object",
			input:   `{"a": 1`,
			wantErr: true,
		},
		{
			name:  "skips non-json code block",
			input: "```python\nprint('hi')\n```\n{\"a\": 1}",
			want:  `{"a": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, got)
		})
	}
}

func TestDecodeInto(t *testing.T) {
	var out struct {
		Decision string `json:"decision"`
		Score    float64 `json:"score"`
	}

	input := "```json\n{\"decision\": \"revise\", \"score\": 0.4}\n```"
	require.NoError(t, DecodeInto(input, &out))
	assert.Equal(t, "revise", out.Decision)
	assert.InDelta(t, 0.4, out.Score, 1e-9)

	assert.Error(t, DecodeInto("no json here", &out))
}
