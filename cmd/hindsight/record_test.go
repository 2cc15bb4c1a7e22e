package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name          string
		pairs         []string
		expected      map[string]any
		expectedError string
	}{
		{
			name:     "no pairs",
			pairs:    nil,
			expected: nil,
		},
		{
			name:     "empty slice",
			pairs:    []string{},
			expected: nil,
		},
		{
			name:     "single pair",
			pairs:    []string{"suite=billing"},
			expected: map[string]any{"suite": "billing"},
		},
		{
			name:  "multiple pairs",
			pairs: []string{"suite=billing", "result=pass"},
			expected: map[string]any{
				"suite":  "billing",
				"result": "pass",
			},
		},
		{
			name:     "value containing equals sign",
			pairs:    []string{"query=a=b"},
			expected: map[string]any{"query": "a=b"},
		},
		{
			name:     "empty value",
			pairs:    []string{"flag="},
			expected: map[string]any{"flag": ""},
		},
		{
			name:     "last duplicate wins",
			pairs:    []string{"env=dev", "env=prod"},
			expected: map[string]any{"env": "prod"},
		},
		{
			name:          "missing equals sign",
			pairs:         []string{"no-separator"},
			expectedError: "invalid metadata",
		},
		{
			name:          "empty key",
			pairs:         []string{"=value"},
			expectedError: "invalid metadata",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseMetadata(tt.pairs)

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}
