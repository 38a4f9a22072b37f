package slip

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "hex code with hash",
			input:    "Light Blue (#ADD8E6)",
			expected: "Light Blue",
		},
		{
			name:     "hex code without hash",
			input:    "Pink (FFC0CB)",
			expected: "Pink",
		},
		{
			name:     "short hex code",
			input:    "Red (F00)",
			expected: "Red",
		},
		{
			name:     "box glyph",
			input:    "EMMA ■",
			expected: "EMMA",
		},
		{
			name:     "storefront boilerplate",
			input:    "Seller Name Loomhaven",
			expected: "Loomhaven",
		},
		{
			name:     "returns banner",
			input:    "Returning your item: see policy",
			expected: "see policy",
		},
		{
			name:     "collapse space runs",
			input:    "too    many   spaces",
			expected: "too many spaces",
		},
		{
			name:     "non-hex parens kept",
			input:    "Olive (dark)",
			expected: "Olive (dark)",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Clean(tt.input))
		})
	}
}
