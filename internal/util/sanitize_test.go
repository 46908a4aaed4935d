package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeForLog(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"clean string", "Hello World", "Hello World"},
		{"newline", "Hello\nWorld", "Hello World"},
		{"carriage return and newline", "Hello\r\nWorld", "Hello World"},
		{"multiple newlines", "Hello\nWorld\nTest", "Hello World Test"},
		{"control characters collapse to one space", "Hello\x00\x01\x1FWorld", "Hello World"},
		{"DEL character", "Hello\x7FWorld", "Hello World"},
		{"mixed lines and control chars", "Line1\r\nLine2\nLine3\x00\x01\x7F", "Line1 Line2 Line3 "},
		{"tab", "Hello\tWorld", "Hello World"},
		{"only control chars", "\x00\x01\x02\x1F\x7F", " "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeForLog(tt.input))
		})
	}
}
