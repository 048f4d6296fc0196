package gsm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeptets(t *testing.T) {
	tests := []struct {
		name     string
		r        rune
		expected int
	}{
		{"latin letter", 'a', 1},
		{"digit", '7', 1},
		{"at sign", '@', 1},
		{"pound", '£', 1},
		{"greek delta", 'Δ', 1},
		{"line feed", '\n', 1},
		{"euro", '€', 2},
		{"left brace", '{', 2},
		{"caret", '^', 2},
		{"backslash", '\\', 2},
		{"form feed", '\f', 2},
		{"emoji", '😀', 0},
		{"cyrillic", 'ж', 0},
		{"accented a acute", 'á', 0},
		{"escape itself", '\x1b', 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Septets(tt.r))
			assert.Equal(t, tt.expected > 0, IsGSM(tt.r))
		})
	}
}

func TestSeptetLength(t *testing.T) {
	n, ok := SeptetLength("Hello")
	assert.True(t, ok)
	assert.Equal(t, 5, n)

	n, ok = SeptetLength("Price: 5€ {x}")
	assert.True(t, ok)
	assert.Equal(t, 16, n, "extension characters count twice")

	_, ok = SeptetLength("Hello 😀")
	assert.False(t, ok)

	n, ok = SeptetLength("")
	assert.True(t, ok)
	assert.Equal(t, 0, n)
}

func TestUCS2Length(t *testing.T) {
	assert.Equal(t, 5, UCS2Length("Hello"))
	assert.Equal(t, 3, UCS2Length("жжж"))
	assert.Equal(t, 2, UCS2Length("😀"), "astral characters need a surrogate pair")
	assert.Equal(t, 140, UCS2Length(strings.Repeat("😀", 70)))
}

func TestNonGSM(t *testing.T) {
	assert.Empty(t, NonGSM("plain text"))
	assert.Equal(t, []rune{'😀', 'ж'}, NonGSM("a😀bж😀c"))
}
