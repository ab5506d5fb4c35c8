package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestStripHTML(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "Verify your password here.",
		tp.StripHTML("<html><body><p>Verify your <b>password</b>\n\n here.</p></body></html>"))
	assert.Equal(t, "a < b", tp.StripHTML("a &lt; b"))
	assert.Equal(t, "", tp.StripHTML("<script>alert(1)</script>"))
}

func TestTruncateText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "hello", tp.TruncateText("hello", 10))
	assert.Equal(t, "hel", tp.TruncateText("hello", 3))

	// Truncation must not split a multi-byte rune
	text := strings.Repeat("é", 10)
	truncated := tp.TruncateText(text, 3)
	assert.Equal(t, "é", truncated)
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "clean", tp.SanitizeUTF8("clean"))
	assert.Equal(t, "ab", tp.SanitizeUTF8("a\xffb"))
}
