package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTruncate(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "hello", tp.Truncate("hello", 10))
	assert.Equal(t, "hello", tp.Truncate("hello", 5))
	assert.Equal(t, "hel", tp.Truncate("hello", 3))
	assert.Equal(t, "hello", tp.Truncate("hello", 0))
	assert.Equal(t, "", tp.Truncate("", 5))
}

func TestTruncateDoesNotSplitRunes(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	// "héllo" is 6 bytes; cutting at 2 lands inside the é.
	out := tp.Truncate("héllo", 2)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, "h", out)

	long := strings.Repeat("日", 100)
	out = tp.Truncate(long, 50)
	assert.True(t, utf8.ValidString(out))
	assert.LessOrEqual(t, len(out), 50)
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "clean text", tp.SanitizeUTF8("clean text"))
	assert.Equal(t, "café", tp.SanitizeUTF8("café"))

	broken := "ok\xff\xfeok"
	out := tp.SanitizeUTF8(broken)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, "okok", out)
}

func TestSnippet(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	out := tp.Snippet("hé"+strings.Repeat("x", 100)+"\xff", 10)
	assert.True(t, utf8.ValidString(out))
	assert.LessOrEqual(t, len(out), 10)
}
