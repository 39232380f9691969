package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdown(t *testing.T) {
	out := RenderMarkdown("**best** circle\n\n![cover](https://img.dlsite.jp/a.jpg)")
	assert.Contains(t, out, "<strong>best</strong>")
	assert.Contains(t, out, `loading="lazy"`)
	assert.Contains(t, out, `referrerpolicy="no-referrer"`)
}

func TestRenderMarkdownStripsScripts(t *testing.T) {
	out := RenderMarkdown("hello <script>alert(1)</script>")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "hello")
}

func TestRenderMarkdownEmpty(t *testing.T) {
	assert.Equal(t, "", RenderMarkdown(""))
}

func TestParseID(t *testing.T) {
	id, ok := ParseID("42")
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	for _, s := range []string{"", "0", "-1", "abc"} {
		_, ok := ParseID(s)
		assert.False(t, ok, s)
	}
}

func TestFormatID(t *testing.T) {
	assert.Equal(t, "42", FormatID(42))
	id, ok := ParseID(FormatID(7))
	assert.True(t, ok)
	assert.Equal(t, uint(7), id)
}
