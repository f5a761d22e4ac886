package preview

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderBasicMarkdown(t *testing.T) {
	html, err := Render("# Title\n\nSome **bold** text.\n")
	require.NoError(t, err)
	require.Contains(t, html, "<h1")
	require.Contains(t, html, "Title")
	require.Contains(t, html, "<strong>bold</strong>")
}

func TestRenderGFMTable(t *testing.T) {
	html, err := Render("| a | b |\n|---|---|\n| 1 | 2 |\n")
	require.NoError(t, err)
	require.Contains(t, html, "<table>")
}

func TestRenderStripsScripts(t *testing.T) {
	html, err := Render("hello <script>alert(1)</script> world\n")
	require.NoError(t, err)
	require.NotContains(t, html, "<script>")
	require.Contains(t, html, "hello")
	require.Contains(t, html, "world")
}

func TestRenderEmpty(t *testing.T) {
	html, err := Render("")
	require.NoError(t, err)
	require.Equal(t, "", html)
}
