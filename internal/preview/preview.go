// Package preview renders report markdown to sanitized HTML for the preview
// tab. Rendering is pure and synchronous; any failure comes back as an error,
// never as silently corrupted output.
package preview

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// Generated reports are untrusted model output; strip anything a UGC policy
// wouldn't allow before it reaches a render surface.
var sanitizer = bluemonday.UGCPolicy()

// Render converts markdown to sanitized HTML.
func Render(markdown string) (html string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("preview: render panicked: %v", r)
		}
	}()

	var buf bytes.Buffer
	if convErr := md.Convert([]byte(markdown), &buf); convErr != nil {
		return "", fmt.Errorf("preview: render markdown: %w", convErr)
	}
	return sanitizer.Sanitize(buf.String()), nil
}
