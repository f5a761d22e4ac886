package tui

import (
	"fmt"
	"sync"

	"github.com/ryo8073/report-gen-sub006/internal/comparison"
	"github.com/ryo8073/report-gen-sub006/internal/contentstate"
	"github.com/ryo8073/report-gen-sub006/internal/preview"
)

// surfaces is the render target for all four tabs. It materializes the
// fallible part of each representation (markdown rendering, diff
// construction) so a failure surfaces as a switch failure instead of a
// corrupted screen. Guarded by a mutex because coordinator retries fire off
// the event loop.
type surfaces struct {
	state *contentstate.State

	mu          sync.Mutex
	rawText     string
	previewHTML string
	cmp         *comparison.View
}

func newSurfaces(state *contentstate.State) *surfaces {
	return &surfaces{
		state: state,
		cmp:   comparison.NewView(comparison.DefaultStyles()),
	}
}

// Render implements viewcoord.RenderTarget.
func (s *surfaces) Render(tab contentstate.Tab, content string) error {
	switch tab {
	case contentstate.TabRaw:
		s.mu.Lock()
		s.rawText = content
		s.mu.Unlock()
		return nil

	case contentstate.TabPreview:
		html, err := preview.Render(content)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.previewHTML = html
		s.mu.Unlock()
		return nil

	case contentstate.TabEditor:
		// The textarea renders edited content directly; nothing to prepare.
		return nil

	case contentstate.TabComparison:
		original := s.state.OriginalContent().Content
		s.mu.Lock()
		defer s.mu.Unlock()
		s.cmp.SetContent(original, content)
		return nil

	default:
		return fmt.Errorf("unknown tab %q", string(tab))
	}
}

func (s *surfaces) raw() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rawText
}

func (s *surfaces) previewSource() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previewHTML
}

// withComparison runs fn with the comparison view under the surface lock.
func (s *surfaces) withComparison(fn func(v *comparison.View)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.cmp)
}
