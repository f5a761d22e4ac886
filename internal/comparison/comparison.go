// Package comparison renders the original and edited documents side by side
// with diff segments highlighted, supports reverting an individual segment
// back into the edited copy, and keeps the two panels scroll-synchronized by
// percentage (the panels usually have different total heights).
package comparison

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ryo8073/report-gen-sub006/internal/diffengine"
)

// ErrNotRevertable is returned when a revert is requested for an equal
// segment, which has nothing to undo.
var ErrNotRevertable = errors.New("comparison: segment is not revertable")

// ErrStaleSegment is returned when a segment no longer matches the edited
// content it is being reverted against.
var ErrStaleSegment = errors.New("comparison: segment is stale")

// Styles are the highlight styles for changed segments.
type Styles struct {
	Insert   lipgloss.Style
	Delete   lipgloss.Style
	Selected lipgloss.Style
}

// DefaultStyles returns the standard green-for-insert / red-for-delete
// highlighting.
func DefaultStyles() Styles {
	return Styles{
		Insert:   lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("114")),
		Delete:   lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("217")),
		Selected: lipgloss.NewStyle().Reverse(true).Bold(true),
	}
}

// Revert undoes one segment of the diff between original and edited,
// returning the new edited content: an inserted segment is removed, a deleted
// segment is restored. Re-diffing the result against original no longer
// yields the reverted segment.
func Revert(edited string, seg diffengine.Segment) (string, error) {
	switch seg.Kind {
	case diffengine.KindInsert:
		end := seg.EditedIndex + len(seg.Text)
		if seg.EditedIndex < 0 || end > len(edited) || edited[seg.EditedIndex:end] != seg.Text {
			return "", fmt.Errorf("%w: insert %q not found at offset %d", ErrStaleSegment, seg.Text, seg.EditedIndex)
		}
		return edited[:seg.EditedIndex] + edited[end:], nil
	case diffengine.KindDelete:
		if seg.EditedIndex < 0 || seg.EditedIndex > len(edited) {
			return "", fmt.Errorf("%w: delete offset %d out of range", ErrStaleSegment, seg.EditedIndex)
		}
		return edited[:seg.EditedIndex] + seg.Text + edited[seg.EditedIndex:], nil
	default:
		return "", ErrNotRevertable
	}
}

// SyncOffset maps a scroll position in one panel to the equivalent position in
// the other by scroll percentage rather than absolute offset.
func SyncOffset(srcOffset, srcTotal, dstTotal, height int) int {
	srcRange := srcTotal - height
	dstRange := dstTotal - height
	if srcRange <= 0 || dstRange <= 0 {
		return 0
	}
	if srcOffset > srcRange {
		srcOffset = srcRange
	}
	pct := float64(srcOffset) / float64(srcRange)
	return int(math.Round(pct * float64(dstRange)))
}

// View is the headless comparison component: it owns the current segment list
// and the selection cursor over changed segments. The host feeds it content
// and renders the panel lines it produces.
type View struct {
	styles   Styles
	original string
	edited   string
	segs     []diffengine.Segment
	changed  []int // indices into segs of non-equal segments
	selected int   // index into changed; -1 when empty
}

// NewView returns a View with the given styles.
func NewView(styles Styles) *View {
	return &View{styles: styles, selected: -1}
}

// SetContent recomputes the diff for the given document pair. The selection
// cursor is clamped into the new changed-segment range.
func (v *View) SetContent(original, edited string) {
	v.original = original
	v.edited = edited
	v.segs = diffengine.Diff(original, edited)

	v.changed = v.changed[:0]
	for i, s := range v.segs {
		if s.Kind != diffengine.KindEqual {
			v.changed = append(v.changed, i)
		}
	}
	switch {
	case len(v.changed) == 0:
		v.selected = -1
	case v.selected < 0:
		v.selected = 0
	case v.selected >= len(v.changed):
		v.selected = len(v.changed) - 1
	}
}

// Segments returns the current diff segments.
func (v *View) Segments() []diffengine.Segment {
	return v.segs
}

// ChangeCount returns the number of changed (non-equal) segments.
func (v *View) ChangeCount() int {
	return len(v.changed)
}

// Selected returns the currently selected changed segment, if any.
func (v *View) Selected() (diffengine.Segment, bool) {
	if v.selected < 0 {
		return diffengine.Segment{}, false
	}
	return v.segs[v.changed[v.selected]], true
}

// SelectNext moves the selection to the next changed segment, wrapping.
func (v *View) SelectNext() {
	if len(v.changed) == 0 {
		return
	}
	v.selected = (v.selected + 1) % len(v.changed)
}

// SelectPrev moves the selection to the previous changed segment, wrapping.
func (v *View) SelectPrev() {
	if len(v.changed) == 0 {
		return
	}
	v.selected = (v.selected - 1 + len(v.changed)) % len(v.changed)
}

// RevertSelected undoes the selected segment and returns the new edited
// content. The caller is responsible for writing it back through the content
// state (which will feed SetContent again).
func (v *View) RevertSelected() (string, error) {
	seg, ok := v.Selected()
	if !ok {
		return "", ErrNotRevertable
	}
	return Revert(v.edited, seg)
}

// Lines renders the two panels as parallel line slices: the original on the
// left with deletions highlighted, the edited on the right with insertions
// highlighted. The selected segment renders with the selection style. Line
// counts differ when edits add or remove lines; use SyncOffset to map scroll
// positions across them.
func (v *View) Lines() (left, right []string) {
	var lb, rb strings.Builder
	selIdx := -1
	if v.selected >= 0 {
		selIdx = v.changed[v.selected]
	}

	for i, s := range v.segs {
		switch s.Kind {
		case diffengine.KindEqual:
			lb.WriteString(s.Text)
			rb.WriteString(s.Text)
		case diffengine.KindDelete:
			style := v.styles.Delete
			if i == selIdx {
				style = v.styles.Selected
			}
			lb.WriteString(styleByLine(s.Text, style))
		case diffengine.KindInsert:
			style := v.styles.Insert
			if i == selIdx {
				style = v.styles.Selected
			}
			rb.WriteString(styleByLine(s.Text, style))
		}
	}
	return strings.Split(lb.String(), "\n"), strings.Split(rb.String(), "\n")
}

// styleByLine styles text one line at a time so escape sequences never span a
// newline (per-line operations downstream would break them).
func styleByLine(text string, style lipgloss.Style) string {
	parts := strings.Split(text, "\n")
	for i, p := range parts {
		if p != "" {
			parts[i] = style.Render(p)
		}
	}
	return strings.Join(parts, "\n")
}
