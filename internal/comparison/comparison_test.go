package comparison

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ryo8073/report-gen-sub006/internal/diffengine"
)

func segmentsContain(segs []diffengine.Segment, target diffengine.Segment) bool {
	for _, s := range segs {
		if s == target {
			return true
		}
	}
	return false
}

func TestRevertInsert(t *testing.T) {
	original := "Hello world"
	edited := "Hello brave world"

	segs := diffengine.Diff(original, edited)
	var insert diffengine.Segment
	for _, s := range segs {
		if s.Kind == diffengine.KindInsert {
			insert = s
		}
	}
	require.Equal(t, "brave ", insert.Text)

	reverted, err := Revert(edited, insert)
	require.NoError(t, err)
	require.Equal(t, "Hello world", reverted)

	// Re-diffing no longer yields the reverted segment.
	require.False(t, segmentsContain(diffengine.Diff(original, reverted), insert))
}

func TestRevertDelete(t *testing.T) {
	original := "Hello brave world"
	edited := "Hello world"

	segs := diffengine.Diff(original, edited)
	var del diffengine.Segment
	for _, s := range segs {
		if s.Kind == diffengine.KindDelete {
			del = s
		}
	}
	require.Equal(t, "brave ", del.Text)

	reverted, err := Revert(edited, del)
	require.NoError(t, err)
	require.Equal(t, "Hello brave world", reverted)
	require.False(t, segmentsContain(diffengine.Diff(original, reverted), del))
}

func TestRevertRejectsEqualAndStale(t *testing.T) {
	_, err := Revert("anything", diffengine.Segment{Kind: diffengine.KindEqual, Text: "x"})
	require.ErrorIs(t, err, ErrNotRevertable)

	_, err = Revert("short", diffengine.Segment{Kind: diffengine.KindInsert, Text: "missing", EditedIndex: 0})
	require.ErrorIs(t, err, ErrStaleSegment)

	_, err = Revert("short", diffengine.Segment{Kind: diffengine.KindDelete, Text: "x", EditedIndex: 99})
	require.ErrorIs(t, err, ErrStaleSegment)
}

func TestSyncOffset(t *testing.T) {
	// Same geometry maps 1:1.
	require.Equal(t, 10, SyncOffset(10, 100, 100, 20))

	// Top and bottom map to top and bottom regardless of heights.
	require.Equal(t, 0, SyncOffset(0, 100, 60, 20))
	require.Equal(t, 40, SyncOffset(80, 100, 60, 20))

	// Midpoint maps proportionally.
	require.Equal(t, 20, SyncOffset(40, 100, 60, 20))

	// Nothing to scroll.
	require.Equal(t, 0, SyncOffset(5, 10, 100, 20))
	require.Equal(t, 0, SyncOffset(5, 100, 10, 20))

	// Overscroll clamps.
	require.Equal(t, 40, SyncOffset(500, 100, 60, 20))
}

func TestViewSelectionAndRevert(t *testing.T) {
	v := NewView(DefaultStyles())
	v.SetContent("one two three four", "one 2 three 4")

	require.Equal(t, 4, v.ChangeCount()) // delete/insert for "two", delete/insert for "four"

	first, ok := v.Selected()
	require.True(t, ok)
	require.Equal(t, diffengine.KindDelete, first.Kind)

	v.SelectNext()
	second, ok := v.Selected()
	require.True(t, ok)
	require.NotEqual(t, first, second)

	// Wrap all the way around.
	v.SelectNext()
	v.SelectNext()
	v.SelectNext()
	again, ok := v.Selected()
	require.True(t, ok)
	require.Equal(t, first, again)

	v.SelectPrev()
	last, ok := v.Selected()
	require.True(t, ok)
	require.Equal(t, diffengine.KindInsert, last.Kind)

	// Revert the selected insert ("4") and write back.
	reverted, err := v.RevertSelected()
	require.NoError(t, err)
	v.SetContent("one two three four", reverted)
	require.Equal(t, 3, v.ChangeCount())
}

func TestViewNoChanges(t *testing.T) {
	v := NewView(DefaultStyles())
	v.SetContent("same", "same")

	require.Zero(t, v.ChangeCount())
	_, ok := v.Selected()
	require.False(t, ok)

	_, err := v.RevertSelected()
	require.ErrorIs(t, err, ErrNotRevertable)

	v.SelectNext() // no-op, must not panic
	v.SelectPrev()
}

func TestViewLines(t *testing.T) {
	v := NewView(Styles{}) // zero styles: Render is identity, so lines stay comparable
	v.SetContent("line one\nline two\n", "line one\nline 2\nline three\n")

	left, right := v.Lines()
	require.Equal(t, strings.Split("line one\nline two\n", "\n"), left)
	require.Equal(t, strings.Split("line one\nline 2\nline three\n", "\n"), right)
}
