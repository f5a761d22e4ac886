package uni

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTextWidth(t *testing.T) {
	require.Equal(t, 0, TextWidth("", nil))
	require.Equal(t, 5, TextWidth("hello", nil))
	require.Equal(t, 4, TextWidth("日本", nil)) // CJK ideographs are always wide
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "hello", Truncate("hello", 10, "…", nil))
	require.Equal(t, "hel…", Truncate("hello world", 4, "…", nil))
	require.Equal(t, "hell", Truncate("hello", 4, "", nil))

	// A wide cluster that doesn't fit is dropped entirely, never split.
	require.Equal(t, "日…", Truncate("日本語", 4, "…", nil))
}

func TestPadTo(t *testing.T) {
	require.Equal(t, "ab   ", PadTo("ab", 5, nil))
	require.Equal(t, "abcde", PadTo("abcdefg", 5, nil))
	require.Equal(t, 5, TextWidth(PadTo("日本語", 5, nil), nil))
}
