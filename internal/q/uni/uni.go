// Package uni measures and fits text for monospace terminal layout.
// Widths are computed per grapheme cluster, so combining sequences and
// multi-cell code points count correctly.
package uni

import (
	"strings"

	"github.com/clipperhouse/uax29/v2/graphemes"
	"github.com/mattn/go-runewidth"
)

// Options control width calculation.
//
// Currently only relevant for East Asian code points and their locale.
type Options struct {
	EastAsianWidth   bool // if true, treats certain East Asian code points as 2 wide (e.g., Chinese, Japanese, Korean). Use if the locale is one of CJK.
	TreatEmojiAsWide bool // Only considered if EastAsianWidth. If true, treats emoji as wide (2 columns).
}

// TextWidth returns the text width of str for monospace fonts in terminals. If opts is nil, locale is assumed to be non-East Asian.
func TextWidth(str string, opts *Options) int {
	return conditionFromOptions(opts).StringWidth(str)
}

// Truncate returns the longest prefix of str (in whole grapheme clusters) that
// fits in width cells, appending tail if anything was cut. tail's own width is
// reserved out of the budget when truncation occurs.
func Truncate(str string, width int, tail string, opts *Options) string {
	cond := conditionFromOptions(opts)
	if cond.StringWidth(str) <= width {
		return str
	}

	budget := width - cond.StringWidth(tail)
	if budget < 0 {
		budget = 0
	}

	var b strings.Builder
	used := 0
	iter := graphemes.FromString(str)
	for iter.Next() {
		g := iter.Value()
		w := cond.StringWidth(g)
		if used+w > budget {
			break
		}
		b.WriteString(g)
		used += w
	}
	b.WriteString(tail)
	return b.String()
}

// PadTo pads str with trailing spaces to exactly width cells, truncating first
// if str is too wide. The result always measures exactly width.
func PadTo(str string, width int, opts *Options) string {
	cond := conditionFromOptions(opts)
	w := cond.StringWidth(str)
	if w > width {
		str = Truncate(str, width, "", opts)
		w = cond.StringWidth(str)
	}
	if w < width {
		str += strings.Repeat(" ", width-w)
	}
	return str
}

func conditionFromOptions(opts *Options) *runewidth.Condition {
	cond := runewidth.NewCondition()
	cond.EastAsianWidth = false
	cond.StrictEmojiNeutral = true

	if opts == nil {
		return cond
	}

	cond.EastAsianWidth = opts.EastAsianWidth
	if opts.EastAsianWidth && opts.TreatEmojiAsWide {
		cond.StrictEmojiNeutral = false
	}

	return cond
}
