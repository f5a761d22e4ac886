package tui

import (
	"sync"
	"time"

	"github.com/ryo8073/report-gen-sub006/internal/viewcoord"
)

// noticeBoard holds the single user-visible notice. A new notice replaces the
// current one; transient notices are dismissed by the program after their
// duration, persistent ones stay until replaced or cleared. Safe for
// concurrent use (retry timers and auto-save report errors off the event
// loop).
type noticeBoard struct {
	mu       sync.Mutex
	seq      int
	kind     viewcoord.NoticeKind
	message  string
	duration time.Duration
	visible  bool
}

func (b *noticeBoard) ShowNotice(kind viewcoord.NoticeKind, message string, duration time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	b.kind = kind
	b.message = message
	b.duration = duration
	b.visible = true
}

// current returns the visible notice, if any, with its sequence number.
func (b *noticeBoard) current() (seq int, kind viewcoord.NoticeKind, message string, duration time.Duration, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.visible {
		return 0, "", "", 0, false
	}
	return b.seq, b.kind, b.message, b.duration, true
}

// dismiss clears the notice only if it is still the one identified by seq.
func (b *noticeBoard) dismiss(seq int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.visible && b.seq == seq {
		b.visible = false
	}
}

func (b *noticeBoard) clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.visible = false
}
