package contentstate

import (
	"fmt"
	"sync"
	"time"

	"github.com/ryo8073/report-gen-sub006/internal/simplelogger"
)

// Channel names one of the event streams a State emits.
type Channel int

const (
	ChannelStateChange Channel = iota
	ChannelContentChange
	ChannelTabChange
	ChannelSave
	ChannelError
)

// Event is the tagged union of all payloads a State emits. Each payload type
// maps to exactly one Channel.
type Event interface {
	Channel() Channel
}

// StateChange reports a transition of the overall editing state.
// Type is one of "dirty", "clean", "reset".
type StateChange struct {
	Type string
}

func (StateChange) Channel() Channel { return ChannelStateChange }

// ContentChange reports that document content was replaced.
// Type is one of "original", "edited", "reset".
type ContentChange struct {
	Type    string
	Content string
	IsDirty bool
}

func (ContentChange) Channel() Channel { return ChannelContentChange }

// TabChange reports a successful active-tab switch.
type TabChange struct {
	From Tab
	To   Tab
}

func (TabChange) Channel() Channel { return ChannelTabChange }

// Save reports a completed save.
type Save struct {
	Timestamp       time.Time
	OriginalContent string
	EditedContent   string
	Version         int64
}

func (Save) Channel() Channel { return ChannelSave }

// Error reports a recovered fault. Context is the §7-style taxonomy member
// that produced it ("persistence", "loading", "listener").
type Error struct {
	Context string
	Err     error
}

func (Error) Channel() Channel { return ChannelError }

// Listener receives events for one channel.
type Listener func(Event)

// bus is a synchronous multi-subscriber dispatcher. Listeners for a given
// emission run in subscription order before the emit call returns. A listener
// that panics is recovered and reported on ChannelError; it never prevents the
// remaining listeners from running and never propagates into the mutator that
// triggered the emission.
type bus struct {
	mu        sync.Mutex
	nextID    int
	listeners map[Channel][]busEntry
}

type busEntry struct {
	id int
	fn Listener
}

func newBus() *bus {
	return &bus{listeners: make(map[Channel][]busEntry)}
}

func (b *bus) on(ch Channel, fn Listener) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.listeners[ch] = append(b.listeners[ch], busEntry{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		entries := b.listeners[ch]
		for i, e := range entries {
			if e.id == id {
				b.listeners[ch] = append(entries[:i], entries[i+1:]...)
				return
			}
		}
	}
}

func (b *bus) emit(ev Event) {
	// Snapshot so a listener that (un)subscribes doesn't disturb this dispatch.
	b.mu.Lock()
	entries := make([]busEntry, len(b.listeners[ev.Channel()]))
	copy(entries, b.listeners[ev.Channel()])
	b.mu.Unlock()

	for _, e := range entries {
		b.dispatchOne(ev, e.fn)
	}
}

func (b *bus) dispatchOne(ev Event, fn Listener) {
	defer func() {
		if r := recover(); r != nil {
			simplelogger.Log("contentstate: listener panicked on channel %d: %v", ev.Channel(), r)
			if ev.Channel() == ChannelError {
				// Never recurse: a panicking error listener is logged only.
				return
			}
			b.emit(Error{Context: "listener", Err: fmt.Errorf("listener panicked: %v", r)})
		}
	}()
	fn(ev)
}

func (b *bus) clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = make(map[Channel][]busEntry)
}
