// Package contentstate is the single source of truth for a report editing
// session: the original/edited document pair, the dirty flag, the cheap change
// log, the active tab, persistence, and auto-save.
//
// All mutators are synchronous: state is updated, the full snapshot is written
// through to storage (best effort), and listeners run in subscription order
// before the mutator returns. Persistence and listener faults are recovered
// and reported on the error channel; Import is the only operation that returns
// an error the caller must handle as a failure of the operation itself.
package contentstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ryo8073/report-gen-sub006/internal/q/clock"
	"github.com/ryo8073/report-gen-sub006/internal/simplelogger"
)

// ErrInvalidTab is returned by SetActiveTab for a tab outside the four known
// representations. The state is left unchanged.
var ErrInvalidTab = errors.New("contentstate: invalid tab")

// ErrMalformedBackup is returned by Import when the blob lacks a state field
// or cannot be decoded. The state is left unchanged.
var ErrMalformedBackup = errors.New("contentstate: malformed backup")

// DefaultAutoSaveInterval is the auto-save period used when Options leaves it
// zero.
const DefaultAutoSaveInterval = 5 * time.Second

// DefaultStorageKey is the storage key used when Options leaves it empty.
const DefaultStorageKey = "reportgen.contentstate"

// Storage is the scoped key-value collaborator snapshots are written through
// to. Both methods are assumed fallible; State wraps every call and converts
// failures into error events.
type Storage interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// ExitGuard is a registration point intercepting session termination. The
// registered check is consulted at exit time; returning block=true asks the
// host to show message as a discard confirmation before terminating.
type ExitGuard interface {
	Register(check func() (message string, block bool)) (unregister func())
}

// Options configure New. Zero values get defaults; a nil Storage disables
// persistence and a nil ExitGuard disables the unload guard.
type Options struct {
	Storage          Storage
	StorageKey       string
	Clock            clock.Clock
	AutoSaveInterval time.Duration // <0 disables auto-save
	ExitGuard        ExitGuard
}

// State owns the canonical original/edited document pair for one editing
// session. Create with New, subscribe with On, tear down with Destroy.
type State struct {
	mu sync.Mutex

	snap Snapshot
	bus  *bus

	storage    Storage
	storageKey string
	clk        clock.Clock

	autoSaveInterval time.Duration
	autoSaveTimer    clock.Timer

	unregisterGuard func()
	destroyed       bool
}

// New constructs a State, loading a previously persisted snapshot if one
// exists under the storage key. A malformed stored value is recovered: the
// fault is reported on the error channel (and logged) and defaults are used.
// Construction never fails.
func New(opts Options) *State {
	s := &State{
		snap:             defaultSnapshot(),
		bus:              newBus(),
		storage:          opts.Storage,
		storageKey:       opts.StorageKey,
		clk:              opts.Clock,
		autoSaveInterval: opts.AutoSaveInterval,
	}
	if s.storageKey == "" {
		s.storageKey = DefaultStorageKey
	}
	if s.clk == nil {
		s.clk = clock.System()
	}
	if s.autoSaveInterval == 0 {
		s.autoSaveInterval = DefaultAutoSaveInterval
	}

	if loadEvents := s.loadPersisted(); len(loadEvents) > 0 {
		s.emitAll(loadEvents)
	}

	if opts.ExitGuard != nil {
		s.unregisterGuard = opts.ExitGuard.Register(s.exitCheck)
	}

	if s.autoSaveInterval > 0 {
		s.StartAutoSave()
	}

	return s
}

// On subscribes fn to ch and returns its unsubscribe function.
func (s *State) On(ch Channel, fn Listener) (unsubscribe func()) {
	return s.bus.on(ch, fn)
}

// SetOriginalContent replaces the original document. If the edited copy is
// still empty it is seeded from the new original. Emits a contentChange of
// type "original" and persists.
func (s *State) SetOriginalContent(content string, metadata map[string]any) {
	s.mu.Lock()
	now := s.clk.Now()
	s.snap.Original = DocumentVersion{Content: content, Timestamp: now, Metadata: metadata}
	if s.snap.Edited.Content == "" {
		s.snap.Edited = EditedVersion{Content: content, Timestamp: now}
	}
	s.snap.IsDirty = s.snap.Edited.Content != s.snap.Original.Content
	s.snap.Version++

	events := []Event{ContentChange{Type: "original", Content: content, IsDirty: s.snap.IsDirty}}
	events = s.persistLocked(events)
	s.mu.Unlock()

	s.emitAll(events)
}

// SetEditedContent replaces the edited copy, appends a change record from the
// cheap length/content check, recomputes the dirty flag, emits a contentChange
// of type "edited" (plus a stateChange if the dirty flag transitioned), and
// persists.
func (s *State) SetEditedContent(content string, formatting []FormatSpan) {
	s.mu.Lock()
	now := s.clk.Now()
	old := s.snap.Edited.Content

	switch {
	case len(old) != len(content):
		s.snap.Edited.Changes = append(s.snap.Edited.Changes, ChangeRecord{
			Type: "length", Old: len(old), New: len(content), Timestamp: now,
		})
	case old != content:
		s.snap.Edited.Changes = append(s.snap.Edited.Changes, ChangeRecord{
			Type: "content", Timestamp: now,
		})
	}

	s.snap.Edited.Content = content
	s.snap.Edited.Timestamp = now
	s.snap.Edited.Formatting = formatting

	wasDirty := s.snap.IsDirty
	s.snap.IsDirty = content != s.snap.Original.Content
	s.snap.Version++

	events := []Event{ContentChange{Type: "edited", Content: content, IsDirty: s.snap.IsDirty}}
	if wasDirty != s.snap.IsDirty {
		kind := "clean"
		if s.snap.IsDirty {
			kind = "dirty"
		}
		events = append(events, StateChange{Type: kind})
	}
	events = s.persistLocked(events)
	s.mu.Unlock()

	s.emitAll(events)
}

// SetActiveTab switches the active tab. An unknown tab name is rejected with
// ErrInvalidTab and the state is unchanged. On success a tabChange is emitted
// and the snapshot persisted.
func (s *State) SetActiveTab(tab Tab) error {
	if !ValidTab(tab) {
		return fmt.Errorf("%w: %q", ErrInvalidTab, string(tab))
	}

	s.mu.Lock()
	from := s.snap.ActiveTab
	s.snap.ActiveTab = tab
	s.snap.Version++

	events := []Event{TabChange{From: from, To: tab}}
	events = s.persistLocked(events)
	s.mu.Unlock()

	s.emitAll(events)
	return nil
}

// Save records a save point: lastSaved is set to now and the dirty flag is
// cleared. Emits a save event and persists.
func (s *State) Save() {
	s.mu.Lock()
	now := s.clk.Now()
	s.snap.LastSaved = &now
	s.snap.IsDirty = false
	s.snap.Version++

	events := []Event{Save{
		Timestamp:       now,
		OriginalContent: s.snap.Original.Content,
		EditedContent:   s.snap.Edited.Content,
		Version:         s.snap.Version,
	}}
	events = s.persistLocked(events)
	s.mu.Unlock()

	s.emitAll(events)
}

// Reset discards edits: the edited copy is re-seeded from the original with a
// fresh timestamp and an empty change log, and the dirty flag clears. Emits a
// stateChange of type "reset" followed by a contentChange of type "reset".
func (s *State) Reset() {
	s.mu.Lock()
	now := s.clk.Now()
	s.snap.Edited = EditedVersion{Content: s.snap.Original.Content, Timestamp: now}
	s.snap.IsDirty = false
	s.snap.Version++

	events := []Event{
		StateChange{Type: "reset"},
		ContentChange{Type: "reset", Content: s.snap.Edited.Content, IsDirty: false},
	}
	events = s.persistLocked(events)
	s.mu.Unlock()

	s.emitAll(events)
}

// Clear returns the instance to its zero state: both versions empty, tab raw,
// version back to 1. Intended for explicit session teardown or a new document,
// not ordinary navigation.
func (s *State) Clear() {
	s.mu.Lock()
	s.snap = defaultSnapshot()
	events := s.persistLocked(nil)
	s.mu.Unlock()

	s.emitAll(events)
}

// State returns a copy of the full snapshot.
func (s *State) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySnapshot(s.snap)
}

// OriginalContent returns the original document version.
func (s *State) OriginalContent() DocumentVersion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyDocumentVersion(s.snap.Original)
}

// EditedContent returns the edited working copy.
func (s *State) EditedContent() EditedVersion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyEditedVersion(s.snap.Edited)
}

// ActiveTab returns the active tab.
func (s *State) ActiveTab() Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.ActiveTab
}

// Dirty reports whether the edited copy differs from the original.
func (s *State) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.IsDirty
}

// ContentForTab returns the content a tab renders from: raw and preview render
// the original; editor and comparison work on the edited copy. An unknown tab
// falls back to the original; that is the documented fallback, not an error.
func (s *State) ContentForTab(tab Tab) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch tab {
	case TabEditor, TabComparison:
		return s.snap.Edited.Content
	default:
		return s.snap.Original.Content
	}
}

// Export serializes the full state for backup.
func (s *State) Export() ([]byte, error) {
	s.mu.Lock()
	snap := copySnapshot(s.snap)
	now := s.clk.Now()
	s.mu.Unlock()

	return json.Marshal(Backup{State: &snap, ExportedAt: now})
}

// Import restores state from a backup blob produced by Export. It is the one
// all-or-nothing operation: a blob without a state field (or one that does not
// decode) returns ErrMalformedBackup and leaves the state untouched. On
// success the version counter takes max(current, imported)+1.
func (s *State) Import(blob []byte) error {
	var backup struct {
		State *json.RawMessage `json:"state"`
	}
	if err := json.Unmarshal(blob, &backup); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedBackup, err)
	}
	if backup.State == nil {
		return fmt.Errorf("%w: missing state field", ErrMalformedBackup)
	}
	var snap Snapshot
	if err := json.Unmarshal(*backup.State, &snap); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedBackup, err)
	}
	if !ValidTab(snap.ActiveTab) {
		snap.ActiveTab = TabRaw
	}

	s.mu.Lock()
	version := s.snap.Version
	if snap.Version > version {
		version = snap.Version
	}
	s.snap = snap
	s.snap.Version = version + 1
	events := s.persistLocked(nil)
	s.mu.Unlock()

	s.emitAll(events)
	return nil
}

// StartAutoSave (re)starts the auto-save timer. Any previously scheduled tick
// is stopped first, so at most one interval chain is live. Each tick saves
// only if the state is still dirty when it fires.
func (s *State) StartAutoSave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startAutoSaveLocked()
}

func (s *State) startAutoSaveLocked() {
	if s.destroyed || s.autoSaveInterval <= 0 {
		return
	}
	if s.autoSaveTimer != nil {
		s.autoSaveTimer.Stop()
	}
	s.autoSaveTimer = s.clk.AfterFunc(s.autoSaveInterval, s.autoSaveTick)
}

func (s *State) autoSaveTick() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	dirty := s.snap.IsDirty
	s.mu.Unlock()

	// Re-validate: a mutation may have cleaned the state after this tick was
	// scheduled, in which case the tick is a no-op check.
	if dirty {
		s.Save()
	}

	s.mu.Lock()
	s.startAutoSaveLocked()
	s.mu.Unlock()
}

// Destroy tears the session down: the auto-save timer can never fire again,
// the exit guard is unregistered, and every listener bucket is dropped, all
// synchronously. In-flight persistence effects are not awaited; they are
// harmless once listeners and timers are gone.
func (s *State) Destroy() {
	s.mu.Lock()
	s.destroyed = true
	if s.autoSaveTimer != nil {
		s.autoSaveTimer.Stop()
		s.autoSaveTimer = nil
	}
	unregister := s.unregisterGuard
	s.unregisterGuard = nil
	s.mu.Unlock()

	if unregister != nil {
		unregister()
	}
	s.bus.clear()
}

// exitCheck is the exit-guard hook: while dirty, session termination should be
// confirmed with the returned message.
func (s *State) exitCheck() (string, bool) {
	if s.Dirty() {
		return "You have unsaved changes. Discard them and exit?", true
	}
	return "", false
}

// persistLocked serializes the snapshot and writes it through to storage.
// Failures never escape: they are logged and appended to events as an error
// event for subscribers. Must be called with s.mu held.
func (s *State) persistLocked(events []Event) []Event {
	if s.storage == nil {
		return events
	}
	blob, err := json.Marshal(persistedSnapshot{Snapshot: s.snap, PersistedAt: s.clk.Now()})
	if err == nil {
		err = s.storage.Set(s.storageKey, string(blob))
	}
	if err != nil {
		simplelogger.Log("contentstate: persist %q failed: %v", s.storageKey, err)
		events = append(events, Error{Context: "persistence", Err: err})
	}
	return events
}

// loadPersisted merges a stored snapshot over defaults and bumps the version
// counter past the stored one. Absent key means an empty session; a malformed
// value is reported and defaults win. Called before listeners can subscribe,
// so returned events matter mostly to tests and logs.
func (s *State) loadPersisted() []Event {
	if s.storage == nil {
		return nil
	}
	value, ok, err := s.storage.Get(s.storageKey)
	if err != nil {
		simplelogger.Log("contentstate: load %q failed: %v", s.storageKey, err)
		return []Event{Error{Context: "persistence", Err: err}}
	}
	if !ok {
		return nil
	}

	var stored persistedSnapshot
	if err := json.Unmarshal([]byte(value), &stored); err != nil {
		simplelogger.Log("contentstate: stored snapshot %q is malformed: %v", s.storageKey, err)
		return []Event{Error{Context: "loading", Err: err}}
	}

	if !ValidTab(stored.ActiveTab) {
		stored.ActiveTab = TabRaw
	}
	version := s.snap.Version
	if stored.Version > version {
		version = stored.Version
	}
	s.snap = stored.Snapshot
	s.snap.Version = version + 1
	return nil
}

func (s *State) emitAll(events []Event) {
	for _, ev := range events {
		s.bus.emit(ev)
	}
}

func copySnapshot(snap Snapshot) Snapshot {
	out := snap
	out.Original = copyDocumentVersion(snap.Original)
	out.Edited = copyEditedVersion(snap.Edited)
	if snap.LastSaved != nil {
		t := *snap.LastSaved
		out.LastSaved = &t
	}
	return out
}

func copyDocumentVersion(v DocumentVersion) DocumentVersion {
	out := v
	if v.Metadata != nil {
		out.Metadata = make(map[string]any, len(v.Metadata))
		for k, val := range v.Metadata {
			out.Metadata[k] = val
		}
	}
	return out
}

func copyEditedVersion(v EditedVersion) EditedVersion {
	out := v
	if v.Formatting != nil {
		out.Formatting = append([]FormatSpan(nil), v.Formatting...)
	}
	if v.Changes != nil {
		out.Changes = append([]ChangeRecord(nil), v.Changes...)
	}
	return out
}
