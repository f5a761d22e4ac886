package contentstate

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryo8073/report-gen-sub006/internal/q/clock"
)

// fakeStore is an in-memory Storage with fault injection.
type fakeStore struct {
	values map[string]string
	getErr error
	setErr error
	sets   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}}
}

func (f *fakeStore) Get(key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeStore) Set(key, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.sets++
	f.values[key] = value
	return nil
}

// fakeGuard records exit-guard registrations.
type fakeGuard struct {
	check      func() (string, bool)
	registered bool
}

func (g *fakeGuard) Register(check func() (string, bool)) func() {
	g.check = check
	g.registered = true
	return func() {
		g.check = nil
		g.registered = false
	}
}

func newTestState(t *testing.T) (*State, *fakeStore, *clock.Fake) {
	t.Helper()
	store := newFakeStore()
	clk := clock.NewFake(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	s := New(Options{Storage: store, Clock: clk})
	t.Cleanup(s.Destroy)
	return s, store, clk
}

func TestDirtyInvariant(t *testing.T) {
	s, _, _ := newTestState(t)

	s.SetOriginalContent("Hello world", nil)
	require.False(t, s.Dirty())
	require.Equal(t, "Hello world", s.EditedContent().Content) // seeded from original

	s.SetEditedContent("Hello brave world", nil)
	require.True(t, s.Dirty())

	s.SetEditedContent("Hello world", nil)
	require.False(t, s.Dirty())

	// Replacing the original re-derives the flag too.
	s.SetEditedContent("Hello brave world", nil)
	s.SetOriginalContent("Hello brave world", nil)
	require.False(t, s.Dirty())
}

func TestVersionMonotonic(t *testing.T) {
	s, _, _ := newTestState(t)

	last := s.State().Version
	bump := func() {
		t.Helper()
		v := s.State().Version
		require.Greater(t, v, last)
		last = v
	}

	s.SetOriginalContent("a", nil)
	bump()
	s.SetEditedContent("b", nil)
	bump()
	require.NoError(t, s.SetActiveTab(TabEditor))
	bump()
	s.Save()
	bump()
	s.Reset()
	bump()

	s.Clear()
	require.Equal(t, int64(1), s.State().Version)
}

func TestSaveAndResetSemantics(t *testing.T) {
	s, _, clk := newTestState(t)

	s.SetOriginalContent("Hello world", nil)
	s.SetEditedContent("Hello brave world", nil)
	require.True(t, s.Dirty())

	s.Save()
	require.False(t, s.Dirty())
	require.NotNil(t, s.State().LastSaved)
	require.Equal(t, clk.Now(), *s.State().LastSaved)

	s.SetEditedContent("Hello brave world again", nil)
	require.True(t, s.Dirty())

	s.Reset()
	require.Equal(t, "Hello world", s.EditedContent().Content)
	require.False(t, s.Dirty())
	require.Empty(t, s.EditedContent().Changes)
}

func TestSetActiveTabRejectsUnknown(t *testing.T) {
	s, _, _ := newTestState(t)

	require.NoError(t, s.SetActiveTab(TabPreview))
	before := s.State().Version

	err := s.SetActiveTab(Tab("bogus"))
	require.ErrorIs(t, err, ErrInvalidTab)
	require.Equal(t, TabPreview, s.ActiveTab())
	require.Equal(t, before, s.State().Version)
}

func TestContentForTab(t *testing.T) {
	s, _, _ := newTestState(t)
	s.SetOriginalContent("original", nil)
	s.SetEditedContent("edited", nil)

	assert.Equal(t, "original", s.ContentForTab(TabRaw))
	assert.Equal(t, "original", s.ContentForTab(TabPreview))
	assert.Equal(t, "edited", s.ContentForTab(TabEditor))
	assert.Equal(t, "edited", s.ContentForTab(TabComparison))
	assert.Equal(t, "original", s.ContentForTab(Tab("bogus"))) // documented fallback
}

func TestChangeLog(t *testing.T) {
	s, _, _ := newTestState(t)
	s.SetOriginalContent("abcd", nil)

	s.SetEditedContent("abcdef", nil) // length changed
	s.SetEditedContent("ghijkl", nil) // same length, different content
	s.SetEditedContent("ghijkl", nil) // identical: no record

	changes := s.EditedContent().Changes
	require.Len(t, changes, 2)
	require.Equal(t, "length", changes[0].Type)
	require.Equal(t, 4, changes[0].Old)
	require.Equal(t, 6, changes[0].New)
	require.Equal(t, "content", changes[1].Type)
}

func TestEventsOnEdit(t *testing.T) {
	s, _, _ := newTestState(t)
	s.SetOriginalContent("base", nil)

	var got []Event
	s.On(ChannelContentChange, func(ev Event) { got = append(got, ev) })
	s.On(ChannelStateChange, func(ev Event) { got = append(got, ev) })

	s.SetEditedContent("based", nil)
	require.Len(t, got, 2)
	cc, ok := got[0].(ContentChange)
	require.True(t, ok)
	require.Equal(t, "edited", cc.Type)
	require.True(t, cc.IsDirty)
	sc, ok := got[1].(StateChange)
	require.True(t, ok)
	require.Equal(t, "dirty", sc.Type)

	// No dirty transition on a second dirty edit.
	got = nil
	s.SetEditedContent("based!", nil)
	require.Len(t, got, 1)
}

func TestResetEventOrder(t *testing.T) {
	s, _, _ := newTestState(t)
	s.SetOriginalContent("base", nil)
	s.SetEditedContent("changed", nil)

	var order []string
	s.On(ChannelStateChange, func(ev Event) { order = append(order, "state:"+ev.(StateChange).Type) })
	s.On(ChannelContentChange, func(ev Event) { order = append(order, "content:"+ev.(ContentChange).Type) })

	s.Reset()
	require.Equal(t, []string{"state:reset", "content:reset"}, order)
}

func TestTabChangeEvent(t *testing.T) {
	s, _, _ := newTestState(t)

	var got []TabChange
	s.On(ChannelTabChange, func(ev Event) { got = append(got, ev.(TabChange)) })

	require.NoError(t, s.SetActiveTab(TabComparison))
	require.Equal(t, []TabChange{{From: TabRaw, To: TabComparison}}, got)
}

func TestListenerPanicIsolation(t *testing.T) {
	s, _, _ := newTestState(t)

	var errs []Error
	s.On(ChannelError, func(ev Event) { errs = append(errs, ev.(Error)) })

	secondRan := false
	s.On(ChannelContentChange, func(Event) { panic("listener blew up") })
	s.On(ChannelContentChange, func(Event) { secondRan = true })

	require.NotPanics(t, func() { s.SetOriginalContent("x", nil) })
	require.True(t, secondRan)
	require.Len(t, errs, 1)
	require.Equal(t, "listener", errs[0].Context)
}

func TestUnsubscribe(t *testing.T) {
	s, _, _ := newTestState(t)

	calls := 0
	off := s.On(ChannelContentChange, func(Event) { calls++ })
	s.SetOriginalContent("one", nil)
	off()
	s.SetOriginalContent("two", nil)
	require.Equal(t, 1, calls)
}

func TestPersistenceWriteThroughAndReload(t *testing.T) {
	store := newFakeStore()
	clk := clock.NewFake(time.Unix(1000, 0))

	s := New(Options{Storage: store, Clock: clk})
	s.SetOriginalContent("persisted original", nil)
	s.SetEditedContent("persisted edit", nil)
	require.NoError(t, s.SetActiveTab(TabEditor))
	version := s.State().Version
	s.Destroy()

	require.Greater(t, store.sets, 0)

	// A new session under the same key restores the snapshot and moves the
	// version strictly past the stored one.
	s2 := New(Options{Storage: store, Clock: clk})
	defer s2.Destroy()
	require.Equal(t, "persisted original", s2.OriginalContent().Content)
	require.Equal(t, "persisted edit", s2.EditedContent().Content)
	require.Equal(t, TabEditor, s2.ActiveTab())
	require.True(t, s2.Dirty())
	require.Greater(t, s2.State().Version, version)
}

func TestPersistedBlobCarriesStamp(t *testing.T) {
	s, store, clk := newTestState(t)
	s.SetOriginalContent("x", nil)

	var stored struct {
		PersistedAt time.Time `json:"persistedAt"`
	}
	require.NoError(t, json.Unmarshal([]byte(store.values[DefaultStorageKey]), &stored))
	require.Equal(t, clk.Now(), stored.PersistedAt)
}

func TestMalformedStoredSnapshotFallsBackToDefaults(t *testing.T) {
	store := newFakeStore()
	store.values[DefaultStorageKey] = "{not json"

	var s *State
	require.NotPanics(t, func() { s = New(Options{Storage: store}) })
	defer s.Destroy()

	require.Equal(t, TabRaw, s.ActiveTab())
	require.Equal(t, "", s.OriginalContent().Content)
}

func TestPersistenceFailureBecomesErrorEvent(t *testing.T) {
	s, store, _ := newTestState(t)

	var errs []Error
	s.On(ChannelError, func(ev Event) { errs = append(errs, ev.(Error)) })

	store.setErr = errors.New("disk full")
	require.NotPanics(t, func() { s.SetEditedContent("still works", nil) })

	require.Len(t, errs, 1)
	require.Equal(t, "persistence", errs[0].Context)
	require.Equal(t, "still works", s.EditedContent().Content)
}

func TestExportImportRoundTrip(t *testing.T) {
	s, _, _ := newTestState(t)
	s.SetOriginalContent("original doc", nil)
	s.SetEditedContent("edited doc", nil)

	blob, err := s.Export()
	require.NoError(t, err)

	s2, _, _ := newTestState(t)
	require.NoError(t, s2.Import(blob))
	require.Equal(t, "original doc", s2.OriginalContent().Content)
	require.Equal(t, "edited doc", s2.EditedContent().Content)
	require.Greater(t, s2.State().Version, s.State().Version)
}

func TestImportRejectsBlobWithoutState(t *testing.T) {
	s, _, _ := newTestState(t)
	s.SetOriginalContent("keep me", nil)
	before := s.State()

	require.ErrorIs(t, s.Import([]byte(`{}`)), ErrMalformedBackup)
	require.ErrorIs(t, s.Import([]byte(`not json`)), ErrMalformedBackup)

	after := s.State()
	require.Equal(t, before.Version, after.Version)
	require.Equal(t, before.Original.Content, after.Original.Content)
}

func TestAutoSaveOnlyWhenDirty(t *testing.T) {
	store := newFakeStore()
	clk := clock.NewFake(time.Unix(0, 0))
	s := New(Options{Storage: store, Clock: clk})
	defer s.Destroy()

	var saves []Save
	s.On(ChannelSave, func(ev Event) { saves = append(saves, ev.(Save)) })

	// Clean state: ticks pass without saving.
	clk.Advance(12 * time.Second)
	require.Empty(t, saves)

	s.SetOriginalContent("doc", nil)
	s.SetEditedContent("doc v2", nil)
	require.True(t, s.Dirty())

	clk.Advance(5 * time.Second)
	require.Len(t, saves, 1)
	require.False(t, s.Dirty())

	// Back to clean: the next tick is a no-op check.
	clk.Advance(5 * time.Second)
	require.Len(t, saves, 1)
}

func TestDestroyStopsAutoSave(t *testing.T) {
	store := newFakeStore()
	clk := clock.NewFake(time.Unix(0, 0))
	s := New(Options{Storage: store, Clock: clk})

	s.SetOriginalContent("doc", nil)
	s.SetEditedContent("doc v2", nil)

	var saves int
	s.On(ChannelSave, func(Event) { saves++ })

	s.Destroy()
	clk.Advance(time.Minute)
	require.Zero(t, saves)
	require.Zero(t, clk.PendingCount())
}

func TestExitGuard(t *testing.T) {
	guard := &fakeGuard{}
	clk := clock.NewFake(time.Unix(0, 0))
	s := New(Options{Clock: clk, ExitGuard: guard})

	require.True(t, guard.registered)

	_, block := guard.check()
	require.False(t, block)

	s.SetOriginalContent("doc", nil)
	s.SetEditedContent("doc v2", nil)
	msg, block := guard.check()
	require.True(t, block)
	require.NotEmpty(t, msg)

	s.Destroy()
	require.False(t, guard.registered)
}

func TestClearReturnsToZeroState(t *testing.T) {
	s, _, _ := newTestState(t)
	s.SetOriginalContent("doc", nil)
	s.SetEditedContent("doc v2", nil)
	require.NoError(t, s.SetActiveTab(TabComparison))

	s.Clear()
	snap := s.State()
	require.Equal(t, "", snap.Original.Content)
	require.Equal(t, "", snap.Edited.Content)
	require.Equal(t, TabRaw, snap.ActiveTab)
	require.False(t, snap.IsDirty)
	require.Equal(t, int64(1), snap.Version)
}
