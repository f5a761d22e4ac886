// Package viewcoord orchestrates which of the four document representations
// is visible and underwrites every view switch with a recovery policy:
// bounded, linearly backed-off retries per distinct failure, immediate
// degradation of the visible tab to raw, and a persistent manual-recovery
// prompt once retries for a failure are exhausted.
//
// The raw tab is both the initial state and the terminal fallback: rendering
// verbatim text is assumed to never fail.
package viewcoord

import (
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/ryo8073/report-gen-sub006/internal/contentstate"
	"github.com/ryo8073/report-gen-sub006/internal/q/clock"
	"github.com/ryo8073/report-gen-sub006/internal/simplelogger"
)

// RenderTarget renders content for a tab. Implementations are swappable per
// tab (verbatim text, markdown preview, rich-text surface, comparison view).
// A panic out of Render is treated the same as a returned error.
type RenderTarget interface {
	Render(tab contentstate.Tab, content string) error
}

// NoticeKind classifies a user-visible notice.
type NoticeKind string

const (
	NoticeFallback NoticeKind = "fallback" // a tab failed; raw is showing instead
	NoticeRecovery NoticeKind = "recovery" // retries exhausted; manual recovery needed
	NoticeError    NoticeKind = "error"    // a global fault occurred
	NoticeInfo     NoticeKind = "info"     // neutral status (saves, exports)
)

// Notifier is the render-target capability for user-visible notices. Showing
// a notice replaces any currently visible one (notices never stack). A
// duration <= 0 means the notice is persistent until replaced.
type Notifier interface {
	ShowNotice(kind NoticeKind, message string, duration time.Duration)
}

// GlobalError is an uncaught fault from outside the tab-switching path (a
// runtime panic hook, an unhandled async failure, a resource load failure).
type GlobalError struct {
	Type      string // "javascript", "promise", "resource", ...
	Message   string
	Component string // empty means global
}

// ErrorSource delivers global errors. On a non-browser target this maps to
// the runtime's top-level exception/rejection hooks.
type ErrorSource interface {
	Subscribe(handler func(GlobalError)) (unsubscribe func())
}

// RecoveryRecord tracks retry bookkeeping for one distinct failure signature.
type RecoveryRecord struct {
	ErrorKey     string
	Type         string
	Count        int
	LastOccurred time.Time
	RetriesUsed  int
}

// Defaults for Options left zero.
const (
	DefaultMaxRetries     = 3
	DefaultRetryDelay     = 500 * time.Millisecond
	DefaultNoticeDuration = 10 * time.Second
)

// Options configure New. State and Target are required.
type Options struct {
	State    *contentstate.State
	Target   RenderTarget
	Notifier Notifier
	Clock    clock.Clock

	// ErrorSource, when set, folds global faults into the same recovery
	// bookkeeping and notice discipline as tab failures.
	ErrorSource ErrorSource

	// MaxRetries caps total consecutive attempts for one failure signature:
	// the initial attempt plus MaxRetries-1 scheduled retries.
	MaxRetries     int
	RetryDelay     time.Duration
	NoticeDuration time.Duration
}

// Coordinator is the tab state machine plus its error boundary.
type Coordinator struct {
	state    *contentstate.State
	target   RenderTarget
	notifier Notifier
	clk      clock.Clock

	maxRetries     int
	retryDelay     time.Duration
	noticeDuration time.Duration

	mu          sync.Mutex
	records     map[string]*RecoveryRecord
	promptShown map[string]bool
	pending     map[*pendingRetry]struct{}
	destroyed   bool

	unsubscribeErrors func()
}

type pendingRetry struct {
	timer clock.Timer
}

// New constructs a Coordinator and, if an ErrorSource is configured,
// subscribes to it.
func New(opts Options) *Coordinator {
	c := &Coordinator{
		state:          opts.State,
		target:         opts.Target,
		notifier:       opts.Notifier,
		clk:            opts.Clock,
		maxRetries:     opts.MaxRetries,
		retryDelay:     opts.RetryDelay,
		noticeDuration: opts.NoticeDuration,
		records:        make(map[string]*RecoveryRecord),
		promptShown:    make(map[string]bool),
		pending:        make(map[*pendingRetry]struct{}),
	}
	if c.clk == nil {
		c.clk = clock.System()
	}
	if c.maxRetries == 0 {
		c.maxRetries = DefaultMaxRetries
	}
	if c.retryDelay == 0 {
		c.retryDelay = DefaultRetryDelay
	}
	if c.noticeDuration == 0 {
		c.noticeDuration = DefaultNoticeDuration
	}
	if opts.ErrorSource != nil {
		c.unsubscribeErrors = opts.ErrorSource.Subscribe(c.HandleGlobalError)
	}
	return c
}

// SwitchTab attempts to make tab the active representation. On render success
// the content state's active tab is updated. On failure the coordinator
// records the fault, schedules a bounded retry, degrades the visible tab to
// raw, and returns the render error (the caller may ignore it; recovery is
// already underway).
func (c *Coordinator) SwitchTab(tab contentstate.Tab) error {
	if !contentstate.ValidTab(tab) {
		return fmt.Errorf("%w: %q", contentstate.ErrInvalidTab, string(tab))
	}
	return c.attempt(tab, false)
}

// ReportSwitchFailure feeds an externally detected switch failure (a view
// that failed after the render call returned) into the same recovery path.
func (c *Coordinator) ReportSwitchFailure(tab contentstate.Tab, err error) {
	c.handleTabFailure(tab, err)
}

// HandleGlobalError folds an uncaught fault into recovery bookkeeping and
// surfaces a transient notice. Notices never stack; a new one replaces the
// old.
func (c *Coordinator) HandleGlobalError(ge GlobalError) {
	component := ge.Component
	if component == "" {
		component = "global"
	}
	key := errorKey(ge.Type, ge.Message, component)

	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	rec := c.recordLocked(key, ge.Type)
	rec.Count++
	rec.LastOccurred = c.clk.Now()
	c.mu.Unlock()

	simplelogger.Log("viewcoord: global %s error in %s: %s", ge.Type, component, ge.Message)
	if c.notifier != nil {
		c.notifier.ShowNotice(NoticeError, fmt.Sprintf("Error in %s: %s", component, ge.Message), c.noticeDuration)
	}
}

// Records returns a copy of all recovery records, ordered by error key.
func (c *Coordinator) Records() []RecoveryRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]RecoveryRecord, 0, len(c.records))
	for _, rec := range c.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ErrorKey < out[j].ErrorKey })
	return out
}

// Destroy cancels pending retries and unsubscribes from the error source. No
// retry can fire after Destroy returns.
func (c *Coordinator) Destroy() {
	c.mu.Lock()
	c.destroyed = true
	for p := range c.pending {
		p.timer.Stop()
	}
	c.pending = make(map[*pendingRetry]struct{})
	unsubscribe := c.unsubscribeErrors
	c.unsubscribeErrors = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// attempt is one render attempt for tab. isRetry marks attempts fired from the
// retry timer, which never re-degrade or re-notify (the visible tab already
// fell back when the failure was first seen).
func (c *Coordinator) attempt(tab contentstate.Tab, isRetry bool) error {
	content := c.state.ContentForTab(tab)

	err := c.safeRender(tab, content)
	if err == nil {
		return c.state.SetActiveTab(tab)
	}

	simplelogger.Log("viewcoord: render %s failed: %v", tab, err)
	c.recordFailure(tab, err)
	if !isRetry {
		c.degrade(tab)
	}
	return err
}

// handleTabFailure is the shared failure path for externally reported
// failures.
func (c *Coordinator) handleTabFailure(tab contentstate.Tab, err error) {
	c.recordFailure(tab, err)
	c.degrade(tab)
}

// recordFailure books the failure and either schedules the next retry with
// linear backoff or, when attempts for this signature are exhausted, shows
// the persistent manual-recovery prompt exactly once.
func (c *Coordinator) recordFailure(tab contentstate.Tab, err error) {
	key := errorKey("tab-switch", err.Error(), string(tab))

	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	rec := c.recordLocked(key, "tab-switch")
	rec.Count++
	rec.LastOccurred = c.clk.Now()

	if rec.RetriesUsed+1 < c.maxRetries {
		rec.RetriesUsed++
		delay := c.retryDelay * time.Duration(rec.RetriesUsed)
		c.scheduleRetryLocked(tab, delay)
		c.mu.Unlock()
		return
	}

	exhaustedPromptDue := !c.promptShown[key]
	c.promptShown[key] = true
	c.mu.Unlock()

	if exhaustedPromptDue && c.notifier != nil {
		c.notifier.ShowNotice(NoticeRecovery,
			fmt.Sprintf("The %s view keeps failing. Reload the session to recover.", tab), 0)
	}
}

func (c *Coordinator) scheduleRetryLocked(tab contentstate.Tab, delay time.Duration) {
	p := &pendingRetry{}
	p.timer = c.clk.AfterFunc(delay, func() {
		c.mu.Lock()
		delete(c.pending, p)
		destroyed := c.destroyed
		c.mu.Unlock()
		if destroyed {
			return
		}
		// Re-validate: a later switch may have landed this tab already.
		if c.state.ActiveTab() == tab {
			return
		}
		_ = c.attempt(tab, true)
	})
	c.pending[p] = struct{}{}
}

// degrade forces the visible tab back to raw and surfaces a transient notice
// naming the failed tab. Requests already targeting raw have nowhere to fall;
// they only go through retry bookkeeping.
func (c *Coordinator) degrade(tab contentstate.Tab) {
	if tab == contentstate.TabRaw {
		return
	}
	_ = c.state.SetActiveTab(contentstate.TabRaw)
	_ = c.safeRender(contentstate.TabRaw, c.state.ContentForTab(contentstate.TabRaw))
	if c.notifier != nil {
		c.notifier.ShowNotice(NoticeFallback,
			fmt.Sprintf("The %s view failed to render; showing raw content.", tab), c.noticeDuration)
	}
}

// safeRender converts a panicking render into an ordinary error.
func (c *Coordinator) safeRender(tab contentstate.Tab, content string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render %s panicked: %v", tab, r)
		}
	}()
	return c.target.Render(tab, content)
}

func (c *Coordinator) recordLocked(key, errType string) *RecoveryRecord {
	rec, ok := c.records[key]
	if !ok {
		rec = &RecoveryRecord{ErrorKey: key, Type: errType}
		c.records[key] = rec
	}
	return rec
}

// errorKey returns the deterministic signature hash for a distinct failure.
func errorKey(errType, message, component string) string {
	h := fnv.New64a()
	h.Write([]byte(errType))
	h.Write([]byte{0})
	h.Write([]byte(message))
	h.Write([]byte{0})
	h.Write([]byte(component))
	return fmt.Sprintf("%016x", h.Sum64())
}
