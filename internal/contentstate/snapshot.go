package contentstate

import "time"

// Tab identifies one of the four linked document representations.
type Tab string

const (
	TabRaw        Tab = "raw"
	TabPreview    Tab = "preview"
	TabEditor     Tab = "editor"
	TabComparison Tab = "comparison"
)

// ValidTab reports whether t names one of the four representations.
func ValidTab(t Tab) bool {
	switch t {
	case TabRaw, TabPreview, TabEditor, TabComparison:
		return true
	default:
		return false
	}
}

// DocumentVersion is one version of the document. Two exist at all times:
// the immutable original (per generation cycle) and the mutable edited copy.
type DocumentVersion struct {
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// FormatSpan is a formatting annotation over a byte range of the edited copy.
type FormatSpan struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Style string `json:"style"`
}

// ChangeRecord is one entry of the cheap dirty-tracking log, appended whenever
// the edited content is replaced. This is deliberately NOT the full diff; the
// diffengine package computes that on demand for the comparison view.
type ChangeRecord struct {
	Type      string    `json:"type"` // "length" or "content"
	Old       int       `json:"old,omitempty"`
	New       int       `json:"new,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EditedVersion is the mutable working copy plus its formatting and change log.
type EditedVersion struct {
	Content    string         `json:"content"`
	Timestamp  time.Time      `json:"timestamp"`
	Formatting []FormatSpan   `json:"formatting,omitempty"`
	Changes    []ChangeRecord `json:"changes,omitempty"`
}

// Snapshot is the full serializable state of a State.
//
// Version increments on every mutating operation and is strictly increasing
// for the lifetime of a State, including across persistence reloads (a reload
// takes max(local, stored)+1).
type Snapshot struct {
	Original  DocumentVersion `json:"original"`
	Edited    EditedVersion   `json:"edited"`
	ActiveTab Tab             `json:"activeTab"`
	IsDirty   bool            `json:"isDirty"`
	LastSaved *time.Time      `json:"lastSaved"`
	Version   int64           `json:"version"`
}

// persistedSnapshot is the storage layout: the snapshot plus a write stamp.
type persistedSnapshot struct {
	Snapshot
	PersistedAt time.Time `json:"persistedAt"`
}

// Backup is the export/import blob layout. State must be present for an
// import to be accepted.
type Backup struct {
	State      *Snapshot `json:"state"`
	ExportedAt time.Time `json:"exportedAt"`
}

func defaultSnapshot() Snapshot {
	return Snapshot{
		ActiveTab: TabRaw,
		Version:   1,
	}
}
