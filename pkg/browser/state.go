// Package browser holds the application state shared by the CLI and the web
// server: the loaded patch sheets and installer rows, the active sheet and
// per-feed status, plus the controller that reloads them.
package browser

import (
	"sync"
	"time"

	"github.com/tsanders/patchbrowser/pkg/patch"
	"github.com/tsanders/patchbrowser/pkg/software"
)

// FeedStatus describes the last load of one feed.
type FeedStatus struct {
	Loading  bool      `json:"loading"`
	Message  string    `json:"message,omitempty"`
	Error    string    `json:"error,omitempty"`
	Rows     int       `json:"rows"`
	LoadedAt time.Time `json:"loadedAt,omitempty"`
}

// State owns the fetched data. Loaded data is replaced wholesale and never
// mutated in place, so values returned by the getters can be read without
// holding the lock.
type State struct {
	mu          sync.RWMutex
	sheets      patch.Sheets
	activeSheet string
	software    []software.Row
	status      map[string]FeedStatus
}

// NewState returns a State holding an empty unscoped sheet.
func NewState() *State {
	return &State{
		sheets:      patch.NewSheets(),
		activeSheet: patch.AllSheet,
		status:      map[string]FeedStatus{},
	}
}

// SetSheets replaces the patch sheets. The active sheet is kept when it
// still exists and otherwise falls back to the unscoped sheet.
func (s *State) SetSheets(sheets patch.Sheets) {
	if sheets == nil {
		sheets = patch.NewSheets()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets = sheets
	s.activeSheet = sheets.ResolveKey(s.activeSheet)
}

// Sheets returns the current patch sheets.
func (s *State) Sheets() patch.Sheets {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sheets
}

// ActiveSheet returns the key of the sheet being viewed.
func (s *State) ActiveSheet() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeSheet
}

// SelectSheet makes key the active sheet, falling back as SetSheets does,
// and returns the key actually selected.
func (s *State) SelectSheet(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeSheet = s.sheets.ResolveKey(key)
	return s.activeSheet
}

// SetSoftware replaces the installer rows.
func (s *State) SetSoftware(rows []software.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.software = rows
}

// Software returns the installer rows.
func (s *State) Software() []software.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.software
}

// SetStatus records the status of a feed.
func (s *State) SetStatus(feed string, st FeedStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[feed] = st
}

// Status returns the status of a feed.
func (s *State) Status(feed string) FeedStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status[feed]
}

// Statuses returns a copy of every feed status.
func (s *State) Statuses() map[string]FeedStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]FeedStatus, len(s.status))
	for k, v := range s.status {
		out[k] = v
	}
	return out
}
