package browser

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tsanders/patchbrowser/pkg/feed"
	"github.com/tsanders/patchbrowser/pkg/patch"
	"github.com/tsanders/patchbrowser/pkg/software"
)

// MockPatchSource is a mock implementation of PatchSource
type MockPatchSource struct {
	mock.Mock
}

func (m *MockPatchSource) Load(ctx context.Context, force bool, begin func(), apply func(patch.Sheets)) error {
	args := m.Called(ctx, force, begin, apply)
	return args.Error(0)
}

// MockSoftwareSource is a mock implementation of SoftwareSource
type MockSoftwareSource struct {
	mock.Mock
}

func (m *MockSoftwareSource) Load(ctx context.Context) ([]software.Row, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]software.Row)
	return rows, args.Error(1)
}

func testSheets(t *testing.T) patch.Sheets {
	t.Helper()
	sheets, err := patch.Normalize([]byte(`[
		{"Name":"a","Products":"Portal","version":"11.2"},
		{"Name":"b","Products":"ArcGIS Server","version":"11.1"}
	]`))
	require.NoError(t, err)
	return sheets
}

// applying returns a Run func that starts the load and hands sheets to the
// loader's apply callback.
func applying(sheets patch.Sheets) func(mock.Arguments) {
	return func(args mock.Arguments) {
		args.Get(2).(func())()
		args.Get(3).(func(patch.Sheets))(sheets)
	}
}

func TestState_Defaults(t *testing.T) {
	s := NewState()
	assert.Equal(t, patch.AllSheet, s.ActiveSheet())
	assert.Equal(t, patch.NewSheets(), s.Sheets())
	assert.Empty(t, s.Software())
	assert.Empty(t, s.Statuses())
}

func TestState_ActiveSheetReconciled(t *testing.T) {
	s := NewState()
	s.SetSheets(testSheets(t))

	assert.Equal(t, "v11_2", s.SelectSheet("v11_2"))
	assert.Equal(t, patch.AllSheet, s.SelectSheet("v9_9"))

	s.SelectSheet("v11_1")
	s.SetSheets(testSheets(t))
	assert.Equal(t, "v11_1", s.ActiveSheet(), "kept when still present")

	s.SetSheets(patch.NewSheets())
	assert.Equal(t, patch.AllSheet, s.ActiveSheet())

	s.SetSheets(nil)
	assert.NotNil(t, s.Sheets())
}

func TestState_StatusesCopy(t *testing.T) {
	s := NewState()
	s.SetStatus(feed.Patches, FeedStatus{Rows: 3})
	got := s.Statuses()
	got[feed.Patches] = FeedStatus{}
	assert.Equal(t, 3, s.Status(feed.Patches).Rows)
}

func TestController_ReloadPatches(t *testing.T) {
	sheets := testSheets(t)
	src := new(MockPatchSource)
	src.On("Load", mock.Anything, true, mock.Anything, mock.Anything).Run(applying(sheets)).Return(nil)

	c := NewController(nil, src, nil, nil)
	c.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	var events []Event
	c.Subscribe(func(ev Event) { events = append(events, ev) })

	require.NoError(t, c.ReloadPatches(context.Background(), true))

	assert.Equal(t, sheets, c.State().Sheets())
	st := c.State().Status(feed.Patches)
	assert.False(t, st.Loading)
	assert.Equal(t, 2, st.Rows)
	assert.Equal(t, c.now(), st.LoadedAt)
	assert.Empty(t, st.Error)
	assert.Equal(t, []Event{{Type: EventReloaded, Feed: feed.Patches, Rows: 2}}, events)
}

func TestController_ReloadPatchesFailureKeepsData(t *testing.T) {
	sheets := testSheets(t)
	src := new(MockPatchSource)
	src.On("Load", mock.Anything, true, mock.Anything, mock.Anything).Run(applying(sheets)).Return(nil).Once()
	src.On("Load", mock.Anything, true, mock.Anything, mock.Anything).
		Return(&feed.StatusError{URL: "x", StatusCode: 500}).Once()

	c := NewController(NewState(), src, nil, nil)
	var events []Event
	c.Subscribe(func(ev Event) { events = append(events, ev) })

	require.NoError(t, c.ReloadPatches(context.Background(), true))
	err := c.ReloadPatches(context.Background(), true)
	require.Error(t, err)

	assert.Equal(t, sheets, c.State().Sheets(), "previous sheets survive a failed load")
	st := c.State().Status(feed.Patches)
	assert.Equal(t, "Error loading patches: HTTP 500 fetching x", st.Message)
	assert.Equal(t, 2, st.Rows)
	require.Len(t, events, 2)
	assert.Equal(t, EventError, events[1].Type)
}

func TestController_ReloadPatchesDebouncedAndStale(t *testing.T) {
	src := new(MockPatchSource)
	src.On("Load", mock.Anything, false, mock.Anything, mock.Anything).Return(feed.ErrDebounced).Once()
	src.On("Load", mock.Anything, false, mock.Anything, mock.Anything).Return(feed.ErrStale).Once()

	state := NewState()
	state.SetStatus(feed.Patches, FeedStatus{Rows: 7})
	c := NewController(state, src, nil, nil)
	var events []Event
	c.Subscribe(func(ev Event) { events = append(events, ev) })

	assert.ErrorIs(t, c.ReloadPatches(context.Background(), false), feed.ErrDebounced)
	assert.Equal(t, FeedStatus{Rows: 7}, state.Status(feed.Patches), "status untouched")

	assert.ErrorIs(t, c.ReloadPatches(context.Background(), false), feed.ErrStale)
	assert.Empty(t, events)
}

// scriptedPatchSource runs one scripted func per Load call, in order.
type scriptedPatchSource struct {
	mu    sync.Mutex
	calls []func(begin func(), apply func(patch.Sheets)) error
}

func (s *scriptedPatchSource) Load(ctx context.Context, force bool, begin func(), apply func(patch.Sheets)) error {
	s.mu.Lock()
	call := s.calls[0]
	s.calls = s.calls[1:]
	s.mu.Unlock()
	return call(begin, apply)
}

func TestController_DebouncedReloadDuringLoadKeepsFinalStatus(t *testing.T) {
	sheets := testSheets(t)
	started := make(chan struct{})
	release := make(chan struct{})
	firstDone := make(chan error, 1)

	src := &scriptedPatchSource{}
	src.calls = []func(func(), func(patch.Sheets)) error{
		func(begin func(), apply func(patch.Sheets)) error {
			begin()
			close(started)
			<-release
			apply(sheets)
			return nil
		},
		func(begin func(), apply func(patch.Sheets)) error {
			// The in-flight load finishes before this one reports back.
			close(release)
			assert.NoError(t, <-firstDone)
			return feed.ErrDebounced
		},
	}

	c := NewController(nil, src, nil, nil)

	go func() { firstDone <- c.ReloadPatches(context.Background(), true) }()
	<-started
	assert.True(t, c.State().Status(feed.Patches).Loading)

	assert.ErrorIs(t, c.ReloadPatches(context.Background(), false), feed.ErrDebounced)

	st := c.State().Status(feed.Patches)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Message)
	assert.Equal(t, 2, st.Rows)
}

func TestController_ReloadSoftware(t *testing.T) {
	rows := []software.Row{{Filename: "ArcGIS_Server.exe", Version: "11.3"}}
	src := new(MockSoftwareSource)
	src.On("Load", mock.Anything).Return(rows, nil).Once()
	src.On("Load", mock.Anything).Return(nil, &software.HeaderError{Missing: []string{"Filename"}}).Once()

	c := NewController(nil, nil, src, nil)
	require.NoError(t, c.ReloadSoftware(context.Background()))
	assert.Equal(t, rows, c.State().Software())
	assert.Equal(t, "Loaded 1 items.", c.State().Status(feed.Software).Message)

	err := c.ReloadSoftware(context.Background())
	require.Error(t, err)
	assert.Equal(t, rows, c.State().Software(), "previous rows survive a failed load")
	assert.Contains(t, c.State().Status(feed.Software).Message, "Error: CSV header missing required columns")
}

func TestController_EnsureSoftware(t *testing.T) {
	src := new(MockSoftwareSource)
	src.On("Load", mock.Anything).Return([]software.Row{{Filename: "ArcGIS.exe"}}, nil).Once()

	c := NewController(nil, nil, src, nil)
	require.NoError(t, c.EnsureSoftware(context.Background()))
	require.NoError(t, c.EnsureSoftware(context.Background()))
	src.AssertNumberOfCalls(t, "Load", 1)
}

func TestController_MissingSources(t *testing.T) {
	c := NewController(nil, nil, nil, nil)
	assert.Error(t, c.ReloadPatches(context.Background(), true))
	assert.Error(t, c.ReloadSoftware(context.Background()))
	assert.NoError(t, c.LoadAll(context.Background()))
}

func TestController_LoadAll(t *testing.T) {
	sheets := testSheets(t)
	patches := new(MockPatchSource)
	patches.On("Load", mock.Anything, true, mock.Anything, mock.Anything).Run(applying(sheets)).Return(nil)
	sw := new(MockSoftwareSource)
	sw.On("Load", mock.Anything).Return(nil, errors.New("offline"))

	c := NewController(nil, patches, sw, nil)
	var mu sync.Mutex
	var events []Event
	c.Subscribe(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	})

	err := c.LoadAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "software: offline")
	assert.Equal(t, 2, c.State().Sheets().RowCount(), "patch feed loads despite the software failure")
	assert.Len(t, events, 2)
}
