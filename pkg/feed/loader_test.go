package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tsanders/patchbrowser/pkg/patch"
	"github.com/tsanders/patchbrowser/pkg/software"
)

// MockFetcher is a mock implementation of Fetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	args := m.Called(ctx, source)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

const feedJSON = `[{"Name":"Server Patch","Products":"ArcGIS Server","version":"11.2"},{"Name":"Portal Patch","Products":"Portal"}]`

func collect(into *[]patch.Sheets) func(patch.Sheets) {
	return func(s patch.Sheets) { *into = append(*into, s) }
}

func TestPatchLoader_Load(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, "data/patches.json").Return([]byte(feedJSON), nil)

	l := NewPatchLoader(PatchOptions{Source: "data/patches.json", Fetcher: fetcher})
	assert.Equal(t, "data/patches.json", l.Source())

	var applied []patch.Sheets
	require.NoError(t, l.Load(context.Background(), false, nil, collect(&applied)))

	require.Len(t, applied, 1)
	assert.Equal(t, 2, applied[0].RowCount())
	assert.Equal(t, []string{patch.AllSheet, "v11_2"}, applied[0].Keys())
	fetcher.AssertExpectations(t)
}

func TestPatchLoader_Debounce(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, "p.json").Return([]byte(feedJSON), nil)

	l := NewPatchLoader(PatchOptions{Source: "p.json", Fetcher: fetcher, MinInterval: DefaultMinInterval})
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	var applied []patch.Sheets
	require.NoError(t, l.Load(context.Background(), false, nil, collect(&applied)))

	now = now.Add(time.Second)
	err := l.Load(context.Background(), false, nil, collect(&applied))
	assert.ErrorIs(t, err, ErrDebounced)
	fetcher.AssertNumberOfCalls(t, "Fetch", 1)

	require.NoError(t, l.Load(context.Background(), true, nil, collect(&applied)), "forced loads skip the interval")
	fetcher.AssertNumberOfCalls(t, "Fetch", 2)

	now = now.Add(DefaultMinInterval)
	require.NoError(t, l.Load(context.Background(), false, nil, collect(&applied)))
	fetcher.AssertNumberOfCalls(t, "Fetch", 3)
	assert.Len(t, applied, 3)
}

func TestPatchLoader_ForcedLoadRestartsInterval(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, "p.json").Return([]byte(feedJSON), nil)

	l := NewPatchLoader(PatchOptions{Source: "p.json", Fetcher: fetcher, MinInterval: DefaultMinInterval})
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	now := t0
	l.now = func() time.Time { return now }

	require.NoError(t, l.Load(context.Background(), false, nil, nil))

	now = t0.Add(2900 * time.Millisecond)
	require.NoError(t, l.Load(context.Background(), true, nil, nil))

	now = t0.Add(3100 * time.Millisecond)
	assert.ErrorIs(t, l.Load(context.Background(), false, nil, nil), ErrDebounced,
		"the interval counts from the forced fetch")

	now = t0.Add(5900 * time.Millisecond)
	require.NoError(t, l.Load(context.Background(), false, nil, nil))
	fetcher.AssertNumberOfCalls(t, "Fetch", 3)
}

func TestPatchLoader_BeginCalledOnlyWhenFetching(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, "p.json").Return([]byte(feedJSON), nil)

	l := NewPatchLoader(PatchOptions{Source: "p.json", Fetcher: fetcher, MinInterval: time.Hour})

	var began int
	begin := func() { began++ }

	require.NoError(t, l.Load(context.Background(), false, begin, nil))
	assert.ErrorIs(t, l.Load(context.Background(), false, begin, nil), ErrDebounced)
	assert.Equal(t, 1, began)
}

func TestPatchLoader_ContextReleasedAfterLoad(t *testing.T) {
	fetcher := new(MockFetcher)
	var fetchCtx context.Context
	fetcher.On("Fetch", mock.Anything, "p.json").Run(func(args mock.Arguments) {
		fetchCtx = args.Get(0).(context.Context)
	}).Return([]byte(feedJSON), nil)

	l := NewPatchLoader(PatchOptions{Source: "p.json", Fetcher: fetcher})
	require.NoError(t, l.Load(context.Background(), true, nil, nil))

	require.NotNil(t, fetchCtx)
	assert.ErrorIs(t, fetchCtx.Err(), context.Canceled)
	assert.Nil(t, l.cancel)
}

func TestPatchLoader_StaleResponseDiscarded(t *testing.T) {
	fetcher := new(MockFetcher)
	started := make(chan struct{})
	release := make(chan struct{})
	var slowCtx context.Context

	fetcher.On("Fetch", mock.Anything, "p.json").Run(func(args mock.Arguments) {
		slowCtx = args.Get(0).(context.Context)
		close(started)
		<-release
	}).Return([]byte(`[{"Name":"old","version":"11.1"}]`), nil).Once()
	fetcher.On("Fetch", mock.Anything, "p.json").
		Return([]byte(`[{"Name":"new","version":"11.2"}]`), nil).Once()

	l := NewPatchLoader(PatchOptions{Source: "p.json", Fetcher: fetcher})

	var names []string
	apply := func(s patch.Sheets) {
		names = append(names, s[patch.AllSheet].Rows[0].PatchName)
	}

	errc := make(chan error, 1)
	go func() { errc <- l.Load(context.Background(), true, nil, apply) }()
	<-started

	require.NoError(t, l.Load(context.Background(), true, nil, apply))
	close(release)

	assert.ErrorIs(t, <-errc, ErrStale)
	assert.Equal(t, []string{"new"}, names)
	assert.ErrorIs(t, slowCtx.Err(), context.Canceled, "starting a newer load cancels the old one")
}

func TestPatchLoader_SupersededFailureIsStale(t *testing.T) {
	fetcher := new(MockFetcher)
	started := make(chan struct{})
	release := make(chan struct{})

	fetcher.On("Fetch", mock.Anything, "p.json").Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(nil, context.Canceled).Once()
	fetcher.On("Fetch", mock.Anything, "p.json").Return([]byte(feedJSON), nil).Once()

	l := NewPatchLoader(PatchOptions{Source: "p.json", Fetcher: fetcher})

	errc := make(chan error, 1)
	go func() { errc <- l.Load(context.Background(), true, nil, nil) }()
	<-started

	require.NoError(t, l.Load(context.Background(), true, nil, nil))
	close(release)
	assert.ErrorIs(t, <-errc, ErrStale)
}

func TestPatchLoader_Errors(t *testing.T) {
	t.Run("fetch failure", func(t *testing.T) {
		fetcher := new(MockFetcher)
		fetcher.On("Fetch", mock.Anything, "p.json").Return(nil, &StatusError{URL: "p.json", StatusCode: 500})

		var applied []patch.Sheets
		err := NewPatchLoader(PatchOptions{Source: "p.json", Fetcher: fetcher}).
			Load(context.Background(), true, nil, collect(&applied))

		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Empty(t, applied)
	})

	t.Run("invalid json", func(t *testing.T) {
		fetcher := new(MockFetcher)
		fetcher.On("Fetch", mock.Anything, "p.json").Return([]byte("<html>"), nil)

		var applied []patch.Sheets
		err := NewPatchLoader(PatchOptions{Source: "p.json", Fetcher: fetcher}).
			Load(context.Background(), true, nil, collect(&applied))

		assert.ErrorIs(t, err, patch.ErrInvalidJSON)
		assert.Empty(t, applied)
	})
}

func TestSoftwareLoader_Load(t *testing.T) {
	csv := "Folder Path,Filename,Direct Download\n" +
		"Enterprise/120,ArcGIS_Server_Windows_120_1.exe,https://dl.example/a\n" +
		"Misc,notes.txt,https://dl.example/b\n"

	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, "sheet.csv").Return([]byte(csv), nil)

	l := NewSoftwareLoader(SoftwareOptions{Source: "sheet.csv", Fetcher: fetcher})
	assert.Equal(t, "sheet.csv", l.Source())

	rows, err := l.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "12.0", rows[0].Version)
}

func TestSoftwareLoader_HeaderError(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, "sheet.csv").Return([]byte("Name,Link\nx,y\n"), nil)

	_, err := NewSoftwareLoader(SoftwareOptions{Source: "sheet.csv", Fetcher: fetcher}).Load(context.Background())

	var headerErr *software.HeaderError
	require.True(t, errors.As(err, &headerErr))
	assert.Equal(t, []string{software.HeaderFilename, software.HeaderDirect}, headerErr.Missing)
}
