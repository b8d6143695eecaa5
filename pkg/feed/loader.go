package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tsanders/patchbrowser/pkg/patch"
	"github.com/tsanders/patchbrowser/pkg/software"
)

// Feed names used in logs, metrics and status reporting.
const (
	Patches  = "patches"
	Software = "software"
)

// DefaultMinInterval is the default minimum time between non-forced patch loads.
const DefaultMinInterval = 3 * time.Second

// PatchOptions configures a PatchLoader.
type PatchOptions struct {
	Source      string
	Fetcher     Fetcher
	MinInterval time.Duration // <= 0 disables debouncing
	Logger      *zap.Logger
}

// PatchLoader fetches and normalizes the patch feed.
//
// Every load takes a sequence number when it starts. Starting a load cancels
// the one in flight, and a result is only applied if no later load has
// applied first, so a slow response can never overwrite a newer one.
type PatchLoader struct {
	source  string
	fetcher Fetcher
	limiter *rate.Limiter
	log     *zap.Logger
	now     func() time.Time

	mu        sync.Mutex
	started   uint64
	committed uint64
	cancel    context.CancelFunc
}

// NewPatchLoader creates a PatchLoader.
func NewPatchLoader(opts PatchOptions) *PatchLoader {
	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &PatchLoader{
		source:  opts.Source,
		fetcher: opts.Fetcher,
		limiter: rate.NewLimiter(limit, 1),
		log:     log.With(zap.String("feed", Patches)),
		now:     time.Now,
	}
}

// Source returns where the loader reads the feed from.
func (l *PatchLoader) Source() string {
	return l.source
}

// Load fetches and normalizes the feed and hands the sheets to apply. Unless
// force is set, a load within the minimum interval of the previous fetch
// returns ErrDebounced without fetching; every load that does fetch, forced
// or not, restarts that interval. A load overtaken by a newer one returns
// ErrStale and apply is not called.
//
// begin, if non-nil, is called once the load has passed the debounce check
// and before fetching. begin and apply run with the loader's lock held and
// must not call back into the loader.
func (l *PatchLoader) Load(ctx context.Context, force bool, begin func(), apply func(patch.Sheets)) error {
	start := l.now()

	if !l.admit(start, force) {
		recordLoad(Patches, outcomeDebounced, 0)
		l.log.Debug("patch reload debounced")
		return ErrDebounced
	}

	ctx, cancel, seq := l.begin(ctx, begin)
	defer cancel()
	l.log.Debug("loading feed", zap.String("source", l.source), zap.Uint64("seq", seq))

	sheets, err := l.fetch(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if seq == l.started {
		l.cancel = nil
	}
	elapsed := l.now().Sub(start)

	if seq < l.committed || (err != nil && seq < l.started) {
		recordLoad(Patches, outcomeStale, elapsed)
		l.log.Info("discarding stale patch feed response", zap.Uint64("seq", seq), zap.Uint64("latest", l.started))
		return ErrStale
	}
	if err != nil {
		recordLoad(Patches, outcomeError, elapsed)
		l.log.Warn("failed to load feed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return err
	}

	l.committed = seq
	if apply != nil {
		apply(sheets)
	}
	recordLoad(Patches, outcomeOK, elapsed)
	recordRows(Patches, sheets.RowCount())
	l.log.Info("feed loaded",
		zap.Int("rows", sheets.RowCount()),
		zap.Int("sheets", len(sheets)),
		zap.Duration("elapsed", elapsed))
	return nil
}

// admit reports whether a load starting at now may fetch. A forced load that
// finds no token available gets a fresh limiter with its token spent at now,
// so the interval counts from the latest fetch.
func (l *PatchLoader) admit(now time.Time, force bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.limiter.AllowN(now, 1) {
		return true
	}
	if !force {
		return false
	}
	l.limiter = rate.NewLimiter(l.limiter.Limit(), 1)
	l.limiter.AllowN(now, 1)
	return true
}

// begin registers a new load, cancelling the one in flight, and runs onStart
// under the same lock so that status updates follow load order.
func (l *PatchLoader) begin(ctx context.Context, onStart func()) (context.Context, context.CancelFunc, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.started++
	if onStart != nil {
		onStart()
	}
	return ctx, cancel, l.started
}

func (l *PatchLoader) fetch(ctx context.Context) (patch.Sheets, error) {
	raw, err := l.fetcher.Fetch(ctx, l.source)
	if err != nil {
		return nil, err
	}
	sheets, err := patch.Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize patch feed: %w", err)
	}
	l.log.Debug("normalized feed", zap.Stringer("shape", patch.DetectShape(raw)))
	return sheets, nil
}

// SoftwareOptions configures a SoftwareLoader.
type SoftwareOptions struct {
	Source  string
	Fetcher Fetcher
	Logger  *zap.Logger
}

// SoftwareLoader fetches the installer CSV and builds software rows.
type SoftwareLoader struct {
	source  string
	fetcher Fetcher
	log     *zap.Logger
}

// NewSoftwareLoader creates a SoftwareLoader.
func NewSoftwareLoader(opts SoftwareOptions) *SoftwareLoader {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &SoftwareLoader{
		source:  opts.Source,
		fetcher: opts.Fetcher,
		log:     log.With(zap.String("feed", Software)),
	}
}

// Source returns where the loader reads the feed from.
func (l *SoftwareLoader) Source() string {
	return l.source
}

// Load fetches the CSV and returns its installer rows. A header without the
// required columns fails the whole feed with *software.HeaderError.
func (l *SoftwareLoader) Load(ctx context.Context) ([]software.Row, error) {
	start := time.Now()
	l.log.Debug("loading feed", zap.String("source", l.source))

	rows, err := l.load(ctx)
	elapsed := time.Since(start)
	if err != nil {
		recordLoad(Software, outcomeError, elapsed)
		l.log.Warn("failed to load feed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return nil, err
	}

	recordLoad(Software, outcomeOK, elapsed)
	recordRows(Software, len(rows))
	l.log.Info("feed loaded", zap.Int("rows", len(rows)), zap.Duration("elapsed", elapsed))
	return rows, nil
}

func (l *SoftwareLoader) load(ctx context.Context) ([]software.Row, error) {
	raw, err := l.fetcher.Fetch(ctx, l.source)
	if err != nil {
		return nil, err
	}
	return software.FromCSV(string(raw))
}
