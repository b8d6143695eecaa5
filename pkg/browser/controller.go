package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tsanders/patchbrowser/pkg/feed"
	"github.com/tsanders/patchbrowser/pkg/patch"
	"github.com/tsanders/patchbrowser/pkg/software"
)

// PatchSource loads the patch feed; *feed.PatchLoader implements it.
type PatchSource interface {
	Load(ctx context.Context, force bool, begin func(), apply func(patch.Sheets)) error
}

// SoftwareSource loads the software feed; *feed.SoftwareLoader implements it.
type SoftwareSource interface {
	Load(ctx context.Context) ([]software.Row, error)
}

// Event types published after a load.
const (
	EventReloaded = "reloaded"
	EventError    = "error"
)

// Event reports the outcome of a feed load to subscribers.
type Event struct {
	Type    string `json:"type"`
	Feed    string `json:"feed"`
	Message string `json:"message,omitempty"`
	Rows    int    `json:"rows"`
}

// Controller reloads feeds into a State and notifies subscribers.
type Controller struct {
	state    *State
	patches  PatchSource
	software SoftwareSource
	log      *zap.Logger
	now      func() time.Time

	subsMu sync.RWMutex
	subs   []func(Event)
}

// NewController creates a Controller. Either source may be nil when the
// caller only needs the other feed.
func NewController(state *State, patches PatchSource, sw SoftwareSource, log *zap.Logger) *Controller {
	if state == nil {
		state = NewState()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		state:    state,
		patches:  patches,
		software: sw,
		log:      log,
		now:      time.Now,
	}
}

// State returns the state the controller loads into.
func (c *Controller) State() *State {
	return c.state
}

// Subscribe registers fn to receive every published event.
func (c *Controller) Subscribe(fn func(Event)) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	c.subs = append(c.subs, fn)
}

func (c *Controller) publish(ev Event) {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	for _, fn := range c.subs {
		fn(ev)
	}
}

// ReloadPatches loads the patch feed into the state. Debounced and stale
// loads leave the state untouched and return feed.ErrDebounced or
// feed.ErrStale; a failed load keeps the previous sheets and records the
// error in the feed status. The status only shows loading once the loader has
// accepted the request.
func (c *Controller) ReloadPatches(ctx context.Context, force bool) error {
	if c.patches == nil {
		return errors.New("no patch feed configured")
	}

	begin := func() {
		st := c.state.Status(feed.Patches)
		st.Loading = true
		st.Message = "Loading patches..."
		c.state.SetStatus(feed.Patches, st)
	}
	apply := func(sheets patch.Sheets) {
		c.state.SetSheets(sheets)
		c.state.SetStatus(feed.Patches, FeedStatus{Rows: sheets.RowCount(), LoadedAt: c.now()})
	}

	err := c.patches.Load(ctx, force, begin, apply)
	switch {
	case err == nil:
		c.publish(Event{Type: EventReloaded, Feed: feed.Patches, Rows: c.state.Sheets().RowCount()})
		return nil
	case errors.Is(err, feed.ErrDebounced), errors.Is(err, feed.ErrStale):
		return err
	}

	cur := c.state.Status(feed.Patches)
	msg := fmt.Sprintf("Error loading patches: %v", err)
	c.state.SetStatus(feed.Patches, FeedStatus{
		Message:  msg,
		Error:    err.Error(),
		Rows:     cur.Rows,
		LoadedAt: cur.LoadedAt,
	})
	c.publish(Event{Type: EventError, Feed: feed.Patches, Message: msg})
	return err
}

// ReloadSoftware loads the software feed into the state. A failed load keeps
// the previous rows.
func (c *Controller) ReloadSoftware(ctx context.Context) error {
	if c.software == nil {
		return errors.New("no software feed configured")
	}

	prev := c.state.Status(feed.Software)
	c.state.SetStatus(feed.Software, FeedStatus{
		Loading:  true,
		Message:  "Loading software list...",
		Rows:     prev.Rows,
		LoadedAt: prev.LoadedAt,
	})

	rows, err := c.software.Load(ctx)
	if err != nil {
		msg := fmt.Sprintf("Error: %v", err)
		c.state.SetStatus(feed.Software, FeedStatus{
			Message:  msg,
			Error:    err.Error(),
			Rows:     prev.Rows,
			LoadedAt: prev.LoadedAt,
		})
		c.publish(Event{Type: EventError, Feed: feed.Software, Message: msg})
		return err
	}

	c.state.SetSoftware(rows)
	c.state.SetStatus(feed.Software, FeedStatus{
		Message:  fmt.Sprintf("Loaded %d items.", len(rows)),
		Rows:     len(rows),
		LoadedAt: c.now(),
	})
	c.publish(Event{Type: EventReloaded, Feed: feed.Software, Rows: len(rows)})
	return nil
}

// EnsureSoftware loads the software feed unless rows are already held.
func (c *Controller) EnsureSoftware(ctx context.Context) error {
	if len(c.state.Software()) > 0 {
		return nil
	}
	return c.ReloadSoftware(ctx)
}

// LoadAll loads both configured feeds concurrently. A failure in one feed
// does not stop the other; the first error is returned.
func (c *Controller) LoadAll(ctx context.Context) error {
	var g errgroup.Group
	if c.patches != nil {
		g.Go(func() error {
			if err := c.ReloadPatches(ctx, true); err != nil {
				return fmt.Errorf("patches: %w", err)
			}
			return nil
		})
	}
	if c.software != nil {
		g.Go(func() error {
			if err := c.ReloadSoftware(ctx); err != nil {
				return fmt.Errorf("software: %w", err)
			}
			return nil
		})
	}
	err := g.Wait()
	if err != nil {
		c.log.Warn("initial feed load incomplete", zap.Error(err))
	}
	return err
}
