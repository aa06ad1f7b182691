// Package flow implements the upload/process/download state machine behind
// the PDF Tools page.
//
// A Controller holds the selected tool, the staged files and the
// processing/completed flags. Process starts a fixed delay after which the
// flow is marked completed; no file content is ever read.
package flow

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/pdf-tools/backend/internal/catalog"
	"github.com/pdf-tools/backend/internal/models"
)

// DefaultProcessDelay is how long Process takes before completing.
const DefaultProcessDelay = 2 * time.Second

// Timer is the part of *time.Timer the controller needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Option configures a Controller.
type Option func(*Controller)

// WithDelay sets the processing delay.
func WithDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.delay = d
		}
	}
}

// WithAfterFunc replaces the timer source, mainly for tests.
func WithAfterFunc(fn AfterFunc) Option {
	return func(c *Controller) {
		if fn != nil {
			c.afterFunc = fn
		}
	}
}

// WithLogger sets the logger used for processing events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// Controller is safe for concurrent use.
type Controller struct {
	mu sync.Mutex

	catalog   *catalog.Catalog
	delay     time.Duration
	afterFunc AfterFunc
	logger    *slog.Logger

	toolID     models.ToolID
	files      []models.FileRef
	processing bool
	completed  bool
	version    uint64

	timer  Timer
	closed bool

	subs    map[int]chan models.Snapshot
	nextSub int
}

// New creates a controller in the Idle phase.
func New(cat *catalog.Catalog, opts ...Option) *Controller {
	if cat == nil {
		cat = catalog.Default()
	}
	c := &Controller{
		catalog:   cat,
		delay:     DefaultProcessDelay,
		afterFunc: realAfterFunc,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		files:     make([]models.FileRef, 0),
		subs:      make(map[int]chan models.Snapshot),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Delay returns the configured processing delay.
func (c *Controller) Delay() time.Duration {
	return c.delay
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() models.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// SelectTool sets the selected tool. Staged files are kept.
func (c *Controller) SelectTool(id models.ToolID) (models.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.snapshotLocked(), ErrClosed
	}
	if !c.catalog.Has(id) {
		return c.snapshotLocked(), fmt.Errorf("%w: %q", ErrUnknownTool, id)
	}

	c.toolID = id
	return c.commitLocked(), nil
}

// ChooseFiles replaces the staged files and clears the completed flag.
// The processing flag is left alone.
func (c *Controller) ChooseFiles(files []models.FileRef) (models.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.snapshotLocked(), ErrClosed
	}
	if c.toolID == "" {
		return c.snapshotLocked(), ErrNoToolSelected
	}

	c.files = append(make([]models.FileRef, 0, len(files)), files...)
	c.completed = false
	return c.commitLocked(), nil
}

// Process starts the simulated processing run. It returns immediately with
// processing set; the flow completes after the configured delay.
func (c *Controller) Process() (models.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.snapshotLocked(), ErrClosed
	}
	if len(c.files) == 0 {
		return c.snapshotLocked(), ErrNothingToProcess
	}
	if c.processing {
		return c.snapshotLocked(), ErrAlreadyProcessing
	}

	c.processing = true
	c.completed = false
	c.timer = c.afterFunc(c.delay, c.finish)

	c.logger.Info("processing started", "tool", c.toolID, "files", len(c.files), "delay", c.delay)
	return c.commitLocked(), nil
}

func (c *Controller) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.processing {
		return
	}

	c.timer = nil
	c.processing = false
	c.completed = true

	c.logger.Info("processing complete", "tool", c.toolID, "files", len(c.files))
	c.commitLocked()
}

// Download is only available once processing has completed. No output is
// produced and the state does not change.
func (c *Controller) Download() (models.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.snapshotLocked(), ErrClosed
	}
	if !c.completed {
		return c.snapshotLocked(), ErrNotCompleted
	}
	return c.snapshotLocked(), nil
}

// Subscribe returns a channel that receives a snapshot after every change.
// A slow reader only sees the latest snapshot. The channel is closed when
// cancel is called or the controller is closed.
func (c *Controller) Subscribe() (<-chan models.Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan models.Snapshot, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// Close stops any pending completion and closes all subscriptions.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
}

func (c *Controller) commitLocked() models.Snapshot {
	c.version++
	snap := c.snapshotLocked()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			// Replace the stale snapshot with the latest one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
	return snap
}

func (c *Controller) snapshotLocked() models.Snapshot {
	var tool *models.Tool
	if c.toolID != "" {
		if t, ok := c.catalog.Get(c.toolID); ok {
			tool = &t
		}
	}

	return models.Snapshot{
		Version:    c.version,
		Phase:      phaseOf(c.toolID, len(c.files), c.processing, c.completed),
		ToolID:     c.toolID,
		Files:      append(make([]models.FileRef, 0, len(c.files)), c.files...),
		Processing: c.processing,
		Completed:  c.completed,
		View:       buildView(tool, len(c.files), c.processing, c.completed),
	}
}
