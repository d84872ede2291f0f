package hook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/reducerx"
)

// ErrNotMounted is returned by a dispatch on a Cell whose UseReducer has not
// been called yet.
var ErrNotMounted = errors.New("hook: cell has no reducer")

// CellOption configures a Cell.
type CellOption func(*cellConfig)

type cellConfig struct {
	logger *slog.Logger
}

// WithLogger sets the logger for dispatch records. The default discards them.
func WithLogger(l *slog.Logger) CellOption {
	return func(c *cellConfig) {
		c.logger = l
	}
}

// Cell is an in-process Host. It holds one state slot.
//
// Thread-safety: dispatches may come from any goroutine; they are applied one
// at a time. Subscribers run after the state is stored, outside the lock, so a
// subscriber may dispatch.
type Cell[S any] struct {
	mu        sync.Mutex
	mounted   bool
	state     *S
	reduce    reducerx.Reducer[S]
	listeners map[int]func(*S)
	nextID    int
	refreshCh chan struct{}
	logger    *slog.Logger
}

var _ Host[struct{}] = (*Cell[struct{}])(nil)

// NewCell returns an empty Cell.
func NewCell[S any](opts ...CellOption) *Cell[S] {
	cfg := &cellConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Cell[S]{
		listeners: make(map[int]func(*S)),
		refreshCh: make(chan struct{}, 1),
		logger:    cfg.logger,
	}
}

// UseReducer implements Host. The first call stores initial; later calls
// keep the current state and replace the reducer with reduce, so the most
// recent render's handlers are the ones dispatch uses.
func (c *Cell[S]) UseReducer(reduce reducerx.Reducer[S], initial *S) (*S, Dispatch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted {
		c.mounted = true
		c.state = initial
	}
	c.reduce = reduce
	return c.state, c.dispatch
}

// State returns the current state.
func (c *Cell[S]) State() *S {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Refreshes delivers a value after a dispatch changes the state. Pending
// refreshes coalesce into one.
func (c *Cell[S]) Refreshes() <-chan struct{} {
	return c.refreshCh
}

// Subscribe calls fn with the new state after each change. The returned
// function removes the subscription.
func (c *Cell[S]) Subscribe(fn func(state *S)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Cell[S]) dispatch(action reducerx.Action) error {
	next, changed, listeners, err := c.apply(action)
	if err != nil {
		if !errors.Is(err, ErrNotMounted) {
			c.logger.Debug("dispatch failed", "type", action.Type, "error", err)
		}
		return err
	}
	c.logger.Debug("dispatch", "type", action.Type, "changed", changed)
	if !changed {
		return nil
	}

	select {
	case c.refreshCh <- struct{}{}:
	default:
	}
	for _, fn := range listeners {
		fn(next)
	}
	return nil
}

// apply runs the reducer under the lock and stores a changed state. It
// returns a snapshot of the listeners to notify. A panicking handler
// releases the lock and leaves the state as it was.
func (c *Cell[S]) apply(action reducerx.Action) (next *S, changed bool, listeners []func(*S), err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted {
		return nil, false, nil, ErrNotMounted
	}
	prev := c.state
	next, err = c.reduce(prev, action)
	if err != nil {
		return nil, false, nil, err
	}
	if next == prev {
		return next, false, nil, nil
	}
	c.state = next
	listeners = make([]func(*S), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	return next, true, listeners, nil
}

// Run calls render once, then again after every state change, until ctx is
// done. render is the component: it calls UseReducer on c and draws the
// state it gets back.
func Run[S any](ctx context.Context, c *Cell[S], render func()) error {
	render()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.refreshCh:
			render()
		}
	}
}
