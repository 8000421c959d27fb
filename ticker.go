// Package flipclock renders a split-flap style digital clock.
//
// A Ticker reads the wall clock once per interval and asks a DigitRenderer to
// reconcile the hours, minutes and seconds fields of a Document. Only digits
// whose value changed are flipped; the flip itself is performed by whatever
// styling layer watches the ClassFlip marker.
package flipclock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

const defaultInterval = time.Second

// Ticker drives a flip clock Document at a fixed cadence.
type Ticker struct {
	ctx          context.Context
	clock        clock.Clock
	document     Document
	renderer     *DigitRenderer
	observers    []FlipObserver
	logger       *slog.Logger
	mu           *sync.Mutex
	state        *ClockState
	stop         chan struct{}
	stopped      chan struct{}
	running      bool
	interval     time.Duration
	errorHandler func(*Ticker, error)
}

// New returns a Ticker bound to document, or returns an error if
// instantiation fails.
//
// The document is painted with the current time before New returns. The
// first paint never flips. Call Start to begin ticking.
func New(ctx context.Context, document Document, options ...Option) (*Ticker, error) {

	if document == nil {
		return nil, ErrNilDocument
	}

	// build Ticker
	ticker := &Ticker{
		ctx:      ctx,
		clock:    clock.New(),
		document: document,
		logger:   slog.Default(),
		mu:       &sync.Mutex{},
		state:    &ClockState{},
		interval: defaultInterval,
	}

	for _, option := range options {
		err := option(ticker)
		if err != nil {
			return nil, err
		}
	}

	// if ticker.errorHandler isn't set
	if ticker.errorHandler == nil {

		// set default behaviour to log and carry on with the next tick
		ticker.errorHandler = func(t *Ticker, err error) {
			t.logger.ErrorContext(t.ctx, "flip clock render failed", "error", err)
		}
	}

	ticker.renderer = NewDigitRenderer(ticker.observers...)

	now := ticker.clock.Now()

	ticker.mu.Lock()
	ticker.state.observe(now)
	err := ticker.paint(now)
	ticker.mu.Unlock()

	if err != nil {
		ticker.errorHandler(ticker, err)
	}

	return ticker, nil
}

// Start begins ticking in the background, providing the Ticker isn't already
// running. Ticking ends on Stop or when the Ticker's context is cancelled.
func (t *Ticker) Start() {

	t.mu.Lock()

	if t.running {
		t.mu.Unlock()
		return
	}

	t.running = true
	t.stop = make(chan struct{})
	t.stopped = make(chan struct{})
	stop, stopped := t.stop, t.stopped
	ct := t.clock.Ticker(t.interval)
	t.mu.Unlock()

	t.logger.DebugContext(t.ctx, "flip clock started", "interval", t.interval)

	go t.runTicker(ct, stop, stopped, t.Tick)
}

// runTicker calls fn every time ct fires until stop is closed or the
// Ticker's context is cancelled, then closes stopped.
//
// A tick that arrives while fn is still running is coalesced by ct, so
// at most one tick is ever pending.
func (t *Ticker) runTicker(ct *clock.Ticker, stop <-chan struct{}, stopped chan<- struct{}, fn func()) {

	defer func() {
		ct.Stop()

		t.mu.Lock()
		t.running = false
		t.mu.Unlock()

		close(stopped)
	}()

	for {
		select {

		// when interval passes, render
		case <-ct.C:
			fn()

		// when context cancelled, exit immediately
		case <-t.ctx.Done():
			return

		// when stop requested, stop gracefully
		case <-stop:
			return

		}
	}
}

// Stop ends ticking and waits for any in-flight render pass to finish. It is
// a no-op when the Ticker isn't running.
func (t *Ticker) Stop() {

	t.mu.Lock()
	if !t.running || t.stop == nil {
		t.mu.Unlock()
		return
	}

	stop, stopped := t.stop, t.stopped
	t.stop = nil
	t.mu.Unlock()

	// signal stop and wait for stopped
	close(stop)
	<-stopped

	t.logger.DebugContext(t.ctx, "flip clock stopped")
}

// Tick performs a single render pass against the current time and records
// it as the last observed time.
func (t *Ticker) Tick() {

	current := t.clock.Now()

	t.mu.Lock()
	err := t.render(current, t.state.LastObserved())
	t.state.observe(current)
	t.mu.Unlock()

	if err != nil {
		t.errorHandler(t, err)
	}
}

// Render reconciles the document from last to current without touching the
// recorded state. It serializes with the ticking goroutine.
func (t *Ticker) Render(current, last time.Time) {

	t.mu.Lock()
	err := t.render(current, last)
	t.mu.Unlock()

	if err != nil {
		t.errorHandler(t, err)
	}
}

// LastObserved returns the time captured by the most recent tick.
func (t *Ticker) LastObserved() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.LastObserved()
}

// Running reports whether the Ticker is ticking.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// render must be called with t.mu held.
func (t *Ticker) render(current, last time.Time) error {
	return t.eachField(func(field Field, container Container) error {
		return t.renderer.ReconcileField(
			field,
			container,
			ReadingOf(current).Value(field),
			ReadingOf(last).Value(field),
		)
	})
}

// paint must be called with t.mu held.
func (t *Ticker) paint(now time.Time) error {
	return t.eachField(func(field Field, container Container) error {
		return t.renderer.PaintField(field, container, ReadingOf(now).Value(field))
	})
}

// eachField calls fn with the container of every field, carrying on past
// fields that fail so one broken field never blanks the others.
func (t *Ticker) eachField(fn func(Field, Container) error) error {

	var errs []error

	for _, field := range Fields() {

		container, ok := t.document.Container(field)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrContainerNotFound, field))
			continue
		}

		if err := fn(field, container); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
