package flipclock_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustedturnip/flipclock"
	"github.com/rustedturnip/flipclock/dom"
)

// flipRecorder collects flip events from the ticking goroutine.
type flipRecorder struct {
	mu     sync.Mutex
	events []flipclock.FlipEvent
}

func (r *flipRecorder) ObserveFlip(event flipclock.FlipEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *flipRecorder) Events() []flipclock.FlipEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]flipclock.FlipEvent(nil), r.events...)
}

func at(hour, minute, second int) time.Time {
	return time.Date(2024, time.March, 9, hour, minute, second, 0, time.Local)
}

func digits(document *dom.Document) string {
	var result string
	for _, slot := range document.Snapshot() {
		result += slot.Current
	}
	return result
}

func newTestTicker(t *testing.T, ctx context.Context, start time.Time, document flipclock.Document, options ...flipclock.Option) (*flipclock.Ticker, *clock.Mock, *flipRecorder) {

	mock := clock.NewMock()
	mock.Set(start)

	recorder := &flipRecorder{}

	options = append([]flipclock.Option{
		flipclock.OptionWithClock(mock),
		flipclock.OptionWithFlipObserver(recorder),
	}, options...)

	ticker, err := flipclock.New(ctx, document, options...)
	require.NoError(t, err)

	return ticker, mock, recorder
}

func TestNew_InitialPaint(t *testing.T) {

	document := dom.NewClockDocument()

	ticker, _, recorder := newTestTicker(t, context.Background(), at(12, 34, 56), document)

	assert.Equal(t, "123456", digits(document))
	assert.Empty(t, recorder.Events(), "first paint must not flip")
	assert.Equal(t, at(12, 34, 56), ticker.LastObserved())
	assert.False(t, ticker.Running())

	for _, slot := range document.Snapshot() {
		assert.Equalf(t, slot.Current, slot.Next, "%s: current and next differ", slot.ID)
		assert.Falsef(t, slot.Flipping, "%s: unexpected flip marker", slot.ID)
	}
}

func TestTicker_EndToEnd(t *testing.T) {

	document := dom.NewClockDocument()

	ticker, mock, recorder := newTestTicker(t, context.Background(), at(0, 0, 0), document)
	ticker.Start()
	defer ticker.Stop()

	require.Equal(t, "000000", digits(document))

	mock.Add(time.Second)

	assert.Eventually(t, func() bool {
		return len(recorder.Events()) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []flipclock.FlipEvent{
		{Field: flipclock.Seconds, Position: flipclock.Ones, From: "0", To: "1"},
	}, recorder.Events())

	assert.Equal(t, "000001", digits(document))

	for _, slot := range document.Snapshot() {
		assert.Equalf(t, slot.ID == "seconds-ones", slot.Flipping, "%s: unexpected flip marker", slot.ID)
	}

	assert.Eventually(t, func() bool {
		return ticker.LastObserved().Equal(at(0, 0, 1))
	}, time.Second, 5*time.Millisecond)
}

func TestTicker_WithStylesheet(t *testing.T) {

	document := dom.NewClockDocument()

	ticker, mock, recorder := newTestTicker(t, context.Background(), at(9, 59, 59), document)

	stylesheet := dom.NewStylesheet(document, mock, flipclock.ClassFlip, 600*time.Millisecond)
	defer stylesheet.Close()

	ticker.Tick()
	assert.Len(t, recorder.Events(), 0, "tick at the same instant flips nothing")

	mock.Add(time.Second)
	ticker.Tick()

	// 09:59:59 -> 10:00:00 flips every digit
	assert.Len(t, recorder.Events(), 6)
	assert.Equal(t, "100000", digits(document))
	assert.Equal(t, 6, stylesheet.Pending())

	mock.Add(600 * time.Millisecond)

	assert.Eventually(t, func() bool {
		for _, slot := range document.Snapshot() {
			if slot.Flipping {
				return false
			}
		}
		return stylesheet.Pending() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestTicker_Render(t *testing.T) {

	document := dom.NewClockDocument()

	ticker, _, recorder := newTestTicker(t, context.Background(), at(18, 59, 59), document)

	ticker.Render(at(19, 0, 0), at(18, 59, 59))

	assert.Len(t, recorder.Events(), 5)
	assert.Equal(t, "190000", digits(document))

	// render leaves the recorded state alone
	assert.Equal(t, at(18, 59, 59), ticker.LastObserved())

	// rendering the same instant is a no-op
	ticker.Render(at(19, 0, 0), at(19, 0, 0))
	assert.Len(t, recorder.Events(), 5)
}

func TestTicker_Stop(t *testing.T) {

	document := dom.NewClockDocument()

	ticker, mock, recorder := newTestTicker(t, context.Background(), at(1, 2, 3), document)

	ticker.Start()
	ticker.Start()
	assert.True(t, ticker.Running())

	ticker.Stop()
	assert.False(t, ticker.Running())

	// stopping twice is harmless
	ticker.Stop()

	mock.Add(5 * time.Second)

	assert.Never(t, func() bool {
		return len(recorder.Events()) > 0
	}, 50*time.Millisecond, 5*time.Millisecond)

	// a stopped ticker can be started again
	ticker.Start()
	defer ticker.Stop()

	mock.Add(time.Second)

	assert.Eventually(t, func() bool {
		return len(recorder.Events()) > 0
	}, time.Second, 5*time.Millisecond)
}

func TestTicker_ContextCancelled(t *testing.T) {

	ctx, cancel := context.WithCancel(context.Background())

	ticker, _, _ := newTestTicker(t, ctx, at(1, 2, 3), dom.NewClockDocument())
	ticker.Start()

	cancel()

	assert.Eventually(t, func() bool {
		return !ticker.Running()
	}, time.Second, 5*time.Millisecond)

	ticker.Stop()
}

func TestTicker_MissingElements(t *testing.T) {

	// a document holding only the hours field, missing its ones slot
	hours := dom.NewElement("div")
	hours.AddClass("hours")
	tens := dom.NewElement("div")
	tens.SetAttribute(flipclock.AttributeDigitTens, "")
	hours.Append(tens)

	document := dom.NewDocument().Append(hours)

	var (
		mu   sync.Mutex
		errs []error
	)

	handler := flipclock.OptionWithErrorHandler(func(_ *flipclock.Ticker, err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err)
	})

	ticker, mock, _ := newTestTicker(t, context.Background(), at(10, 0, 0), document, handler)

	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], flipclock.ErrContainerNotFound))
	assert.True(t, errors.Is(errs[0], flipclock.ErrSlotNotFound))

	// the present slot is still painted
	digit, _ := tens.Attribute(flipclock.AttributeCurrentNumber)
	assert.Equal(t, "1", digit)

	mock.Add(time.Hour * 10)
	ticker.Tick()

	require.Len(t, errs, 2)
	digit, _ = tens.Attribute(flipclock.AttributeCurrentNumber)
	assert.Equal(t, "2", digit)
}

func TestNew_Options(t *testing.T) {

	tests := []struct {
		name          string
		document      flipclock.Document
		options       []flipclock.Option
		expectedError error
	}{
		{
			name:          "nil document",
			document:      nil,
			expectedError: flipclock.ErrNilDocument,
		},
		{
			name:          "zero interval",
			document:      dom.NewClockDocument(),
			options:       []flipclock.Option{flipclock.OptionWithInterval(0)},
			expectedError: flipclock.ErrInvalidInterval,
		},
		{
			name:          "negative interval",
			document:      dom.NewClockDocument(),
			options:       []flipclock.Option{flipclock.OptionWithInterval(-time.Second)},
			expectedError: flipclock.ErrInvalidInterval,
		},
		{
			name:          "nil clock",
			document:      dom.NewClockDocument(),
			options:       []flipclock.Option{flipclock.OptionWithClock(nil)},
			expectedError: errors.New("clock must not be nil"),
		},
		{
			name:          "nil observer",
			document:      dom.NewClockDocument(),
			options:       []flipclock.Option{flipclock.OptionWithFlipObserver(nil)},
			expectedError: errors.New("flip observer must not be nil"),
		},
		{
			name:     "valid options",
			document: dom.NewClockDocument(),
			options: []flipclock.Option{
				flipclock.OptionWithInterval(500 * time.Millisecond),
				flipclock.OptionWithClock(clock.NewMock()),
			},
			expectedError: nil,
		},
	}

	for _, test := range tests {

		ticker, err := flipclock.New(context.Background(), test.document, test.options...)

		assert.Equalf(t, test.expectedError, err, "%s failed", test.name)
		assert.Equalf(t, test.expectedError == nil, ticker != nil, "%s failed", test.name)
	}
}
