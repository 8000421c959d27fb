package flipclock

import (
	"errors"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
)

// Option defines a function for supplying the Ticker constructor with certain
// configurations.
type Option func(*Ticker) error

// OptionWithClock replaces the wall clock the Ticker reads and schedules
// ticks with. Tests supply a clock.Mock.
func OptionWithClock(c clock.Clock) Option {
	return func(ticker *Ticker) error {

		if c == nil {
			return errors.New("clock must not be nil")
		}

		ticker.clock = c
		return nil
	}
}

// OptionWithInterval allows a way to specify how regularly the clock is
// rendered. The default is one second.
func OptionWithInterval(interval time.Duration) Option {
	return func(ticker *Ticker) error {

		if interval <= 0 {
			return ErrInvalidInterval
		}

		ticker.interval = interval
		return nil
	}
}

// OptionWithErrorHandler allows a way for render errors, such as a missing
// digit slot, to be handled externally. The handler runs on the ticking
// goroutine and must not call Ticker.Stop.
func OptionWithErrorHandler(fn func(*Ticker, error)) Option {
	return func(ticker *Ticker) error {
		ticker.errorHandler = fn
		return nil
	}
}

// OptionWithLogger sets the logger used for diagnostics and by the default
// error handler.
func OptionWithLogger(logger *slog.Logger) Option {
	return func(ticker *Ticker) error {

		if logger == nil {
			return errors.New("logger must not be nil")
		}

		ticker.logger = logger
		return nil
	}
}

// OptionWithFlipObserver registers an observer notified of every flip.
// It may be supplied more than once.
func OptionWithFlipObserver(observer FlipObserver) Option {
	return func(ticker *Ticker) error {

		if observer == nil {
			return errors.New("flip observer must not be nil")
		}

		ticker.observers = append(ticker.observers, observer)
		return nil
	}
}
