package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/rustedturnip/flipclock"
	"github.com/rustedturnip/flipclock/dom"
)

func main() {

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clk := clock.New()

	// headless document with a 600ms flip animation
	document := dom.NewClockDocument()
	stylesheet := dom.NewStylesheet(document, clk, flipclock.ClassFlip, 600*time.Millisecond)
	defer stylesheet.Close()

	ticker, err := flipclock.New(
		ctx,
		document,
		flipclock.OptionWithClock(clk),
		flipclock.OptionWithFlipObserver(flipclock.FlipObserverFunc(func(event flipclock.FlipEvent) {
			fmt.Printf("%s %s: %s -> %s\n", event.Field, event.Position, event.From, event.To)
		})),
		flipclock.OptionWithErrorHandler(func(_ *flipclock.Ticker, err error) {
			log.Fatal(err)
		}),
	)
	if err != nil {
		panic(err)
	}

	ticker.Start()
	defer ticker.Stop()

	<-ctx.Done()

	for _, slot := range document.Snapshot() {
		fmt.Printf("%s=%s ", slot.ID, slot.Current)
	}
	fmt.Println()
}
