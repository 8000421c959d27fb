package flipclock

// Document locates the container of each time field.
//
// Containers are located on every render pass rather than cached, so a
// Document is free to rebuild its structure between ticks.
type Document interface {
	Container(field Field) (Container, bool)
}

// Container holds the two digit slots of a single time field.
type Container interface {
	Slot(position Position) (Slot, bool)
}

// Slot is a single digit position on screen.
//
// A Slot never runs the visual transition itself. Adding ClassFlip hands the
// transition to the styling layer, which signals completion through the
// listeners registered with OnceTransitionEnd.
type Slot interface {
	Attribute(name string) (string, bool)
	SetAttribute(name, value string)
	AddClass(name string)
	RemoveClass(name string)

	// OnceTransitionEnd registers fn to run the next time the slot's
	// transition finishes. The listener removes itself before running, so it
	// fires at most once. The returned func unregisters it early.
	OnceTransitionEnd(fn func()) (cancel func())
}

// FlipEvent describes a single digit flip.
type FlipEvent struct {
	Field    Field
	Position Position
	From     string
	To       string
}

// FlipObserver is notified after a flip has been handed to the styling
// layer.
type FlipObserver interface {
	ObserveFlip(event FlipEvent)
}

// FlipObserverFunc adapts a function to a FlipObserver.
type FlipObserverFunc func(event FlipEvent)

// ObserveFlip calls f(event).
func (f FlipObserverFunc) ObserveFlip(event FlipEvent) {
	f(event)
}
