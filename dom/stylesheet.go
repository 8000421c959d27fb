package dom

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Stylesheet plays the part of the styling layer: adding the transition
// class to an element starts a transition of fixed duration, and the element
// receives a transition-end dispatch when it completes.
//
// Removing the class before the transition completes cancels it without a
// dispatch.
type Stylesheet struct {
	clock    clock.Clock
	class    string
	duration time.Duration

	mu      sync.Mutex
	pending map[*Element]*transition
	closed  bool
	cancel  func()
}

// transition is a single in-flight transition. Its identity guards against a
// stale timer finishing a newer transition on the same element.
type transition struct {
	timer *clock.Timer
}

// NewStylesheet attaches a Stylesheet to document that transitions elements
// carrying class. A non-positive duration ends transitions synchronously.
func NewStylesheet(document *Document, c clock.Clock, class string, duration time.Duration) *Stylesheet {

	stylesheet := &Stylesheet{
		clock:    c,
		class:    class,
		duration: duration,
		pending:  make(map[*Element]*transition),
	}

	stylesheet.cancel = document.Observe(stylesheet.observe)

	return stylesheet
}

// Pending returns the number of transitions in flight.
func (s *Stylesheet) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close detaches the Stylesheet and abandons in-flight transitions.
func (s *Stylesheet) Close() {

	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for element, t := range s.pending {
		t.timer.Stop()
		delete(s.pending, element)
	}
}

func (s *Stylesheet) observe(m Mutation) {

	if m.Name != s.class || m.Element == nil {
		return
	}

	switch m.Kind {
	case MutationClassAdded:
		s.start(m.Element)
	case MutationClassRemoved:
		s.interrupt(m.Element)
	}
}

func (s *Stylesheet) start(element *Element) {

	if s.duration <= 0 {
		element.DispatchTransitionEnd()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	if t, ok := s.pending[element]; ok {
		t.timer.Stop()
	}

	t := &transition{}
	t.timer = s.clock.AfterFunc(s.duration, func() {
		s.finish(element, t)
	})
	s.pending[element] = t
}

func (s *Stylesheet) finish(element *Element, t *transition) {

	s.mu.Lock()
	current, ok := s.pending[element]
	if !ok || current != t {
		s.mu.Unlock()
		return
	}
	delete(s.pending, element)
	s.mu.Unlock()

	element.DispatchTransitionEnd()
}

func (s *Stylesheet) interrupt(element *Element) {

	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.pending[element]; ok {
		t.timer.Stop()
		delete(s.pending, element)
	}
}
