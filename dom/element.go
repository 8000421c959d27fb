package dom

import (
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/rustedturnip/flipclock"
)

// Element is a node of an in-memory Document.
//
// Attribute, class and listener state is safe for concurrent use. The tree
// itself (Append) must be built before the element is shared.
type Element struct {
	tag      string
	parent   *Element
	children []*Element
	document *Document

	mu           sync.Mutex
	attributes   map[string]string
	classes      map[string]struct{}
	listeners    map[int]func()
	nextListener int
}

// NewElement returns a detached element with the given tag name.
func NewElement(tag string) *Element {
	return &Element{
		tag:        tag,
		attributes: make(map[string]string),
		classes:    make(map[string]struct{}),
		listeners:  make(map[int]func()),
	}
}

// Tag returns the element's tag name.
func (e *Element) Tag() string {
	return e.tag
}

// ID returns the element's id attribute.
func (e *Element) ID() string {
	id, _ := e.Attribute("id")
	return id
}

// Parent returns the element's parent, or nil for a root element.
func (e *Element) Parent() *Element {
	return e.parent
}

// Children returns the element's children in document order.
func (e *Element) Children() []*Element {
	return e.children
}

// Append attaches children to e and returns e.
func (e *Element) Append(children ...*Element) *Element {
	for _, child := range children {
		child.parent = e
		child.attach(e.document)
		e.children = append(e.children, child)
	}
	return e
}

func (e *Element) attach(document *Document) {
	e.document = document
	for _, child := range e.children {
		child.attach(document)
	}
}

// Attribute returns the value of the named attribute and whether it is set.
func (e *Element) Attribute(name string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	value, ok := e.attributes[name]
	return value, ok
}

// HasAttribute reports whether the named attribute is set.
func (e *Element) HasAttribute(name string) bool {
	_, ok := e.Attribute(name)
	return ok
}

// SetAttribute sets the named attribute. Observers are only notified when
// the value actually changes.
func (e *Element) SetAttribute(name, value string) {

	e.mu.Lock()
	previous, ok := e.attributes[name]
	e.attributes[name] = value
	e.mu.Unlock()

	if ok && previous == value {
		return
	}

	e.publish(Mutation{
		Kind:  MutationAttribute,
		Name:  name,
		Value: value,
	})
}

// AddClass adds name to the element's class list.
func (e *Element) AddClass(name string) {

	e.mu.Lock()
	_, present := e.classes[name]
	e.classes[name] = struct{}{}
	e.mu.Unlock()

	if present {
		return
	}

	e.publish(Mutation{
		Kind: MutationClassAdded,
		Name: name,
	})
}

// RemoveClass removes name from the element's class list. Removing an absent
// class is a no-op.
func (e *Element) RemoveClass(name string) {

	e.mu.Lock()
	_, present := e.classes[name]
	delete(e.classes, name)
	e.mu.Unlock()

	if !present {
		return
	}

	e.publish(Mutation{
		Kind: MutationClassRemoved,
		Name: name,
	})
}

// HasClass reports whether name is in the element's class list.
func (e *Element) HasClass(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.classes[name]
	return ok
}

// Classes returns the element's class list in sorted order.
func (e *Element) Classes() []string {

	e.mu.Lock()
	classes := lo.Keys(e.classes)
	e.mu.Unlock()

	sort.Strings(classes)
	return classes
}

// OnceTransitionEnd registers fn to run on the next DispatchTransitionEnd.
// The listener is removed before it runs. The returned func removes it
// without running it.
func (e *Element) OnceTransitionEnd(fn func()) func() {

	e.mu.Lock()
	id := e.nextListener
	e.nextListener++
	e.listeners[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

// DispatchTransitionEnd signals that the element's transition finished. Every
// listener registered so far runs exactly once; the number run is returned.
func (e *Element) DispatchTransitionEnd() int {

	e.mu.Lock()
	ids := lo.Keys(e.listeners)
	sort.Ints(ids)
	listeners := make([]func(), 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, e.listeners[id])
		delete(e.listeners, id)
	}
	e.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}

	return len(listeners)
}

// PendingListeners returns the number of registered transition-end listeners.
func (e *Element) PendingListeners() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners)
}

// Query returns the first descendant of e matching selector.
func (e *Element) Query(selector string) (*Element, bool) {

	matches := e.QueryAll(selector)
	if len(matches) == 0 {
		return nil, false
	}

	return matches[0], true
}

// QueryAll returns every descendant of e matching selector in document order.
func (e *Element) QueryAll(selector string) []*Element {

	compiled, err := parseSelector(selector)
	if err != nil {
		return nil
	}

	var matches []*Element
	e.walk(func(candidate *Element) {
		if compiled.matches(candidate, e) {
			matches = append(matches, candidate)
		}
	})

	return matches
}

// Slot locates the digit slot at position within e.
func (e *Element) Slot(position flipclock.Position) (flipclock.Slot, bool) {

	slot, ok := e.Query(position.Selector())
	if !ok {
		return nil, false
	}

	return slot, true
}

// walk visits every descendant of e in document order.
func (e *Element) walk(fn func(*Element)) {
	for _, child := range e.children {
		fn(child)
		child.walk(fn)
	}
}

func (e *Element) publish(m Mutation) {

	if e.document == nil {
		return
	}

	m.Target = e.ID()
	m.Element = e
	e.document.publish(m)
}
