// Package dom is a small in-memory document model for the flip clock.
//
// It provides the element lookup and attribute surface the renderer drives,
// one-shot transition-end listeners, and a mutation feed that the styling
// layer and remote displays subscribe to.
package dom

import (
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/rustedturnip/flipclock"
)

// MutationKind classifies a Mutation.
type MutationKind int

const (
	MutationAttribute MutationKind = iota
	MutationClassAdded
	MutationClassRemoved
)

func (k MutationKind) String() string {
	switch k {
	case MutationAttribute:
		return "attribute"
	case MutationClassAdded:
		return "class-added"
	case MutationClassRemoved:
		return "class-removed"
	default:
		return fmt.Sprintf("MutationKind(%d)", int(k))
	}
}

// MarshalText encodes the kind by name.
func (k MutationKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Mutation is a single state change of an element.
type Mutation struct {
	Kind MutationKind `json:"kind"`

	// Target is the id of the mutated element.
	Target string `json:"target"`

	// Name is the attribute or class name.
	Name string `json:"name"`

	// Value is the new attribute value.
	Value string `json:"value,omitempty"`

	Element *Element `json:"-"`
}

// Document is the root of an element tree.
type Document struct {
	body *Element

	mu           sync.RWMutex
	observers    map[int]func(Mutation)
	nextObserver int
}

// NewDocument returns an empty document.
func NewDocument() *Document {

	document := &Document{
		observers: make(map[int]func(Mutation)),
	}

	document.body = NewElement("body")
	document.body.document = document

	return document
}

// Body returns the document's root element.
func (d *Document) Body() *Element {
	return d.body
}

// Append attaches elements to the document body.
func (d *Document) Append(elements ...*Element) *Document {
	d.body.Append(elements...)
	return d
}

// Query returns the first element in the document matching selector.
func (d *Document) Query(selector string) (*Element, bool) {
	return d.body.Query(selector)
}

// Container locates the container of field.
func (d *Document) Container(field flipclock.Field) (flipclock.Container, bool) {

	container, ok := d.Query(field.Selector())
	if !ok {
		return nil, false
	}

	return container, true
}

// Observe registers fn to receive every mutation in the document. fn runs
// synchronously on the mutating goroutine. The returned func unregisters it.
func (d *Document) Observe(fn func(Mutation)) func() {

	d.mu.Lock()
	id := d.nextObserver
	d.nextObserver++
	d.observers[id] = fn
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.observers, id)
		d.mu.Unlock()
	}
}

func (d *Document) publish(m Mutation) {

	d.mu.RLock()
	ids := lo.Keys(d.observers)
	sort.Ints(ids)
	observers := lo.Map(ids, func(id int, _ int) func(Mutation) {
		return d.observers[id]
	})
	d.mu.RUnlock()

	for _, fn := range observers {
		fn(m)
	}
}

// SlotID returns the element id used for the slot of field at position.
func SlotID(field flipclock.Field, position flipclock.Position) string {
	return field.String() + "-" + position.String()
}

// NewClockDocument builds the standard flip clock structure: a container per
// field, classed with the field name, each holding a tens and a ones slot.
func NewClockDocument() *Document {

	clock := NewElement("div")
	clock.SetAttribute("id", "clock")
	clock.AddClass("clock")

	for _, field := range flipclock.Fields() {

		container := NewElement("div")
		container.SetAttribute("id", field.String())
		container.AddClass(field.String())
		container.AddClass("container-segment")

		for _, position := range flipclock.Positions() {

			slot := NewElement("div")
			slot.SetAttribute("id", SlotID(field, position))
			slot.SetAttribute(position.Attribute(), "")
			slot.AddClass("flip-card")

			container.Append(slot)
		}

		clock.Append(container)
	}

	return NewDocument().Append(clock)
}

// SlotState is the displayed state of one digit slot.
type SlotState struct {
	ID       string `json:"id"`
	Field    string `json:"field"`
	Position string `json:"position"`
	Current  string `json:"current"`
	Next     string `json:"next"`
	Flipping bool   `json:"flipping"`
}

// Snapshot returns the state of every slot present in the document, in
// display order.
func (d *Document) Snapshot() []SlotState {
	return lo.FlatMap(flipclock.Fields(), func(field flipclock.Field, _ int) []SlotState {

		container, ok := d.Query(field.Selector())
		if !ok {
			return nil
		}

		return lo.FilterMap(flipclock.Positions(), func(position flipclock.Position, _ int) (SlotState, bool) {

			slot, ok := container.Query(position.Selector())
			if !ok {
				return SlotState{}, false
			}

			return SlotState{
				ID:       slot.ID(),
				Field:    field.String(),
				Position: position.String(),
				Current:  attributeOr(slot, flipclock.AttributeCurrentNumber, "0"),
				Next:     attributeOr(slot, flipclock.AttributeNextNumber, "0"),
				Flipping: slot.HasClass(flipclock.ClassFlip),
			}, true
		})
	})
}

func attributeOr(e *Element, name, fallback string) string {
	value, ok := e.Attribute(name)
	if !ok || value == "" {
		return fallback
	}
	return value
}
