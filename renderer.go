package flipclock

import (
	"errors"
	"fmt"
)

// DigitRenderer reconciles the digit slots of a field against a new value,
// flipping only the digits that changed.
type DigitRenderer struct {
	observers []FlipObserver
}

// NewDigitRenderer returns a DigitRenderer that notifies observers of every
// flip it starts.
func NewDigitRenderer(observers ...FlipObserver) *DigitRenderer {
	return &DigitRenderer{
		observers: observers,
	}
}

// FormatValue formats a field value as a two character, zero padded decimal
// string (7 becomes "07").
//
// Values outside 0-99 are not validated and produce a longer string, of
// which only the first two characters are ever displayed.
func FormatValue(value int) string {
	return fmt.Sprintf("%02d", value)
}

// ReconcileField compares newValue against oldValue digit by digit and flips
// each slot in container whose digit differs. Equal values perform no slot
// mutations at all.
//
// A slot missing from the container is reported as ErrSlotNotFound; the
// other position is still reconciled.
func (r *DigitRenderer) ReconcileField(field Field, container Container, newValue, oldValue int) error {

	newDigits := FormatValue(newValue)
	oldDigits := FormatValue(oldValue)

	var errs []error

	for i, position := range Positions() {

		// unchanged digits are never touched
		if newDigits[i] == oldDigits[i] {
			continue
		}

		slot, ok := container.Slot(position)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s %s", ErrSlotNotFound, field, position))
			continue
		}

		digit := newDigits[i : i+1]

		from, flipped := r.FlipSlot(slot, digit)
		if !flipped {
			continue
		}

		r.notify(FlipEvent{
			Field:    field,
			Position: position,
			From:     from,
			To:       digit,
		})
	}

	return errors.Join(errs...)
}

// PaintField writes value into both slots of container without starting a
// transition. It is used for the first paint, which must be instant.
func (r *DigitRenderer) PaintField(field Field, container Container, value int) error {

	digits := FormatValue(value)

	var errs []error

	for i, position := range Positions() {

		slot, ok := container.Slot(position)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s %s", ErrSlotNotFound, field, position))
			continue
		}

		slot.SetAttribute(AttributeCurrentNumber, digits[i:i+1])
		slot.SetAttribute(AttributeNextNumber, digits[i:i+1])
	}

	return errors.Join(errs...)
}

// FlipSlot moves slot to digit.
//
// The slot's current and next digits are always written, keeping the
// bookkeeping consistent, but the transition only starts when the previously
// stored digit (defaulting to "0") differs from digit. FlipSlot returns the
// previous digit and whether a transition was started.
func (r *DigitRenderer) FlipSlot(slot Slot, digit string) (string, bool) {

	current, ok := slot.Attribute(AttributeCurrentNumber)
	if !ok || current == "" {
		current = defaultDigit
	}

	slot.SetAttribute(AttributeCurrentNumber, digit)
	slot.SetAttribute(AttributeNextNumber, digit)

	if current == digit {
		return current, false
	}

	// the listener must be in place before the marker is added, a styling
	// layer with no transition time finishes synchronously
	slot.OnceTransitionEnd(func() {
		slot.RemoveClass(ClassFlip)
	})
	slot.AddClass(ClassFlip)

	return current, true
}

func (r *DigitRenderer) notify(event FlipEvent) {
	for _, observer := range r.observers {
		observer.ObserveFlip(event)
	}
}
