package flipclock

import "fmt"

const (
	// AttributeCurrentNumber holds the digit a slot currently displays.
	AttributeCurrentNumber = "data-current-number"

	// AttributeNextNumber holds the digit a slot is transitioning to.
	AttributeNextNumber = "data-next-number"

	// AttributeDigitTens tags the tens slot of a field container.
	AttributeDigitTens = "data-digit-tens"

	// AttributeDigitOnes tags the ones slot of a field container.
	AttributeDigitOnes = "data-digit-ones"

	// ClassFlip is the marker whose presence starts the flip transition in
	// the styling layer.
	ClassFlip = "flip"

	// defaultDigit is assumed for a slot that has never been written.
	defaultDigit = "0"
)

// Field is one of the three time fields a flip clock displays.
type Field int

const (
	Hours Field = iota
	Minutes
	Seconds
)

// Fields returns every Field in display order.
func Fields() []Field {
	return []Field{Hours, Minutes, Seconds}
}

func (f Field) String() string {
	switch f {
	case Hours:
		return "hours"
	case Minutes:
		return "minutes"
	case Seconds:
		return "seconds"
	default:
		return fmt.Sprintf("Field(%d)", int(f))
	}
}

// Selector returns the selector locating the field's container.
func (f Field) Selector() string {
	return "." + f.String()
}

// Position is a digit position within a field.
type Position int

const (
	Tens Position = iota
	Ones
)

// Positions returns both positions, most significant first.
func Positions() []Position {
	return []Position{Tens, Ones}
}

func (p Position) String() string {
	switch p {
	case Tens:
		return "tens"
	case Ones:
		return "ones"
	default:
		return fmt.Sprintf("Position(%d)", int(p))
	}
}

// Attribute returns the boolean attribute a slot at this position carries.
func (p Position) Attribute() string {
	if p == Tens {
		return AttributeDigitTens
	}
	return AttributeDigitOnes
}

// Selector returns the selector locating the slot within its container.
func (p Position) Selector() string {
	return "[" + p.Attribute() + "]"
}
