package metrics

import (
	"github.com/samber/lo"

	"github.com/rustedturnip/flipclock"
)

// FlipMetricName is the custom metric flips are reported under.
const FlipMetricName = "flipclock/flips"

type flipKey struct {
	field    flipclock.Field
	position flipclock.Position
}

// FlipCounter tallies flips per field and position. It implements
// flipclock.FlipObserver.
type FlipCounter struct {
	counters map[flipKey]*Counter
}

// NewFlipCounter creates one Counter per digit slot on exporter, labelled
// with the slot's field and position on top of labels. interval is the
// aggregation interval in seconds.
func NewFlipCounter(exporter *Exporter, interval int64, labels map[string]string) (*FlipCounter, error) {

	fc := &FlipCounter{
		counters: make(map[flipKey]*Counter),
	}

	for _, field := range flipclock.Fields() {
		for _, position := range flipclock.Positions() {

			counter, err := exporter.CreateCounter(FlipMetricName, lo.Assign(labels, map[string]string{
				"field":    field.String(),
				"position": position.String(),
			}), interval)
			if err != nil {
				return nil, err
			}

			fc.counters[flipKey{field: field, position: position}] = counter
		}
	}

	return fc, nil
}

// ObserveFlip counts event against its slot.
func (fc *FlipCounter) ObserveFlip(event flipclock.FlipEvent) {
	if counter, ok := fc.counters[flipKey{field: event.Field, position: event.Position}]; ok {
		counter.Count()
	}
}
