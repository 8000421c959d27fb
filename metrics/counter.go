package metrics

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
)

// count is the tally recorded by a Counter over one aggregation interval.
type count struct {
	start time.Time
	end   time.Time
	count int64
}

// Counter implements a thread-safe counter that tallies occurrences into
// fixed aggregation intervals, aligned to the Unix epoch.
type Counter struct {
	clock clock.Clock

	// interval is the aggregation interval in seconds.
	interval int64

	// counts maps the Unix start of each interval to its running tally.
	counts map[int64]*atomic.Int64
	mu     *sync.RWMutex
}

// newCounter returns a Counter aggregating over interval seconds, or an error
// if interval isn't positive.
func newCounter(c clock.Clock, interval int64) (*Counter, error) {

	if interval <= 0 {
		return nil, errors.New("interval must be greater than 0")
	}

	return &Counter{
		clock:    c,
		interval: interval,
		counts:   make(map[int64]*atomic.Int64),
		mu:       &sync.RWMutex{},
	}, nil
}

// Count adds 1 to the tally of the current interval.
func (c *Counter) Count() {
	c.Add(1)
}

// Add adds n to the tally of the current interval.
func (c *Counter) Add(n int64) {

	key := c.getKey()

	// fast path, the interval is already being tallied
	c.mu.RLock()
	if value, ok := c.counts[key]; ok {
		value.Add(n)
		c.mu.RUnlock()
		return
	}
	c.mu.RUnlock()

	c.mu.Lock()
	value, ok := c.counts[key]
	if !ok {
		value = atomic.NewInt64(0)
		c.counts[key] = value
	}
	value.Add(n)
	c.mu.Unlock()
}

// getKey returns the Unix start of the interval containing now.
func (c *Counter) getKey() int64 {
	now := c.clock.Now().Unix()
	return now - now%c.interval
}

// takePoints removes and returns the tallies of every completed interval,
// oldest first. current also includes the interval still in progress.
func (c *Counter) takePoints(current bool) []*count {

	c.mu.Lock()
	defer c.mu.Unlock()

	currentKey := c.getKey()
	points := make([]*count, 0)

	for key, value := range c.counts {

		// the current interval is still accumulating
		if !current && key >= currentKey {
			continue
		}

		start := time.Unix(key, 0)
		points = append(points, &count{
			start: start,
			end:   start.Add(time.Duration(c.interval) * time.Second),
			count: value.Load(),
		})

		delete(c.counts, key)
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].start.Before(points[j].start)
	})

	return points
}
