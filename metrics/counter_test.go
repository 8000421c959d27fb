package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
)

func TestCounter_getKey(t *testing.T) {

	tests := []struct {
		name            string
		counterInterval int64
		time            time.Time
		expectedResult  int64
	}{
		{
			name:            "1 Second Interval",
			counterInterval: 1,
			time:            time.Unix(1670678947, 999999999), // 2022-12-10T13:29:07.999999999
			expectedResult:  1670678947,                       // 2022-12-10T13:29:07.0
		},
		{
			name:            "10 Second Interval",
			counterInterval: 10,
			time:            time.Unix(867280356, 123456789), // 1997-06-25T23:12:36.123456789
			expectedResult:  867280350,                       // 1997-06-25T23:12:30.0
		},
		{
			name:            "2 Minute Interval",
			counterInterval: 120,
			time:            time.Unix(1126727272, 5236478), // 2005-09-14T19:47:52.005236478
			expectedResult:  1126727160,                     // 2005-09-14T19:46:00.0
		},
	}

	for _, test := range tests {

		mock := clock.NewMock()
		mock.Set(test.time)

		counter, err := newCounter(mock, test.counterInterval)
		assert.NoErrorf(t, err, "%s failed", test.name)

		assert.Equalf(t, test.expectedResult, counter.getKey(), "%s: unexpected key", test.name)
	}
}

func TestCounter_Count(t *testing.T) {

	tests := []struct {
		name           string
		action         func(c *Counter)
		expectedResult int64
	}{
		{
			name: "single goroutine",
			action: func(c *Counter) {
				for i := 0; i < 50; i++ {
					c.Count()
				}
			},
			expectedResult: 50,
		},
		{
			name: "many goroutines",
			action: func(c *Counter) {

				wg := &sync.WaitGroup{}

				for i := 0; i < 75; i++ {

					wg.Add(1)

					go func() {
						defer wg.Done()
						for i := 0; i < 10; i++ {
							c.Count()
						}
					}()
				}

				wg.Wait()
			},
			expectedResult: 750,
		},
		{
			name: "add",
			action: func(c *Counter) {
				c.Add(40)
				c.Add(2)
			},
			expectedResult: 42,
		},
	}

	for _, test := range tests {

		counter, _ := newCounter(clock.NewMock(), 10)

		test.action(counter)

		points := counter.takePoints(true)
		if assert.Lenf(t, points, 1, "%s failed", test.name) {
			assert.Equalf(t, test.expectedResult, points[0].count, "%s: unexpected count", test.name)
		}
	}
}

func TestCounter_takePoints(t *testing.T) {

	advance := func(d time.Duration) func(*Counter, *clock.Mock) {
		return func(_ *Counter, mock *clock.Mock) {
			mock.Add(d)
		}
	}

	countN := func(n int) func(*Counter, *clock.Mock) {
		return func(c *Counter, _ *clock.Mock) {
			for i := 0; i < n; i++ {
				c.Count()
			}
		}
	}

	tests := []struct {
		name            string
		counterInterval int64
		startTime       time.Time
		current         bool
		setup           []func(*Counter, *clock.Mock)
		expectedResult  []*count
	}{
		{
			name:            "completed intervals only",
			counterInterval: 10,
			startTime:       time.Unix(1670681776, 0),
			setup: []func(*Counter, *clock.Mock){
				countN(10),
				advance(10 * time.Second),
				countN(25),
				advance(10 * time.Second),
			},
			expectedResult: []*count{
				{start: time.Unix(1670681770, 0), end: time.Unix(1670681780, 0), count: 10},
				{start: time.Unix(1670681780, 0), end: time.Unix(1670681790, 0), count: 25},
			},
		},
		{
			name:            "current interval is held back",
			counterInterval: 10,
			startTime:       time.Unix(1670681776, 0),
			setup: []func(*Counter, *clock.Mock){
				countN(10),
				advance(10 * time.Second),
				countN(82),
			},
			expectedResult: []*count{
				{start: time.Unix(1670681770, 0), end: time.Unix(1670681780, 0), count: 10},
			},
		},
		{
			name:            "current interval is flushed",
			counterInterval: 60,
			startTime:       time.Unix(1670681776, 0),
			current:         true,
			setup: []func(*Counter, *clock.Mock){
				countN(250),
				advance(60 * time.Second),
				countN(50),
			},
			expectedResult: []*count{
				{start: time.Unix(1670681760, 0), end: time.Unix(1670681820, 0), count: 250},
				{start: time.Unix(1670681820, 0), end: time.Unix(1670681880, 0), count: 50},
			},
		},
	}

	for _, test := range tests {

		mock := clock.NewMock()
		mock.Set(test.startTime)

		counter, _ := newCounter(mock, test.counterInterval)

		for _, fn := range test.setup {
			fn(counter, mock)
		}

		// check counts match, oldest first
		assert.Equalf(t, test.expectedResult, counter.takePoints(test.current), "%s: unexpected counts response", test.name)

		// check that no completed counts remain after the last take
		assert.Emptyf(t, counter.takePoints(false), "%s: unexpected counts remaining", test.name)
	}
}

func TestCounter_newCounter(t *testing.T) {

	tests := []struct {
		name          string
		interval      int64
		expectedError error
	}{
		{name: "normal interval", interval: 10, expectedError: nil},
		{name: "zero interval", interval: 0, expectedError: errors.New("interval must be greater than 0")},
		{name: "negative interval", interval: -50, expectedError: errors.New("interval must be greater than 0")},
	}

	for _, test := range tests {

		counter, err := newCounter(clock.NewMock(), test.interval)

		assert.Equalf(t, test.expectedError, err, "%s failed", test.name)
		if test.expectedError == nil {
			assert.Equalf(t, test.interval, counter.interval, "%s failed", test.name)
		} else {
			assert.Nilf(t, counter, "%s failed", test.name)
		}
	}
}
