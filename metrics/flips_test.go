package metrics

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustedturnip/flipclock"
)

func TestFlipCounter(t *testing.T) {

	client := &fakeMetricClient{}
	mock := clock.NewMock()

	exporter := newTestExporter(t, client, mock, OptionWithRefreshInterval(time.Hour))

	fc, err := NewFlipCounter(exporter, 60, map[string]string{"clock": "lobby"})
	require.NoError(t, err)
	assert.Len(t, exporter.counters, 6)

	fc.ObserveFlip(flipclock.FlipEvent{Field: flipclock.Seconds, Position: flipclock.Ones, From: "0", To: "1"})
	fc.ObserveFlip(flipclock.FlipEvent{Field: flipclock.Seconds, Position: flipclock.Ones, From: "1", To: "2"})
	fc.ObserveFlip(flipclock.FlipEvent{Field: flipclock.Minutes, Position: flipclock.Tens, From: "0", To: "1"})

	exporter.Stop()

	requests := client.Requests()
	require.Len(t, requests, 1)

	counts := make(map[string]int64)
	for _, series := range requests[0].TimeSeries {

		assert.Equal(t, "custom.googleapis.com/flipclock/flips", series.Metric.Type)
		assert.Equal(t, "lobby", series.Metric.Labels["clock"])

		counts[series.Metric.Labels["field"]+"-"+series.Metric.Labels["position"]] = series.Points[0].Value.GetInt64Value()
	}

	assert.Equal(t, map[string]int64{
		"seconds-ones": 2,
		"minutes-tens": 1,
	}, counts)
}

func TestNewFlipCounter_InvalidLabels(t *testing.T) {

	exporter := newTestExporter(t, &fakeMetricClient{}, clock.NewMock())
	defer exporter.Stop()

	_, err := NewFlipCounter(exporter, 60, map[string]string{"Clock": "lobby"})
	assert.Error(t, err)
}
