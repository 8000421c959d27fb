// Package metrics reports flip clock activity to Google Cloud Monitoring as
// custom metrics.
package metrics

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	monitoring "cloud.google.com/go/monitoring/apiv3/v2"
	"cloud.google.com/go/monitoring/apiv3/v2/monitoringpb"
	"github.com/benbjohnson/clock"
	"github.com/googleapis/gax-go/v2"
	"github.com/sethvargo/go-retry"
	"google.golang.org/api/option"
	metricpb "google.golang.org/genproto/googleapis/api/metric"
	"google.golang.org/genproto/googleapis/api/monitoredres"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const (
	// see https://cloud.google.com/monitoring/api/metrics_gcp for more info on
	// metric roots.
	//
	// as this client is designed for custom metrics, this root is non-configurable
	// (see https://cloud.google.com/monitoring/custom-metrics#identifier).
	customMetricRoot = "custom.googleapis.com"

	defaultRefreshInterval = time.Minute
	defaultRetryBase       = 200 * time.Millisecond
	defaultMaxRetries      = 3
	maxRetryDelay          = 5 * time.Second
	requestTimeout         = 30 * time.Second

	resourceLabelKeyProjectId = "project_id"

	projectPathPrefix = "projects"
)

// metricClient is the subset of monitoring.MetricClient the Exporter uses.
type metricClient interface {
	CreateTimeSeries(ctx context.Context, req *monitoringpb.CreateTimeSeriesRequest, opts ...gax.CallOption) error
	Close() error
}

// metricCounter tethers a Counter to the metric it is reported as.
type metricCounter struct {
	metric  *metricpb.Metric
	counter *Counter
}

// Exporter periodically reports Counters to Google Cloud Monitoring.
type Exporter struct {
	ctx             context.Context
	clock           clock.Clock
	mu              *sync.Mutex
	stop            chan struct{}
	stopped         chan struct{}
	running         bool
	resourceName    string
	resourceLabels  map[string]string
	client          metricClient
	ownsClient      bool
	clientOptions   []option.ClientOption
	counters        []*metricCounter
	errorHandler    func(*Exporter, error)
	refreshInterval time.Duration
	maxRetries      uint64
	retryBase       time.Duration
}

// New returns a running Exporter, or returns an error if instantiation
// fails.
//
// options allow the user to provide custom configurations as a list of Options.
func New(ctx context.Context, options ...Option) (*Exporter, error) {

	// build Exporter
	exporter := &Exporter{
		ctx:             ctx,
		clock:           clock.New(),
		mu:              &sync.Mutex{},
		refreshInterval: defaultRefreshInterval,
		maxRetries:      defaultMaxRetries,
		retryBase:       defaultRetryBase,
	}

	for _, option := range options {
		err := option(exporter)
		if err != nil {
			return nil, err
		}
	}

	// if exporter.client isn't supplied with options
	if exporter.client == nil {

		client, err := monitoring.NewMetricClient(ctx, exporter.clientOptions...)
		if err != nil {
			return nil, err
		}

		exporter.client = client
		exporter.ownsClient = true
	}

	// if exporter.resource isn't supplied with options
	if exporter.resourceName == "" || exporter.resourceLabels == nil {

		// set to be global resource
		option := OptionWithResourceType(&ResourceGlobal{
			ProjectId: DetectProjectId(ctx),
		})

		// attempt to apply resource
		err := option(exporter)
		if err != nil {
			exporter.closeClient()
			return nil, err
		}
	}

	// if exporter.errorHandler isn't set
	if exporter.errorHandler == nil {

		// set default behaviour to do nothing
		exporter.errorHandler = func(*Exporter, error) {}
	}

	exporter.run()

	return exporter, nil
}

// run starts reporting in the background providing the Exporter isn't
// already running.
func (e *Exporter) run() {

	e.mu.Lock()

	if e.running {
		e.mu.Unlock()
		return
	}

	e.running = true
	e.stop = make(chan struct{})
	e.stopped = make(chan struct{})
	stop, stopped := e.stop, e.stopped
	t := e.clock.Ticker(e.refreshInterval)
	e.mu.Unlock()

	go e.runTicker(t, stop, stopped, func() {
		e.report(false)
	})
}

// runTicker calls fn at the configured refresh interval until stop is closed
// or the Exporter's context is cancelled.
func (e *Exporter) runTicker(t *clock.Ticker, stop <-chan struct{}, stopped chan<- struct{}, fn func()) {

	defer func() {
		t.Stop()

		e.mu.Lock()
		e.running = false
		e.mu.Unlock()

		close(stopped)
	}()

	for {
		select {

		// when interval passes, send data
		case <-t.C:
			fn()

		// when context cancelled, exit immediately
		case <-e.ctx.Done():
			return

		// when stop requested, stop gracefully
		case <-stop:
			return

		}
	}
}

// CreateCounter creates a Counter reported as the custom metric name with
// the given labels.
//
// interval is used to specify how counts should be aggregated, in seconds.
//
// CreateCounter will return an error if the provided name does not match
// Google's Metric_Type specification, or if any of the provided label keys
// don't match Google's requirements. Refer to this link for more information:
// https://cloud.google.com/monitoring/api/v3/naming-conventions
func (e *Exporter) CreateCounter(name string, labels map[string]string, interval int64) (*Counter, error) {

	if !isMetricTypeValid(name) {
		return nil, fmt.Errorf("invalid name parameter provided")
	}

	for key := range labels {
		if !isMetricLabelKeyValid(key) {
			return nil, fmt.Errorf("invalid label key provided: %s", key)
		}
	}

	counter, err := newCounter(e.clock, interval)
	if err != nil {
		return nil, err
	}

	mc := &metricCounter{
		metric: &metricpb.Metric{
			Type:   path.Join(customMetricRoot, name),
			Labels: labels,
		},
		counter: counter,
	}

	e.mu.Lock()
	e.counters = append(e.counters, mc)
	e.mu.Unlock()

	return mc.counter, nil
}

// report flushes the points of every counter.
//
// current is used to specify the inclusion of any current intervals
// within the tracked counters.
func (e *Exporter) report(current bool) {

	e.mu.Lock()
	counters := append([]*metricCounter(nil), e.counters...)
	e.mu.Unlock()

	// a request may only carry one point per time series, so the n-th point
	// of every counter goes into the n-th request.
	series := make([][]*monitoringpb.TimeSeries, 0)

	for _, mc := range counters {
		for i, point := range mc.counter.takePoints(current) {

			// if series[i] is out of bounds
			if len(series) <= i {
				series = append(series, make([]*monitoringpb.TimeSeries, 0))
			}

			series[i] = append(series[i], e.createTimeSeriesProto(mc.metric, []*monitoringpb.Point{countToMetricPointProto(point)}))
		}
	}

	// send requests
	for _, s := range series {
		if err := e.send(e.createCreateTimeSeriesRequestProto(s)); err != nil {
			e.errorHandler(e, err)
		}
	}
}

// send submits req, retrying transient failures with capped Fibonacci
// backoff.
func (e *Exporter) send(req *monitoringpb.CreateTimeSeriesRequest) error {

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	b := retry.NewFibonacci(e.retryBase)
	b = retry.WithCappedDuration(maxRetryDelay, b)
	b = retry.WithMaxRetries(e.maxRetries, b)

	return retry.Do(ctx, b, func(ctx context.Context) error {

		err := e.client.CreateTimeSeries(ctx, req)
		if isRetryable(err) {
			return retry.RetryableError(err)
		}

		return err
	})
}

// isRetryable reports whether err is a transient Cloud Monitoring failure.
func isRetryable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	default:
		return false
	}
}

// Stop gracefully terminates the Exporter. It pushes any data already
// recorded, including the interval in progress, and then ceases operations.
func (e *Exporter) Stop() {

	e.terminate()

	// flush any remaining counts
	e.report(true)

	e.closeClient()
}

// terminate is the underlying close function used when the exporter needs to
// be stopped.
func (e *Exporter) terminate() {

	e.mu.Lock()
	if !e.running || e.stop == nil {
		e.mu.Unlock()
		return
	}

	stop, stopped := e.stop, e.stopped
	e.stop = nil
	e.mu.Unlock()

	// signal stop and wait for stopped
	close(stop)
	<-stopped
}

func (e *Exporter) closeClient() {
	if e.ownsClient && e.client != nil {
		_ = e.client.Close()
	}
}

// countToMetricPointProto converts a count into a monitoringpb.Point.
//
// note: the duration between the start and end times must be greater than
// 2 milliseconds for a valid Point as countToMetricPointProto will take 1
// millisecond from the end time.
func countToMetricPointProto(count *count) *monitoringpb.Point {
	return &monitoringpb.Point{
		Interval: &monitoringpb.TimeInterval{
			StartTime: timestamppb.New(count.start),

			// minus millisecond because: "The new start time must be at least a
			// millisecond after the end time of the previous interval."
			EndTime: timestamppb.New(count.end.Add(time.Millisecond * -1)),
		},
		Value: &monitoringpb.TypedValue{
			Value: &monitoringpb.TypedValue_Int64Value{
				Int64Value: count.count,
			},
		},
	}
}

// getGcpProjectPath takes a project id and returns the expected GCP project path.
func getGcpProjectPath(projectId string) string {
	return path.Join(projectPathPrefix, projectId)
}

// createTimeSeriesProto builds the monitoringpb.TimeSeries of metric within
// the Exporter's monitored resource.
func (e *Exporter) createTimeSeriesProto(metric *metricpb.Metric, points []*monitoringpb.Point) *monitoringpb.TimeSeries {
	return &monitoringpb.TimeSeries{
		Metric:     metric,
		MetricKind: metricpb.MetricDescriptor_CUMULATIVE,
		Resource: &monitoredres.MonitoredResource{
			Type:   e.resourceName,
			Labels: e.resourceLabels,
		},
		Points: points,
	}
}

// createCreateTimeSeriesRequestProto wraps series in a request scoped to the
// Exporter's project.
func (e *Exporter) createCreateTimeSeriesRequestProto(series []*monitoringpb.TimeSeries) *monitoringpb.CreateTimeSeriesRequest {
	return &monitoringpb.CreateTimeSeriesRequest{
		Name:       getGcpProjectPath(e.resourceLabels[resourceLabelKeyProjectId]),
		TimeSeries: series,
	}
}
