package metrics

import (
	"errors"
	"fmt"
	"time"

	monitoring "cloud.google.com/go/monitoring/apiv3/v2"
	"github.com/benbjohnson/clock"
	"google.golang.org/api/option"
)

// Option defines a function for supplying the Exporter constructor with
// certain configurations.
type Option func(*Exporter) error

// OptionWithCloudMetricsClient allows a Cloud Monitoring client, which has
// been manually configured, to be supplied instead of using the default
// configuration. The caller remains responsible for closing it.
func OptionWithCloudMetricsClient(client *monitoring.MetricClient) Option {
	return func(exporter *Exporter) error {

		if client == nil {
			return errors.New("cloud metrics client must not be nil")
		}

		exporter.client = client
		return nil
	}
}

// OptionWithClientOptions passes opts, such as credentials, to the Cloud
// Monitoring client the Exporter creates for itself.
func OptionWithClientOptions(opts ...option.ClientOption) Option {
	return func(exporter *Exporter) error {
		exporter.clientOptions = append(exporter.clientOptions, opts...)
		return nil
	}
}

// OptionWithResourceType allows a Resource other than the default to be
// provided which will govern how metrics are filed in Google Cloud Monitoring.
func OptionWithResourceType(resource Resource) Option {
	return func(exporter *Exporter) error {

		labels := resource.Labels()

		value, ok := labels[resourceLabelKeyProjectId]
		if !ok || value == "" {
			return fmt.Errorf("missing required %s resource label", resourceLabelKeyProjectId)
		}

		exporter.resourceLabels = labels
		exporter.resourceName = resource.Type()

		return nil
	}
}

// OptionWithErrorHandler allows a way for reporting errors to be handled
// externally, for example if errors need to be logged.
func OptionWithErrorHandler(fn func(*Exporter, error)) Option {
	return func(exporter *Exporter) error {
		exporter.errorHandler = fn
		return nil
	}
}

// OptionWithRefreshInterval allows a way to specify how regularly metrics are
// pushed to Google Cloud. This does not affect how counts are aggregated.
func OptionWithRefreshInterval(interval time.Duration) Option {
	return func(exporter *Exporter) error {

		if interval <= 0 {
			return errors.New("refresh interval must be greater than 0")
		}

		exporter.refreshInterval = interval
		return nil
	}
}

// OptionWithRetries sets how many times a failed push is retried and the
// initial backoff between attempts.
func OptionWithRetries(maxRetries uint64, base time.Duration) Option {
	return func(exporter *Exporter) error {

		if base <= 0 {
			return errors.New("retry base must be greater than 0")
		}

		exporter.maxRetries = maxRetries
		exporter.retryBase = base
		return nil
	}
}

// OptionWithClock replaces the clock used for reporting and aggregation.
func OptionWithClock(c clock.Clock) Option {
	return func(exporter *Exporter) error {
		exporter.clock = c
		return nil
	}
}
