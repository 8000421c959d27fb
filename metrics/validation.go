package metrics

import "regexp"

const (
	// maxLengthMetricType provides the maximum length of a Google Cloud Metric_Type
	//
	// see: https://cloud.google.com/monitoring/api/v3/naming-conventions
	maxLengthMetricType = 200

	// maxLengthMetricLabelKey provides the maximum length of a Google Cloud Metric label key
	//
	// see: https://cloud.google.com/monitoring/api/v3/naming-conventions
	maxLengthMetricLabelKey = 100
)

var (
	// reMetricType provides the permissible pattern for Google Cloud Metric_Types.
	reMetricType = regexp.MustCompile(`^[a-zA-Z0-9]((/[a-zA-Z0-9])?[a-zA-Z0-9._]*)*$`)

	// reMetricLabelKey provides the pattern for Google Cloud Metric label keys.
	reMetricLabelKey = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// isMetricTypeValid asserts whether the provided string is a valid Google
// Cloud Metric_Type.
func isMetricTypeValid(metricType string) bool {
	return len(metricType) <= maxLengthMetricType && reMetricType.MatchString(metricType)
}

// isMetricLabelKeyValid asserts whether the provided string is a valid Google
// Cloud Metric label key.
func isMetricLabelKeyValid(key string) bool {
	return len(key) <= maxLengthMetricLabelKey && reMetricLabelKey.MatchString(key)
}
