package metricskey

import "github.com/effective-security/metrics"

// Perf
var (
	// PerfCoderOperation is perf metric
	PerfCoderOperation = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_coder",
		Help:         "perf_coder provides the sample metrics of token encode and decode operations",
		RequiredTags: []string{"coder", "action"},
	}

	// PerfDataProtection is perf metric
	PerfDataProtection = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_dataprotection",
		Help:         "perf_dataprotection provides the sample metrics of data protection operations",
		RequiredTags: []string{"action"},
	}
)

// Metrics returns slice of metrics from this repo
var Metrics = []*metrics.Describe{
	&PerfCoderOperation,
	&PerfDataProtection,
}
