package authcore

import "sync/atomic"

// MetricID names one engine counter.
type MetricID uint16

const (
	// MetricLoginSuccess counts completed logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected credential checks.
	MetricLoginFailure
	// MetricLoginRateLimited counts logins refused at admission.
	MetricLoginRateLimited
	// MetricSignupSuccess counts created accounts.
	MetricSignupSuccess
	// MetricSignupDuplicate counts signups rejected for a taken username.
	MetricSignupDuplicate
	// MetricSignupRateLimited counts signups refused at admission.
	MetricSignupRateLimited
	// MetricFederatedLogin counts federated resolutions that issued a token.
	MetricFederatedLogin
	// MetricFederatedSignup counts first federated logins that created an account.
	MetricFederatedSignup
	// MetricFederatedConflict counts provider-conflict rejections.
	MetricFederatedConflict
	// MetricTokenValidated counts successful bearer-token validations.
	MetricTokenValidated
	// MetricTokenRejected counts failed bearer-token validations.
	MetricTokenRejected
	// MetricRoleGranted counts role-grant operations.
	MetricRoleGranted
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters. A disabled instance turns
// every operation into a no-op.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics builds a counter set honoring cfg.Enabled.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether counting is active.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}

	s := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, int(metricIDCount)),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
