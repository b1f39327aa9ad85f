package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all agenda metrics
const namespace = "agenda"

// Registry is the global Prometheus registry for all metrics
var Registry = prometheus.NewRegistry()

var initOnce sync.Once

// AppInfo is a gauge that exposes application version information as labels
var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always set to 1, version info in labels)",
	},
	[]string{"version", "commit", "build_date"},
)

// Auth metrics

// AuthFailuresTotal counts requests rejected by the auth gate
var AuthFailuresTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_failures_total",
		Help:      "Total number of requests rejected by the authentication gate",
	},
	[]string{"reason"}, // reason: missing_token|invalid_token|unknown_user|forbidden
)

// LoginAttemptsTotal counts login attempts by outcome
var LoginAttemptsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts",
	},
	[]string{"result"}, // result: success|invalid_credentials|invalid|error
)

// RegistrationsTotal counts account registrations by outcome
var RegistrationsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of account registrations",
	},
	[]string{"result"}, // result: success|duplicate_email|invalid|error
)

// Calendar metrics

// EventMutationsTotal counts create/update/delete calls on the calendar
var EventMutationsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_mutations_total",
		Help:      "Total number of event mutations by operation and result",
	},
	[]string{"operation", "result"},
)

// DateConflictsTotal counts rejected writes that targeted an occupied date.
// source is "precheck" when the lookup caught it and "constraint" when the
// storage uniqueness constraint did.
var DateConflictsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "date_conflicts_total",
		Help:      "Total number of event writes rejected because the date was taken",
	},
	[]string{"operation", "source"},
)

// Init registers runtime collectors and sets version information. Safe to call
// more than once.
func Init(version, commit, buildDate string) {
	initOnce.Do(func() {
		// Register default Go metrics (memory, goroutines, GC, etc.)
		Registry.MustRegister(collectors.NewGoCollector())

		// Register process metrics (CPU, memory, file descriptors)
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})

	AppInfo.WithLabelValues(version, commit, buildDate).Set(1)
}
