// Package metrics holds the Prometheus collectors of the admin panel. They are
// registered with the default registry on import and served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "useradmin"

// Result label values shared by the counters below.
const (
	ResultOK        = "ok"
	ResultDuplicate = "duplicate"
	ResultNotFound  = "not_found"
	ResultError     = "error"
	ResultSkipped   = "skipped"
)

// UserOperationsTotal counts account service mutations.
// Labels:
//   - op: create, update or delete
//   - result: ok, duplicate, not_found or error
var UserOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "user_operations_total",
		Help:      "Total number of user create/update/delete operations by result.",
	},
	[]string{"op", "result"},
)

// LoginsTotal counts login attempts by result (ok or error).
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts by result.",
	},
	[]string{"result"},
)

// RolesCreatedTotal counts roles created by reconciliation.
var RolesCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "roles_created_total",
		Help:      "Total number of default roles created at bootstrap.",
	},
)

// BootstrapSeedsTotal counts seed account decisions.
// Labels:
//   - account: the seeded username
//   - result: ok, skipped (already present) or error
var BootstrapSeedsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bootstrap_seeds_total",
		Help:      "Total number of bootstrap seed attempts by account and result.",
	},
	[]string{"account", "result"},
)
