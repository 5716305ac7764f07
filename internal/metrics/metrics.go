// Package metrics exposes Prometheus counters for the auth flows.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status label values.
const (
	StatusSuccess      = "success"
	StatusInvalid      = "invalid"
	StatusMalformed    = "malformed"
	StatusUnauthorized = "unauthorized"
	StatusAmbiguous    = "ambiguous"
	StatusError        = "error"
)

// Registrations counts register attempts by outcome.
var Registrations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_registrations_total",
		Help: "Total number of registration attempts by status",
	},
	[]string{"status"},
)

// Logins counts login attempts by outcome.
var Logins = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_logins_total",
		Help: "Total number of login attempts by status",
	},
	[]string{"status"},
)

// Refreshes counts refresh token exchanges by outcome.
var Refreshes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_refreshes_total",
		Help: "Total number of refresh token exchanges by status",
	},
	[]string{"status"},
)

// TokensIssued counts signed tokens by type (ACCESS or REFRESH).
var TokensIssued = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_tokens_issued_total",
		Help: "Total number of signed session tokens by type",
	},
	[]string{"type"},
)

// RegisterMetrics registers the package counters with reg.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Registrations)
	reg.MustRegister(Logins)
	reg.MustRegister(Refreshes)
	reg.MustRegister(TokensIssued)
}

// NewRegistry returns a registry holding the Go runtime collector and the
// package counters.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	RegisterMetrics(reg)
	return reg
}

// Handler serves reg in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func RecordRegistration(status string) { Registrations.WithLabelValues(status).Inc() }

func RecordLogin(status string) { Logins.WithLabelValues(status).Inc() }

func RecordRefresh(status string) { Refreshes.WithLabelValues(status).Inc() }

func RecordTokenIssued(tokenType string) { TokensIssued.WithLabelValues(tokenType).Inc() }
