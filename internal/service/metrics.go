package service

import (
	"math/big"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"shareVault/internal/model"
	"shareVault/internal/vault"
)

// Metrics holds the Prometheus metrics for vault operations.
type Metrics struct {
	opsTotal        *prometheus.CounterVec
	totalAssets     prometheus.Gauge
	totalSupply     prometheus.Gauge
	journalFailures prometheus.Counter
	compensations   *prometheus.CounterVec
}

// NewMetrics creates and registers the metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		opsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_operations_total",
			Help: "Vault operations, labeled by operation and result.",
		}, []string{"op", "result"}),
		totalAssets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vault_total_assets",
			Help: "Accounted holdings of the underlying asset in base units.",
		}),
		totalSupply: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vault_total_supply",
			Help: "Shares outstanding in base units.",
		}),
		journalFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vault_journal_failures_total",
			Help: "Committed operations that could not be journaled.",
		}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_compensations_total",
			Help: "Compensating transfers issued after a failed commit, labeled by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.opsTotal, m.totalAssets, m.totalSupply, m.journalFailures, m.compensations)
	return m
}

func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}
	m.opsTotal.WithLabelValues(op, resultLabel(err)).Inc()
}

func (m *Metrics) setTotals(state model.PoolState) {
	if m == nil {
		return
	}
	m.totalAssets.Set(toFloat(state.TotalAssets.ToBig()))
	m.totalSupply.Set(toFloat(state.TotalSupply.ToBig()))
}

func (m *Metrics) journalFailed() {
	if m == nil {
		return
	}
	m.journalFailures.Inc()
}

func (m *Metrics) compensated(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.compensations.WithLabelValues("failed").Inc()
		return
	}
	m.compensations.WithLabelValues("ok").Inc()
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if code := vault.CodeOf(err); code != 0 {
		return strings.ReplaceAll(code.String(), " ", "_")
	}
	return "error"
}

func toFloat(x *big.Int) float64 {
	f, _ := new(big.Float).SetInt(x).Float64()
	return f
}
