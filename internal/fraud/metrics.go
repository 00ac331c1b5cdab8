package fraud

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	evaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraud_evaluations_total",
			Help: "Total number of account fraud evaluations by risk level",
		},
		[]string{"risk_level"},
	)

	accountsPausedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fraud_accounts_paused_total",
			Help: "Total number of accounts paused by fraud evaluation",
		},
	)
)
