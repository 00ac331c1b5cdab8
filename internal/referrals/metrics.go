package referrals

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_events_total",
			Help: "Total number of referral events recorded by status",
		},
		[]string{"status"},
	)

	codesFlaggedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "referral_codes_flagged_total",
			Help: "Total number of referral codes flagged for fraud",
		},
	)
)
