package rewards

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var rewardsIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "referral_rewards_issued_total",
		Help: "Total number of referral rewards issued, by reward type",
	},
	[]string{"reward_type"},
)
