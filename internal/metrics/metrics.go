package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CodesIssued counts one-time codes generated, by channel and purpose.
	CodesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faithconnect_otp_codes_issued_total",
			Help: "One-time codes generated",
		},
		[]string{"channel", "purpose"},
	)

	// CodeVerifications counts verification attempts by result.
	CodeVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faithconnect_otp_verifications_total",
			Help: "One-time code verification attempts",
		},
		[]string{"result"}, // login, signup, invalid, conflict
	)

	// Deliveries counts outbound SMS and email deliveries.
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faithconnect_deliveries_total",
			Help: "Outbound SMS and email deliveries",
		},
		[]string{"channel", "kind", "status"}, // kind: code or notification
	)

	// ActionsAwarded counts campaign action completions.
	ActionsAwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faithconnect_campaign_actions_awarded_total",
			Help: "Campaign actions awarded to businesses",
		},
		[]string{"action_type"},
	)

	// RewardsGranted counts unlocked rewards.
	RewardsGranted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faithconnect_campaign_rewards_granted_total",
			Help: "Campaign rewards unlocked by businesses",
		},
		[]string{"reward_type"},
	)

	// EvaluationDuration tracks campaign engine runs.
	EvaluationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "faithconnect_campaign_evaluation_duration_seconds",
			Help: "Duration of campaign progress evaluations in seconds",
			Buckets: []float64{
				0.005, // 5ms
				0.01,  // 10ms
				0.025, // 25ms
				0.05,  // 50ms
				0.1,   // 100ms
				0.25,  // 250ms
				0.5,   // 500ms
				1.0,   // 1s
				2.5,   // 2.5s
				5.0,   // 5s
			},
		},
		[]string{"status"}, // success, failure or panic
	)
)

func RecordCodeIssued(channel, purpose string) {
	CodesIssued.WithLabelValues(channel, purpose).Inc()
}

func RecordVerification(result string) {
	CodeVerifications.WithLabelValues(result).Inc()
}

// RecordDelivery records one outbound delivery attempt.
func RecordDelivery(channel, kind string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	Deliveries.WithLabelValues(channel, kind, status).Inc()
}

func RecordActionAwarded(actionType string) {
	ActionsAwarded.WithLabelValues(actionType).Inc()
}

func RecordRewardGranted(rewardType string) {
	RewardsGranted.WithLabelValues(rewardType).Inc()
}

// RecordEvaluationDuration records the duration of one engine run.
func RecordEvaluationDuration(status string, duration float64) {
	EvaluationDuration.WithLabelValues(status).Observe(duration)
}
