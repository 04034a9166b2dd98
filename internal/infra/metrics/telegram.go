package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		accountsCreatedTotal,
		telegramCommandsReceivedTotal,
		telegramRateLimitTriggeredTotal,
		telegramWebhookPending,
	)
}

var (
	accountsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_accounts_created_total",
			Help: "Total number of accounts created on first contact.",
		},
	)

	telegramCommandsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_telegram_commands_total",
			Help: "Counts bot commands by token and resulting status.",
		},
		[]string{"command", "status"},
	)

	telegramRateLimitTriggeredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_telegram_rate_limit_triggered_total",
			Help: "Total number of times users have been rate-limited.",
		},
	)

	telegramWebhookPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridge_telegram_webhook_pending_updates",
			Help: "Pending update count reported by getWebhookInfo.",
		},
	)
)

func IncAccountsCreated() {
	accountsCreatedTotal.Inc()
}

func IncTelegramCommand(command, status string) {
	telegramCommandsReceivedTotal.WithLabelValues(norm(command), norm(status)).Inc()
}

func IncRateLimitTriggered() {
	telegramRateLimitTriggeredTotal.Inc()
}

func SetWebhookPending(n int) {
	telegramWebhookPending.Set(float64(n))
}
