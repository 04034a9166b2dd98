package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(storeConnections, accountCacheLookups) }

var (
	storeConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bridge_store_connections",
			Help: "Connections held by the account store pool.",
		},
		[]string{"driver", "state"}, // driver: postgres|sqlite; state: open|idle|in_use
	)

	accountCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_account_cache_lookups_total",
			Help: "Account lookups answered from Redis, by index and result.",
		},
		// index: channel|instance; result: hit|miss|stale
		[]string{"index", "result"},
	)
)

func SetStoreConnections(driver string, open, idle, inUse int) {
	driver = norm(driver)
	storeConnections.WithLabelValues(driver, "open").Set(float64(open))
	storeConnections.WithLabelValues(driver, "idle").Set(float64(idle))
	storeConnections.WithLabelValues(driver, "in_use").Set(float64(inUse))
}

// IncAccountCacheLookup counts one cached read. "stale" means the instance
// mapping pointed at an account that no longer holds that instance.
func IncAccountCacheLookup(index, result string) {
	accountCacheLookups.WithLabelValues(norm(index), norm(result)).Inc()
}
