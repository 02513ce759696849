package provider

import (
	"time"

	"github.com/sony/gobreaker"

	"dayview_server/pkg/logger"
)

// newProviderBreaker builds the circuit breaker every outbound provider
// adapter wraps its calls in. The breaker opens after sustained upstream
// failures so a degraded provider sheds load quickly instead of burning
// the per-source timeout on every aggregation pass.
func newProviderBreaker(name string, log *logger.Logger) *gobreaker.CircuitBreaker {
	if log == nil {
		log = logger.Default()
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("provider circuit breaker state changed")
		},
	})
}
