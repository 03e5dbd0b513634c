package resilience

import "time"

// CircuitBreakerConfig carries the breaker settings for one upstream
// dependency. Call Normalize before use; the zero value has no sane
// thresholds.
type CircuitBreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	OpenTimeout      time.Duration
	HalfOpenMaxReq   int
}

// Normalize returns a copy with unset fields replaced by the defaults:
// five consecutive failures open the breaker for 15s, then two trial
// requests are allowed half-open.
func (cfg CircuitBreakerConfig) Normalize() CircuitBreakerConfig {
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 15 * time.Second
	}
	if cfg.HalfOpenMaxReq < 1 {
		cfg.HalfOpenMaxReq = 2
	}
	return cfg
}
