package orchestrator

import "time"

// RetryPolicy controls waiting on transient model failures.
type RetryPolicy struct {
	// Cooldown is the wait after the first failure. Default: 60s.
	Cooldown time.Duration `yaml:"cooldown"`

	// MaxAttempts bounds the number of failed calls before giving up with
	// ErrRetriesExhausted. Zero retries forever.
	MaxAttempts int `yaml:"max_attempts"`

	// Multiplier grows the wait after each failure. Default: 1 (fixed).
	Multiplier float64 `yaml:"multiplier"`

	// MaxCooldown caps the grown wait. Default: 10m.
	MaxCooldown time.Duration `yaml:"max_cooldown"`
}

// defaults fills zero-value fields with sensible defaults.
func (p *RetryPolicy) defaults() {
	if p.Cooldown <= 0 {
		p.Cooldown = 60 * time.Second
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if p.MaxCooldown <= 0 {
		p.MaxCooldown = 10 * time.Minute
	}
	if p.MaxAttempts < 0 {
		p.MaxAttempts = 0
	}
}

// Backoff returns the wait before retrying after the given failed attempt
// (1-based). Unset fields take their defaults.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	p.defaults()
	d := p.Cooldown
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * p.Multiplier)
		if d >= p.MaxCooldown {
			return p.MaxCooldown
		}
	}
	return min(d, p.MaxCooldown)
}

// exhausted reports whether attempt failures used up the policy.
func (p RetryPolicy) exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt >= p.MaxAttempts
}
