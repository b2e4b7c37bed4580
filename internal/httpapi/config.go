package httpapi

import "time"

// Config holds the HTTP layer settings.
type Config struct {
	VerifyBurst          int           `env:"MFA_VERIFY_BURST" envDefault:"5"`
	VerifyRefillInterval time.Duration `env:"MFA_VERIFY_REFILL_INTERVAL" envDefault:"1m"`
	HealthTimeout        time.Duration `env:"HEALTH_TIMEOUT" envDefault:"2s"`
	MaxBodyBytes         int64         `env:"HTTP_MAX_BODY_BYTES" envDefault:"4096"`
	TrustedProxies       []string      `env:"HTTP_TRUSTED_PROXIES" envSeparator:","` // CIDRs whose forwarding headers are honored
}
