package main

import (
	"fmt"
	"time"

	"github.com/dmitrymomot/mfakit/internal/httpapi"
	"github.com/dmitrymomot/mfakit/pkg/config"
	"github.com/dmitrymomot/mfakit/pkg/httpserver"
	"github.com/dmitrymomot/mfakit/pkg/logger"
	"github.com/dmitrymomot/mfakit/pkg/mfa"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type appConfig struct {
	StoreDriver    string        `env:"STORE_DRIVER" envDefault:"memory"`
	RunMigrations  bool          `env:"PG_RUN_MIGRATIONS" envDefault:"true"`
	ConnectTimeout time.Duration `env:"STARTUP_TIMEOUT" envDefault:"30s"`
	Metrics        bool          `env:"METRICS_ENABLED" envDefault:"true"`

	Audit           bool `env:"AUDIT_ENABLED" envDefault:"true"`
	AuditBufferSize int  `env:"AUDIT_BUFFER_SIZE" envDefault:"1000"`
	AuditBatchSize  int  `env:"AUDIT_BATCH_SIZE" envDefault:"100"`
}

type settings struct {
	App  appConfig
	Log  logger.Config
	HTTP httpserver.Config
	API  httpapi.Config
	MFA  mfa.Config
}

// loadSettings reads the configuration every driver needs. Driver specific
// settings (PG_*, REDIS_*, MFA_ENCRYPTION_KEY) are loaded when the driver is built.
func loadSettings() (settings, error) {
	var s settings
	if err := config.Load(&s.App); err != nil {
		return s, err
	}
	if err := config.Load(&s.Log); err != nil {
		return s, err
	}
	if err := config.Load(&s.HTTP); err != nil {
		return s, err
	}
	if err := config.Load(&s.API); err != nil {
		return s, err
	}
	if err := config.Load(&s.MFA); err != nil {
		return s, err
	}

	switch s.App.StoreDriver {
	case DriverMemory, DriverPostgres, DriverRedis:
	default:
		return s, fmt.Errorf("unknown STORE_DRIVER %q: must be %s, %s or %s",
			s.App.StoreDriver, DriverMemory, DriverPostgres, DriverRedis)
	}
	if s.API.VerifyBurst < 1 || s.API.VerifyRefillInterval <= 0 {
		return s, fmt.Errorf("MFA_VERIFY_BURST and MFA_VERIFY_REFILL_INTERVAL must be positive")
	}
	return s, nil
}
