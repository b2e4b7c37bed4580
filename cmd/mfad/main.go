// Command mfad serves the MFA HTTP API.
//
// STORE_DRIVER selects where credentials live: memory (default, single
// instance, lost on restart), postgres or redis. The database drivers seal
// TOTP secrets with MFA_ENCRYPTION_KEY, generated by cmd/mfakey.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/mfakit/internal/httpapi"
	"github.com/dmitrymomot/mfakit/pkg/audit"
	"github.com/dmitrymomot/mfakit/pkg/clientip"
	"github.com/dmitrymomot/mfakit/pkg/httpserver"
	"github.com/dmitrymomot/mfakit/pkg/logger"
	"github.com/dmitrymomot/mfakit/pkg/mfa"
	"github.com/dmitrymomot/mfakit/pkg/mfa/mfaaudit"
	"github.com/dmitrymomot/mfakit/pkg/mfa/mfametrics"
	"github.com/dmitrymomot/mfakit/pkg/ratelimiter"
	"github.com/dmitrymomot/mfakit/pkg/requestid"
)

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("mfad stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}

	logOpts, err := s.Log.Options()
	if err != nil {
		return err
	}
	log := logger.New(append(logOpts, logger.WithContextExtractors(requestid.Extractor(), clientip.Extractor()))...)
	logger.SetAsDefault(log)

	startCtx, cancel := context.WithTimeout(ctx, s.App.ConnectTimeout)
	deps, err := buildBackend(startCtx, s, log)
	cancel()
	if err != nil {
		return err
	}

	limiter, err := ratelimiter.NewBucket(deps.limitStore, ratelimiter.Config{
		Capacity:       s.API.VerifyBurst,
		RefillRate:     1,
		RefillInterval: s.API.VerifyRefillInterval,
	})
	if err != nil {
		return errors.Join(err, deps.close(ctx))
	}

	var manager mfa.Manager = mfa.NewManager(deps.store, deps.eligibility,
		append(s.MFA.Options(), mfa.WithLogger(log.With(logger.Component("mfa"))))...)
	if s.App.Audit {
		auditLog := log.With(logger.Component("audit"))
		rec := deps.auditRecorder(s, auditLog,
			audit.WithRequestIDExtractor(requestid.FromContext),
			audit.WithContextMetadata("client_ip", clientip.FromContext),
		)
		manager = mfaaudit.Instrument(manager, rec, auditLog)
	}

	apiOpts := []httpapi.Option{
		httpapi.WithLogger(log.With(logger.Component("httpapi"))),
		httpapi.WithConfig(s.API),
		httpapi.WithLimiter(limiter),
	}
	for name, check := range deps.checks {
		apiOpts = append(apiOpts, httpapi.WithHealthCheck(name, check))
	}
	if s.App.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		manager = mfametrics.Instrument(manager, reg)
		apiOpts = append(apiOpts, httpapi.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	srv := httpserver.NewFromConfig(s.HTTP,
		httpserver.WithLogger(log),
		httpserver.WithShutdownHook(deps.close),
	)

	log.InfoContext(ctx, "mfad starting",
		slog.String("store", s.App.StoreDriver),
		slog.String("issuer", s.MFA.Issuer),
		slog.Bool("audit", s.App.Audit),
	)
	return srv.Run(ctx, httpapi.New(manager, apiOpts...).Router())
}
