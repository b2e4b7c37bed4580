// Package httpserver runs an http.Handler with graceful shutdown.
//
// Run binds the listener first, so a bad address fails fast with ErrStart,
// then serves until the context is cancelled or SIGINT/SIGTERM arrives.
// Shutdown drains in-flight requests and runs the hooks registered with
// WithShutdownHook, which is where the mfad binary closes its database pool
// and Redis client.
//
//	srv := httpserver.NewFromConfig(cfg.HTTP,
//		httpserver.WithLogger(log),
//		httpserver.WithShutdownHook(func(context.Context) error { pool.Close(); return nil }),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
//
// HealthHandler serves a JSON readiness report built from named checks.
package httpserver
