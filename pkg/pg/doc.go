// Package pg connects to PostgreSQL with pgx/v5 and applies the goose
// migrations the MFA store depends on.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, migrations.FS, cfg, log); err != nil {
//		return err
//	}
//
// Connect makes up to RetryAttempts attempts on a Fibonacci backoff starting at
// RetryInterval and gives up early when ctx is done.
//
// The Is*Error helpers classify pgx and PostgreSQL errors by SQLSTATE.
package pg
