// Package config loads struct-tagged configuration from the environment.
//
// It combines github.com/joho/godotenv for optional .env files with
// github.com/caarlos0/env/v11 for parsing. Each package owns its settings
// struct (mfa.Config, pg.Config, redis.Config, ...) and binaries load them:
//
//	var pgCfg pg.Config
//	config.MustLoad(&pgCfg)
//
// Load caches the result per struct type; call ResetCache in tests that
// change the environment between loads, or use Parse to skip the cache.
package config
