// Package redis connects to Redis with go-redis/v9 for the redis-backed MFA
// store and rate limiter.
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//	client, err := redis.Connect(ctx, cfg)
//
// Healthcheck adapts a client into a probe for the HTTP /health endpoint and
// Key builds namespaced keys such as "mfa:record:<user>".
package redis
