// Package config loads application configuration for apikit clients.
//
// Values come from a YAML file, a .env file and the process environment,
// in increasing order of precedence. Environment variables map onto nested
// keys by splitting on underscores: API_BASE_URL sets api.base_url.
//
//	cfg, err := config.LoadClient("billing-worker")
//	client, err := httpclient.New(cfg.API)
//	monitor, err := health.New(client, cfg.Health)
package config
