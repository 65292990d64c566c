// Package logger provides structured logging for apikit using zerolog.
//
// Library packages obtain a component-scoped logger with Get and never
// configure output themselves. Applications call Init once at startup, or
// Register a logger for a component name to redirect that component only.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "console"
//
// # Usage
//
//	log := logger.Get("httpclient")
//	log.Debug("request completed", logger.Fields(logger.FieldStatus, 200))
package logger
