// Package logger provides structured logging for the livescribe
// service using zerolog.
//
// It supports multiple output formats (JSON, console), log level
// configuration, and component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "console"
//
// # Usage
//
//	log := logger.Get("pipeline")
//	log.Info("segment emitted", logger.Fields("speaker", "You"))
package logger
