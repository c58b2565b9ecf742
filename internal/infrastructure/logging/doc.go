// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Log Levels:
//   - Debug: Verbose debugging information
//   - Info: General informational messages
//   - Warn: Warning messages
//   - Error: Error messages
//
// Features:
//   - Zero-allocation logging in production
//   - Structured fields for context
//   - Component-tagged child loggers
//   - Optional file sink with size-based rotation and gzip compression
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	log := logger.Component("lifecycle")
//	log.Info("Instance launched", zap.String("instance_id", string(inst.ID)))
//	log.Error("Switch failed", zap.Error(err))
package logging
