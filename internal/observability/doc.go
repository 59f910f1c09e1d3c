// Package observability provides structured logging and metrics for the
// notebook kernel.
//
// This package implements:
//   - Structured logging with session fields (zap-based)
//   - Prometheus metrics for cells, denied exports, audit failures and queries
package observability
