// Package observability provides production-grade observability infrastructure
// for the ingestion core: structured logging with context propagation.
//
// Subpackages:
//   - logging: Structured logging utilities with slog
//
// Prometheus metrics for the scheduler live alongside the scheduler itself,
// in internal/infra/scheduler, rather than under this package.
//
// Example usage:
//
//	import "omninews-ingest/internal/observability/logging"
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("application started")
//	}
package observability
