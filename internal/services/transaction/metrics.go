package transaction

import "alumnet/internal/logger"

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordOperationResult(string, string)  {}
func (n *NoopMetricsCollector) RecordTransactionOpened(bool, float64) {}
func (n *NoopMetricsCollector) RecordFeedback(int)                    {}

// LogMetricsCollector writes measurements as debug log lines.
type LogMetricsCollector struct {
	log *logger.Logger
}

func NewLogMetricsCollector(log *logger.Logger) *LogMetricsCollector {
	return &LogMetricsCollector{log: logger.OrNop(log).With("component", "ledger_metrics")}
}

func (m *LogMetricsCollector) RecordOperationResult(operation, result string) {
	m.log.Debug("ledger operation", "operation", operation, "result", result)
}

func (m *LogMetricsCollector) RecordTransactionOpened(balanced bool, totalValue float64) {
	m.log.Debug("transaction opened", "balanced", balanced, "total_value", totalValue)
}

func (m *LogMetricsCollector) RecordFeedback(rating int) {
	m.log.Debug("feedback recorded", "rating", rating)
}
