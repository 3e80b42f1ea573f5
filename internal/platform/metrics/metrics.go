package metrics

import (
	"sync/atomic"
	"time"
)

// Collector keeps cheap in-process counters for the health surface. It is
// not a metrics backend; it answers "is the engine refusing money" without
// one.
type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	settlements   uint64
	bulkRollbacks uint64
	spendDenials  uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// SettlementCommitted counts workers settled, single and bulk alike.
func (c *Collector) SettlementCommitted(workers int) {
	if workers > 0 {
		atomic.AddUint64(&c.settlements, uint64(workers))
	}
}

// SpendDenied counts availability-gate refusals across every spend path.
func (c *Collector) SpendDenied() {
	atomic.AddUint64(&c.spendDenials, 1)
}

// BulkRolledBack counts bulk runs aborted by the aggregate funds gate.
func (c *Collector) BulkRolledBack() {
	atomic.AddUint64(&c.bulkRollbacks, 1)
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":       total,
		"errorsTotal":         atomic.LoadUint64(&c.errorRequests),
		"rateLimitedTotal":    atomic.LoadUint64(&c.rateLimited),
		"avgDurationMs":       avg,
		"workersSettledTotal": atomic.LoadUint64(&c.settlements),
		"spendDenialsTotal":   atomic.LoadUint64(&c.spendDenials),
		"bulkRollbacksTotal":  atomic.LoadUint64(&c.bulkRollbacks),
	}
}
