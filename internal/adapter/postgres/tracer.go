package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/pawpulse/internal/adapter/metrics"
)

// QueryTracer records query latency and failures, labelled by statement kind.
type QueryTracer struct {
	metrics *metrics.DatabaseMetrics
	clock   clockwork.Clock
}

var _ pgx.QueryTracer = (*QueryTracer)(nil)

func NewQueryTracer(m *metrics.DatabaseMetrics, clock clockwork.Clock) *QueryTracer {
	return &QueryTracer{metrics: m, clock: clock}
}

type queryContextKey struct{}

type queryStart struct {
	at        time.Time
	operation string
}

func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryContextKey{}, queryStart{at: t.clock.Now(), operation: operation(data.SQL)})
}

func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryContextKey{}).(queryStart)
	if !ok || t.metrics == nil {
		return
	}

	t.metrics.QueryDuration.WithLabelValues(start.operation).Observe(t.clock.Since(start.at).Seconds())
	if data.Err != nil && !notFound(data.Err) {
		t.metrics.QueryErrors.WithLabelValues(start.operation).Inc()
	}
}

// operation reduces SQL to its leading keyword to keep label cardinality bounded.
func operation(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	switch op := strings.ToUpper(fields[0]); op {
	case "SELECT", "INSERT", "UPDATE", "DELETE", "WITH":
		return strings.ToLower(op)
	default:
		return "other"
	}
}
