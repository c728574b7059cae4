package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hmeira/order-enricher/internal/models"
	"github.com/hmeira/order-enricher/pkg/metrics"

	"github.com/gocql/gocql"
)

// ScyllaRecorder appends audit rows to the message_history table. One row per
// successfully enriched message, no retries
type ScyllaRecorder struct {
	session *gocql.Session
	insert  string
	logger  *slog.Logger
}

func NewScyllaRecorder(session *gocql.Session, keyspace string, logger *slog.Logger) *ScyllaRecorder {
	return &ScyllaRecorder{
		session: session,
		insert: fmt.Sprintf(
			"INSERT INTO %s.message_history (engine_id, history_date, hour_range, uuid, last_update, payload) VALUES (?, ?, ?, ?, ?, ?)",
			keyspace,
		),
		logger: logger,
	}
}

// Record executes the insert synchronously. Failure propagates to the caller
func (r *ScyllaRecorder) Record(ctx context.Context, rec models.HistoryRecord) error {
	start := time.Now()
	err := r.session.Query(r.insert,
		rec.EngineID,
		rec.HistoryDate.Format("2006-01-02"),
		rec.HourRange,
		rec.UUID,
		rec.LastUpdate,
		rec.Payload,
	).WithContext(ctx).Exec()
	metrics.HistoryWriteDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		return fmt.Errorf("history write failed: %w", err)
	}

	r.logger.Debug("History row written", "uuid", rec.UUID)
	return nil
}
