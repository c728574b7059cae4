package processor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hmeira/order-enricher/internal/batch"
	"github.com/hmeira/order-enricher/internal/enricher"
	"github.com/hmeira/order-enricher/internal/models"
	"github.com/hmeira/order-enricher/pkg/encoding"
	"github.com/hmeira/order-enricher/pkg/metrics"

	"github.com/google/uuid"
)

// RelationResolver defines the business-relation lookup contract
type RelationResolver interface {
	Resolve(ctx context.Context, ev *models.RawEvent) (*models.BusinessRelation, error)
}

// Publisher defines the dual-topic publishing contract
type Publisher interface {
	PublishSuccess(ctx context.Context, key string, value []byte) error
	PublishFailure(ctx context.Context, value []byte) error
}

// Recorder defines the audit-trail contract
type Recorder interface {
	Record(ctx context.Context, rec models.HistoryRecord) error
}

// Dispatcher drives each decoded record through resolve, enrich, publish and
// history, isolating failures to the failing record
type Dispatcher struct {
	resolver   RelationResolver
	producer   Publisher
	recorder   Recorder
	lambdaName string
	logger     *slog.Logger
	now        func() time.Time
}

func NewDispatcher(r RelationResolver, p Publisher, h Recorder, lambdaName string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		resolver:   r,
		producer:   p,
		recorder:   h,
		lambdaName: lambdaName,
		logger:     logger,
		now:        time.Now,
	}
}

// HandleBatch processes one batch envelope, record by record, strictly
// sequentially. No single record's outcome aborts the batch; only a missing
// records field ends the invocation early, and even that is logged rather
// than propagated
func (d *Dispatcher) HandleBatch(ctx context.Context, env models.BatchEnvelope) error {
	start := time.Now()
	l := d.logger.With("invocation_id", uuid.NewString())

	payloads, err := batch.Decode(env, l)
	if err != nil {
		if errors.Is(err, models.ErrNoRecords) {
			l.Error("'records' is missing: event data might be malformed")
			return nil
		}
		return err
	}

	metrics.BatchSize.Observe(float64(len(payloads)))
	defer func() {
		metrics.BatchDuration.Observe(time.Since(start).Seconds())
		l.Info("Batch cycle finished",
			"count", len(payloads),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}()

	for _, payload := range payloads {
		d.processRecord(ctx, l, payload)
	}
	return nil
}

// processRecord walks one record through the state machine. Terminal
// outcomes: success (history row written), skipped (unknown consultant) or
// failed (envelope on the failure topic)
func (d *Dispatcher) processRecord(ctx context.Context, l *slog.Logger, payload []byte) {
	ev, err := models.ParseRawEvent(payload)
	if err != nil {
		l.Error("Failed to parse record payload", "error", err)
		// The payload never parsed, so the envelope carries its raw form
		d.emitFailure(ctx, l, encoding.ToUTF8(payload), err)
		metrics.RecordsProcessed.WithLabelValues("failed", "parse").Inc()
		return
	}

	l = l.With("uuid", ev.UUID())
	l.Info("Processing received message", "order_id", string(ev.Field("order_id")))

	relation, err := d.resolver.Resolve(ctx, ev)
	if err != nil {
		l.Error("Business relation resolution failed", "error", err)
		d.emitFailure(ctx, l, ev.String(), err)
		metrics.RecordsProcessed.WithLabelValues("failed", "resolve").Inc()
		return
	}
	if relation == nil {
		l.Warn("ConsultantCode Inexistente", "consultant_code", string(ev.Field("consultant_code")))
		metrics.RecordsProcessed.WithLabelValues("skipped", "resolve").Inc()
		return
	}

	message, err := enricher.Enrich(ev, relation)
	if err != nil {
		l.Error("Failed to build enriched message", "error", err)
		d.emitFailure(ctx, l, ev.String(), err)
		metrics.RecordsProcessed.WithLabelValues("failed", "enrich").Inc()
		return
	}

	if err := d.producer.PublishSuccess(ctx, ev.UUID(), message); err != nil {
		l.Error("Failed to publish enriched message", "error", err)
		d.emitFailure(ctx, l, ev.String(), err)
		metrics.RecordsProcessed.WithLabelValues("failed", "publish").Inc()
		return
	}

	record := models.NewHistoryRecord(ev.UUID(), message, d.now())
	if err := d.recorder.Record(ctx, record); err != nil {
		// The success publish is already acknowledged at this point; the
		// failure envelope is emitted anyway, accepting the duplication risk
		l.Error("History write failed after publish", "error", err)
		d.emitFailure(ctx, l, ev.String(), err)
		metrics.RecordsProcessed.WithLabelValues("failed", "history").Inc()
		return
	}

	metrics.RecordsProcessed.WithLabelValues("success", "recorded").Inc()
}

// emitFailure publishes a diagnostic envelope with the best available
// representation of the record. A failure to publish it is only logged
func (d *Dispatcher) emitFailure(ctx context.Context, l *slog.Logger, payloadEvent string, cause error) {
	envelope := models.FailureEnvelope{
		Lambda:              d.lambdaName,
		EventProcessorError: models.ProcessorError{Message: cause.Error()},
		PayloadEvent:        payloadEvent,
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		l.Error("Failed to serialize failure envelope", "error", err)
		return
	}
	if err := d.producer.PublishFailure(ctx, body); err != nil {
		l.Error("Failed to publish failure envelope", "error", err)
	}
}
