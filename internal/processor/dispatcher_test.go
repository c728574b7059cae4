package processor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hmeira/order-enricher/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test doubles
// ============================================================================

// fakeResolver mirrors the real resolver's contract: consultant-code
// validation first, then a lookup keyed by code
type fakeResolver struct {
	relations map[string]*models.BusinessRelation
	err       error
	calls     int
}

func (r *fakeResolver) Resolve(ctx context.Context, ev *models.RawEvent) (*models.BusinessRelation, error) {
	r.calls++
	code, err := ev.ConsultantCode()
	if err != nil {
		return nil, err
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.relations[code], nil
}

type fakePublisher struct {
	successes  [][]byte
	failures   [][]byte
	successErr error
}

func (p *fakePublisher) PublishSuccess(ctx context.Context, key string, value []byte) error {
	if p.successErr != nil {
		return p.successErr
	}
	p.successes = append(p.successes, value)
	return nil
}

func (p *fakePublisher) PublishFailure(ctx context.Context, value []byte) error {
	p.failures = append(p.failures, value)
	return nil
}

type fakeRecorder struct {
	records []models.HistoryRecord
	err     error
}

func (r *fakeRecorder) Record(ctx context.Context, rec models.HistoryRecord) error {
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, rec)
	return nil
}

// ============================================================================
// Helpers
// ============================================================================

func newTestDispatcher(r *fakeResolver, p *fakePublisher, h *fakeRecorder) *Dispatcher {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := NewDispatcher(r, p, h, "order-enricher-test", logger)
	d.now = func() time.Time {
		return time.Date(2025, 8, 30, 14, 22, 31, 0, time.UTC)
	}
	return d
}

func eventPayload(t *testing.T, overrides map[string]any) []byte {
	t.Helper()
	fields := map[string]any{
		"uuid":                   "9f2c1d7e-0001-4000-8000-000000000001",
		"country":                55,
		"business_model":         1,
		"company":                1,
		"order_id":               123456,
		"order_calculation_date": "2025-08-30",
		"order_date":             "2025-08-29",
		"order_date_release":     "2025-08-31",
		"order_itens":            3,
		"person_status":          1,
		"channel_id":             7,
		"order_value":            150.75,
		"order_status":           "approved",
		"products":               []string{"sku-1"},
		"consultant_code":        "C1",
	}
	for k, v := range overrides {
		fields[k] = v
	}
	data, err := json.Marshal(fields)
	require.NoError(t, err)
	return data
}

func envelopeOf(payloads ...[]byte) models.BatchEnvelope {
	records := make([]models.BatchRecord, 0, len(payloads))
	for _, p := range payloads {
		records = append(records, models.BatchRecord{
			Value: base64.StdEncoding.EncodeToString(p),
		})
	}
	return models.BatchEnvelope{Records: map[string][]models.BatchRecord{"orders-0": records}}
}

func eligibleRelation() *models.BusinessRelation {
	id := "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	return &models.BusinessRelation{
		PersonCode:         "C1",
		StructureLevel:     4,
		StructureCode:      8123,
		BusinessStatusCode: 2,
		Cycle:              202508,
		PersonID:           &id,
	}
}

func decodeFailure(t *testing.T, data []byte) models.FailureEnvelope {
	t.Helper()
	var envelope models.FailureEnvelope
	require.NoError(t, json.Unmarshal(data, &envelope))
	return envelope
}

// ============================================================================
// Batch-level behavior
// ============================================================================

func TestMissingRecordsEndsInvocationQuietly(t *testing.T) {
	resolver := &fakeResolver{}
	publisher := &fakePublisher{}
	recorder := &fakeRecorder{}
	d := newTestDispatcher(resolver, publisher, recorder)

	err := d.HandleBatch(context.Background(), models.BatchEnvelope{})

	require.NoError(t, err)
	assert.Zero(t, resolver.calls)
	assert.Empty(t, publisher.successes)
	assert.Empty(t, publisher.failures)
	assert.Empty(t, recorder.records)
}

func TestBatchContinuesPastFailingRecord(t *testing.T) {
	resolver := &fakeResolver{relations: map[string]*models.BusinessRelation{
		"C1": eligibleRelation(),
	}}
	publisher := &fakePublisher{}
	recorder := &fakeRecorder{}
	d := newTestDispatcher(resolver, publisher, recorder)

	env := envelopeOf(
		eventPayload(t, nil),
		eventPayload(t, map[string]any{"consultant_code": []string{"X"}, "uuid": "u-2"}),
		eventPayload(t, map[string]any{"uuid": "u-3"}),
	)

	require.NoError(t, d.HandleBatch(context.Background(), env))

	assert.Len(t, publisher.successes, 2)
	assert.Len(t, publisher.failures, 1)
	assert.Len(t, recorder.records, 2)
}

// ============================================================================
// End-to-end scenarios
// ============================================================================

func TestScenarioSuccessfulEnrichment(t *testing.T) {
	resolver := &fakeResolver{relations: map[string]*models.BusinessRelation{
		"C1": eligibleRelation(),
	}}
	publisher := &fakePublisher{}
	recorder := &fakeRecorder{}
	d := newTestDispatcher(resolver, publisher, recorder)

	require.NoError(t, d.HandleBatch(context.Background(), envelopeOf(eventPayload(t, nil))))

	require.Len(t, publisher.successes, 1)
	assert.Empty(t, publisher.failures)

	var message map[string]any
	require.NoError(t, json.Unmarshal(publisher.successes[0], &message))
	assert.Equal(t, "C1", message["consultant_code"])
	assert.Equal(t, float64(8123), message["structure_code"])
	assert.Equal(t, float64(202508), message["business_status_cycle"])
	assert.Equal(t, "7c9e6679-7425-40de-944b-e07fc1f90ae7", message["person_id"])

	require.Len(t, recorder.records, 1)
	rec := recorder.records[0]
	assert.Equal(t, 1, rec.EngineID)
	assert.Equal(t, 14, rec.HourRange)
	assert.Equal(t, "9f2c1d7e-0001-4000-8000-000000000001", rec.UUID)
	assert.Equal(t, string(publisher.successes[0]), rec.Payload)
}

func TestScenarioUnknownConsultantIsSkipped(t *testing.T) {
	resolver := &fakeResolver{relations: map[string]*models.BusinessRelation{}}
	publisher := &fakePublisher{}
	recorder := &fakeRecorder{}
	d := newTestDispatcher(resolver, publisher, recorder)

	require.NoError(t, d.HandleBatch(context.Background(), envelopeOf(eventPayload(t, nil))))

	assert.Equal(t, 1, resolver.calls)
	assert.Empty(t, publisher.successes)
	assert.Empty(t, publisher.failures)
	assert.Empty(t, recorder.records)
}

func TestScenarioCollectionConsultantCodeGoesToFailureTopic(t *testing.T) {
	resolver := &fakeResolver{}
	publisher := &fakePublisher{}
	recorder := &fakeRecorder{}
	d := newTestDispatcher(resolver, publisher, recorder)

	payload := eventPayload(t, map[string]any{"consultant_code": []string{"C1", "C2"}})
	require.NoError(t, d.HandleBatch(context.Background(), envelopeOf(payload)))

	assert.Empty(t, publisher.successes)
	assert.Empty(t, recorder.records)
	require.Len(t, publisher.failures, 1)

	failure := decodeFailure(t, publisher.failures[0])
	assert.Equal(t, "order-enricher-test", failure.Lambda)
	assert.Contains(t, failure.EventProcessorError.Message, "ConsultantCode Inexistente")
	assert.Contains(t, failure.EventProcessorError.Message, "C1")

	var event map[string]any
	require.NoError(t, json.Unmarshal([]byte(failure.PayloadEvent), &event))
	assert.Equal(t, []any{"C1", "C2"}, event["consultant_code"])
}

func TestScenarioHistoryWriteFailureAfterPublish(t *testing.T) {
	resolver := &fakeResolver{relations: map[string]*models.BusinessRelation{
		"C1": eligibleRelation(),
	}}
	publisher := &fakePublisher{}
	recorder := &fakeRecorder{err: errors.New("history write failed: no hosts available")}
	d := newTestDispatcher(resolver, publisher, recorder)

	require.NoError(t, d.HandleBatch(context.Background(), envelopeOf(eventPayload(t, nil))))

	// the success publish is not retracted
	assert.Len(t, publisher.successes, 1)
	require.Len(t, publisher.failures, 1)

	failure := decodeFailure(t, publisher.failures[0])
	assert.Contains(t, failure.EventProcessorError.Message, "history write failed")
}

// ============================================================================
// Remaining failure stages
// ============================================================================

func TestUnparsablePayloadCarriesRawForm(t *testing.T) {
	resolver := &fakeResolver{}
	publisher := &fakePublisher{}
	recorder := &fakeRecorder{}
	d := newTestDispatcher(resolver, publisher, recorder)

	raw := []byte("not json at all")
	require.NoError(t, d.HandleBatch(context.Background(), envelopeOf(raw)))

	assert.Zero(t, resolver.calls)
	require.Len(t, publisher.failures, 1)

	failure := decodeFailure(t, publisher.failures[0])
	assert.Equal(t, "not json at all", failure.PayloadEvent)
}

func TestMissingFieldsGoToFailureTopic(t *testing.T) {
	resolver := &fakeResolver{}
	publisher := &fakePublisher{}
	recorder := &fakeRecorder{}
	d := newTestDispatcher(resolver, publisher, recorder)

	payload := []byte(`{"uuid": "u-1", "consultant_code": "C1"}`)
	require.NoError(t, d.HandleBatch(context.Background(), envelopeOf(payload)))

	require.Len(t, publisher.failures, 1)
	failure := decodeFailure(t, publisher.failures[0])
	assert.Contains(t, failure.EventProcessorError.Message, "missing required event fields")
	assert.Contains(t, failure.EventProcessorError.Message, "order_id")
}

func TestResolutionInfraErrorGoesToFailureTopic(t *testing.T) {
	resolver := &fakeResolver{err: fmt.Errorf("business relation lookup failed: connection refused")}
	publisher := &fakePublisher{}
	recorder := &fakeRecorder{}
	d := newTestDispatcher(resolver, publisher, recorder)

	require.NoError(t, d.HandleBatch(context.Background(), envelopeOf(eventPayload(t, nil))))

	assert.Empty(t, publisher.successes)
	require.Len(t, publisher.failures, 1)
	failure := decodeFailure(t, publisher.failures[0])
	assert.Contains(t, failure.EventProcessorError.Message, "connection refused")
}

func TestPublishFailureGoesToFailureTopic(t *testing.T) {
	resolver := &fakeResolver{relations: map[string]*models.BusinessRelation{
		"C1": eligibleRelation(),
	}}
	publisher := &fakePublisher{successErr: errors.New("publish to topic-success-process failed: timeout")}
	recorder := &fakeRecorder{}
	d := newTestDispatcher(resolver, publisher, recorder)

	require.NoError(t, d.HandleBatch(context.Background(), envelopeOf(eventPayload(t, nil))))

	assert.Empty(t, recorder.records)
	require.Len(t, publisher.failures, 1)
	failure := decodeFailure(t, publisher.failures[0])
	assert.Contains(t, failure.EventProcessorError.Message, "timeout")
}
