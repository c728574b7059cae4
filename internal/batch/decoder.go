package batch

import (
	"encoding/base64"
	"log/slog"

	"github.com/hmeira/order-enricher/internal/models"
)

// Decode flattens the partitioned envelope into a sequence of decoded
// payloads. Partition iteration order is unspecified; within a partition the
// original record order is preserved. Malformed records are skipped, a
// missing records field fails the whole invocation
func Decode(env models.BatchEnvelope, logger *slog.Logger) ([][]byte, error) {
	if env.Records == nil {
		return nil, models.ErrNoRecords
	}

	var payloads [][]byte
	for partition, records := range env.Records {
		for _, record := range records {
			value, err := base64.StdEncoding.DecodeString(record.Value)
			if err != nil {
				logger.Error("Failed to decode base64 record value",
					"partition", partition,
					"error", err,
				)
				continue
			}
			payloads = append(payloads, value)
		}
	}
	return payloads, nil
}
