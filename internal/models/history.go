package models

import "time"

// EngineID identifies this pipeline in the shared history keyspace
const EngineID = 1

// HistoryRecord is one append-only audit row per successfully enriched
// message. Never updated or deleted by this system
type HistoryRecord struct {
	EngineID    int
	HistoryDate time.Time
	HourRange   int
	UUID        string
	LastUpdate  time.Time
	Payload     string
}

// NewHistoryRecord builds the audit row for an enriched message processed at
// the given instant
func NewHistoryRecord(uuid string, payload []byte, now time.Time) HistoryRecord {
	return HistoryRecord{
		EngineID:    EngineID,
		HistoryDate: now,
		HourRange:   now.Hour(),
		UUID:        uuid,
		LastUpdate:  now.Truncate(time.Second),
		Payload:     string(payload),
	}
}
