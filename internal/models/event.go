package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// BatchEnvelope is the container delivered per invocation by the streaming
// source: partition name -> ordered list of records
type BatchEnvelope struct {
	Records map[string][]BatchRecord `json:"records"`
}

// BatchRecord carries a single base64-encoded payload
type BatchRecord struct {
	Value string `json:"value"`
}

// RequiredEventFields lists every field an order event must carry before it
// can be enriched
var RequiredEventFields = []string{
	"uuid",
	"country",
	"business_model",
	"company",
	"order_id",
	"order_calculation_date",
	"order_date",
	"order_date_release",
	"order_itens",
	"person_status",
	"channel_id",
	"order_value",
	"order_status",
	"products",
	"consultant_code",
}

// RawEvent is a decoded order event. Field values are kept as raw JSON so
// enrichment republishes them byte-for-byte
type RawEvent struct {
	uuid   string
	fields map[string]json.RawMessage
}

// ParseRawEvent decodes and validates an event payload. All absent required
// fields are reported in a single MissingFieldError
func ParseRawEvent(data []byte) (*RawEvent, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("event payload is not a JSON object: %w", err)
	}

	var missing []string
	for _, name := range RequiredEventFields {
		if _, ok := fields[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingFieldError{Fields: missing}
	}

	ev := &RawEvent{fields: fields}
	if err := json.Unmarshal(fields["uuid"], &ev.uuid); err != nil {
		return nil, fmt.Errorf("event uuid must be a string: %w", err)
	}
	return ev, nil
}

// UUID returns the event identifier used as the audit key
func (e *RawEvent) UUID() string { return e.uuid }

// Field returns the raw JSON value of a field, or nil when absent
func (e *RawEvent) Field(name string) json.RawMessage { return e.fields[name] }

// ConsultantCode returns the scalar consultant code. A collection-typed value
// signals a nonexistent consultant and yields a ResolutionError
func (e *RawEvent) ConsultantCode() (string, error) {
	var v any
	if err := json.Unmarshal(e.fields["consultant_code"], &v); err != nil {
		return "", fmt.Errorf("consultant_code is not valid JSON: %w", err)
	}

	switch code := v.(type) {
	case string:
		return code, nil
	case float64:
		return strconv.FormatFloat(code, 'f', -1, 64), nil
	default:
		return "", &ResolutionError{Code: string(e.fields["consultant_code"])}
	}
}

// Country returns the numeric country the lookup is constrained by
func (e *RawEvent) Country() (int64, error) {
	var country int64
	if err := json.Unmarshal(e.fields["country"], &country); err != nil {
		return 0, fmt.Errorf("country must be numeric: %w", err)
	}
	return country, nil
}

// MissingFields reports required fields that are absent from the event
func (e *RawEvent) MissingFields() []string {
	var missing []string
	for _, name := range RequiredEventFields {
		if _, ok := e.fields[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// String renders the event for diagnostic payloads
func (e *RawEvent) String() string {
	b, err := json.Marshal(e.fields)
	if err != nil {
		return fmt.Sprintf("%v", e.fields)
	}
	return string(b)
}

// BusinessRelation is the single highest-priority relation resolved for a
// consultant: most recent eligible assignment, one row per person_code
type BusinessRelation struct {
	PersonCode         string
	StructureLevel     int32
	StructureCode      int64
	BusinessStatusCode int32
	Cycle              int32
	PersonID           *string
}
