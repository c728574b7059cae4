package models

// FailureEnvelope is the diagnostic payload published to the failure topic
// when a record cannot be fully processed
type FailureEnvelope struct {
	Lambda              string         `json:"lambda"`
	EventProcessorError ProcessorError `json:"eventProcessorError"`
	PayloadEvent        string         `json:"payloadEvent"`
}

// ProcessorError carries the causing error's message
type ProcessorError struct {
	Message string `json:"message"`
}
