package enricher

import (
	"encoding/json"
	"fmt"

	"github.com/hmeira/order-enricher/internal/models"
)

// Enrich merges the original order fields with the resolved business relation
// into the canonical outbound shape and serializes it. The relation must be
// non-empty; the caller checks that before invoking
func Enrich(ev *models.RawEvent, relation *models.BusinessRelation) ([]byte, error) {
	if relation == nil {
		return nil, fmt.Errorf("business relation must not be empty")
	}
	if missing := ev.MissingFields(); len(missing) > 0 {
		return nil, &models.MissingFieldError{Fields: missing}
	}

	message := make(map[string]any, len(models.RequiredEventFields)+5)
	for _, name := range models.RequiredEventFields {
		// consultant_code is replaced by the resolved person_code below
		if name == "consultant_code" {
			continue
		}
		message[name] = ev.Field(name)
	}

	message["consultant_code"] = relation.PersonCode
	message["structure_level"] = relation.StructureLevel
	message["structure_code"] = relation.StructureCode
	message["business_status_code"] = relation.BusinessStatusCode
	message["business_status_cycle"] = relation.Cycle

	// person_id renders as its string form or null, never a native numeric
	if relation.PersonID != nil {
		message["person_id"] = *relation.PersonID
	} else {
		message["person_id"] = nil
	}

	out, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize enriched message: %w", err)
	}
	return out, nil
}
