package contract

import (
	"encoding/json"
	"strings"
	"time"
)

// EventKind is the internal tag every provider payload variant collapses to.
type EventKind string

const (
	EventCompleted EventKind = "completed"
	EventDeclined  EventKind = "declined"
	EventCanceled  EventKind = "canceled"
	EventUnknown   EventKind = "unknown"
)

// SignatureEvent is the single internal event shape the state machine
// consumes, isolating it from the provider's payload quirks.
type SignatureEvent struct {
	Kind       EventKind
	RawType    string
	DocumentID string
	Timestamp  *time.Time
	Payload    []byte
}

// ParseEvent probes the differently-nested JSON shapes the provider sends
// across event variants and produces one tagged event. Unrecognized event
// types come back as EventUnknown, never as an error: an unknown event is
// acknowledged and dropped, not retried.
func ParseEvent(rawBody []byte) (*SignatureEvent, error) {
	var payload map[string]any
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, err
	}

	rawType := probeEventType(payload)
	event := &SignatureEvent{
		Kind:       classifyEventType(rawType),
		RawType:    rawType,
		DocumentID: probeDocumentID(payload),
		Timestamp:  probeTimestamp(payload),
		Payload:    rawBody,
	}
	return event, nil
}

func classifyEventType(rawType string) EventKind {
	switch strings.ToLower(strings.TrimSpace(rawType)) {
	case "document_completed", "document_signed", "document.finished":
		return EventCompleted
	case "document_declined", "document.rejected":
		return EventDeclined
	case "document_canceled", "document.cancelled":
		return EventCanceled
	default:
		return EventUnknown
	}
}

func probeEventType(payload map[string]any) string {
	if s, ok := payload["event"].(string); ok {
		return s
	}
	if nested, ok := payload["event"].(map[string]any); ok {
		if s, ok := nested["type"].(string); ok {
			return s
		}
	}
	if s, ok := payload["event_type"].(string); ok {
		return s
	}
	if s, ok := payload["type"].(string); ok {
		return s
	}
	return ""
}

func probeDocumentID(payload map[string]any) string {
	if s, ok := payload["document_id"].(string); ok && s != "" {
		return s
	}
	if doc, ok := payload["document"].(map[string]any); ok {
		if s, ok := doc["id"].(string); ok && s != "" {
			return s
		}
	}
	if data, ok := payload["data"].(map[string]any); ok {
		if obj, ok := data["object"].(map[string]any); ok {
			if s, ok := obj["id"].(string); ok && s != "" {
				return s
			}
		}
		if s, ok := data["id"].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func probeTimestamp(payload map[string]any) *time.Time {
	candidates := []any{
		payload["timestamp"],
		payload["completed_at"],
	}
	if nested, ok := payload["event"].(map[string]any); ok {
		candidates = append([]any{nested["time"], nested["timestamp"]}, candidates...)
	}

	for _, candidate := range candidates {
		switch v := candidate.(type) {
		case string:
			if v == "" {
				continue
			}
			if ts, err := time.Parse(time.RFC3339, v); err == nil {
				utc := ts.UTC()
				return &utc
			}
		case float64:
			if v <= 0 {
				continue
			}
			ts := time.Unix(int64(v), 0).UTC()
			return &ts
		}
	}
	return nil
}
