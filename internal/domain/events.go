package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type constants for published search events.
const (
	EventTypeSearchCompleted = "search.completed"
)

// SearchEvent is the envelope of an event published after a search.
type SearchEvent struct {
	EventID      string          `json:"event_id"`
	EventVersion int             `json:"event_version"`
	EventType    string          `json:"event_type"`
	SearchID     string          `json:"search_id"`
	Payload      json.RawMessage `json:"payload"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewSearchEvent creates a new event with the given parameters.
// The payload is JSON-serialized automatically.
func NewSearchEvent(eventType string, searchID uuid.UUID, payload interface{}) (*SearchEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &SearchEvent{
		EventID:      uuid.New().String(),
		EventVersion: 1,
		EventType:    eventType,
		SearchID:     searchID.String(),
		Payload:      payloadBytes,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// SearchCompletedPayload is the payload for search.completed events.
type SearchCompletedPayload struct {
	SearchID          uuid.UUID               `json:"search_id"`
	Query             string                  `json:"query"`
	TotalFound        int                     `json:"total_found"`
	Returned          int                     `json:"returned"`
	DuplicatesRemoved int                     `json:"duplicates_removed"`
	SourceBreakdown   map[ProviderType]int    `json:"source_breakdown"`
	ProviderErrors    map[ProviderType]string `json:"provider_errors,omitempty"`
	QualityMetrics    QualityMetrics          `json:"quality_metrics"`
	SourceIDs         []string                `json:"source_ids"`
	Duration          time.Duration           `json:"duration_ns"`
}

// NewSearchCompletedPayload summarizes a result for publication.
func NewSearchCompletedPayload(r *SearchResult) SearchCompletedPayload {
	ids := make([]string, 0, len(r.Sources))
	for _, s := range r.Sources {
		ids = append(ids, s.ID)
	}
	return SearchCompletedPayload{
		SearchID:          r.SearchID,
		Query:             r.Query,
		TotalFound:        r.TotalFound,
		Returned:          len(r.Sources),
		DuplicatesRemoved: r.DuplicatesRemoved,
		SourceBreakdown:   r.SourceBreakdown,
		ProviderErrors:    r.ProviderErrors,
		QualityMetrics:    r.QualityMetrics,
		SourceIDs:         ids,
		Duration:          r.Duration,
	}
}
