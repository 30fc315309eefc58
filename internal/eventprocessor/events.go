// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package eventprocessor

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/mhalvorsen/pelorus/internal/models"
)

// SchemaVersion is the envelope schema emitted by this build. Consumers
// must tolerate newer versions by ignoring unknown payload fields.
const SchemaVersion = 1

// Event types carried in Envelope.Type. These double as the websocket
// message types seen by browser clients.
const (
	EventTypePositionUpdated   = "position_updated"
	EventTypeCongestionUpdated = "congestion_updated"
	EventTypeAlertCreated      = "alert_created"
	EventTypeAlertUpdated      = "alert_updated"
	EventTypeAlertResolved     = "alert_resolved"
)

// Alert lifecycle transitions as reported by the alerting engine.
const (
	transitionOpened   = "opened"
	transitionUpdated  = "updated"
	transitionResolved = "resolved"
)

// AlertEventType maps an alert lifecycle transition to its event type.
// The second return is false for transitions this build does not know.
func AlertEventType(transition string) (string, bool) {
	switch transition {
	case transitionOpened:
		return EventTypeAlertCreated, true
	case transitionUpdated:
		return EventTypeAlertUpdated, true
	case transitionResolved:
		return EventTypeAlertResolved, true
	default:
		return "", false
	}
}

// Envelope is the wire form of every event. Data holds the type-specific
// payload as raw JSON so consumers can defer or skip decoding.
type Envelope struct {
	EventID       string          `json:"event_id"`
	Type          string          `json:"type"`
	SchemaVersion int             `json:"schema_version"`
	Timestamp     time.Time       `json:"timestamp"`
	Data          json.RawMessage `json:"data"`

	// partitionKey groups events of one entity onto one Kafka partition
	// and is deliberately not serialized: receivers key on payload fields.
	partitionKey string
}

// PartitionKey returns the ordering key for partitioned sinks, falling
// back to the event ID when the producer set none.
func (e *Envelope) PartitionKey() string {
	if e.partitionKey != "" {
		return e.partitionKey
	}
	return e.EventID
}

// Subject returns the NATS subject for the envelope's type, or "" when
// the type is unknown.
func (e *Envelope) Subject() string {
	switch e.Type {
	case EventTypePositionUpdated:
		return "positions.updated"
	case EventTypeCongestionUpdated:
		return "congestion.updated"
	case EventTypeAlertCreated:
		return "alerts.created"
	case EventTypeAlertUpdated:
		return "alerts.updated"
	case EventTypeAlertResolved:
		return "alerts.resolved"
	default:
		return ""
	}
}

// ValidationError describes a single invalid envelope field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks that the envelope is complete enough to publish or
// process. It does not decode the payload.
func (e *Envelope) Validate() error {
	if e.EventID == "" {
		return &ValidationError{Field: "event_id", Message: "required"}
	}
	if e.Subject() == "" {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("unknown event type %q", e.Type)}
	}
	if e.SchemaVersion <= 0 {
		return &ValidationError{Field: "schema_version", Message: "must be positive"}
	}
	if e.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Message: "required"}
	}
	if len(e.Data) == 0 {
		return &ValidationError{Field: "data", Message: "required"}
	}
	return nil
}

// PositionPayload is the data of a position_updated event. ObservedAt is
// the source timestamp of the applied observation, not the publish time.
type PositionPayload struct {
	EntityID   string              `json:"entity_id"`
	Kind       models.EntityKind   `json:"kind"`
	Name       string              `json:"name,omitempty"`
	Position   models.Position     `json:"position"`
	SpeedKnots *float64            `json:"speed_knots,omitempty"`
	CourseDeg  *float64            `json:"course_deg,omitempty"`
	HeadingDeg *float64            `json:"heading_deg,omitempty"`
	Status     models.VesselStatus `json:"status,omitempty"`
	ObservedAt time.Time           `json:"observed_at"`
	Source     string              `json:"source,omitempty"`
}

// CongestionPayload is the data of a congestion_updated event.
type CongestionPayload struct {
	EntityID   string            `json:"entity_id"`
	Name       string            `json:"name,omitempty"`
	Congestion models.Congestion `json:"congestion"`
}

// AlertPayload is the data of the alert_* events. The same shape is used
// for all three transitions; State distinguishes open from resolved.
type AlertPayload struct {
	AlertID    string            `json:"alert_id"`
	EntityID   string            `json:"entity_id"`
	HazardKind models.HazardKind `json:"hazard_kind"`
	Severity   models.Severity   `json:"severity"`
	ZoneIDs    []string          `json:"zone_ids"`
	State      models.AlertState `json:"state"`
	RiskScore  float64           `json:"risk_score"`
	OpenedAt   time.Time         `json:"opened_at"`
	ResolvedAt *time.Time        `json:"resolved_at,omitempty"`
}

// NewPositionEvent builds a position_updated envelope from the current
// entity state after an observation was applied.
func NewPositionEvent(entity *models.TrackedEntity) (*Envelope, error) {
	if entity == nil {
		return nil, &ValidationError{Field: "entity", Message: "required"}
	}
	payload := PositionPayload{
		EntityID:   entity.ID,
		Kind:       entity.Kind,
		Name:       entity.Name,
		Position:   entity.Position,
		SpeedKnots: entity.SpeedKnots,
		CourseDeg:  entity.CourseDeg,
		HeadingDeg: entity.HeadingDeg,
		Status:     entity.Status,
		ObservedAt: entity.LastUpdate,
		Source:     entity.Source,
	}
	return newEnvelope(EventTypePositionUpdated, entity.ID, payload)
}

// NewCongestionEvent builds a congestion_updated envelope from a port
// entity carrying a congestion snapshot.
func NewCongestionEvent(entity *models.TrackedEntity) (*Envelope, error) {
	if entity == nil {
		return nil, &ValidationError{Field: "entity", Message: "required"}
	}
	if entity.Congestion == nil {
		return nil, &ValidationError{Field: "congestion", Message: "port has no congestion snapshot"}
	}
	payload := CongestionPayload{
		EntityID:   entity.ID,
		Name:       entity.Name,
		Congestion: *entity.Congestion,
	}
	return newEnvelope(EventTypeCongestionUpdated, entity.ID, payload)
}

// NewAlertEvent builds an alert lifecycle envelope for the given
// transition ("opened", "updated" or "resolved").
func NewAlertEvent(transition string, cond *models.AlertCondition) (*Envelope, error) {
	if cond == nil {
		return nil, &ValidationError{Field: "condition", Message: "required"}
	}
	eventType, ok := AlertEventType(transition)
	if !ok {
		return nil, &ValidationError{Field: "transition", Message: fmt.Sprintf("unknown transition %q", transition)}
	}
	payload := AlertPayload{
		AlertID:    cond.ID,
		EntityID:   cond.EntityID,
		HazardKind: cond.Kind,
		Severity:   cond.Severity,
		ZoneIDs:    cond.ZoneIDs,
		State:      cond.State,
		RiskScore:  cond.RiskScore,
		OpenedAt:   cond.OpenedAt,
		ResolvedAt: cond.ResolvedAt,
	}
	return newEnvelope(eventType, cond.EntityID, payload)
}

func newEnvelope(eventType, partitionKey string, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Envelope{
		EventID:       uuid.New().String(),
		Type:          eventType,
		SchemaVersion: SchemaVersion,
		Timestamp:     time.Now().UTC(),
		Data:          data,
		partitionKey:  partitionKey,
	}, nil
}
