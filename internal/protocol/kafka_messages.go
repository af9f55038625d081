// Package protocol defines the JSON messages exchanged over Kafka.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

const EventTypeSnapshotSaved = "SNAPSHOT_SAVED"

// CategoryScores are the four sub-indices of a snapshot.
type CategoryScores struct {
	Growth     int `json:"growth"`
	Quality    int `json:"quality"`
	Efficiency int `json:"efficiency"`
	Leverage   int `json:"leverage"`
}

// SnapshotEvent is published after a snapshot is upserted. Keyed by store id
// so events of one store stay ordered. EventID is unique per publish; a
// recomputed period gets a new event with the same SnapshotID.
type SnapshotEvent struct {
	EventID      string         `json:"event_id"`
	Type         string         `json:"type"`
	SnapshotID   string         `json:"snapshot_id"`
	StoreID      string         `json:"store_id"`
	PeriodType   string         `json:"period_type"`
	PeriodStart  string         `json:"period_start"`
	PeriodEnd    string         `json:"period_end"`
	PeriodLabel  string         `json:"period_label"`
	OverallIndex int            `json:"overall_index"`
	Level        string         `json:"level"`
	Categories   CategoryScores `json:"categories"`
	ComputedAt   time.Time      `json:"computed_at"`
}

// RecomputeRequest asks for one period to be computed and persisted again.
// An empty PeriodEnd means the previous completed period.
type RecomputeRequest struct {
	StoreID     string    `json:"store_id" validate:"required"`
	PeriodType  string    `json:"period_type" validate:"required,oneof=week month"`
	PeriodEnd   string    `json:"period_end,omitempty" validate:"omitempty,datetime=2006-01-02"`
	RequestedAt time.Time `json:"requested_at"`
}

func (r *RecomputeRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid recompute request: %w", err)
	}
	return nil
}

func EncodeSnapshotEvent(event *SnapshotEvent) ([]byte, error) {
	return json.Marshal(event)
}

func DecodeSnapshotEvent(data []byte) (*SnapshotEvent, error) {
	var event SnapshotEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func EncodeRecomputeRequest(req *RecomputeRequest) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(req)
}

// DecodeRecomputeRequest decodes and validates a request.
func DecodeRecomputeRequest(data []byte) (*RecomputeRequest, error) {
	var req RecomputeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}
