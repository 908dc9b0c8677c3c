package lifecycle

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"oceandepths/internal/domain/city"
)

type ActionType string

const (
	ActionBuild      ActionType = "build"
	ActionResearch   ActionType = "research"
	ActionUpgrade    ActionType = "upgrade"
	ActionSendTroops ActionType = "send_troops"
	ActionDiplomacy  ActionType = "diplomacy"
)

// Startable reports whether the engine implements start/complete for t.
func (t ActionType) Startable() bool {
	return t == ActionBuild || t == ActionResearch
}

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	// StatusFailed only labels pre-persistence rejections; no stored action carries it.
	StatusFailed Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Payload is the per-type action data. Exactly one concrete type exists per
// ActionType.
type Payload interface {
	ActionType() ActionType
}

type BuildPayload struct {
	BuildingType string        `json:"base_type"`
	Position     city.Position `json:"position"`
	BuildingID   string        `json:"base_id"`
}

func (BuildPayload) ActionType() ActionType { return ActionBuild }

type ResearchPayload struct {
	TechID string `json:"tech_id"`
}

func (ResearchPayload) ActionType() ActionType { return ActionResearch }

var ErrUnknownPayload = errors.New("unknown action payload")

func EncodePayload(p Payload) ([]byte, error) {
	if p == nil {
		return nil, ErrUnknownPayload
	}
	return json.Marshal(p)
}

func DecodePayload(t ActionType, raw []byte) (Payload, error) {
	switch t {
	case ActionBuild:
		var p BuildPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode build payload: %w", err)
		}
		return p, nil
	case ActionResearch:
		var p ResearchPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode research payload: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownPayload, t)
	}
}

type PendingAction struct {
	ID              string
	CityID          string
	PlayerID        string
	Type            ActionType
	StartedAt       time.Time
	EndsAt          time.Time
	DurationSeconds int
	Status          Status
	Payload         Payload
	CompletedAt     *time.Time
	CreatedAt       time.Time
}

func NewPending(id, cityID, playerID string, payload Payload, now time.Time, durationSeconds int) PendingAction {
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	return PendingAction{
		ID:              id,
		CityID:          cityID,
		PlayerID:        playerID,
		Type:            payload.ActionType(),
		StartedAt:       now,
		EndsAt:          now.Add(time.Duration(durationSeconds) * time.Second),
		DurationSeconds: durationSeconds,
		Status:          StatusInProgress,
		Payload:         payload,
		CreatedAt:       now,
	}
}

func (a PendingAction) Due(now time.Time) bool {
	return !now.Before(a.EndsAt)
}

// RemainingSeconds is the whole number of seconds until EndsAt, rounded up
// and never below one while the action is not yet due.
func (a PendingAction) RemainingSeconds(now time.Time) int {
	if a.Due(now) {
		return 0
	}
	remaining := int(math.Ceil(a.EndsAt.Sub(now).Seconds()))
	if remaining < 1 {
		remaining = 1
	}
	return remaining
}

// CompletedAction is the append-only audit record of a finished action.
type CompletedAction struct {
	OriginalActionID string
	CityID           string
	PlayerID         string
	Type             ActionType
	StartedAt        time.Time
	EndsAt           time.Time
	CompletedAt      time.Time
	DurationSeconds  int
	Payload          Payload
	Result           map[string]any
}

func (a PendingAction) Completed(at time.Time, result map[string]any) CompletedAction {
	return CompletedAction{
		OriginalActionID: a.ID,
		CityID:           a.CityID,
		PlayerID:         a.PlayerID,
		Type:             a.Type,
		StartedAt:        a.StartedAt,
		EndsAt:           a.EndsAt,
		CompletedAt:      at,
		DurationSeconds:  a.DurationSeconds,
		Payload:          a.Payload,
		Result:           result,
	}
}

type OutcomeStatus string

const (
	OutcomeCompleted OutcomeStatus = "completed"
	OutcomePending   OutcomeStatus = "pending"
	OutcomeFailed    OutcomeStatus = "failed"
)

// Outcome is the result of a completion attempt. Err carries the typed
// reason for pending and failed outcomes.
type Outcome struct {
	Status           OutcomeStatus `json:"status"`
	ActionID         string        `json:"action_id,omitempty"`
	ActionType       ActionType    `json:"action_type,omitempty"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
	RemainingSeconds int           `json:"remaining_seconds,omitempty"`
	Error            string        `json:"error,omitempty"`
	Err              error         `json:"-"`
}
