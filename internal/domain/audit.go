package domain

import (
	"encoding/json"
	"time"
)

// ApprovalHistoryEntry is an immutable record of one approval
// transition: who acted, what happened, and the from/to statuses.
// Entries are append-only; replaying them in timestamp order must
// reconstruct a legal path through the state machine.
type ApprovalHistoryEntry struct {
	ID         string
	EntityType EntityType
	EntityID   string
	Action     ApprovalAction
	FromStatus ApprovalStatus
	ToStatus   ApprovalStatus
	ActorID    string
	ActorRole  Role
	Note       string
	Metadata   JSON
	CreatedAt  time.Time
}

// JSON is a type alias for JSON data
type JSON map[string]any

// MarshalState converts a domain object to JSON for history metadata.
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}

// HistoryFilter defines filters for querying approval history.
type HistoryFilter struct {
	EntityType EntityType
	EntityID   string
	ActorID    string
	Action     ApprovalAction
	StartDate  *time.Time
	EndDate    *time.Time
	Limit      int
	Offset     int
}

// ReplayHistory walks entries in order and verifies they form a legal
// path through the state machine, returning the final status.
func ReplayHistory(entries []*ApprovalHistoryEntry) (ApprovalStatus, error) {
	status := StatusDraft
	for _, e := range entries {
		if e.FromStatus != status {
			return status, ErrStatusConflict
		}
		if !status.CanTransitionTo(e.ToStatus) {
			return status, ErrIllegalTransition
		}
		status = e.ToStatus
	}
	return status, nil
}
