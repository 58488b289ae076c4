package collector

import (
	"time"

	"github.com/gofrs/uuid"
)

// EventKind tells what part of a run an Event describes.
type EventKind string

const (
	EventScenarioStarted  EventKind = "scenario_started"
	EventScenarioFinished EventKind = "scenario_finished"
	EventStepStarted      EventKind = "step_started"
	EventStepFinished     EventKind = "step_finished"
	EventCleanupFailed    EventKind = "cleanup_failed"
)

// Event is published while a scenario runs.
type Event struct {
	ID uuid.UUID
	// RunID groups all events of one scenario execution.
	RunID uuid.UUID

	Kind     EventKind
	Scenario string
	Step     string
	// Status is set on finished events ("passed", "failed", "skipped").
	Status string
	Err    error

	Start time.Time
	End   time.Time
}

// NewEvent creates an event with a fresh time-ordered ID.
func NewEvent(runID uuid.UUID, kind EventKind, scenario string) Event {
	return Event{
		ID:       uuid.Must(uuid.NewV7()),
		RunID:    runID,
		Kind:     kind,
		Scenario: scenario,
		Start:    time.Now(),
	}
}

// Duration is zero for events that have not finished.
func (e Event) Duration() time.Duration {
	if e.End.IsZero() {
		return 0
	}
	return e.End.Sub(e.Start)
}

// Identity implements Identifiable.
func (e Event) Identity() uuid.UUID { return e.ID }
