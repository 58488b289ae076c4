package collector

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/samber/lo"
)

// Journal retains recent run events, indexed by event ID, and republishes
// them to its own subscribers.
type Journal struct {
	buffer   *LookupRingBuffer[Event, uuid.UUID]
	notifier *Notifier[Event]
}

// NewJournal creates a journal retaining up to capacity events.
func NewJournal(capacity uint64) *Journal {
	return &Journal{
		buffer:   NewLookupRingBuffer[Event, uuid.UUID](capacity),
		notifier: NewNotifier[Event](),
	}
}

// Add stores an event and notifies subscribers.
func (j *Journal) Add(evt Event) {
	j.buffer.Add(evt)
	j.notifier.Notify(evt)
}

// Follow adds every event received from events until the channel is closed
// or ctx is done.
func (j *Journal) Follow(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			j.Add(evt)
		}
	}
}

// Event retrieves an event by its ID.
func (j *Journal) Event(id uuid.UUID) (Event, bool) {
	return j.buffer.Lookup(id)
}

// Events returns the most recent n events, oldest first.
func (j *Journal) Events(n uint64) []Event {
	return j.buffer.GetRecords(n)
}

// Run returns the retained events of one run, oldest first.
func (j *Journal) Run(runID uuid.UUID) []Event {
	return lo.Filter(j.buffer.GetRecords(j.buffer.Capacity()), func(evt Event, _ int) bool {
		return evt.RunID == runID
	})
}

// Subscribe returns a channel that receives notifications of new events.
func (j *Journal) Subscribe(ctx context.Context) <-chan Event {
	return j.notifier.Subscribe(ctx)
}

// Clear removes all events.
func (j *Journal) Clear() {
	j.buffer.Clear()
}

// Close releases the notifier.
func (j *Journal) Close() {
	j.notifier.Close()
}
