package collector_test

import (
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/networkteam/pagecheck/collector"
)

func stepEvent(runID uuid.UUID, step string) collector.Event {
	evt := collector.NewEvent(runID, collector.EventStepStarted, "lpb-pdf-clear")
	evt.Step = step
	return evt
}

func TestLookupRingBuffer_Basic(t *testing.T) {
	rb := collector.NewLookupRingBuffer[collector.Event, uuid.UUID](3)
	runID := uuid.Must(uuid.NewV7())

	assert.Equal(t, uint64(0), rb.Size())
	assert.Equal(t, uint64(3), rb.Capacity())

	first := stepEvent(runID, "Upload PDF")
	rb.Add(first)

	found, exists := rb.Lookup(first.ID)
	require.True(t, exists)
	assert.Equal(t, "Upload PDF", found.Step)

	second := stepEvent(runID, "Clear PDF")
	rb.Add(second)

	records := rb.GetRecords(3)
	require.Len(t, records, 2)
	assert.Equal(t, first.ID, records[0].ID)
	assert.Equal(t, second.ID, records[1].ID)
}

func TestLookupRingBuffer_Overwrite(t *testing.T) {
	rb := collector.NewLookupRingBuffer[collector.Event, uuid.UUID](3)
	runID := uuid.Must(uuid.NewV7())

	var events []collector.Event
	for _, step := range []string{"a", "b", "c", "d", "e"} {
		evt := stepEvent(runID, step)
		events = append(events, evt)
		rb.Add(evt)
	}

	assert.Equal(t, uint64(3), rb.Size())
	for _, evt := range events[:2] {
		_, exists := rb.Lookup(evt.ID)
		assert.False(t, exists, "overwritten event %s still indexed", evt.Step)
	}
	for _, evt := range events[2:] {
		_, exists := rb.Lookup(evt.ID)
		assert.True(t, exists, "event %s missing", evt.Step)
	}

	records := rb.GetRecords(3)
	assert.Equal(t, []string{"c", "d", "e"}, []string{records[0].Step, records[1].Step, records[2].Step})
}

func TestLookupRingBuffer_AddKnownIdentityReplaces(t *testing.T) {
	rb := collector.NewLookupRingBuffer[collector.Event, uuid.UUID](2)
	evt := stepEvent(uuid.Must(uuid.NewV7()), "Confirm")
	rb.Add(evt)

	evt.Status = "passed"
	rb.Add(evt)

	assert.Equal(t, uint64(1), rb.Size())
	found, _ := rb.Lookup(evt.ID)
	assert.Equal(t, "passed", found.Status)
}

func TestLookupRingBuffer_Clear(t *testing.T) {
	rb := collector.NewLookupRingBuffer[collector.Event, uuid.UUID](2)
	evt := stepEvent(uuid.Must(uuid.NewV7()), "Confirm")
	rb.Add(evt)

	rb.Clear()

	assert.Equal(t, uint64(0), rb.Size())
	assert.Empty(t, rb.GetRecords(2))
	_, exists := rb.Lookup(evt.ID)
	assert.False(t, exists)
}
