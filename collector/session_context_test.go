package collector_test

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/networkteam/pagecheck/collector"
)

func TestWithRunID_AddsToContext(t *testing.T) {
	ctx := context.Background()
	runID := uuid.Must(uuid.NewV7())

	newCtx := collector.WithRunID(ctx, runID)

	retrievedID, ok := collector.RunIDFromContext(newCtx)
	assert.True(t, ok)
	assert.Equal(t, runID, retrievedID)
}

func TestRunIDFromContext_NotSet(t *testing.T) {
	retrievedID, ok := collector.RunIDFromContext(context.Background())

	assert.False(t, ok)
	assert.Equal(t, uuid.Nil, retrievedID)
}

func TestNewEvent_Duration(t *testing.T) {
	runID := uuid.Must(uuid.NewV7())
	evt := collector.NewEvent(runID, collector.EventStepStarted, "lpb-initial-state")

	assert.Equal(t, runID, evt.RunID)
	assert.NotEqual(t, uuid.Nil, evt.ID)
	assert.Zero(t, evt.Duration(), "unfinished events have no duration")

	evt.End = evt.Start.Add(1500)
	assert.EqualValues(t, 1500, evt.Duration())
}
