package collector

import (
	"context"

	"github.com/gofrs/uuid"
)

type runIDKeyType struct{}

var runIDKey = runIDKeyType{}

// WithRunID returns a new context carrying the ID of the running scenario.
func WithRunID(ctx context.Context, runID uuid.UUID) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext retrieves the run ID from the context.
// Returns uuid.Nil and false if not set.
func RunIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	if runID, ok := ctx.Value(runIDKey).(uuid.UUID); ok {
		return runID, true
	}
	return uuid.Nil, false
}
