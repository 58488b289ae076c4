package collector

import (
	"context"
	"log/slog"
	"slices"

	"github.com/gofrs/uuid"
	"github.com/samber/lo"
)

// RunIDAttr is the log attribute that attributes a record to a run when the
// context does not carry a run ID.
const RunIDAttr = "run_id"

// LogEntry is a log record attributed to a run. RunID is uuid.Nil for
// records logged outside of a run.
type LogEntry struct {
	RunID  uuid.UUID
	Record slog.Record
}

// LogCollector keeps recent log records so reports can show what happened
// during a run.
type LogCollector struct {
	buffer   *RingBuffer[LogEntry]
	notifier *Notifier[LogEntry]
}

// NewLogCollector creates a collector retaining up to capacity records.
func NewLogCollector(capacity uint64) *LogCollector {
	return &LogCollector{
		buffer:   NewRingBuffer[LogEntry](capacity),
		notifier: NewNotifier[LogEntry](),
	}
}

func (c *LogCollector) Collect(entry LogEntry) {
	c.buffer.Add(entry)
	c.notifier.Notify(entry)
}

// Tail returns the newest n records, oldest first.
func (c *LogCollector) Tail(n int) []LogEntry {
	return c.buffer.GetRecords(uint64(n))
}

// ForRun returns the retained records of one run, oldest first.
func (c *LogCollector) ForRun(runID uuid.UUID) []LogEntry {
	return lo.Filter(c.buffer.All(), func(e LogEntry, _ int) bool {
		return e.RunID == runID
	})
}

// Subscribe returns a channel that receives notifications of new log records
func (c *LogCollector) Subscribe(ctx context.Context) <-chan LogEntry {
	return c.notifier.Subscribe(ctx)
}

// Close releases resources used by the collector
func (c *LogCollector) Close() {
	c.notifier.Close()
}

type CollectSlogLogsOptions struct {
	// Level is the minimum level of logs to collect.
	Level slog.Leveler
}

// SlogLogCollectorHandler is a slog.Handler feeding a LogCollector. Combine it
// with an output handler through slog-multi.
type SlogLogCollectorHandler struct {
	collector *LogCollector
	options   CollectSlogLogsOptions

	runID  uuid.UUID
	attrs  []slog.Attr
	groups []string
}

func NewSlogLogCollectorHandler(collector *LogCollector, options CollectSlogLogsOptions) *SlogLogCollectorHandler {
	if options.Level == nil {
		options.Level = slog.LevelInfo
	}
	return &SlogLogCollectorHandler{
		collector: collector,
		options:   options,

		attrs:  []slog.Attr{},
		groups: []string{},
	}
}

func (h *SlogLogCollectorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.options.Level.Level() <= level
}

func (h *SlogLogCollectorHandler) Handle(ctx context.Context, record slog.Record) error {
	// Handler attributes go before the record attributes, so the record is rebuilt.
	newRecord := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	newRecord.AddAttrs(h.attrs...)

	runID, ok := RunIDFromContext(ctx)
	if !ok {
		runID = h.runID
	}

	attrs := []slog.Attr{}
	record.Attrs(func(attr slog.Attr) bool {
		if runID == uuid.Nil && len(h.groups) == 0 {
			runID = runIDFromAttr(attr)
		}
		attrs = append(attrs, attr)
		return true
	})

	for i := range h.groups {
		k := h.groups[len(h.groups)-1-i]
		attrs = []slog.Attr{
			slog.Group(k, lo.ToAnySlice(attrs)...),
		}
	}
	newRecord.AddAttrs(attrs...)

	h.collector.Collect(LogEntry{RunID: runID, Record: newRecord})

	return nil
}

func (h *SlogLogCollectorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	runID := h.runID
	if len(h.groups) == 0 {
		for _, attr := range attrs {
			if id := runIDFromAttr(attr); id != uuid.Nil {
				runID = id
			}
		}
	}
	return &SlogLogCollectorHandler{
		collector: h.collector,
		options:   h.options,

		runID:  runID,
		attrs:  appendAttrsToGroup(h.groups, h.attrs, attrs...),
		groups: h.groups,
	}
}

func (h *SlogLogCollectorHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	return &SlogLogCollectorHandler{
		collector: h.collector,
		options:   h.options,

		runID:  h.runID,
		attrs:  h.attrs,
		groups: append(slices.Clone(h.groups), name),
	}
}

func runIDFromAttr(attr slog.Attr) uuid.UUID {
	if attr.Key != RunIDAttr {
		return uuid.Nil
	}
	id, err := uuid.FromString(attr.Value.String())
	if err != nil {
		return uuid.Nil
	}
	return id
}

// Copied from github.com/samber/slog-mock
func appendAttrsToGroup(groups []string, actualAttrs []slog.Attr, newAttrs ...slog.Attr) []slog.Attr {
	actualAttrs = slices.Clone(actualAttrs)

	if len(groups) == 0 {
		return append(actualAttrs, newAttrs...)
	}

	for i := range actualAttrs {
		attr := actualAttrs[i]
		if attr.Key == groups[0] && attr.Value.Kind() == slog.KindGroup {
			actualAttrs[i] = slog.Group(groups[0], lo.ToAnySlice(appendAttrsToGroup(groups[1:], attr.Value.Group(), newAttrs...))...)
			return actualAttrs
		}
	}

	return append(
		actualAttrs,
		slog.Group(
			groups[0],
			lo.ToAnySlice(appendAttrsToGroup(groups[1:], []slog.Attr{}, newAttrs...))...,
		),
	)
}
