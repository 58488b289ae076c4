// Package dashboard serves a live view of a run: the recent step events of
// the journal, a detail panel per scenario run and a server-sent event
// stream that appends new events as they happen.
package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/a-h/templ"
	"github.com/gofrs/uuid"

	"github.com/networkteam/pagecheck/collector"
	"github.com/networkteam/pagecheck/report/views"
)

const defaultTruncateAfter = 200

// Journal is the event source of the dashboard. *collector.Journal satisfies it.
type Journal interface {
	Event(id uuid.UUID) (collector.Event, bool)
	Events(n uint64) []collector.Event
	Run(runID uuid.UUID) []collector.Event
	Subscribe(ctx context.Context) <-chan collector.Event
}

type Handler struct {
	journal Journal
	options handlerOptions

	mux http.Handler
}

func NewHandler(journal Journal, opts ...HandlerOption) *Handler {
	options := handlerOptions{
		Title:         "Landing page checks",
		TruncateAfter: defaultTruncateAfter,
	}
	for _, opt := range opts {
		opt(&options)
	}

	mux := http.NewServeMux()
	handler := &Handler{
		journal: journal,
		options: options,
		mux:     mux,
	}

	mux.HandleFunc("GET /{$}", handler.root)
	mux.HandleFunc("GET /event-list", handler.getEventList)
	mux.HandleFunc("GET /event/{eventId}", handler.getEventDetails)
	mux.HandleFunc("GET /events-sse", handler.getEventsSSE)

	return handler
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	props := views.DashboardProps{
		Title:      h.options.Title,
		PathPrefix: h.options.PathPrefix,
		Events:     h.loadRecentEvents(),
	}
	if idStr := r.URL.Query().Get("id"); idStr != "" {
		eventID, err := uuid.FromString(idStr)
		if err != nil {
			http.Error(w, "Invalid event id", http.StatusBadRequest)
			return
		}
		event, exists := h.journal.Event(eventID)
		if !exists {
			http.Redirect(w, r, fmt.Sprintf("%s/", h.options.PathPrefix), http.StatusTemporaryRedirect)
			return
		}
		props.Selected = &event
		props.Run = h.journal.Run(event.RunID)
	}

	templ.Handler(views.Dashboard(props)).ServeHTTP(w, r)
}

func (h *Handler) getEventList(w http.ResponseWriter, r *http.Request) {
	var selectedEventID *uuid.UUID
	if selectedStr := r.URL.Query().Get("selected"); selectedStr != "" {
		eventID, err := uuid.FromString(selectedStr)
		if err == nil {
			selectedEventID = &eventID
		}
	}

	templ.Handler(views.EventList(h.loadRecentEvents(), selectedEventID, h.options.PathPrefix)).ServeHTTP(w, r)
}

func (h *Handler) getEventDetails(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.FromString(r.PathValue("eventId"))
	if err != nil {
		http.Error(w, "Invalid event id", http.StatusBadRequest)
		return
	}

	event, exists := h.journal.Event(eventID)
	if !exists {
		http.Error(w, "Event not found", http.StatusNotFound)
		return
	}

	templ.Handler(views.EventDetail(event, h.journal.Run(event.RunID))).ServeHTTP(w, r)
}

// getEventsSSE streams new events as rendered list items.
func (h *Handler) getEventsSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // For NGINX proxy

	ctx := r.Context()
	eventCh := h.journal.Subscribe(ctx)

	// Send a keep-alive message initially to ensure the connection is established
	fmt.Fprintf(w, "event: keepalive\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}

			fmt.Fprintf(w, "event: new-event\n")
			fmt.Fprintf(w, "data: ")
			if err := views.EventListItem(event, false, h.options.PathPrefix).Render(ctx, w); err != nil {
				return
			}
			fmt.Fprintf(w, "\n\n")

			flusher.Flush()
		}
	}
}

// loadRecentEvents returns the newest events first.
func (h *Handler) loadRecentEvents() []collector.Event {
	events := h.journal.Events(h.options.TruncateAfter)
	slices.Reverse(events)
	return events
}
