package dashboard_test

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/networkteam/pagecheck/collector"
	"github.com/networkteam/pagecheck/dashboard"
)

func journalWithRun(t *testing.T) (*collector.Journal, collector.Event) {
	t.Helper()
	journal := collector.NewJournal(50)
	t.Cleanup(journal.Close)

	run := uuid.Must(uuid.NewV7())
	journal.Add(collector.NewEvent(run, collector.EventScenarioStarted, "PDF upload"))
	failed := collector.NewEvent(run, collector.EventStepFinished, "PDF upload")
	failed.Step = "Upload PDF"
	failed.Status = "failed"
	failed.Err = errors.New("toast not shown: PDF uploaded successfully")
	failed.End = failed.Start.Add(1500 * time.Millisecond)
	journal.Add(failed)

	other := collector.NewEvent(uuid.Must(uuid.NewV7()), collector.EventScenarioStarted, "Initial state")
	journal.Add(other)
	return journal, failed
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandler_Root(t *testing.T) {
	t.Parallel()

	journal, _ := journalWithRun(t)
	h := dashboard.NewHandler(journal, dashboard.WithTitle("Nightly checks"), dashboard.WithPathPrefix("/_pagecheck"))

	rec := get(t, h, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<title>Nightly checks</title>")
	assert.Contains(t, body, "PDF upload › Upload PDF")
	assert.Contains(t, body, `"/_pagecheck/events-sse"`)
	assert.Less(t, strings.Index(body, "Initial state"), strings.Index(body, "PDF upload › Upload PDF"), "newest first")
	assert.NotContains(t, body, `id="event-detail"><div`)
}

func TestHandler_SelectedEventShowsRun(t *testing.T) {
	t.Parallel()

	journal, failed := journalWithRun(t)
	h := dashboard.NewHandler(journal)

	rec := get(t, h, "/?id="+failed.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, failed.RunID.String())
	assert.Contains(t, body, "toast not shown: PDF uploaded successfully")

	detail := get(t, h, "/event/"+failed.ID.String())
	require.Equal(t, http.StatusOK, detail.Code)
	assert.Contains(t, detail.Body.String(), "Upload PDF")
	assert.NotContains(t, detail.Body.String(), "Initial state", "only events of the same run")

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/?id=nope").Code)
	assert.Equal(t, http.StatusTemporaryRedirect, get(t, h, "/?id="+uuid.Must(uuid.NewV7()).String()).Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/event/"+uuid.Must(uuid.NewV7()).String()).Code)
}

func TestHandler_EventListTruncates(t *testing.T) {
	t.Parallel()

	journal, _ := journalWithRun(t)
	h := dashboard.NewHandler(journal, dashboard.WithTruncateAfter(1))

	rec := get(t, h, "/event-list")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, strings.Count(rec.Body.String(), "<li "))
	assert.Contains(t, rec.Body.String(), "Initial state")
}

func TestHandler_EventsSSE(t *testing.T) {
	t.Parallel()

	journal := collector.NewJournal(10)
	t.Cleanup(journal.Close)
	srv := httptest.NewServer(dashboard.NewHandler(journal))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events-sse", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewReader(resp.Body)
	line, err := lines.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: keepalive\n", line)

	evt := collector.NewEvent(uuid.Must(uuid.NewV7()), collector.EventStepStarted, "Reset form")
	evt.Step = "Click Reset"
	journal.Add(evt)

	for {
		line, err = lines.ReadString('\n')
		if errors.Is(err, io.EOF) {
			t.Fatal("stream ended before the event arrived")
		}
		require.NoError(t, err)
		if line == "event: new-event\n" {
			break
		}
	}
	data, err := lines.ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(data, "data: <li "))
	assert.Contains(t, data, "Reset form › Click Reset")
	assert.Contains(t, data, evt.ID.String())
}
