package toast

import (
	"context"
	"fmt"
	"time"
)

// DefaultSelector matches every toast the builder renders.
const DefaultSelector = "toast-message .toast"

// snapshotScript stamps unseen toasts with the next sequence number and
// returns all of them in one round trip.
const snapshotScript = `(selector) => {
  window.__lpbToastSeq = window.__lpbToastSeq || 0;
  return Array.from(document.querySelectorAll(selector)).map((el) => {
    if (!el.dataset.lpbSeq) {
      window.__lpbToastSeq += 1;
      el.dataset.lpbSeq = String(window.__lpbToastSeq);
    }
    const style = window.getComputedStyle(el);
    const rect = el.getBoundingClientRect();
    return {
      seq: Number(el.dataset.lpbSeq),
      text: (el.textContent || '').trim(),
      classes: el.className || '',
      visible: style.display !== 'none' && style.visibility !== 'hidden' && rect.width > 0 && rect.height > 0,
    };
  });
}`

// Evaluator runs a script in a document. playwright.Page satisfies it.
type Evaluator interface {
	Evaluate(expression string, arg ...any) (any, error)
}

// PageSurface reads toasts from a live document.
type PageSurface struct {
	page     Evaluator
	selector string
}

// NewPageSurface creates a surface for the given document.
func NewPageSurface(page Evaluator) *PageSurface {
	return &PageSurface{page: page, selector: DefaultSelector}
}

// Snapshot implements Surface.
func (s *PageSurface) Snapshot(ctx context.Context) ([]Toast, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := s.page.Evaluate(snapshotScript, s.selector)
	if err != nil {
		return nil, fmt.Errorf("snapshotting toasts: %w", err)
	}
	return decodeSnapshot(res, time.Now())
}

func decodeSnapshot(res any, now time.Time) ([]Toast, error) {
	if res == nil {
		return nil, nil
	}
	items, ok := res.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected toast snapshot %T", res)
	}
	toasts := make([]Toast, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unexpected toast entry %T", item)
		}
		text, _ := m["text"].(string)
		classes, _ := m["classes"].(string)
		visible, _ := m["visible"].(bool)
		toasts = append(toasts, Toast{
			Seq:        toInt(m["seq"]),
			Text:       text,
			Severity:   ParseSeverity(classes),
			Visible:    visible,
			ObservedAt: now,
		})
	}
	return toasts, nil
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
