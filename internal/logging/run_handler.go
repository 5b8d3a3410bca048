package logging

import (
	"context"
	"log/slog"
)

// FieldSessionID identifies one `rollcall run` invocation.
const FieldSessionID = "session_id"

// runHandler stamps records with the run's session id and with the API
// correlation id carried by the context. Either is skipped when the record
// or the logger already has it, so WithContext loggers do not emit the keys
// twice.
type runHandler struct {
	base      slog.Handler
	sessionID string
	tagged    map[string]bool
}

func newRunHandler(base slog.Handler, sessionID string) slog.Handler {
	if base == nil {
		return NoopHandler{}
	}
	if sessionID == "" {
		return base
	}
	return &runHandler{base: base, sessionID: sessionID}
}

func (h *runHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *runHandler) Handle(ctx context.Context, record slog.Record) error {
	present := h.present(record)
	var extra []slog.Attr
	if !present[FieldSessionID] {
		extra = append(extra, slog.String(FieldSessionID, h.sessionID))
	}
	if ctx != nil && !present[FieldCorrelationID] {
		if id, ok := ctx.Value(requestKey).(string); ok && id != "" {
			extra = append(extra, slog.String(FieldCorrelationID, id))
		}
	}
	if len(extra) > 0 {
		record = record.Clone()
		record.AddAttrs(extra...)
	}
	return h.base.Handle(ctx, record)
}

func (h *runHandler) present(record slog.Record) map[string]bool {
	present := make(map[string]bool, 2)
	for key := range h.tagged {
		present[key] = true
	}
	record.Attrs(func(a slog.Attr) bool {
		if a.Key == FieldSessionID || a.Key == FieldCorrelationID {
			present[a.Key] = true
		}
		return true
	})
	return present
}

func (h *runHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	tagged := make(map[string]bool, len(h.tagged)+1)
	for key := range h.tagged {
		tagged[key] = true
	}
	for _, a := range attrs {
		if a.Key == FieldSessionID || a.Key == FieldCorrelationID {
			tagged[a.Key] = true
		}
	}
	return &runHandler{base: h.base.WithAttrs(attrs), sessionID: h.sessionID, tagged: tagged}
}

func (h *runHandler) WithGroup(name string) slog.Handler {
	return &runHandler{base: h.base.WithGroup(name), sessionID: h.sessionID, tagged: h.tagged}
}
