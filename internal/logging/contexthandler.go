package logging

import (
	"context"
	"log/slog"
)

// ContextProvider returns the attributes describing the current run. It is
// called once per record, so values may change between records.
type ContextProvider func() []slog.Attr

// ContextHandler appends the run context to each record. A key the call site
// already set wins over the provider's value, and empty values are dropped.
type ContextHandler struct {
	next    slog.Handler
	attrs   ContextProvider
	present map[string]struct{}
}

func NewContextHandler(next slog.Handler, attrs ContextProvider) *ContextHandler {
	return &ContextHandler{next: next, attrs: attrs}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.attrs == nil {
		return h.next.Handle(ctx, r)
	}

	set := make(map[string]struct{}, r.NumAttrs()+len(h.present))
	for k := range h.present {
		set[k] = struct{}{}
	}
	r.Attrs(func(a slog.Attr) bool {
		set[a.Key] = struct{}{}
		return true
	})

	for _, a := range h.attrs() {
		if _, ok := set[a.Key]; ok || a.Value.String() == "" {
			continue
		}
		r.AddAttrs(a)
	}
	return h.next.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	present := make(map[string]struct{}, len(h.present)+len(attrs))
	for k := range h.present {
		present[k] = struct{}{}
	}
	for _, a := range attrs {
		present[a.Key] = struct{}{}
	}
	return &ContextHandler{next: h.next.WithAttrs(attrs), attrs: h.attrs, present: present}
}

// WithGroup nests later call-site attributes; the run context stays inside
// the group too, matching slog's handling of added attributes.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{next: h.next.WithGroup(name), attrs: h.attrs}
}
