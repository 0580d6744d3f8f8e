package log

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
)

// sensitiveParams contains query parameter names whose values must not
// appear in logs. Crawl traces log raw URLs constantly, and query
// strings routinely carry session tokens and API keys.
var sensitiveParams = map[string]bool{
	"token":         true,
	"access_token":  true,
	"refresh_token": true,
	"api_key":       true,
	"apikey":        true,
	"key":           true,
	"secret":        true,
	"password":      true,
	"passwd":        true,
	"auth":          true,
	"authorization": true,
	"session":       true,
	"session_id":    true,
	"sessionid":     true,
	"sid":           true,
	"jsessionid":    true,
	"signature":     true,
	"sig":           true,
	"code":          true,
	"credential":    true,
}

// MaskValue is the string used to replace sensitive query values.
// It contains only unreserved characters so query re-encoding leaves
// it legible.
const MaskValue = "REDACTED"

// RedactHandler wraps an slog.Handler and masks sensitive query-string
// values in any URL-shaped attribute before it reaches the underlying
// handler.
//
// Design decision: We use a handler wrapper rather than a custom logger
// because:
//  1. It integrates seamlessly with standard slog APIs
//  2. It works with any underlying handler (text, JSON, etc.)
//  3. Every log site stays ordinary slog code; no site can forget
//     to redact
type RedactHandler struct {
	// handler is the underlying slog handler that receives redacted records.
	handler slog.Handler
}

// NewRedactHandler creates a RedactHandler wrapping the given handler.
// If handler is nil, the returned RedactHandler uses slog.Default().Handler().
func NewRedactHandler(handler slog.Handler) *RedactHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &RedactHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the underlying handler.
func (h *RedactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle redacts the record's attributes and passes it to the
// underlying handler.
func (h *RedactHandler) Handle(ctx context.Context, r slog.Record) error {
	redacted := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		redacted.AddAttrs(h.redactAttr(a))
		return true
	})

	return h.handler.Handle(ctx, redacted)
}

// WithAttrs returns a new handler with the given attributes added,
// redacted first.
func (h *RedactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redactedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redactedAttrs[i] = h.redactAttr(a)
	}
	return &RedactHandler{handler: h.handler.WithAttrs(redactedAttrs)}
}

// WithGroup returns a new handler with the given group name.
func (h *RedactHandler) WithGroup(name string) slog.Handler {
	return &RedactHandler{handler: h.handler.WithGroup(name)}
}

// redactAttr redacts a single attribute, recursively handling groups.
func (h *RedactHandler) redactAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		redactedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			redactedAttrs[i] = h.redactAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redactedAttrs...)}
	}

	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, RedactURL(a.Value.String()))
	}

	return a
}

// RedactURL masks the values of sensitive query parameters in a URL
// string. Non-URL strings and URLs without a query pass through
// unchanged. The parameter order of the original query is not
// guaranteed to survive, which is acceptable for log output.
func RedactURL(s string) string {
	if !strings.Contains(s, "?") {
		return s
	}

	u, err := url.Parse(s)
	if err != nil || u.RawQuery == "" {
		return s
	}

	values, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return s
	}

	touched := false
	for name := range values {
		if sensitiveParams[strings.ToLower(name)] {
			values[name] = []string{MaskValue}
			touched = true
		}
	}
	if !touched {
		return s
	}

	u.RawQuery = values.Encode()
	return u.String()
}
