// Package slogutil provides the slog handler and logger constructors used across autoskip.
package slogutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// scopeKeys name the attribute that identifies the emitting package.
// Its value is printed before the message instead of as a pair.
var scopeKeys = map[string]bool{"component": true, "backend": true}

// Handler writes one line per record for a terminal:
//
//	15:04:05.000 WARN  runner: Could not record session session=1b4e error="disk full"
type Handler struct {
	w      io.Writer
	level  slog.Leveler
	scope  string
	pairs  []byte // preformatted " key=value" from WithAttrs
	prefix string // open groups, "a.b."
	mu     *sync.Mutex
}

// NewHandler creates a handler writing to w. The level defaults to info.
func NewHandler(w io.Writer, opts *slog.HandlerOptions) *Handler {
	h := &Handler{w: w, level: slog.LevelInfo, mu: &sync.Mutex{}}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	return h
}

// Enabled reports whether the handler handles records at the given level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes the record.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	scope := h.scope
	pairs := make([]byte, len(h.pairs), len(h.pairs)+16*r.NumAttrs())
	copy(pairs, h.pairs)
	r.Attrs(func(a slog.Attr) bool {
		pairs, scope = appendAttr(pairs, scope, h.prefix, a)
		return true
	})

	line := make([]byte, 0, 64+len(r.Message)+len(pairs))
	if !r.Time.IsZero() {
		line = r.Time.AppendFormat(line, "15:04:05.000")
		line = append(line, ' ')
	}
	line = append(line, levelLabel(r.Level)...)
	line = append(line, ' ')
	if scope != "" {
		line = append(line, scope...)
		line = append(line, ": "...)
	}
	line = append(line, r.Message...)
	line = append(line, pairs...)
	line = append(line, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(line)
	return err
}

// WithAttrs returns a handler that prints attrs on every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.pairs = append([]byte(nil), h.pairs...)
	for _, a := range attrs {
		h2.pairs, h2.scope = appendAttr(h2.pairs, h2.scope, h.prefix, a)
	}
	return &h2
}

// WithGroup returns a handler that qualifies later keys with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

// appendAttr writes a as " key=value", flattening groups. An ungrouped
// scope key replaces scope instead.
func appendAttr(buf []byte, scope, prefix string, a slog.Attr) ([]byte, string) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf, scope
	}
	if prefix == "" && scopeKeys[a.Key] && a.Value.Kind() == slog.KindString {
		return buf, a.Value.String()
	}
	if a.Value.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			buf, scope = appendAttr(buf, scope, inner, ga)
		}
		return buf, scope
	}

	buf = append(buf, ' ')
	buf = append(buf, prefix...)
	buf = append(buf, a.Key...)
	buf = append(buf, '=')
	buf = append(buf, formatValue(a.Value)...)
	return buf, scope
}

// levelLabel returns the level padded to five columns.
func levelLabel(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "DEBUG"
	case level < slog.LevelWarn:
		return "INFO "
	case level < slog.LevelError:
		return "WARN "
	default:
		return "ERROR"
	}
}

// formatValue renders v, quoting text that would not read back as one token.
func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return quoteIfNeeded(v.String())
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return quoteIfNeeded(err.Error())
		}
		return quoteIfNeeded(fmt.Sprint(v.Any()))
	default:
		return v.String()
	}
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " =\"\t\n") || !strconv.CanBackquote(s) {
		return strconv.Quote(s)
	}
	return s
}
