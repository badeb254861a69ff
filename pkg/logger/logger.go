// Package logger provides the colored slog handler used by the zonegraph
// command line tools.
//
// Lines about graph writes (persisting, ingesting, adding episodes) are
// highlighted in green, warnings in yellow and errors in red. Attributes are
// appended as a compact JSON object.
package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// highlightTerms mark info lines that report graph writes.
var highlightTerms = []string{"persist", "ingest", "added episode", "knowledge graph", "database"}

// Options configures a ColorHandler.
type Options struct {
	SlogOpts slog.HandlerOptions
	// NoColor disables ANSI colors, e.g. when output is not a terminal.
	NoColor bool
}

// ColorHandler is a slog.Handler that writes one colored line per record:
// [15:04:05.000] LEVEL: message {"key":"value"}
type ColorHandler struct {
	opts   Options
	w      io.Writer
	mu     *sync.Mutex
	attrs  []slog.Attr
	groups []string

	green  *color.Color
	yellow *color.Color
	red    *color.Color
	faint  *color.Color
}

// NewColorHandler creates a handler writing to w.
func NewColorHandler(w io.Writer, opts Options) *ColorHandler {
	h := &ColorHandler{
		opts:   opts,
		w:      w,
		mu:     &sync.Mutex{},
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow),
		red:    color.New(color.FgRed, color.Bold),
		faint:  color.New(color.Faint),
	}
	if opts.NoColor {
		for _, c := range []*color.Color{h.green, h.yellow, h.red, h.faint} {
			c.DisableColor()
		}
	} else {
		for _, c := range []*color.Color{h.green, h.yellow, h.red, h.faint} {
			c.EnableColor()
		}
	}
	return h
}

// Enabled implements slog.Handler.
func (h *ColorHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.SlogOpts.Level != nil {
		minLevel = h.opts.SlogOpts.Level.Level()
	}
	return level >= minLevel
}

// Handle implements slog.Handler.
func (h *ColorHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make(map[string]any, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		h.addAttr(fields, nil, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.addAttr(fields, h.groups, a)
		return true
	})

	encoded, err := json.Marshal(fields)
	if err != nil {
		encoded = []byte(fmt.Sprintf("%q", fmt.Sprint(fields)))
	}

	level := r.Level.String() + ":"
	msg := r.Message
	switch {
	case r.Level >= slog.LevelError:
		level = h.red.Sprint(level)
		msg = h.red.Sprint(msg)
	case r.Level >= slog.LevelWarn:
		level = h.yellow.Sprint(level)
		msg = h.yellow.Sprint(msg)
	case r.Level >= slog.LevelInfo && highlighted(r.Message):
		msg = h.green.Sprint(msg)
	}

	line := fmt.Sprintf("%s %s %s %s\n",
		h.faint.Sprint("["+r.Time.Format("15:04:05.000")+"]"),
		level, msg, h.faint.Sprint(string(encoded)))

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = io.WriteString(h.w, line)
	return err
}

// addAttr stores a under its group-qualified key. Attributes bound with
// WithAttrs are already qualified and pass nil groups.
func (h *ColorHandler) addAttr(fields map[string]any, groups []string, a slog.Attr) {
	if rep := h.opts.SlogOpts.ReplaceAttr; rep != nil {
		a = rep(groups, a)
	}
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}
	v := a.Value.Resolve()
	if err, ok := v.Any().(error); ok {
		fields[key] = err.Error()
		return
	}
	fields[key] = v.Any()
}

// WithAttrs implements slog.Handler.
func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]slog.Attr{}, h.attrs...)
	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, slog.Attr{Key: prefix + a.Key, Value: a.Value})
	}
	return &clone
}

// WithGroup implements slog.Handler.
func (h *ColorHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

func highlighted(msg string) bool {
	lower := strings.ToLower(msg)
	for _, term := range highlightTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// NewDefaultLogger returns a colored logger on stderr at the given level.
func NewDefaultLogger(level slog.Level) *slog.Logger {
	return slog.New(NewColorHandler(os.Stderr, Options{
		SlogOpts: slog.HandlerOptions{Level: level},
		NoColor:  color.NoColor,
	}))
}

// ParseLevel maps a configured level name to a slog level. Unknown names
// fall back to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewHandler builds the handler for a configured format: "json", "text" or
// "color" (the default).
func NewHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "json":
		return slog.NewJSONHandler(w, opts)
	case "text":
		return slog.NewTextHandler(w, opts)
	default:
		return NewColorHandler(w, Options{SlogOpts: *opts, NoColor: color.NoColor})
	}
}
