package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset   = "\x1b[0m"
	ansiBright  = "\x1b[1m"
	ansiDim     = "\x1b[2m"
	ansiRed     = "\x1b[31m"
	ansiGreen   = "\x1b[32m"
	ansiYellow  = "\x1b[33m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// Request attributes are renamed for readability on a terminal.
var prettyKeys = map[string]string{
	"status_class": "class",
	"duration_ms":  "duration",
}

// prettyHandler renders each record as one key=value line for local
// development. Request attributes get colors when color is on.
type prettyHandler struct {
	out    *lockedWriter
	level  slog.Leveler
	source bool
	color  bool

	prefix string
	attrs  []slog.Attr
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) write(s string) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	_, err := io.WriteString(lw.w, s)
	return err
}

func newPrettyHandler(w io.Writer, opts *slog.HandlerOptions, color bool) slog.Handler {
	h := &prettyHandler{out: &lockedWriter{w: w}, level: slog.LevelInfo, color: color}
	if opts != nil {
		if opts.Level != nil {
			h.level = opts.Level
		}
		h.source = opts.AddSource
	}
	return h
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.WriteString("ts=" + paint(ts.Format("15:04:05.000"), ansiDim, h.color))
	b.WriteString(" lvl=" + h.levelTag(r.Level))
	b.WriteString(" msg=" + paint(r.Message, ansiBright, h.color))

	if h.source && r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		if frame.File != "" {
			src := filepath.Base(frame.File) + ":" + strconv.Itoa(frame.Line)
			b.WriteString(" src=" + paint(src, ansiDim, h.color))
		}
	}

	for _, a := range h.attrs {
		h.writeAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&b, h.prefix, a)
		return true
	})
	b.WriteByte('\n')

	return h.out.write(b.String())
}

// WithAttrs binds attrs under the groups opened so far.
func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	cp.attrs = append(cp.attrs, h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		cp.attrs = append(cp.attrs, a)
	}
	return &cp
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	name = strings.TrimSpace(name)
	if name == "" {
		return h
	}
	cp := *h
	cp.prefix = h.prefix + name + "."
	return &cp
}

func (h *prettyHandler) writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	key := strings.TrimSpace(a.Key)
	if key == "" && a.Value.Kind() != slog.KindGroup {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		if key != "" {
			prefix += key + "."
		}
		for _, ga := range a.Value.Group() {
			h.writeAttr(b, prefix, ga)
		}
		return
	}

	full := prefix + key
	shown := full
	if alias, ok := prettyKeys[full]; ok {
		shown = alias
	}
	b.WriteString(" " + shown + "=" + h.formatValue(full, a.Value))
}

func (h *prettyHandler) formatValue(key string, v slog.Value) string {
	switch key {
	case "method":
		return colorizeHTTPMethod(strings.ToUpper(strings.TrimSpace(v.String())), h.color)
	case "path":
		return paint(strings.TrimSpace(v.String()), ansiCyan, h.color)
	case "request_id":
		return paint(v.String(), ansiDim, h.color)
	case "status":
		if n, ok := valueToInt64(v); ok {
			return colorizeStatusCode(int(n), h.color)
		}
	case "status_class":
		return colorizeStatusClass(strings.TrimSpace(v.String()), h.color)
	case "duration_ms":
		if n, ok := valueToInt64(v); ok {
			return colorizeDurationMS(n, h.color)
		}
	case "result":
		return colorizeResult(strings.ToLower(strings.TrimSpace(v.String())), h.color)
	}
	return quoteIfNeeded(plainValue(v))
}

func (h *prettyHandler) levelTag(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return paint("[ERROR]", ansiRed, h.color)
	case level >= slog.LevelWarn:
		return paint("[WARN]", ansiYellow, h.color)
	case level < slog.LevelInfo:
		return paint("[DEBUG]", ansiMagenta, h.color)
	default:
		return paint("[INFO]", ansiBlue, h.color)
	}
}

func plainValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	default:
		// String renders every other kind the way slog's text handler does.
		return v.String()
	}
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

func paint(s, code string, color bool) string {
	if !color || s == "" || code == "" {
		return s
	}
	return code + s + ansiReset
}

func colorizeHTTPMethod(method string, color bool) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return paint(method, ansiGreen, color)
	case http.MethodPost:
		return paint(method, ansiBlue, color)
	case http.MethodPut, http.MethodPatch:
		return paint(method, ansiYellow, color)
	case http.MethodDelete:
		return paint(method, ansiRed, color)
	default:
		return paint(method, ansiMagenta, color)
	}
}

func colorizeStatusCode(code int, color bool) string {
	return paint(strconv.Itoa(code), statusColor(statusClass(code)), color)
}

func colorizeStatusClass(class string, color bool) string {
	return paint(class, statusColor(class), color)
}

func statusColor(class string) string {
	switch class {
	case "2xx":
		return ansiGreen
	case "3xx":
		return ansiCyan
	case "4xx":
		return ansiYellow
	case "5xx":
		return ansiRed
	default:
		return ""
	}
}

func colorizeDurationMS(ms int64, color bool) string {
	s := strconv.FormatInt(ms, 10) + "ms"
	switch {
	case ms >= 1000:
		return paint(s, ansiRed, color)
	case ms >= 250:
		return paint(s, ansiYellow, color)
	default:
		return paint(s, ansiDim, color)
	}
}

func colorizeResult(result string, color bool) string {
	switch result {
	case "success":
		return paint(result, ansiGreen, color)
	case "redirect":
		return paint(result, ansiCyan, color)
	case "client_error":
		return paint(result, ansiYellow, color)
	case "server_error":
		return paint(result, ansiRed, color)
	default:
		return quoteIfNeeded(result)
	}
}

func valueToInt64(v slog.Value) (int64, bool) {
	switch v.Kind() {
	case slog.KindInt64:
		return v.Int64(), true
	case slog.KindUint64:
		u := v.Uint64()
		if u > 1<<62 {
			return 0, false
		}
		return int64(u), true // #nosec G115 -- bounded above.
	case slog.KindFloat64:
		return int64(v.Float64()), true
	case slog.KindDuration:
		return v.Duration().Milliseconds(), true
	case slog.KindString:
		n, err := strconv.ParseInt(strings.TrimSpace(v.String()), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}
