package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorPurple = "\033[35m"
	colorCyan   = "\033[36m"
	colorWhite  = "\033[37m"
)

type LogType string

const (
	TypeCommand LogType = "CMD"
	TypeDB      LogType = "DB"
	TypeSystem  LogType = "SYS"
	TypeTrade   LogType = "TRD"
	TypeError   LogType = "ERR"
)

// Attributes rendered in the message prefix instead of the key=value tail.
var internalAttrs = []string{"type", "name", "user_name", "status", "error", "error_location"}

type Options struct {
	Level     slog.Leveler
	Format    string
	AddSource bool
	Output    io.Writer
}

// New returns the handler for the configured format. "json" selects the
// stdlib JSON handler; anything else the colored console handler.
func New(opts Options) slog.Handler {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	if strings.EqualFold(opts.Format, "json") {
		return slog.NewJSONHandler(opts.Output, &slog.HandlerOptions{Level: opts.Level, AddSource: opts.AddSource})
	}
	return NewHandler(opts)
}

type CustomHandler struct {
	opts      Options
	mu        *sync.Mutex
	startTime time.Time
	attrs     []slog.Attr
	groups    []string
}

func NewHandler(opts Options) *CustomHandler {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Level == nil {
		opts.Level = slog.LevelDebug
	}
	return &CustomHandler{
		opts:      opts,
		mu:        &sync.Mutex{},
		startTime: time.Now(),
	}
}

func (h *CustomHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *CustomHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CustomHandler{
		opts:      h.opts,
		mu:        h.mu,
		startTime: h.startTime,
		attrs:     append(slices.Clone(h.attrs), attrs...),
		groups:    h.groups,
	}
}

func (h *CustomHandler) WithGroup(name string) slog.Handler {
	return &CustomHandler{
		opts:      h.opts,
		mu:        h.mu,
		startTime: h.startTime,
		attrs:     h.attrs,
		groups:    append(slices.Clone(h.groups), name),
	}
}

func (h *CustomHandler) Handle(_ context.Context, r slog.Record) error {
	if shouldSkipLog(&r) {
		return nil
	}

	attrs := slices.Clone(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})

	levelColor, levelText := levelStyle(r.Level)
	logType := getLogType(attrs)

	message := r.Message
	if r.Level >= slog.LevelError {
		location := lookup(attrs, "error_location")
		if location == "" {
			location = sourceLocation(r.PC)
		}
		if location != "" {
			message = fmt.Sprintf("%s (%s)", message, location)
		}
		if details := lookup(attrs, "error"); details != "" {
			message = fmt.Sprintf("%s: %s", message, details)
		}
	}

	if cmdName, userName := lookup(attrs, "name"), lookup(attrs, "user_name"); cmdName != "" && userName != "" {
		message = fmt.Sprintf("%s [%s by %s]", message, cmdName, userName)
	}
	if status := lookup(attrs, "status"); status != "" {
		message = fmt.Sprintf("%s [Status: %s]", message, status)
	}

	var tail strings.Builder
	prefix := strings.Join(h.groups, ".")
	for _, a := range attrs {
		if slices.Contains(internalAttrs, a.Key) {
			continue
		}
		key := a.Key
		if prefix != "" {
			key = prefix + "." + key
		}
		fmt.Fprintf(&tail, " %s%s%s=%v", colorCyan, key, colorWhite, a.Value)
	}
	if h.opts.AddSource && r.PC != 0 {
		fmt.Fprintf(&tail, " source=%s", sourceLocation(r.PC))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintf(h.opts.Output, "%s[TradeBot] [%s] [%s%s%s] [%s] %s%s%s\n",
		colorWhite,
		r.Time.Format("15:04:05"),
		levelColor,
		levelText,
		colorWhite,
		logType,
		message,
		tail.String(),
		colorReset,
	)
	return err
}

func levelStyle(level slog.Level) (string, string) {
	switch {
	case level >= slog.LevelError:
		return colorRed, "ERROR"
	case level >= slog.LevelWarn:
		return colorYellow, "WARN"
	case level >= slog.LevelInfo:
		return colorGreen, "INFO"
	default:
		return colorPurple, "DEBUG"
	}
}

// Gateway chatter from disgo that drowns out everything else.
var skippedMessages = []string{
	"locking buckets",
	"unlocking buckets",
	"gateway event",
	"cleaning up bucket",
	"cleaned up rate limit buckets",
	"binary message received",
	"received gateway message",
	"opening gateway connection",
	"locking gateway rate limiter",
	"unlocking gateway rate limiter",
	"sending gateway command",
	"new request",
	"new response",
	"locking rest bucket",
	"unlocking rest bucket",
	"rate limit response headers",
	"sending heartbeat",
}

func shouldSkipLog(r *slog.Record) bool {
	msg := strings.ToLower(r.Message)
	for _, skip := range skippedMessages {
		if strings.Contains(msg, skip) {
			return true
		}
	}
	return false
}

func getLogType(attrs []slog.Attr) LogType {
	switch lookup(attrs, "type") {
	case "cmd":
		return TypeCommand
	case "db":
		return TypeDB
	case "trade":
		return TypeTrade
	case "error", "err":
		return TypeError
	}
	return TypeSystem
}

func lookup(attrs []slog.Attr, key string) string {
	for _, a := range attrs {
		if a.Key == key {
			return a.Value.String()
		}
	}
	return ""
}

func sourceLocation(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frames := runtime.CallersFrames([]uintptr{pc})
	frame, _ := frames.Next()
	if frame.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
}
