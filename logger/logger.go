package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

/*
LogConfiguration describes the logger, it can be loaded from YAML file
(see cli "logger-config" flag) and individual fields overridden by flags.
*/
type LogConfiguration struct {
	// one of DEBUG, INFO, WARN, ERROR (case insensitive), INFO when empty
	Level string `yaml:"defaultLevel"`
	// one of text, json, console, compact, ecs; console when empty
	Format string `yaml:"format"`
	// file name or one of the special values stdout, stderr, discard
	OutputPath string `yaml:"outputPath"`
	// Go time layout or "none" to not log the time at all
	TimeFormat string `yaml:"timeFormat"`
	ShowSource bool   `yaml:"showSource"`
}

const (
	FormatText    = "text"
	FormatJSON    = "json"
	FormatConsole = "console"
	FormatCompact = "compact"
	FormatECS     = "ecs"
)

/*
New creates logger based on the configuration.
Empty configuration is valid and results in INFO level console logger
writing into stderr.
*/
func New(cfg *LogConfiguration) (*slog.Logger, error) {
	if cfg == nil {
		cfg = &LogConfiguration{}
	}
	var level slog.Level
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	out, err := cfg.writer()
	if err != nil {
		return nil, fmt.Errorf("creating log writer: %w", err)
	}

	h, err := cfg.handler(out, level)
	if err != nil {
		return nil, err
	}
	return slog.New(h), nil
}

func (cfg *LogConfiguration) handler(out io.Writer, level slog.Level) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.ShowSource}

	switch strings.ToLower(cfg.Format) {
	case FormatText:
		opts.ReplaceAttr = chainAttrFmt(formatTimeAttr(cfg.TimeFormat), formatDataAttrAsJSON)
		return slog.NewTextHandler(out, opts), nil
	case FormatJSON:
		opts.ReplaceAttr = formatTimeAttr(cfg.TimeFormat)
		return slog.NewJSONHandler(out, opts), nil
	case FormatECS:
		opts.ReplaceAttr = chainAttrFmt(formatTimeAttr(cfg.TimeFormat), formatAttrECS)
		return slog.NewJSONHandler(out, opts), nil
	case FormatCompact:
		opts.ReplaceAttr = formatAttrCompact
		return slog.NewTextHandler(out, opts), nil
	case FormatConsole, "":
		timeFmt := cfg.TimeFormat
		if timeFmt == "" {
			timeFmt = time.TimeOnly
		}
		return tint.NewHandler(out, &tint.Options{
			Level:       level,
			AddSource:   cfg.ShowSource,
			TimeFormat:  timeFmt,
			NoColor:     !isConsole(out),
			ReplaceAttr: chainAttrFmt(noTimeAttr(cfg.TimeFormat), formatDataAttrAsJSON),
		}), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}

func (cfg *LogConfiguration) writer() (io.Writer, error) {
	switch strings.ToLower(cfg.OutputPath) {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	case "discard":
		return io.Discard, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.OutputPath), 0700); err != nil {
		return nil, fmt.Errorf("creating directory for log file: %w", err)
	}
	f, err := os.OpenFile(filepath.Clean(cfg.OutputPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600) // -rw-------
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}

// tint formats the time itself, only "none" needs special handling
func noTimeAttr(format string) attrFormatter {
	if format == "none" {
		return formatTimeAttr(format)
	}
	return nil
}

// colors are used only when writing into terminal
func isConsole(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
