package logger

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/lmittmann/tint"
)

/*
New returns DEBUG level logger which writes into the test log, so the
output is shown only for failed tests (or when running with -v).

Colors can be disabled by setting env var NFTMINTER_TEST_LOG_NO_COLORS=true.
*/
func New(t testing.TB) *slog.Logger {
	return NewLvl(t, slog.LevelDebug)
}

func NewLvl(t testing.TB, level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(&testLogWriter{t: t}, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.0000",
		NoColor:    noColors(),
	}))
}

type testLogWriter struct {
	t testing.TB
}

func (w *testLogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

func noColors() bool {
	s, ok := os.LookupEnv("NFTMINTER_TEST_LOG_NO_COLORS")
	if !ok {
		return false
	}
	v, err := strconv.ParseBool(s)
	return err == nil && v
}

// Discard is for the (benchmark) tests which do not want any log output.
func Discard() *slog.Logger {
	return slog.New(tint.NewHandler(discard{}, &tint.Options{Level: slog.LevelError + 1, TimeFormat: time.TimeOnly}))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
