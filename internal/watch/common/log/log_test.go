package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	level  string
	msg    string
	fields map[string]any
}

type testLogger struct {
	entries []entry
}

func (l *testLogger) add(level string, f map[string]any, msg string) {
	l.entries = append(l.entries, entry{level: level, msg: msg, fields: f})
}

func (l *testLogger) Info(f map[string]any, msg string)  { l.add("INFO", f, msg) }
func (l *testLogger) Error(f map[string]any, msg string) { l.add("ERROR", f, msg) }
func (l *testLogger) Debug(f map[string]any, msg string) { l.add("DEBUG", f, msg) }
func (l *testLogger) Warn(f map[string]any, msg string)  { l.add("WARN", f, msg) }
func (l *testLogger) Panic(f map[string]any, msg string) { l.add("PANIC", f, msg) }
func (l *testLogger) Fatal(f map[string]any, msg string) { l.add("FATAL", f, msg) }

func TestActualZapLogger(t *testing.T) {
	Debug(map[string]any{
		"domain":  "example.com",
		"workers": 4,
		"blocked": true,
		"error":   errors.New("boom"),
	}, "test debug")
	Info(nil, "test info")
	Warn(nil, "test warn")
	Error(nil, "test error")

	assert.Panics(t, func() { Panic(nil, "test panic") })
}

func TestSetLoggerAndGlobalLogging(t *testing.T) {
	orig := GetLogger()
	defer SetLogger(orig)

	tlog := &testLogger{}
	SetLogger(tlog)

	Info(nil, "info msg")
	Error(nil, "error msg")
	Debug(nil, "debug msg")
	Warn(nil, "warn msg")

	want := []string{"INFO:info msg", "ERROR:error msg", "DEBUG:debug msg", "WARN:warn msg"}
	require.Len(t, tlog.entries, len(want))
	for i, w := range want {
		assert.Equal(t, w, tlog.entries[i].level+":"+tlog.entries[i].msg)
	}
}

func TestConfigure(t *testing.T) {
	orig := GetLogger()
	defer SetLogger(orig)

	for _, level := range []string{"debug", "info", "warn", "error", "INFO"} {
		assert.NoError(t, Configure("prod", level), level)
		assert.NoError(t, Configure("dev", level), level)
	}

	err := Configure("prod", "verbose")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestNamed_AddsComponentField(t *testing.T) {
	tlog := &testLogger{}
	l := Named(tlog, "monitor")

	fields := map[string]any{"cycle": 1}
	l.Info(fields, "cycle finished")
	l.Warn(nil, "slow")

	require.Len(t, tlog.entries, 2)
	assert.Equal(t, "monitor", tlog.entries[0].fields["component"])
	assert.Equal(t, 1, tlog.entries[0].fields["cycle"])
	assert.Equal(t, "monitor", tlog.entries[1].fields["component"])
	_, mutated := fields["component"]
	assert.False(t, mutated, "caller's field map must not be modified")
}

func TestNoopLogger(t *testing.T) {
	l := NewNoopLogger()
	assert.NotPanics(t, func() {
		l.Info(nil, "x")
		l.Error(nil, "x")
		l.Debug(nil, "x")
		l.Warn(nil, "x")
		l.Panic(nil, "x")
		l.Fatal(nil, "x")
	})
}
