package logging

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	errs "github.com/turtacn/ContractLens/pkg/errors"
)

// Helper to create a logger that writes to a buffer for verification
func newTestLogger(t *testing.T) (Logger, *zaptest.Buffer) {
	t.Helper()
	buf := &zaptest.Buffer{}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)
	core := zapcore.NewCore(encoder, buf, zapcore.DebugLevel)
	return &zapLogger{z: zap.New(core)}, buf
}

func TestNewLogger_JSONFormat(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: LevelInfo, Format: "json", OutputPaths: []string{"stdout"}})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewLogger_ConsoleFormat(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: LevelDebug, Format: "console", OutputPaths: []string{"stdout"}})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewLogger_DefaultsApplied(t *testing.T) {
	l, err := NewLogger(LogConfig{})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewLogger_UnopenablePath(t *testing.T) {
	l, err := NewLogger(LogConfig{OutputPaths: []string{"/nonexistent-dir/contractlens/app.log"}})
	assert.Error(t, err)
	assert.Nil(t, l)
}

func TestNewDevelopmentLogger_NotNil(t *testing.T) {
	assert.NotNil(t, NewDevelopmentLogger())
}

func TestNopLogger_AllMethodsNoOp(t *testing.T) {
	l := NewNopLogger()
	l.Debug("msg")
	l.Info("msg")
	l.Warn("msg")
	l.Error("msg")
	l.Fatal("msg")
	assert.NoError(t, l.Sync())
}

func TestNopLogger_ChildrenReturnSelf(t *testing.T) {
	l := NewNopLogger()
	assert.Equal(t, l, l.With(String("k", "v")))
	assert.Equal(t, l, l.Named("x"))
	assert.Equal(t, l, l.WithContext(context.Background()))
	assert.Equal(t, l, l.WithError(errors.New("err")))
}

func TestZapLogger_Levels(t *testing.T) {
	cases := []struct {
		level string
		log   func(Logger)
	}{
		{"debug", func(l Logger) { l.Debug("msg") }},
		{"info", func(l Logger) { l.Info("msg") }},
		{"warn", func(l Logger) { l.Warn("msg") }},
		{"error", func(l Logger) { l.Error("msg") }},
	}
	for _, tc := range cases {
		t.Run(tc.level, func(t *testing.T) {
			l, buf := newTestLogger(t)
			tc.log(l)
			assert.Contains(t, buf.String(), `"level":"`+tc.level+`"`)
		})
	}
}

func TestZapLogger_With_AddsFields(t *testing.T) {
	l, buf := newTestLogger(t)
	l.With(String("foo", "bar"), Strings("cats", []string{"termination"})).Info("msg")
	assert.Contains(t, buf.String(), `"foo":"bar"`)
	assert.Contains(t, buf.String(), `"cats":["termination"]`)
}

func TestZapLogger_WithContext_ExtractsRequestID(t *testing.T) {
	l, buf := newTestLogger(t)
	ctx := WithRequestID(context.Background(), "req-123")
	l.WithContext(ctx).Info("msg")
	assert.Contains(t, buf.String(), `"request_id":"req-123"`)
}

func TestZapLogger_WithContext_NoRequestID(t *testing.T) {
	l, buf := newTestLogger(t)
	l.WithContext(context.Background()).Info("msg")
	assert.NotContains(t, buf.String(), "request_id")
}

func TestZapLogger_WithError_AppError(t *testing.T) {
	l, buf := newTestLogger(t)
	appErr := errs.New(errs.ErrCodeInternal, "app error")
	l.WithError(appErr).Error("msg")
	assert.Contains(t, buf.String(), `"error_code":"COMMON_001"`)
	assert.Contains(t, buf.String(), `"error":"[COMMON_001] app error"`)
}

func TestZapLogger_WithError_StandardError(t *testing.T) {
	l, buf := newTestLogger(t)
	l.WithError(errors.New("std error")).Error("msg")
	assert.Contains(t, buf.String(), `"error":"std error"`)
	assert.NotContains(t, buf.String(), "error_code")
}

func TestZapLogger_WithError_NilError(t *testing.T) {
	l, buf := newTestLogger(t)
	l.WithError(nil).Info("msg")
	assert.NotContains(t, buf.String(), `"error"`)
}

func TestSetGlobalLogger_UpdatesGlobal(t *testing.T) {
	orig := GetGlobalLogger()
	defer SetGlobalLogger(orig)

	l, _ := newTestLogger(t)
	SetGlobalLogger(l)
	assert.Equal(t, l, GetGlobalLogger())

	SetGlobalLogger(nil)
	assert.Equal(t, l, GetGlobalLogger())
}

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		" error ": LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseLevel("invalid")
	assert.Error(t, err)
	assert.Equal(t, "info", LevelInfo.String())
}

func TestLogOperationDuration_FastOperation(t *testing.T) {
	l, buf := newTestLogger(t)
	LogOperationDuration(l, "analyze", time.Now())
	assert.Contains(t, buf.String(), "operation completed")
	assert.Contains(t, buf.String(), `"level":"info"`)
	assert.Contains(t, buf.String(), "duration_ms")
}

func TestLogOperationDuration_SlowOperation(t *testing.T) {
	l, buf := newTestLogger(t)
	LogOperationDuration(l, "analyze", time.Now().Add(-3*time.Second))
	assert.Contains(t, buf.String(), "slow operation")
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestLogInference(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewLoggerFromCore(core)

	LogInference(l, "cuad-roberta", "termination", 12*time.Millisecond, nil)
	LogInference(l, "cuad-roberta", "liability", time.Millisecond, errors.New("connection refused"))

	require.Equal(t, 2, logs.Len())
	ok := logs.FilterMessage("span inference completed").All()
	require.Len(t, ok, 1)
	assert.Equal(t, "termination", ok[0].ContextMap()[FieldCategory])

	failed := logs.FilterMessage("span inference failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.ErrorLevel, failed[0].Level)
	assert.Equal(t, "connection refused", failed[0].ContextMap()["error"])
}

func TestSetLevel_AppliesToDerivedLoggers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := NewLogger(LogConfig{Level: LevelWarn, OutputPaths: []string{path}})
	require.NoError(t, err)
	child := l.Named("analysis").With(String("k", "v"))

	child.Info("hidden")
	require.True(t, SetLevel(l, LevelDebug))
	child.Debug("visible")
	require.NoError(t, l.Sync())

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "hidden")
	assert.Contains(t, string(out), "visible")
}

func TestSetLevel_Unsupported(t *testing.T) {
	assert.False(t, SetLevel(NewNopLogger(), LevelDebug))
	l, _ := newTestLogger(t)
	assert.False(t, SetLevel(l, LevelDebug))
}

func TestFieldConstants_Values(t *testing.T) {
	assert.Equal(t, "request_id", FieldRequestID)
	assert.Equal(t, "category", FieldCategory)
}

//Personal.AI order the ending
