package logging

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLoggerFieldsAndLevel(t *testing.T) {
	base, hook := test.NewNullLogger()
	logger := NewLogrusLogger(base)

	child := logger.WithFields(Fields{"component": "extractor"})
	child.Debug("hidden")
	child.Info("visible", Fields{"frames": 12})

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "visible", entry.Message)
	assert.Equal(t, "extractor", entry.Data["component"])
	assert.Equal(t, 12, entry.Data["frames"])

	child.SetLevel(DebugLevel)
	child.Debug("now shown")
	assert.Len(t, hook.AllEntries(), 2)
}

func TestDefaultLoggerErrorAttachesError(t *testing.T) {
	base, hook := test.NewNullLogger()
	logger := NewLogrusLogger(base)

	logger.Error(errors.New("boom"), "pass failed")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.EqualError(t, entry.Data[logrus.ErrorKey].(error), "boom")
}

func TestWithContextPicksUpFields(t *testing.T) {
	base, hook := test.NewNullLogger()
	logger := NewLogrusLogger(base)

	ctx := ContextWithFields(context.Background(), Fields{"job_id": "abc"})
	logger.WithContext(ctx).Warn("slow")

	assert.Equal(t, "abc", hook.LastEntry().Data["job_id"])

	ctx = ContextWithFields(ctx, Fields{"stage": "extraction"})
	logger.WithContext(ctx).Warn("slower")
	assert.Equal(t, "abc", hook.LastEntry().Data["job_id"])
	assert.Equal(t, "extraction", hook.LastEntry().Data["stage"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, WarnLevel, ParseLevel("warning"))
	assert.Equal(t, ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, InfoLevel, ParseLevel("bogus"))
}

func TestSetGlobalLoggerNil(t *testing.T) {
	prev := GetGlobalLogger()
	defer SetGlobalLogger(prev)

	SetGlobalLogger(nil)
	assert.IsType(t, &NoOpLogger{}, GetGlobalLogger())
	Info("dropped")
}
