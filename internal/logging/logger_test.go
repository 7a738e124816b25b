package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"DEBUG":    zapcore.DebugLevel,
		"info":     zapcore.InfoLevel,
		"WARNING":  zapcore.WarnLevel,
		"warn":     zapcore.WarnLevel,
		"":         zapcore.WarnLevel,
		"Error":    zapcore.ErrorLevel,
		"CRITICAL": zapcore.DPanicLevel,
	}
	for input, want := range cases {
		got, err := ParseLevel(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseLevel("LOUD")
	assert.Error(t, err)
}

func TestCategoryLoggerTagsEntries(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	UseCore(core)
	t.Cleanup(func() { UseCore(zapcore.NewNopCore()) })

	Manager("tick %d started", 3)
	RegistersDebug("lock %s", "notes")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "tick 3 started", entries[0].Message)
	assert.Equal(t, "manager", entries[0].ContextMap()["category"])
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
	assert.Equal(t, "registers", entries[1].ContextMap()["category"])
}

func TestWithAddsContext(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	UseCore(core)
	t.Cleanup(func() { UseCore(zapcore.NewNopCore()) })

	Get(CategoryAngels).With("worker", "BoldlyWittyUriel").Info("thought recorded")

	entries := logs.FilterField(zap.String("worker", "BoldlyWittyUriel")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "thought recorded", entries[0].Message)
}

func TestInitializeRejectsBadLevel(t *testing.T) {
	assert.Error(t, Initialize("shout", "console"))
}
