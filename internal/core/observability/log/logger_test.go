package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_FieldsReachCore(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewWithCore(core)

	l.With(EntityID(7)).Info("restored", Bool("selected", true), Error(errors.New("boom")))

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, uint64(7), ctx["entity_id"])
	assert.Equal(t, true, ctx["selected"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewWithCore(core)
	l.SetLevel(LevelWarn)

	l.Debug("dropped")
	l.Info("dropped")
	l.Warn("kept")

	assert.Equal(t, LevelWarn, l.GetLevel())
	assert.Equal(t, 1, logs.Len())
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, LevelDebug, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, LevelInfo, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestDigestField(t *testing.T) {
	f := Digest(0xabc)
	assert.Equal(t, "digest", f.Key)
	assert.Equal(t, "0000000000000abc", f.Value)
}
