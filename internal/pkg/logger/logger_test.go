package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestKeysAndValues_MasksPersonalData(t *testing.T) {
	kv := keysAndValues(map[string]interface{}{"email": "john@x.com"})

	assert.Equal(t, []interface{}{"email", "jo***"}, kv)
	assert.Nil(t, keysAndValues(nil))
}

func TestZapLogger_WritesStructuredFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &ZapLogger{sugar: zap.New(core).Sugar()}

	l.Info("cliente criado", map[string]interface{}{"client_id": "c-1"})
	l.Warn("cache indisponível", nil)

	entries := logs.All()
	assert.Len(t, entries, 2)
	assert.Equal(t, "c-1", entries[0].ContextMap()["client_id"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
}

func TestNewLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	l := NewLogger("verbose").(*ZapLogger)

	assert.False(t, l.sugar.Desugar().Core().Enabled(zap.DebugLevel))
	assert.True(t, l.sugar.Desugar().Core().Enabled(zap.InfoLevel))
}
