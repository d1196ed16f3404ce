package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestWithComponentAndContext(t *testing.T) {
	var buf bytes.Buffer
	Reconfigure(Config{Level: "debug", Output: &buf, Service: "test"})
	t.Cleanup(func() { Reconfigure(Config{}) })

	ctx := ContextWithRunID(context.Background(), "run-1")
	ctx = ContextWithRequestID(ctx, "req-1")

	l := WithContext(ctx, WithComponent("engine"))
	l.Info().Int(FieldSteps, 19).Msg("done")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "test", entry["service"])
	assert.Equal(t, "engine", entry[FieldComponent])
	assert.Equal(t, "run-1", entry[FieldRunID])
	assert.Equal(t, "req-1", entry[FieldRequestID])
	assert.Equal(t, float64(19), entry[FieldSteps])
	assert.Equal(t, "done", entry["message"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Reconfigure(Config{Level: "warn", Output: &buf})
	t.Cleanup(func() { Reconfigure(Config{}) })

	base := Base()
	base.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	derived := Derive(nil)
	derived.Warn().Msg("shown")
	entry := decodeLine(t, &buf)
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "tapemachine", entry["service"])
}

func TestContextHelpersNil(t *testing.T) {
	//nolint:staticcheck // nil context is handled explicitly
	assert.Empty(t, RunIDFromContext(nil))
	assert.Empty(t, RequestIDFromContext(context.Background()))
	assert.NotNil(t, ContextWithRunID(nil, "x")) //nolint:staticcheck
}
