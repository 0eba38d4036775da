package testutil_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FamilyScope/internal/testutil"
)

func TestRecordingLogger(t *testing.T) {
	logger := testutil.NewRecordingLogger()

	logger.Info("import started", logging.String("job_id", "j1"))
	logger.Named("importer").With(logging.Int("total", 3)).Warn("item failed", logging.String("id", "x"))

	entries := logger.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "info", entries[0].Level)
	assert.Equal(t, "j1", entries[0].StringField("job_id"))

	warn := entries[1]
	assert.Equal(t, "importer", warn.Logger)
	f, ok := warn.Field("total")
	require.True(t, ok)
	assert.Equal(t, int64(3), f.Integer)
	assert.Equal(t, "x", warn.StringField("id"))

	assert.True(t, logger.Has("warn", "failed"))
	assert.False(t, logger.Has("error", "failed"))

	logger.Reset()
	assert.Empty(t, logger.Entries())
}

func TestRecordingLogger_NamedNesting(t *testing.T) {
	logger := testutil.NewRecordingLogger()
	logger.Named("a").Named("b").Error("boom")
	assert.Equal(t, "a.b", logger.Find("error", "boom")[0].Logger)
}

func TestRecordingLogger_WithContext(t *testing.T) {
	logger := testutil.NewRecordingLogger()
	assert.Same(t, logger, logger.WithContext(context.Background()))
}

//Personal.AI order the ending
