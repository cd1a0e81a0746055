package services

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamterraforge/tgmsauth/internal/logging"
)

func TestLogSender_NeverLogsToken(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := NewLogSender(log).SendResetToken(context.Background(), "a@test.com", "secret-token-value")
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "a@test.com")
	assert.NotContains(t, buf.String(), "secret-token-value")
}
