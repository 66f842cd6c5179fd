package mailer

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkops/internal/platform/config"
)

func TestLogMailerKeepsBodyOutOfInfo(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf).Level(zerolog.InfoLevel)
	t.Cleanup(func() { log.Logger = prev })

	m := New(config.EmailConfig{Provider: "log"})
	err := m.Send(context.Background(), Message{
		To:      "a@x.com",
		Subject: "Reset your password",
		HTML:    `<a href="http://localhost:3000/reset?token=secret-token">reset</a>`,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "a@x.com")
	assert.Contains(t, out, "Reset your password")
	assert.NotContains(t, out, "secret-token")
}
