package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var at = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func TestFormatLine(t *testing.T) {
	t.Run("user registered", func(t *testing.T) {
		env, err := NewEnvelope(TypeUserRegistered, UserRegisteredEvent{
			UserID: "u1", Username: "alice123", UserType: "renter", Location: "Dhaka",
		}, at)
		require.NoError(t, err)

		line, err := FormatLine(env)
		require.NoError(t, err)
		assert.Equal(t, "[2026-03-01T10:00:00Z] User registered | user_id=u1 | username=\"alice123\" | type=renter | location=\"Dhaka\"\n", line)
	})

	t.Run("property created", func(t *testing.T) {
		env, err := NewEnvelope(TypePropertyCreated, PropertyCreatedEvent{
			PropertyID: "prop_1_u1", UserID: "u1", Location: "Mirpur", PropertyType: "family",
			TemporaryRent: true, ImageCount: 2,
		}, at)
		require.NoError(t, err)

		line, err := FormatLine(env)
		require.NoError(t, err)
		assert.Contains(t, line, "Property listed | property_id=prop_1_u1")
		assert.Contains(t, line, "rent=temporary | images=2")
		assert.True(t, strings.HasSuffix(line, "\n"))
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := FormatLine(Envelope{Type: "other", Payload: json.RawMessage(`{}`)})
		assert.Error(t, err)
	})
}

func TestConsumerHandleAppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "listings.log")
	c := NewConsumer("", path, zap.NewNop())

	for _, id := range []string{"u1", "u2"} {
		env, err := NewEnvelope(TypeUserRegistered, UserRegisteredEvent{UserID: id}, at)
		require.NoError(t, err)
		body, err := json.Marshal(env)
		require.NoError(t, err)
		require.NoError(t, c.Handle(body))
	}

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "user_id=u1")
	assert.Contains(t, lines[1], "user_id=u2")

	assert.Error(t, c.Handle([]byte("not json")))
}
