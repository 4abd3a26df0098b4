package pagination_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moim/moim-api/internal/pkg/pagination"
)

func TestCursorRoundTrip(t *testing.T) {
	id := uuid.New()

	t.Run("int sort value", func(t *testing.T) {
		token := pagination.Encode(id, 42)

		c, err := pagination.Decode(token)
		require.NoError(t, err)
		assert.Equal(t, id, c.ID)
		// JSON numbers come back as float64.
		assert.Equal(t, float64(42), c.SortValue)
	})

	t.Run("time sort value", func(t *testing.T) {
		createdAt := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
		token := pagination.Encode(id, createdAt)

		c, err := pagination.Decode(token)
		require.NoError(t, err)
		assert.Equal(t, id, c.ID)

		s, ok := c.SortValue.(string)
		require.True(t, ok, "time sort value should decode as string")
		parsed, err := time.Parse(time.RFC3339Nano, s)
		require.NoError(t, err)
		assert.True(t, parsed.Equal(createdAt))
	})

	t.Run("nil sort value", func(t *testing.T) {
		token := pagination.Encode(id, nil)

		c, err := pagination.Decode(token)
		require.NoError(t, err)
		assert.Equal(t, id, c.ID)
		assert.Nil(t, c.SortValue)
	})
}

func TestCursorTokenIsURLSafe(t *testing.T) {
	token := pagination.Encode(uuid.New(), time.Now())

	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")
	assert.NotContains(t, token, "=")
}

func TestDecodeMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":           "",
		"not base64":      "%%%not-base64%%%",
		"not json":        base64.RawURLEncoding.EncodeToString([]byte("not json")),
		"missing id":      base64.RawURLEncoding.EncodeToString([]byte(`{"v":10}`)),
		"nil id":          base64.RawURLEncoding.EncodeToString([]byte(`{"id":"00000000-0000-0000-0000-000000000000","v":10}`)),
		"truncated token": pagination.Encode(uuid.New(), 7)[:5],
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			c, err := pagination.Decode(token)
			assert.Nil(t, c)
			assert.ErrorIs(t, err, pagination.ErrMalformedCursor)
		})
	}
}
