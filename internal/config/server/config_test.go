package server_test

import (
	"testing"

	"github.com/jonesrussell/crawljobs/internal/config/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	t.Run("security disabled skips key checks", func(t *testing.T) {
		t.Parallel()
		cfg := &server.Config{SecurityEnabled: false}
		require.NoError(t, cfg.Validate())
	})

	t.Run("security enabled requires an api key", func(t *testing.T) {
		t.Parallel()
		cfg := &server.Config{SecurityEnabled: true}
		require.Error(t, cfg.Validate())
	})

	t.Run("api key must be id:key", func(t *testing.T) {
		t.Parallel()
		cfg := &server.Config{SecurityEnabled: true, APIKey: "not-a-valid-key"}
		require.Error(t, cfg.Validate())
	})

	t.Run("valid api key passes", func(t *testing.T) {
		t.Parallel()
		cfg := &server.Config{SecurityEnabled: true, APIKey: "id123:secret456"}
		assert.NoError(t, cfg.Validate())
	})
}
