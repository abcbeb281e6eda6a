package hookregistry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goagain/reglet-host/internal/abi"
	"github.com/goagain/reglet-host/internal/hookregistry"
)

func TestIsValid(t *testing.T) {
	assert.True(t, hookregistry.IsValid("post_published_filter"))
	assert.True(t, hookregistry.IsValid("action_user_created"))
	assert.False(t, hookregistry.IsValid("totally_made_up_hook"))
}

func TestGetKind(t *testing.T) {
	def, ok := hookregistry.Get("action_user_created")
	require.True(t, ok)
	assert.Equal(t, abi.KindAction, def.Kind)

	def, ok = hookregistry.Get("post_published_filter")
	require.True(t, ok)
	assert.Equal(t, abi.KindFilter, def.Kind)
}

func TestRequiredCapability(t *testing.T) {
	assert.Equal(t, "user:read", hookregistry.RequiredCapability("action_user_created"))
	assert.Equal(t, "", hookregistry.RequiredCapability("post_published_filter"))
	assert.Equal(t, "", hookregistry.RequiredCapability("action_system_startup"))
}

func TestIsValidCapability(t *testing.T) {
	assert.True(t, hookregistry.IsValidCapability("post:write"))
	assert.True(t, hookregistry.IsValidCapability("ai:chat"))
	assert.False(t, hookregistry.IsValidCapability("post:delete"))
}

func TestValidate(t *testing.T) {
	t.Run("unknown hook", func(t *testing.T) {
		err := hookregistry.Validate("org.example.plugin", "nonexistent_hook", nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, hookregistry.ErrUnknownHook)
	})

	t.Run("no capability required", func(t *testing.T) {
		err := hookregistry.Validate("org.example.plugin", "post_published_filter", nil)
		require.NoError(t, err)
	})

	t.Run("capability required and granted", func(t *testing.T) {
		granted := map[string]struct{}{"user:read": {}}
		err := hookregistry.Validate("org.example.plugin", "action_user_created", granted)
		require.NoError(t, err)
	})

	t.Run("capability required but not granted", func(t *testing.T) {
		err := hookregistry.Validate("org.example.plugin", "action_user_created", nil)
		require.Error(t, err)

		var violation *hookregistry.SecurityViolation
		require.ErrorAs(t, err, &violation)
		assert.Equal(t, "org.example.plugin", violation.PluginID)
		assert.Equal(t, "action_user_created", violation.Hook)
		assert.Equal(t, "user:read", violation.Required)
	})
}
