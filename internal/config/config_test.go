package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViperConfig_UnmarshalSettings(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("engine.retry_backoff", "250ms")
	v.Set("activity.mqtt.topic_prefix", "fleet/eu/activity")

	var s Settings
	require.NoError(t, New(v).Unmarshal(&s))
	assert.Equal(t, 250*time.Millisecond, s.Engine.RetryBackoff)
	assert.Equal(t, 3, s.Engine.RetryAttempts)
	assert.Equal(t, "fleet/eu/activity", s.Activity.MQTT.TopicPrefix)
	assert.Equal(t, "WifiNetworks", s.Database.Tables.WifiNetworks)
}

func TestViperConfig_NilViper(t *testing.T) {
	cfg := New(nil)
	assert.Empty(t, cfg.ConfigFile())

	var s Settings
	require.NoError(t, cfg.Unmarshal(&s))
	assert.Empty(t, s.Database.Path)
}

func TestViperConfig_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, _, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.ConfigFile(), "no devicedesk.yaml in the working directory")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "devicedesk.yaml"), []byte("engine:\n  default_actor: ops\n"), 0o600))
	cfg, s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "devicedesk.yaml", filepath.Base(cfg.ConfigFile()))
	assert.Equal(t, "ops", s.Engine.DefaultActor)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  retry_attempts: 5\n  retry_backoff: 1s\n"), 0o600))
	t.Setenv("DEVICEDESK_ENGINE_RETRY_BACKOFF", "75ms")
	t.Setenv("DEVICEDESK_ACTIVITY_QUEUE_SIZE", "0")

	cfg, s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.ConfigFile())
	assert.Equal(t, 5, s.Engine.RetryAttempts)
	assert.Equal(t, 75*time.Millisecond, s.Engine.RetryBackoff)
	assert.Zero(t, s.Activity.QueueSize)
}
