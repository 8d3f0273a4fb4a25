package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/HerbHall/devicedesk/internal/activity"
	"github.com/HerbHall/devicedesk/internal/services"
)

// EnvPrefix prefixes environment overrides, e.g. DEVICEDESK_SERVER_PORT.
const EnvPrefix = "DEVICEDESK"

// Settings is the typed configuration of a devicedesk process.
type Settings struct {
	Server   ServerSettings   `mapstructure:"server"`
	Database DatabaseSettings `mapstructure:"database"`
	Engine   EngineSettings   `mapstructure:"engine"`
	Activity ActivitySettings `mapstructure:"activity"`
}

type ServerSettings struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	RateLimit       float64       `mapstructure:"rate_limit"` // tool calls per second, 0 disables
	RateBurst       int           `mapstructure:"rate_burst"`
	JWTSecret       string        `mapstructure:"jwt_secret"` // empty disables bearer verification
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr is the listen address.
func (s ServerSettings) Addr() string {
	return s.Host + ":" + s.Port
}

type DatabaseSettings struct {
	Path          string              `mapstructure:"path"`
	BusyTimeoutMS int                 `mapstructure:"busy_timeout_ms"`
	Tables        services.TableNames `mapstructure:"tables"`
}

type EngineSettings struct {
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`
	DefaultActor  string        `mapstructure:"default_actor"`
}

type ActivitySettings struct {
	QueueSize    int                 `mapstructure:"queue_size"`
	WriteTimeout time.Duration       `mapstructure:"write_timeout"`
	MQTT         activity.MQTTConfig `mapstructure:"mqtt"` // disabled unless broker_url is set
}

// SetDefaults registers the default of every setting on v.
func SetDefaults(v *viper.Viper) {
	tables := services.DefaultTableNames()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.rate_limit", 50.0)
	v.SetDefault("server.rate_burst", 100)
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.path", "devicedesk.db")
	v.SetDefault("database.busy_timeout_ms", 5000)
	v.SetDefault("database.tables.devices", tables.Devices)
	v.SetDefault("database.tables.device_settings", tables.DeviceSettings)
	v.SetDefault("database.tables.wifi_networks", tables.WifiNetworks)
	v.SetDefault("database.tables.users", tables.Users)
	v.SetDefault("database.tables.user_activities", tables.UserActivities)

	v.SetDefault("engine.retry_attempts", 3)
	v.SetDefault("engine.retry_backoff", 50*time.Millisecond)
	v.SetDefault("engine.default_actor", "system")

	v.SetDefault("activity.queue_size", 256)
	v.SetDefault("activity.write_timeout", 5*time.Second)
	v.SetDefault("activity.mqtt.broker_url", "")
	v.SetDefault("activity.mqtt.client_id", "devicedesk-activity")
	v.SetDefault("activity.mqtt.username", "")
	v.SetDefault("activity.mqtt.password", "")
	v.SetDefault("activity.mqtt.topic_prefix", "devicedesk/activity")
	v.SetDefault("activity.mqtt.qos", 1)
	v.SetDefault("activity.mqtt.connect_timeout", 10*time.Second)
}

// Load reads the configuration file at path, if any, applies DEVICEDESK_*
// environment overrides and decodes the result. Without a path a
// devicedesk.yaml in the working directory is used when present.
func Load(path string) (*ViperConfig, *Settings, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("devicedesk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := New(v)
	var s Settings
	if err := cfg.Unmarshal(&s); err != nil {
		return nil, nil, fmt.Errorf("decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, &s, nil
}

// Validate checks values that would otherwise fail later at runtime.
func (s *Settings) Validate() error {
	if err := s.Database.Tables.Validate(); err != nil {
		return fmt.Errorf("database.tables: %w", err)
	}
	if s.Database.Path == "" {
		return errors.New("database.path must not be empty")
	}
	if s.Engine.RetryAttempts < 1 {
		return fmt.Errorf("engine.retry_attempts must be at least 1, got %d", s.Engine.RetryAttempts)
	}
	if s.Engine.RetryBackoff < 0 {
		return errors.New("engine.retry_backoff must not be negative")
	}
	if s.Activity.QueueSize < 0 {
		return fmt.Errorf("activity.queue_size must not be negative, got %d", s.Activity.QueueSize)
	}
	if s.Activity.MQTT.QoS > 2 {
		return fmt.Errorf("activity.mqtt.qos must be 0, 1 or 2, got %d", s.Activity.MQTT.QoS)
	}
	if s.Server.RateLimit < 0 {
		return errors.New("server.rate_limit must not be negative")
	}
	return nil
}
