// Package config wraps Viper and decodes the typed settings of devicedesk.
package config

import (
	"github.com/spf13/viper"
)

// ViperConfig is the loaded configuration. A nil Viper yields an empty one.
type ViperConfig struct {
	v *viper.Viper
}

// New wraps v.
func New(v *viper.Viper) *ViperConfig {
	if v == nil {
		v = viper.New()
	}
	return &ViperConfig{v: v}
}

// Unmarshal decodes the whole configuration, defaults and environment
// overrides included, into target.
func (c *ViperConfig) Unmarshal(target any) error {
	return c.v.Unmarshal(target)
}

// ConfigFile is the file the configuration was read from, or "" when only
// defaults and the environment were used.
func (c *ViperConfig) ConfigFile() string {
	return c.v.ConfigFileUsed()
}
