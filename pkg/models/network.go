package models

import (
	"strings"
	"time"
)

// SecurityType is the authentication scheme of a WiFi network.
type SecurityType string

const (
	SecurityWEP  SecurityType = "WEP"
	SecurityWPA  SecurityType = "WPA"
	SecurityWPA2 SecurityType = "WPA2"
	SecurityWPA3 SecurityType = "WPA3"
	SecurityOpen SecurityType = "Open"
)

// SecurityTypes lists every valid SecurityType.
var SecurityTypes = []SecurityType{
	SecurityWEP,
	SecurityWPA,
	SecurityWPA2,
	SecurityWPA3,
	SecurityOpen,
}

// ParseSecurityType maps s onto a SecurityType ignoring case.
func ParseSecurityType(s string) (SecurityType, bool) {
	s = strings.TrimSpace(s)
	for _, st := range SecurityTypes {
		if strings.EqualFold(s, string(st)) {
			return st, true
		}
	}
	return "", false
}

// MaxSSIDLength is the longest SSID a network may carry, in characters.
const MaxSSIDLength = 32

// WifiNetwork is a WiFi network configured on a device. A device may carry
// several networks, each identified by NetworkID.
type WifiNetwork struct {
	DeviceID       string       `json:"device_id" yaml:"device_id"`
	NetworkID      string       `json:"network_id" yaml:"network_id"`
	SSID           string       `json:"ssid" yaml:"ssid"`
	SecurityType   SecurityType `json:"security_type" yaml:"security_type"`
	Enabled        bool         `json:"enabled" yaml:"enabled"`
	Channel        int          `json:"channel" yaml:"channel"`
	SignalStrength int          `json:"signal_strength" yaml:"signal_strength"`
	LastUpdated    time.Time    `json:"last_updated" yaml:"last_updated"`
}

// WifiChange describes a single-field update applied to a WiFi network.
type WifiChange struct {
	DeviceID  string      `json:"device_id"`
	NetworkID string      `json:"network_id"`
	Field     string      `json:"field"`
	OldValue  string      `json:"old_value"`
	NewValue  string      `json:"new_value"`
	Message   string      `json:"message"`
	Network   WifiNetwork `json:"network"`
}
