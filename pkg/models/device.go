package models

import (
	"strings"
	"time"
)

// ConnectionStatus is the last reported connectivity state of a fleet device.
type ConnectionStatus string

const (
	ConnectionConnected ConnectionStatus = "Connected"
	ConnectionDormant   ConnectionStatus = "Dormant"
	ConnectionOffline   ConnectionStatus = "Offline"
)

// ConnectionStatuses lists every valid ConnectionStatus.
var ConnectionStatuses = []ConnectionStatus{
	ConnectionConnected,
	ConnectionDormant,
	ConnectionOffline,
}

// ParseConnectionStatus maps s onto a ConnectionStatus ignoring case.
func ParseConnectionStatus(s string) (ConnectionStatus, bool) {
	s = strings.TrimSpace(s)
	for _, cs := range ConnectionStatuses {
		if strings.EqualFold(s, string(cs)) {
			return cs, true
		}
	}
	return "", false
}

// Device represents one piece of fleet hardware.
type Device struct {
	ID               string           `json:"device_id" yaml:"device_id"`
	Name             string           `json:"name" yaml:"name"`
	Model            string           `json:"model" yaml:"model"`
	FirmwareVersion  string           `json:"firmware_version" yaml:"firmware_version"`
	ConnectionStatus ConnectionStatus `json:"connection_status" yaml:"connection_status"`
	IPAddress        string           `json:"ip_address,omitempty" yaml:"ip_address"`
	MACAddress       string           `json:"mac_address,omitempty" yaml:"mac_address"`
	LastConnected    time.Time        `json:"last_connected,omitzero" yaml:"last_connected"`
}

// DeviceSettings holds the configuration map of a single device. The
// Name, Model and FirmwareVersion fields are read from the owning device.
type DeviceSettings struct {
	DeviceID        string         `json:"device_id" yaml:"device_id"`
	Name            string         `json:"name,omitempty" yaml:"-"`
	Model           string         `json:"model,omitempty" yaml:"-"`
	FirmwareVersion string         `json:"firmware_version,omitempty" yaml:"-"`
	Settings        map[string]any `json:"settings" yaml:"settings"`
	LastUpdated     time.Time      `json:"last_updated" yaml:"last_updated"`
}
