package models

import "time"

// User is an account that operates the fleet.
type User struct {
	ID        string    `json:"user_id" yaml:"user_id"`
	Username  string    `json:"username" yaml:"username"`
	Email     string    `json:"email" yaml:"email"`
	FirstName string    `json:"first_name,omitempty" yaml:"first_name"`
	LastName  string    `json:"last_name,omitempty" yaml:"last_name"`
	Role      string    `json:"role" yaml:"role"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	LastLogin time.Time `json:"last_login,omitzero" yaml:"last_login"`
}

// Activity types written by the engine itself. Collaborators may record
// any other type.
const (
	ActivityWifiSSIDUpdate     = "wifi_ssid_update"
	ActivityWifiSecurityUpdate = "wifi_security_update"
)

// UserActivity is one immutable audit log entry.
type UserActivity struct {
	UserID       string    `json:"user_id" yaml:"user_id"`
	Timestamp    time.Time `json:"timestamp" yaml:"timestamp"`
	ActivityType string    `json:"activity_type" yaml:"activity_type"`
	Description  string    `json:"description" yaml:"description"`
	IPAddress    string    `json:"ip_address,omitempty" yaml:"ip_address"`
	DeviceID     string    `json:"device_id,omitempty" yaml:"device_id"`
}
