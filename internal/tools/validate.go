package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/HerbHall/devicedesk/internal/services"
	"github.com/HerbHall/devicedesk/pkg/models"
)

// Validated argument sets, one per tool shape. Validators never touch
// storage.

type listDevicesArgs struct {
	Status models.ConnectionStatus // empty means no filter
	Limit  int
}

type deviceArgs struct {
	DeviceID string
}

type ssidArgs struct {
	DeviceID  string
	NetworkID string
	SSID      string
}

type securityArgs struct {
	DeviceID     string
	NetworkID    string
	SecurityType models.SecurityType
}

type listUsersArgs struct {
	Limit int
}

type activityArgs struct {
	Start        time.Time
	End          time.Time
	UserID       string
	ActivityType string
	Limit        int
}

func validateListDevices(args map[string]any) (listDevicesArgs, error) {
	var out listDevicesArgs
	status, ok, err := optionalString(args, "connection_status")
	if err != nil {
		return out, err
	}
	if ok {
		s, valid := models.ParseConnectionStatus(status)
		if !valid {
			return out, invalidArgument("connection_status",
				"must be one of %s", joinEnum(models.ConnectionStatuses))
		}
		out.Status = s
	}
	out.Limit, err = optionalLimit(args)
	return out, err
}

func validateDevice(args map[string]any) (deviceArgs, error) {
	id, err := requiredID(args, "device_id")
	return deviceArgs{DeviceID: id}, err
}

func validateUpdateSSID(args map[string]any) (ssidArgs, error) {
	var out ssidArgs
	var err error
	if out.DeviceID, err = requiredID(args, "device_id"); err != nil {
		return out, err
	}
	if out.NetworkID, err = requiredID(args, "network_id"); err != nil {
		return out, err
	}
	if out.SSID, err = requiredString(args, "ssid"); err != nil {
		return out, err
	}
	if strings.TrimSpace(out.SSID) == "" {
		return out, invalidArgument("ssid", "must not be blank")
	}
	if n := utf8.RuneCountInString(out.SSID); n > models.MaxSSIDLength {
		return out, invalidArgument("ssid", "must be at most %d characters, got %d", models.MaxSSIDLength, n)
	}
	return out, nil
}

func validateUpdateSecurity(args map[string]any) (securityArgs, error) {
	var out securityArgs
	var err error
	if out.DeviceID, err = requiredID(args, "device_id"); err != nil {
		return out, err
	}
	if out.NetworkID, err = requiredID(args, "network_id"); err != nil {
		return out, err
	}
	raw, err := requiredString(args, "security_type")
	if err != nil {
		return out, err
	}
	st, ok := models.ParseSecurityType(raw)
	if !ok {
		return out, invalidArgument("security_type",
			"%q is not one of %s", raw, joinEnum(models.SecurityTypes))
	}
	out.SecurityType = st
	return out, nil
}

func validateListUsers(args map[string]any) (listUsersArgs, error) {
	limit, err := optionalLimit(args)
	return listUsersArgs{Limit: limit}, err
}

func validateQueryActivity(args map[string]any) (activityArgs, error) {
	var out activityArgs
	rawStart, err := requiredString(args, "start_date")
	if err != nil {
		return out, err
	}
	rawEnd, err := requiredString(args, "end_date")
	if err != nil {
		return out, err
	}
	if out.Start, err = parseDate("start_date", rawStart, false); err != nil {
		return out, err
	}
	if out.End, err = parseDate("end_date", rawEnd, true); err != nil {
		return out, err
	}
	if out.End.Before(out.Start) {
		return out, invalidArgument("end_date", "must not be before start_date")
	}

	if uid, ok, err := optionalString(args, "user_id"); err != nil {
		return out, err
	} else if ok {
		if strings.TrimSpace(uid) == "" {
			return out, invalidArgument("user_id", "must not be empty")
		}
		out.UserID = uid
	}
	if at, ok, err := optionalString(args, "activity_type"); err != nil {
		return out, err
	} else if ok {
		out.ActivityType = strings.TrimSpace(at)
	}
	out.Limit, err = optionalLimit(args)
	return out, err
}

const dateOnly = "2006-01-02"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// parseDate accepts a calendar date, which covers the whole UTC day, or a
// full timestamp. Timestamps without a zone are taken as UTC.
func parseDate(field, raw string, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(dateOnly, raw); err == nil {
		if endOfDay {
			return t.Add(24*time.Hour - time.Microsecond), nil
		}
		return t, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, invalidArgument(field, "%q is not a date (YYYY-MM-DD) or timestamp", raw)
}

func requiredString(args map[string]any, field string) (string, error) {
	v, ok := args[field]
	if !ok || v == nil {
		return "", invalidArgument(field, "is required")
	}
	s, ok := v.(string)
	if !ok {
		return "", invalidArgument(field, "must be a string, got %T", v)
	}
	return s, nil
}

// requiredID is a required, non-empty identifier.
func requiredID(args map[string]any, field string) (string, error) {
	s, err := requiredString(args, field)
	if err != nil {
		return "", err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", invalidArgument(field, "must not be empty")
	}
	return s, nil
}

func optionalString(args map[string]any, field string) (string, bool, error) {
	v, ok := args[field]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, invalidArgument(field, "must be a string, got %T", v)
	}
	return s, true, nil
}

// optionalLimit returns 0 when no limit was given.
func optionalLimit(args map[string]any) (int, error) {
	v, ok := args["limit"]
	if !ok || v == nil {
		return 0, nil
	}
	n, err := toInt(v)
	if err != nil {
		return 0, invalidArgument("limit", "%v", err)
	}
	if n < 1 || n > services.MaxListLimit {
		return 0, invalidArgument("limit", "must be between 1 and %d", services.MaxListLimit)
	}
	return n, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("must be an integer, got %v", n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("must be an integer, got %s", n)
		}
		return int(i), nil
	default:
		return 0, fmt.Errorf("must be an integer, got %T", v)
	}
}

func joinEnum[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
