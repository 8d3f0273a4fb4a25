package models

import "testing"

func TestParseSecurityType(t *testing.T) {
	tests := []struct {
		in   string
		want SecurityType
		ok   bool
	}{
		{"WPA2", SecurityWPA2, true},
		{"wpa2", SecurityWPA2, true},
		{"Wpa3", SecurityWPA3, true},
		{"wep", SecurityWEP, true},
		{"OPEN", SecurityOpen, true},
		{" open ", SecurityOpen, true},
		{"wpa3-psk", "", false},
		{"WPA4", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseSecurityType(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseSecurityType(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseConnectionStatus(t *testing.T) {
	for _, cs := range ConnectionStatuses {
		got, ok := ParseConnectionStatus(string(cs))
		if !ok || got != cs {
			t.Errorf("ParseConnectionStatus(%q) = (%q, %v)", cs, got, ok)
		}
	}
	if got, ok := ParseConnectionStatus("dormant"); !ok || got != ConnectionDormant {
		t.Errorf("ParseConnectionStatus(dormant) = (%q, %v), want Dormant", got, ok)
	}
	if _, ok := ParseConnectionStatus("sleeping"); ok {
		t.Error("ParseConnectionStatus(sleeping) accepted an unknown status")
	}
}
