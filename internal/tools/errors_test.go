package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/HerbHall/devicedesk/internal/services"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
		msg  string
	}{
		{"device", fmt.Errorf("get: %w", services.ErrDeviceNotFound), KindNotFound, "device not found"},
		{"network", services.ErrNetworkNotFound, KindNotFound, "wifi network not found"},
		{"settings", services.ErrSettingsNotFound, KindNotFound, "device settings not found"},
		{"user", services.ErrUserNotFound, KindNotFound, "user not found"},
		{"conflict", fmt.Errorf("create user: %w", services.ErrAlreadyExists), KindConflict, "resource already exists"},
		{"busy", services.ErrUnavailable, KindStorageUnavailable, "storage temporarily unavailable, retry later"},
		{"deadline", context.DeadlineExceeded, KindStorageUnavailable, "storage temporarily unavailable, retry later"},
		{"canceled", context.Canceled, KindInternal, "call canceled"},
		{"canceled during retry", fmt.Errorf("%w: %w", services.ErrUnavailable, context.Canceled), KindInternal, "call canceled"},
		{"other", errors.New("disk on fire"), KindInternal, "internal error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := classify("some_tool", tc.err)
			assert.Equal(t, tc.want, got.Kind)
			assert.Equal(t, tc.msg, got.Message)
			assert.Equal(t, "some_tool", got.Tool)
			assert.ErrorIs(t, got, tc.err)
		})
	}
}

func TestClassify_KeepsToolError(t *testing.T) {
	in := invalidArgument("ssid", "too long")
	got := classify("update_wifi_ssid", in)
	assert.Same(t, in, got)
	assert.Equal(t, "update_wifi_ssid", got.Tool)
	assert.Equal(t, "update_wifi_ssid: InvalidArgument (ssid): too long", got.Error())
}

func TestKind_StatusCode(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, KindUnknownTool.StatusCode())
	assert.Equal(t, http.StatusBadRequest, KindInvalidArgument.StatusCode())
	assert.Equal(t, http.StatusNotFound, KindNotFound.StatusCode())
	assert.Equal(t, http.StatusConflict, KindConflict.StatusCode())
	assert.Equal(t, http.StatusServiceUnavailable, KindStorageUnavailable.StatusCode())
	assert.Equal(t, http.StatusInternalServerError, KindInternal.StatusCode())
	assert.Equal(t, "Kind(42)", Kind(42).String())
}

func TestFormat(t *testing.T) {
	ok := Format([]string{"a"}, nil)
	assert.True(t, ok.OK())
	assert.Equal(t, []string{"a"}, ok.Body)

	resp := Format(nil, &Error{Kind: KindConflict, Tool: "t", Message: "taken"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, ErrorBody{Error: "Conflict", Message: "taken", Tool: "t"}, resp.Body)

	// Raw errors never leak their detail.
	resp = Format(nil, errors.New("password=hunter2"))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, ErrorBody{Error: "Internal", Message: "internal error"}, resp.Body)
}
