// Package tools implements the tool execution engine: a closed catalog of
// named operations over the fleet repositories, with per-tool argument
// validation, a structured error taxonomy and best-effort activity logging
// for writes.
package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/devicedesk/internal/metrics"
	"github.com/HerbHall/devicedesk/internal/services"
	"github.com/HerbHall/devicedesk/pkg/models"
)

// Recorder receives the activity entries produced by write tools. It must
// not block the caller for long and has no way to fail the write.
type Recorder interface {
	Record(ctx context.Context, a models.UserActivity)
}

// RetryPolicy bounds the retries of a storage operation that failed with
// services.ErrUnavailable. Backoff doubles after every attempt.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetryPolicy is used when no policy is configured.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Backoff: 50 * time.Millisecond}

// DefaultActor is the user activity is attributed to when the context
// carries no caller.
const DefaultActor = "system"

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder sets the activity recorder used by write tools.
func WithRecorder(r Recorder) Option { return func(e *Engine) { e.recorder = r } }

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithMetrics sets the collectors updated on every call.
func WithMetrics(m *metrics.Metrics) Option { return func(e *Engine) { e.metrics = m } }

// WithRetry overrides DefaultRetryPolicy.
func WithRetry(p RetryPolicy) Option { return func(e *Engine) { e.retry = p } }

// WithDefaultActor overrides DefaultActor.
func WithDefaultActor(userID string) Option { return func(e *Engine) { e.defaultActor = userID } }

// WithClock sets the time source for activity timestamps.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// Engine executes tool calls. It holds no per-call state and is safe for
// concurrent use.
type Engine struct {
	repos        *services.Repositories
	recorder     Recorder
	logger       *zap.Logger
	metrics      *metrics.Metrics
	retry        RetryPolicy
	defaultActor string
	now          func() time.Time
	catalog      []ToolInfo
}

// New creates an Engine over repos.
func New(repos *services.Repositories, opts ...Option) (*Engine, error) {
	if repos == nil {
		return nil, errors.New("tools: nil repositories")
	}
	catalog, err := Catalog()
	if err != nil {
		return nil, err
	}
	e := &Engine{
		repos:        repos,
		logger:       zap.NewNop(),
		retry:        DefaultRetryPolicy,
		defaultActor: DefaultActor,
		now:          time.Now,
		catalog:      catalog,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.retry.Attempts < 1 {
		e.retry.Attempts = 1
	}
	return e, nil
}

// Tools returns the catalog for discovery. It never touches storage.
func (e *Engine) Tools() []ToolInfo {
	out := make([]ToolInfo, len(e.catalog))
	copy(out, e.catalog)
	return out
}

// Execute runs a tool and formats the outcome as a Response. It never
// panics and never returns a bare error.
func (e *Engine) Execute(ctx context.Context, name string, args map[string]any) Response {
	result, err := e.Call(ctx, name, args)
	return Format(result, err)
}

// Call runs a tool and returns its raw result, or a *Error.
func (e *Engine) Call(ctx context.Context, name string, args map[string]any) (result any, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tool panicked",
				zap.String("tool", name),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			result, err = nil, &Error{Kind: KindInternal, Tool: name, Message: "internal error"}
		}
		outcome := "ok"
		if err != nil {
			outcome = KindOf(err).String()
		}
		e.metrics.ObserveToolCall(metricLabel(name), outcome, time.Since(start))
	}()

	id, ok := LookupTool(name)
	if !ok {
		return nil, &Error{
			Kind:    KindUnknownTool,
			Tool:    name,
			Message: fmt.Sprintf("unknown tool %q; available tools: %s", name, strings.Join(ToolNames(), ", ")),
		}
	}
	if args == nil {
		args = map[string]any{}
	}

	result, err = handlers[id](ctx, e, args)
	if err != nil {
		te := classify(name, err)
		if te.Kind == KindInternal && !errors.Is(err, context.Canceled) {
			e.logger.Error("tool failed", zap.String("tool", name), zap.Error(err))
		} else {
			e.logger.Debug("tool rejected", zap.String("tool", name), zap.Error(te))
		}
		return nil, te
	}
	return result, nil
}

// listLimit returns everything up to the repository cap when the caller
// gave no limit.
func listLimit(n int) int {
	if n <= 0 {
		return services.MaxListLimit
	}
	return n
}

// metricLabel keeps unknown names out of the label space.
func metricLabel(name string) string {
	if _, ok := LookupTool(name); ok {
		return name
	}
	return "unknown"
}

// handler validates raw arguments and runs one tool.
type handler func(ctx context.Context, e *Engine, args map[string]any) (any, error)

func bind[A any](validate func(map[string]any) (A, error), run func(*Engine, context.Context, A) (any, error)) handler {
	return func(ctx context.Context, e *Engine, raw map[string]any) (any, error) {
		args, err := validate(raw)
		if err != nil {
			return nil, err
		}
		return run(e, ctx, args)
	}
}

// handlers is the dispatch table. It is indexed by ToolID so a missing
// entry is caught by the exhaustiveness test rather than at call time.
var handlers = [toolCount]handler{
	ListDevices:        bind(validateListDevices, (*Engine).listDevices),
	GetDeviceSettings:  bind(validateDevice, (*Engine).getDeviceSettings),
	ListWifiNetworks:   bind(validateDevice, (*Engine).listWifiNetworks),
	UpdateWifiSSID:     bind(validateUpdateSSID, (*Engine).updateWifiSSID),
	UpdateWifiSecurity: bind(validateUpdateSecurity, (*Engine).updateWifiSecurity),
	ListUsers:          bind(validateListUsers, (*Engine).listUsers),
	QueryUserActivity:  bind(validateQueryActivity, (*Engine).queryUserActivity),
}

// withRetry runs op, retrying while it fails with services.ErrUnavailable.
func withRetry[T any](ctx context.Context, e *Engine, tool ToolID, op func() (T, error)) (T, error) {
	backoff := e.retry.Backoff
	var (
		out T
		err error
	)
	for attempt := 1; ; attempt++ {
		out, err = op()
		if err == nil || !errors.Is(err, services.ErrUnavailable) || attempt >= e.retry.Attempts {
			return out, err
		}
		e.metrics.StorageRetry(tool.String())
		e.logger.Warn("storage unavailable, retrying",
			zap.String("tool", tool.String()),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
		)
		select {
		case <-ctx.Done():
			return out, fmt.Errorf("%w: %w", services.ErrUnavailable, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func (e *Engine) listDevices(ctx context.Context, a listDevicesArgs) (any, error) {
	res, err := withRetry(ctx, e, ListDevices, func() (*services.ListResult[models.Device], error) {
		return e.repos.Devices.List(ctx,
			services.DeviceFilter{ConnectionStatus: a.Status},
			services.ListOptions{Limit: listLimit(a.Limit)},
		)
	})
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

func (e *Engine) getDeviceSettings(ctx context.Context, a deviceArgs) (any, error) {
	return withRetry(ctx, e, GetDeviceSettings, func() (*models.DeviceSettings, error) {
		return e.repos.Settings.Get(ctx, a.DeviceID)
	})
}

func (e *Engine) listWifiNetworks(ctx context.Context, a deviceArgs) (any, error) {
	res, err := withRetry(ctx, e, ListWifiNetworks, func() (*services.ListResult[models.WifiNetwork], error) {
		return e.repos.Wifi.List(ctx, a.DeviceID)
	})
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

func (e *Engine) updateWifiSSID(ctx context.Context, a ssidArgs) (any, error) {
	change, err := e.updateWifi(ctx, UpdateWifiSSID, a.DeviceID, a.NetworkID,
		services.WifiNetworkUpdate{SSID: &a.SSID},
		func(n *models.WifiNetwork) string { return n.SSID },
	)
	if err != nil {
		return nil, err
	}
	change.Field = "ssid"
	change.Message = fmt.Sprintf("SSID of network %s on device %s changed from %q to %q",
		a.NetworkID, a.DeviceID, change.OldValue, change.NewValue)
	e.record(ctx, models.ActivityWifiSSIDUpdate, a.DeviceID, change.Message)
	return change, nil
}

func (e *Engine) updateWifiSecurity(ctx context.Context, a securityArgs) (any, error) {
	change, err := e.updateWifi(ctx, UpdateWifiSecurity, a.DeviceID, a.NetworkID,
		services.WifiNetworkUpdate{SecurityType: &a.SecurityType},
		func(n *models.WifiNetwork) string { return string(n.SecurityType) },
	)
	if err != nil {
		return nil, err
	}
	change.Field = "security_type"
	change.Message = fmt.Sprintf("security of network %s on device %s changed from %s to %s",
		a.NetworkID, a.DeviceID, change.OldValue, change.NewValue)
	e.record(ctx, models.ActivityWifiSecurityUpdate, a.DeviceID, change.Message)
	return change, nil
}

func (e *Engine) updateWifi(ctx context.Context, tool ToolID, deviceID, networkID string, upd services.WifiNetworkUpdate, value func(*models.WifiNetwork) string) (*models.WifiChange, error) {
	type pair struct{ before, after *models.WifiNetwork }
	p, err := withRetry(ctx, e, tool, func() (pair, error) {
		before, after, err := e.repos.Wifi.Update(ctx, deviceID, networkID, upd)
		return pair{before, after}, err
	})
	if err != nil {
		return nil, err
	}
	return &models.WifiChange{
		DeviceID:  deviceID,
		NetworkID: networkID,
		OldValue:  value(p.before),
		NewValue:  value(p.after),
		Network:   *p.after,
	}, nil
}

func (e *Engine) listUsers(ctx context.Context, a listUsersArgs) (any, error) {
	res, err := withRetry(ctx, e, ListUsers, func() (*services.ListResult[models.User], error) {
		return e.repos.Users.List(ctx, services.ListOptions{Limit: listLimit(a.Limit)})
	})
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

func (e *Engine) queryUserActivity(ctx context.Context, a activityArgs) (any, error) {
	res, err := withRetry(ctx, e, QueryUserActivity, func() (*services.ListResult[models.UserActivity], error) {
		return e.repos.Activities.QueryRange(ctx, services.ActivityQuery{
			Start:        a.Start,
			End:          a.End,
			UserID:       a.UserID,
			ActivityType: a.ActivityType,
			Limit:        listLimit(a.Limit),
		})
	})
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

// record hands an activity entry to the recorder. The write has already
// succeeded, so nothing here may fail the call.
func (e *Engine) record(ctx context.Context, activityType, deviceID, description string) {
	if e.recorder == nil {
		return
	}
	entry := models.UserActivity{
		UserID:       e.defaultActor,
		Timestamp:    e.now().UTC(),
		ActivityType: activityType,
		Description:  description,
		DeviceID:     deviceID,
	}
	if c, ok := CallerFrom(ctx); ok {
		entry.UserID = c.UserID
		entry.IPAddress = c.IPAddress
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("activity recorder panicked",
				zap.String("activity_type", activityType),
				zap.Any("panic", r),
			)
		}
	}()
	e.recorder.Record(context.WithoutCancel(ctx), entry)
}
