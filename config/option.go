package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ccccccmd/nacos-config-sdk/internal/ferr"
)

// NacosConfigOptions holds every tunable recognized by the SDK. It is a
// plain struct assembled through functional options, not a bound config
// file -- option binding/env/flag parsing is an external collaborator's
// job (see spec.md's non-goals).
type NacosConfigOptions struct {
	ServerAddresses []string

	Namespace   string
	ContextPath string

	DefaultTimeoutMs     int
	LongPollingTimeoutMs int
	ListenIntervalMs     int

	MaxRetry     int
	RetryDelayMs int

	EnableSnapshot bool
	SnapshotPath   string

	UserName string
	Password string

	AccessKey string
	SecretKey string

	Logger *zap.SugaredLogger
}

// Option mutates a NacosConfigOptions during construction.
type Option func(*NacosConfigOptions)

// DefaultOptions returns the defaults from spec.md's options table.
func DefaultOptions() *NacosConfigOptions {
	return &NacosConfigOptions{
		ContextPath:          "nacos",
		DefaultTimeoutMs:     15000,
		LongPollingTimeoutMs: 30000,
		ListenIntervalMs:     1000,
		MaxRetry:             3,
		RetryDelayMs:         2000,
		EnableSnapshot:       true,
		SnapshotPath:         defaultSnapshotPath(),
		Logger:               zap.NewNop().Sugar(),
	}
}

func defaultSnapshotPath() string {
	base, err := os.UserCacheDir()
	if err != nil || base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, "nacos", "config")
}

// WithServerAddresses sets the server pool's address list.
func WithServerAddresses(addrs ...string) Option {
	return func(o *NacosConfigOptions) {
		o.ServerAddresses = addrs
	}
}

// WithNamespace sets the tenant applied to every request.
func WithNamespace(namespace string) Option {
	return func(o *NacosConfigOptions) {
		o.Namespace = namespace
	}
}

// WithContextPath overrides the URL segment between host and API.
func WithContextPath(path string) Option {
	return func(o *NacosConfigOptions) {
		if path != "" {
			o.ContextPath = path
		}
	}
}

// WithDefaultTimeout sets the per-request CRUD timeout.
func WithDefaultTimeout(ms int) Option {
	return func(o *NacosConfigOptions) {
		if ms > 0 {
			o.DefaultTimeoutMs = ms
		}
	}
}

// WithLongPollingTimeout sets the probe timeout sent to the server.
func WithLongPollingTimeout(ms int) Option {
	return func(o *NacosConfigOptions) {
		if ms > 0 {
			o.LongPollingTimeoutMs = ms
		}
	}
}

// WithListenInterval sets the prober's idle pause when there are no
// subscriptions.
func WithListenInterval(ms int) Option {
	return func(o *NacosConfigOptions) {
		if ms > 0 {
			o.ListenIntervalMs = ms
		}
	}
}

// WithRetry sets the transport retry policy.
func WithRetry(maxRetry, retryDelayMs int) Option {
	return func(o *NacosConfigOptions) {
		if maxRetry >= 0 {
			o.MaxRetry = maxRetry
		}
		if retryDelayMs > 0 {
			o.RetryDelayMs = retryDelayMs
		}
	}
}

// WithSnapshot enables/disables and optionally relocates C6 persistence.
func WithSnapshot(enabled bool, path string) Option {
	return func(o *NacosConfigOptions) {
		o.EnableSnapshot = enabled
		if path != "" {
			o.SnapshotPath = path
		}
	}
}

// WithCredentials enables the username/password auth variant.
func WithCredentials(userName, password string) Option {
	return func(o *NacosConfigOptions) {
		o.UserName = userName
		o.Password = password
	}
}

// WithAccessKey enables the signed (AK/SK) auth variant. Ignored when
// WithCredentials has also been applied -- username wins.
func WithAccessKey(accessKey, secretKey string) Option {
	return func(o *NacosConfigOptions) {
		o.AccessKey = accessKey
		o.SecretKey = secretKey
	}
}

// WithLogger overrides the structured logger used throughout the SDK.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(o *NacosConfigOptions) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// NewOptions applies opts over the defaults and validates the result.
func NewOptions(opts ...Option) (*NacosConfigOptions, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if len(o.ServerAddresses) == 0 {
		return nil, fmt.Errorf("%w: serverAddresses must be non-empty", ferr.ErrConfigurationError)
	}
	return o, nil
}
