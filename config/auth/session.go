// Package auth implements the three auth session variants (C3): none,
// username/password (stateful, login + background refresh collapsed
// through a singleflight the way distributelock's watchdog collapses
// lease renewal), and signed AK/SK (stateless HMAC).
package auth

import (
	"context"
	"net/url"

	"github.com/ccccccmd/nacos-config-sdk/config"
	"github.com/ccccccmd/nacos-config-sdk/config/transport"
)

// Session is the capability set every auth variant implements.
type Session interface {
	IsEnabled() bool
	Initialize(ctx context.Context) error
	EnsureAuthenticated(ctx context.Context) error
	ApplyToRequest(headers map[string]string)
	ApplyToParams(params url.Values, key config.ConfigKey)
	Stop()
}

// NoneSession is the no-auth variant: every method is a no-op.
type NoneSession struct{}

func (NoneSession) IsEnabled() bool                                 { return false }
func (NoneSession) Initialize(context.Context) error                { return nil }
func (NoneSession) EnsureAuthenticated(context.Context) error       { return nil }
func (NoneSession) ApplyToRequest(map[string]string)                {}
func (NoneSession) ApplyToParams(url.Values, config.ConfigKey)      {}
func (NoneSession) Stop()                                           {}

// Select picks the auth variant by inspecting the options, with username
// winning over AK/SK when both are set. addrs must be the server pool's
// normalized addresses (§4.1: scheme-prefixed, trailing slash trimmed),
// not the raw opts.ServerAddresses a caller may have passed as bare
// host:port -- PasswordSession builds login URLs directly from addrs.
func Select(opts *config.NacosConfigOptions, addrs []string, sender transport.Sender) Session {
	if opts.UserName != "" {
		return NewPasswordSession(addrs, opts.ContextPath, sender, opts.UserName, opts.Password, opts.Logger)
	}
	if opts.AccessKey != "" {
		return NewSignedSession(opts.AccessKey, opts.SecretKey)
	}
	return NoneSession{}
}
