// Package remote implements the CRUD + long-polling probe client (C5),
// built on top of config/transport, config/auth, and config/codec.
package remote

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ccccccmd/nacos-config-sdk/config"
	"github.com/ccccccmd/nacos-config-sdk/config/auth"
	"github.com/ccccccmd/nacos-config-sdk/config/codec"
	"github.com/ccccccmd/nacos-config-sdk/config/transport"
	"github.com/ccccccmd/nacos-config-sdk/internal/ferr"
)

const clientVersion = "nacos-config-sdk-go:1.0.0"

// Client issues the CRUD and long-polling probe operations (§4.5).
type Client struct {
	transport *transport.Transport
	session   auth.Session
}

// New builds a remote Client.
func New(t *transport.Transport, session auth.Session) *Client {
	return &Client{transport: t, session: session}
}

// commonHeaders returns the headers every CRUD/probe request carries.
func commonHeaders() map[string]string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	sum := md5.Sum([]byte(ts))
	requestID := uuid.New()

	return map[string]string{
		"Client-Version":      clientVersion,
		"Client-RequestTS":    ts,
		"Client-RequestToken": hex.EncodeToString(sum[:]),
		"Request-Id":          requestID.String(),
		"Accept-Charset":      "UTF-8",
		"exConfigInfo":        "true",
	}
}

// GetConfig fetches key with the given timeout. Returns (nil, nil) on a
// 404 (absent), ferr.ErrUnauthorized on 403, ferr.ErrRemoteError on other
// non-2xx, or a wrapped transport/canceled error.
func (c *Client) GetConfig(ctx context.Context, key config.ConfigKey, timeoutMs int) (*config.ConfigData, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	if err := c.session.EnsureAuthenticated(ctx); err != nil {
		return nil, err
	}

	query := codec.KeyParams(key)
	c.session.ApplyToParams(query, key)

	headers := commonHeaders()
	headers["notify"] = "false"
	c.session.ApplyToRequest(headers)

	resp, err := c.transport.Send(ctx, &transport.Request{
		Method:  "GET",
		Path:    "/v1/cs/configs",
		Query:   query,
		Headers: headers,
	})
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case 200:
		data := config.NewConfigData(string(resp.Body), "", "")
		return &data, nil
	case 404:
		return nil, nil
	case 403:
		return nil, ferr.ErrUnauthorized
	default:
		return nil, ferr.NewRemoteError(resp.StatusCode, string(resp.Body))
	}
}

// PublishConfig publishes content under key. Returns true on 200,
// ferr.ErrUnauthorized on 403, and false with no error on any other
// status; that status is not logged.
func (c *Client) PublishConfig(ctx context.Context, key config.ConfigKey, content, contentType string, timeoutMs int) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	if err := c.session.EnsureAuthenticated(ctx); err != nil {
		return false, err
	}

	form := codec.PublishParams(key, content, contentType)
	c.session.ApplyToParams(form, key)

	headers := commonHeaders()
	c.session.ApplyToRequest(headers)

	resp, err := c.transport.Send(ctx, &transport.Request{
		Method:  "POST",
		Path:    "/v1/cs/configs",
		Form:    form,
		Headers: headers,
	})
	if err != nil {
		return false, err
	}

	switch resp.StatusCode {
	case 200:
		return true, nil
	case 403:
		return false, ferr.ErrUnauthorized
	default:
		return false, nil
	}
}

// RemoveConfig deletes key. Same outcome shape as PublishConfig.
func (c *Client) RemoveConfig(ctx context.Context, key config.ConfigKey, timeoutMs int) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	if err := c.session.EnsureAuthenticated(ctx); err != nil {
		return false, err
	}

	query := codec.KeyParams(key)
	c.session.ApplyToParams(query, key)

	headers := commonHeaders()
	c.session.ApplyToRequest(headers)

	resp, err := c.transport.Send(ctx, &transport.Request{
		Method:  "DELETE",
		Path:    "/v1/cs/configs",
		Query:   query,
		Headers: headers,
	})
	if err != nil {
		return false, err
	}

	switch resp.StatusCode {
	case 200:
		return true, nil
	case 403:
		return false, ferr.ErrUnauthorized
	default:
		return false, nil
	}
}

// ListenConfigChanges probes for changes among tracked, with an HTTP
// timeout of timeoutMs*1.5 and the server-honored Long-Pulling-Timeout
// header set to timeoutMs. A timeout-without-changes returns an empty,
// non-error result; a caller cancellation propagates.
func (c *Client) ListenConfigChanges(ctx context.Context, tracked []codec.TrackedConfig, tenant string, timeoutMs int) ([]config.ConfigKey, error) {
	httpTimeout := time.Duration(float64(timeoutMs)*1.5) * time.Millisecond
	probeCtx, cancel := context.WithTimeout(ctx, httpTimeout)
	defer cancel()

	if err := c.session.EnsureAuthenticated(probeCtx); err != nil {
		return nil, err
	}

	query := url.Values{}
	if tenant != "" {
		query.Set("tenant", tenant)
	}
	// The probe endpoint reads authorization and tenant from the query
	// string, never the form body.
	dummyKey := config.ConfigKey{Tenant: tenant}
	c.session.ApplyToParams(query, dummyKey)

	form := url.Values{}
	form.Set("Listening-Configs", codec.EncodeListeningConfigs(tracked))

	headers := commonHeaders()
	headers["Long-Pulling-Timeout"] = strconv.Itoa(timeoutMs)

	resp, err := c.transport.Send(probeCtx, &transport.Request{
		Method:  "POST",
		Path:    "/v1/cs/configs/listener",
		Query:   query,
		Form:    form,
		Headers: headers,
	})
	if err != nil {
		// The caller's own cancellation propagates; a probe that merely
		// timed out is the normal no-change outcome.
		if ctx.Err() == nil && (probeCtx.Err() != nil || errors.Is(err, ferr.ErrCanceled)) {
			return nil, nil
		}
		return nil, err
	}

	if resp.StatusCode != 200 {
		if resp.StatusCode == 403 {
			return nil, ferr.ErrUnauthorized
		}
		return nil, ferr.NewRemoteError(resp.StatusCode, string(resp.Body))
	}

	return codec.DecodeChangedKeys(string(resp.Body))
}
