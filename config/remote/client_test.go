package remote

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccccccmd/nacos-config-sdk/config"
	"github.com/ccccccmd/nacos-config-sdk/config/auth"
	"github.com/ccccccmd/nacos-config-sdk/config/codec"
	"github.com/ccccccmd/nacos-config-sdk/config/pool"
	"github.com/ccccccmd/nacos-config-sdk/config/transport"
	"github.com/ccccccmd/nacos-config-sdk/internal/ferr"
)

type scriptedSender struct {
	status int
	body   string
	err    error
}

func (s *scriptedSender) Send(ctx context.Context, method, rawURL string, headers map[string]string, form url.Values) (*transport.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &transport.Response{StatusCode: s.status, Body: []byte(s.body)}, nil
}

func newClient(t *testing.T, sender transport.Sender) *Client {
	p, err := pool.New([]string{"http://a"})
	require.NoError(t, err)
	tr := transport.New(p, sender, "nacos", 0, 1, nil)
	return New(tr, auth.NoneSession{})
}

func TestGetConfig_200(t *testing.T) {
	c := newClient(t, &scriptedSender{status: 200, body: "hello"})
	key := config.ConfigKey{DataID: "d", Group: "g"}

	data, err := c.GetConfig(context.Background(), key, 1000)
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, "hello", data.Content)
	assert.Equal(t, config.ContentMD5("hello"), data.MD5)
}

func TestGetConfig_404ReturnsNilNil(t *testing.T) {
	c := newClient(t, &scriptedSender{status: 404})
	key := config.ConfigKey{DataID: "d", Group: "g"}

	data, err := c.GetConfig(context.Background(), key, 1000)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestGetConfig_403ReturnsUnauthorized(t *testing.T) {
	c := newClient(t, &scriptedSender{status: 403})
	key := config.ConfigKey{DataID: "d", Group: "g"}

	_, err := c.GetConfig(context.Background(), key, 1000)
	require.ErrorIs(t, err, ferr.ErrUnauthorized)
}

func TestPublishConfig_200(t *testing.T) {
	c := newClient(t, &scriptedSender{status: 200})
	ok, err := c.PublishConfig(context.Background(), config.ConfigKey{DataID: "d", Group: "g"}, "v", "text", 1000)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPublishConfig_500ReturnsFalseNoError(t *testing.T) {
	c := newClient(t, &scriptedSender{status: 500})
	ok, err := c.PublishConfig(context.Background(), config.ConfigKey{DataID: "d", Group: "g"}, "v", "text", 1000)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListenConfigChanges_DecodesBody(t *testing.T) {
	encoded := codec.EncodeListeningConfigs([]codec.TrackedConfig{
		{Key: config.ConfigKey{DataID: "d", Group: "g"}, MD5: "m"},
	})
	c := newClient(t, &scriptedSender{status: 200, body: url.QueryEscape(encoded)})

	changed, err := c.ListenConfigChanges(context.Background(), nil, "", 1000)
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, "d", changed[0].DataID)
}

func TestListenConfigChanges_TimeoutReturnsEmptyNotError(t *testing.T) {
	c := newClient(t, &scriptedSender{err: context.DeadlineExceeded})
	changed, err := c.ListenConfigChanges(context.Background(), nil, "", 1)
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestListenConfigChanges_TransportErrorPropagates(t *testing.T) {
	c := newClient(t, &scriptedSender{err: errors.New("dial refused")})
	// Use a retry budget of zero so the wrapped network error, not a
	// deadline, is what surfaces.
	p, err := pool.New([]string{"http://a"})
	require.NoError(t, err)
	tr := transport.New(p, &scriptedSender{err: errors.New("dial refused")}, "nacos", 0, 1, nil)
	client := New(tr, auth.NoneSession{})

	_, err = client.ListenConfigChanges(context.Background(), nil, "", 1000)
	require.Error(t, err)
	assert.NotNil(t, c)
}
