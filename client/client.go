// Package client is the facade (C9): the public entry point composing the
// server pool, transport, auth session, remote client, local storage, and
// subscription cache/listening manager into the three operations and the
// three-tier read strategy described by spec.md.
package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ccccccmd/nacos-config-sdk/config"
	"github.com/ccccccmd/nacos-config-sdk/config/auth"
	"github.com/ccccccmd/nacos-config-sdk/config/pool"
	"github.com/ccccccmd/nacos-config-sdk/config/remote"
	"github.com/ccccccmd/nacos-config-sdk/config/storage"
	"github.com/ccccccmd/nacos-config-sdk/config/subscribe"
	"github.com/ccccccmd/nacos-config-sdk/config/transport"
	"github.com/ccccccmd/nacos-config-sdk/internal/ferr"
)

const loginInitTimeout = 5 * time.Second

// Client is the process-singleton facade. The auth refresh loop (if any)
// starts in New; the listening manager starts lazily on the first
// Subscribe. Both are released together by Stop.
type Client struct {
	opts      *config.NacosConfigOptions
	pool      *pool.Pool
	transport *transport.Transport
	session   auth.Session
	remote    *remote.Client
	store     *storage.Store
	cache     *subscribe.Cache
	manager   *subscribe.Manager
	logger    *zap.SugaredLogger

	managerOnce sync.Once
	stopOnce    sync.Once
}

// New assembles a Client from functional options, validating them and
// performing the auth variant's initial login (if any) before returning.
func New(opts ...config.Option) (*Client, error) {
	o, err := config.NewOptions(opts...)
	if err != nil {
		return nil, err
	}

	p, err := pool.New(o.ServerAddresses)
	if err != nil {
		return nil, err
	}

	sender := transport.NewRestySender()
	tr := transport.New(p, sender, o.ContextPath, o.MaxRetry, o.RetryDelayMs, o.Logger)
	session := auth.Select(o, p.Addresses(), sender)

	initCtx, cancel := context.WithTimeout(context.Background(), loginInitTimeout)
	defer cancel()
	if err := session.Initialize(initCtx); err != nil {
		return nil, err
	}

	remoteClient := remote.New(tr, session)

	store := storage.New(o.SnapshotPath, o.EnableSnapshot, o.Logger)
	store.EnsureRoot()

	cache := subscribe.NewCache()
	manager := subscribe.NewManager(cache, remoteClient, o.Namespace, o.ListenIntervalMs, o.LongPollingTimeoutMs, o.DefaultTimeoutMs, o.Logger)

	return &Client{
		opts:      o,
		pool:      p,
		transport: tr,
		session:   session,
		remote:    remoteClient,
		store:     store,
		cache:     cache,
		manager:   manager,
		logger:    o.Logger,
	}, nil
}

func (c *Client) buildKey(dataID, group string) (config.ConfigKey, error) {
	return config.NewConfigKey(dataID, group, c.opts.Namespace)
}

// GetConfigAsync implements the three-tier read strategy: a present,
// non-empty failover override wins outright; otherwise the remote is
// consulted and its result cached as the new snapshot; a TransportError
// falls back to the last snapshot, while other remote errors are
// surfaced unchanged.
func (c *Client) GetConfigAsync(ctx context.Context, dataID, group string) (string, bool, error) {
	key, err := c.buildKey(dataID, group)
	if err != nil {
		return "", false, err
	}

	if local, ok := c.store.ReadFailover(key); ok && !local.IsEmpty() {
		c.logger.Warnw("serving failover override", "dataId", key.DataID, "group", key.Group)
		return local.Content, true, nil
	}

	if err := c.session.EnsureAuthenticated(ctx); err != nil {
		return "", false, err
	}

	data, err := c.remote.GetConfig(ctx, key, c.opts.DefaultTimeoutMs)
	if err == nil {
		if data == nil {
			return "", false, nil
		}
		c.store.WriteSnapshot(key, data.Content)
		return data.Content, true, nil
	}

	if errors.Is(err, ferr.ErrTransportError) {
		if local, ok := c.store.ReadSnapshot(key); ok {
			c.logger.Warnw("remote unavailable, serving last snapshot", "dataId", key.DataID, "group", key.Group, "err", err)
			return local.Content, !local.IsEmpty(), nil
		}
	}
	return "", false, err
}

// PublishConfigAsync publishes content under (dataID, group) and, on
// success, persists it as the new snapshot.
func (c *Client) PublishConfigAsync(ctx context.Context, dataID, group, content, contentType string) (bool, error) {
	key, err := c.buildKey(dataID, group)
	if err != nil {
		return false, err
	}
	if contentType == "" {
		contentType = config.DefaultContentType
	}
	if err := c.session.EnsureAuthenticated(ctx); err != nil {
		return false, err
	}

	ok, err := c.remote.PublishConfig(ctx, key, content, contentType, c.opts.DefaultTimeoutMs)
	if err != nil {
		return false, err
	}
	if ok {
		c.store.WriteSnapshot(key, content)
	}
	return ok, nil
}

// RemoveConfigAsync deletes (dataID, group) and, on success, overwrites
// the snapshot with an empty string so a later read doesn't resurrect
// stale content.
func (c *Client) RemoveConfigAsync(ctx context.Context, dataID, group string) (bool, error) {
	key, err := c.buildKey(dataID, group)
	if err != nil {
		return false, err
	}
	if err := c.session.EnsureAuthenticated(ctx); err != nil {
		return false, err
	}

	ok, err := c.remote.RemoveConfig(ctx, key, c.opts.DefaultTimeoutMs)
	if err != nil {
		return false, err
	}
	if ok {
		c.store.WriteSnapshot(key, "")
	}
	return ok, nil
}

// Subscribe registers a fire-and-forget listener for (dataID, group),
// starting the listening manager on first use.
func (c *Client) Subscribe(dataID, group string, callback func(config.ConfigChangedEvent)) (*SubscriptionHandle, error) {
	return c.subscribe(dataID, group, func(e *subscribe.Entry) subscribe.ListenerID {
		return e.AddListener(callback)
	})
}

// SubscribeAsync registers a listener that signals completion on a
// channel; Go has no overloading, so this is spec.md's second Subscribe
// shape under its own name.
func (c *Client) SubscribeAsync(dataID, group string, callback func(config.ConfigChangedEvent) <-chan struct{}) (*SubscriptionHandle, error) {
	return c.subscribe(dataID, group, func(e *subscribe.Entry) subscribe.ListenerID {
		return e.AddAsyncListener(callback)
	})
}

func (c *Client) subscribe(dataID, group string, register func(*subscribe.Entry) subscribe.ListenerID) (*SubscriptionHandle, error) {
	key, err := c.buildKey(dataID, group)
	if err != nil {
		return nil, err
	}

	c.managerOnce.Do(c.manager.Start)

	entry := c.cache.GetOrCreate(key)
	id := register(entry)
	return &SubscriptionHandle{cache: c.cache, key: key, entry: entry, id: id}, nil
}

// Stop releases every background resource: the listening manager (whose
// workers exit without refreshing keys still waiting in the dispatch
// queue) and the auth session's refresh loop. Stop is idempotent.
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		c.manager.Stop()
		c.session.Stop()
	})
}

// SubscriptionHandle is the disposable returned by Subscribe/SubscribeAsync;
// releasing it removes the listener and drops the cache entry if it was
// the last one watching that key.
type SubscriptionHandle struct {
	cache *subscribe.Cache
	key   config.ConfigKey
	entry *subscribe.Entry
	id    subscribe.ListenerID
	once  sync.Once
}

// Unsubscribe removes the listener this handle was issued for. It is
// idempotent.
func (h *SubscriptionHandle) Unsubscribe() {
	h.once.Do(func() {
		h.entry.RemoveListener(h.id)
		h.cache.DropIfUnwatched(h.key)
	})
}
