package subscribe

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ccccccmd/nacos-config-sdk/config"
	"github.com/ccccccmd/nacos-config-sdk/config/remote"
)

// dispatchQueueSize bounds the backlog of changed keys waiting on a
// GetConfig refresh. A single client tracks at most a few hundred keys,
// so this is practically unbounded for the probe cadence it serves.
const dispatchQueueSize = 4096

// Manager is the listening manager (C8): two long-lived workers, a prober
// that drives the long-polling probe and a single dispatcher that
// refreshes changed keys and fans the new content out to their
// listeners. The dispatcher is single-reader so that, for one key,
// changes are applied in the order the prober observed them.
type Manager struct {
	cache     *Cache
	client    *remote.Client
	tenant    string
	interval  time.Duration
	pollMs    int
	timeoutMs int
	logger    *zap.SugaredLogger

	dispatch chan config.ConfigKey
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

// NewManager builds a Manager. listenIntervalMs paces the prober between
// probes; longPollingTimeoutMs is the server-honored long-poll budget per
// probe; defaultTimeoutMs is the CRUD timeout used to refresh a changed
// key via GetConfig, matching spec.md §4.8's
// remoteClient.getConfig(key, defaultTimeoutMs) call.
func NewManager(cache *Cache, client *remote.Client, tenant string, listenIntervalMs, longPollingTimeoutMs, defaultTimeoutMs int, logger *zap.SugaredLogger) *Manager {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Manager{
		cache:     cache,
		client:    client,
		tenant:    tenant,
		interval:  time.Duration(listenIntervalMs) * time.Millisecond,
		pollMs:    longPollingTimeoutMs,
		timeoutMs: defaultTimeoutMs,
		logger:    logger,
		dispatch:  make(chan config.ConfigKey, dispatchQueueSize),
		stopChan:  make(chan struct{}),
	}
}

// Start launches the prober and the dispatcher. Calling Start on an
// already-running manager is a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true

	m.wg.Add(1)
	go m.dispatcher()

	m.wg.Add(1)
	go m.prober()
}

// Stop signals both loops to exit and waits for them to return. Keys
// still queued for the dispatcher are dropped, not refreshed.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	close(m.stopChan)
	m.wg.Wait()
}

// prober repeatedly long-polls the server for keys whose content drifted
// from the cache's last known md5.
func (m *Manager) prober() {
	defer m.wg.Done()

	for {
		select {
		case <-m.stopChan:
			return
		default:
		}

		tracked := m.cache.TrackedConfigs()
		if len(tracked) == 0 {
			select {
			case <-m.stopChan:
				return
			case <-time.After(m.interval):
				continue
			}
		}

		changed, err := m.client.ListenConfigChanges(context.Background(), tracked, m.tenant, m.pollMs)
		if err != nil {
			m.logger.Warnw("listen probe failed, backing off", "err", err)
			select {
			case <-m.stopChan:
				return
			case <-time.After(m.interval):
			}
			continue
		}

		for _, key := range changed {
			select {
			case <-m.stopChan:
				return
			case m.dispatch <- key:
			}
		}

		select {
		case <-m.stopChan:
			return
		case <-time.After(m.interval):
		}
	}
}

// dispatcher is the single reader draining m.dispatch, so changes for a
// given key are applied in the order the prober observed them.
func (m *Manager) dispatcher() {
	defer m.wg.Done()

	for {
		select {
		case <-m.stopChan:
			return
		case key := <-m.dispatch:
			m.refresh(key)
		}
	}
}

func (m *Manager) refresh(key config.ConfigKey) {
	entry, ok := m.cache.Get(key)
	if !ok {
		return
	}

	data, err := m.client.GetConfig(context.Background(), key, m.timeoutMs)
	if err != nil {
		m.logger.Warnw("failed to refresh changed config", "dataId", key.DataID, "group", key.Group, "err", err)
		return
	}
	if data == nil {
		entry.UpdateContent(key, "", config.ContentMD5(""), config.DefaultContentType, m.logger)
		return
	}
	entry.UpdateContent(key, data.Content, data.MD5, data.ContentType, m.logger)
}
