// Package subscribe implements the subscription cache (C7) and the
// listening manager's two long-lived workers (C8).
package subscribe

import (
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ccccccmd/nacos-config-sdk/config"
)

// DefaultListenerTimeout is the per-listener execution budget (§5).
const DefaultListenerTimeout = 30 * time.Second

// ListenerID is the identity a listener is registered and removed under.
// For function values it is derived from the function pointer, which is
// the conventional (if imperfect) way to compare Go funcs for identity.
type ListenerID uintptr

// Callback is the fire-and-forget listener shape.
type Callback func(config.ConfigChangedEvent)

// AsyncCallback is the listener shape that returns a completion signal;
// the entry waits on it, bounded by DefaultListenerTimeout.
type AsyncCallback func(config.ConfigChangedEvent) <-chan struct{}

func identityOf(fn interface{}) ListenerID {
	return ListenerID(reflect.ValueOf(fn).Pointer())
}

// wrapSync adapts a fire-and-forget Callback into the AsyncCallback shape
// so a single uniform list suffices (per spec.md's listener-storage note).
func wrapSync(callback Callback) AsyncCallback {
	return func(event config.ConfigChangedEvent) <-chan struct{} {
		callback(event)
		done := make(chan struct{})
		close(done)
		return done
	}
}

// Entry is a ConfigCacheEntry: the current content+md5 for one key, plus
// its listener list. The mutex is held only long enough to mutate
// content/md5 and snapshot the listener list -- listener bodies run
// outside the lock.
type Entry struct {
	mu        sync.Mutex
	content   string
	md5       string
	listeners map[ListenerID]AsyncCallback
}

// NewEntry returns an empty, unwatched entry.
func NewEntry() *Entry {
	return &Entry{listeners: make(map[ListenerID]AsyncCallback)}
}

// AddListener registers a fire-and-forget callback. Duplicate
// registration of the identical callback identity is idempotent.
func (e *Entry) AddListener(callback Callback) ListenerID {
	return e.addListener(identityOf(callback), wrapSync(callback))
}

// AddAsyncListener registers a callback returning a completion signal.
func (e *Entry) AddAsyncListener(callback AsyncCallback) ListenerID {
	return e.addListener(identityOf(callback), callback)
}

func (e *Entry) addListener(id ListenerID, adapter AsyncCallback) ListenerID {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.listeners[id]; exists {
		return id
	}
	e.listeners[id] = adapter
	return id
}

// RemoveListener removes the listener registered under id and reports how
// many listeners remain.
func (e *Entry) RemoveListener(id ListenerID) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.listeners, id)
	return len(e.listeners)
}

// HasListeners reports whether the entry currently has any listener.
func (e *Entry) HasListeners() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners) > 0
}

// MD5 returns the entry's current md5 under lock.
func (e *Entry) MD5() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.md5
}

// UpdateContent implements the fan-out protocol: it overwrites
// content+md5 only when newMd5 differs from the current one, then
// dispatches the new event to every listener outside the lock, isolating
// each listener's failure or timeout from its siblings.
func (e *Entry) UpdateContent(key config.ConfigKey, newContent, newMd5, contentType string, logger *zap.SugaredLogger) {
	e.mu.Lock()
	if newMd5 == e.md5 {
		e.mu.Unlock()
		return
	}
	oldContent := e.content
	e.content = newContent
	e.md5 = newMd5

	snapshot := make([]AsyncCallback, 0, len(e.listeners))
	for _, l := range e.listeners {
		snapshot = append(snapshot, l)
	}
	e.mu.Unlock()

	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	event := config.ConfigChangedEvent{
		Key:         key,
		NewContent:  newContent,
		OldContent:  oldContent,
		ContentType: contentType,
		Timestamp:   time.Now().UTC(),
	}
	for _, l := range snapshot {
		dispatch(l, event, logger)
	}
}

func dispatch(l AsyncCallback, event config.ConfigChangedEvent, logger *zap.SugaredLogger) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Warnw("listener panicked", "dataId", event.Key.DataID, "group", event.Key.Group, "panic", r)
			}
		}()

		done := l(event)
		if done == nil {
			return
		}
		select {
		case <-done:
		case <-time.After(DefaultListenerTimeout):
			logger.Warnw("listener exceeded timeout, abandoning wait", "dataId", event.Key.DataID, "group", event.Key.Group)
		}
	}()
}
