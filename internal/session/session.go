// Package session owns the per-tab session identifier.
package session

import (
	"encoding/binary"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vincentbai/visionui-beacon/internal/logger"
)

// StorageKey is the tab-storage key holding the session id.
const StorageKey = "vui_session"

const (
	idPrefix     = "ses_"
	randomLength = 9
)

// Store is a tab-scoped key/value store.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// MemoryStore is a Store living as long as the value itself, i.e. one tab.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Clear drops every entry, as the browser does when the tab goes away.
func (m *MemoryStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = make(map[string]string)
}

// NewID formats ses_<epoch_millis>_<random_base36>.
func NewID(now time.Time) string {
	return idPrefix + strconv.FormatInt(now.UnixMilli(), 10) + "_" + randomBase36()
}

func randomBase36() string {
	u := uuid.New()
	s := strconv.FormatUint(binary.BigEndian.Uint64(u[8:]), 36)
	if len(s) < randomLength {
		s = strings.Repeat("0", randomLength-len(s)) + s
	}
	// low-order digits; the leading ones carry the UUID variant bits
	return s[len(s)-randomLength:]
}

// Sessions resolves the session id of one tab.
type Sessions struct {
	store Store
	now   func() time.Time
	log   logger.Logger

	mu      sync.Mutex
	known   string
	unsaved bool
}

// NewSessions returns a resolver over store. A nil log discards diagnostics.
func NewSessions(store Store, now func() time.Time, log logger.Logger) *Sessions {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Sessions{store: store, now: now, log: log}
}

// GetOrCreate returns the stored session id, creating and storing one if absent.
// Store failures never surface. A failed read answers with the last id this
// resolver saw and never overwrites the stored entry; a failed write keeps the
// generated id in memory so the page still reports a stable value.
func (s *Sessions) GetOrCreate() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok, err := s.store.Get(StorageKey)
	if err != nil {
		s.log.Debug("Session store read failed", logger.Error(err))
		if s.known == "" {
			s.known = NewID(s.now())
			s.unsaved = true
		}
		return s.known
	}
	if ok && id != "" {
		s.known, s.unsaved = id, false
		return id
	}

	if !s.unsaved {
		s.known = NewID(s.now())
	}
	if err := s.store.Set(StorageKey, s.known); err != nil {
		s.log.Debug("Session store write failed", logger.Error(err))
		s.unsaved = true
		return s.known
	}
	s.unsaved = false
	return s.known
}
