package session

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var idPattern = regexp.MustCompile(`^ses_\d+_[0-9a-z]{9}$`)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestNewIDFormat(t *testing.T) {
	id := NewID(time.UnixMilli(1700000000123))
	assert.Regexp(t, idPattern, id)
	assert.Contains(t, id, "ses_1700000000123_")
}

func TestGetOrCreateIsStableWithinTab(t *testing.T) {
	store := NewMemoryStore()
	sessions := NewSessions(store, fixedClock(1000), nil)

	first := sessions.GetOrCreate()
	require.Regexp(t, idPattern, first)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, sessions.GetOrCreate())
	}

	stored, ok, err := store.Get(StorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first, stored)
}

func TestGetOrCreateReusesExistingEntry(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set(StorageKey, "ses_1_existing0"))

	assert.Equal(t, "ses_1_existing0", NewSessions(store, nil, nil).GetOrCreate())
}

func TestIndependentTabsGetDifferentIDs(t *testing.T) {
	clock := fixedClock(1000)
	a := NewSessions(NewMemoryStore(), clock, nil).GetOrCreate()
	b := NewSessions(NewMemoryStore(), clock, nil).GetOrCreate()
	assert.NotEqual(t, a, b)
}

func TestClearedStoreStartsNewSession(t *testing.T) {
	store := NewMemoryStore()
	sessions := NewSessions(store, nil, nil)
	first := sessions.GetOrCreate()

	store.Clear()

	assert.NotEqual(t, first, sessions.GetOrCreate())
}

type brokenStore struct{}

func (brokenStore) Get(string) (string, bool, error) { return "", false, errors.New("quota exceeded") }
func (brokenStore) Set(string, string) error { return errors.New("quota exceeded") }

func TestBrokenStoreStillYieldsStableID(t *testing.T) {
	sessions := NewSessions(brokenStore{}, nil, nil)
	first := sessions.GetOrCreate()
	assert.Regexp(t, idPattern, first)
	assert.Equal(t, first, sessions.GetOrCreate())
}

type flakyStore struct {
	*MemoryStore
	failReads bool
	writes    int
}

func (f *flakyStore) Get(key string) (string, bool, error) {
	if f.failReads {
		return "", false, errors.New("database is locked")
	}
	return f.MemoryStore.Get(key)
}

func (f *flakyStore) Set(key, value string) error {
	f.writes++
	return f.MemoryStore.Set(key, value)
}

func TestReadFailureKeepsStoredID(t *testing.T) {
	store := &flakyStore{MemoryStore: NewMemoryStore()}
	sessions := NewSessions(store, nil, nil)
	first := sessions.GetOrCreate()

	store.failReads = true
	assert.Equal(t, first, sessions.GetOrCreate())

	store.failReads = false
	assert.Equal(t, first, sessions.GetOrCreate())
	assert.Equal(t, 1, store.writes)
	stored, _, _ := store.MemoryStore.Get(StorageKey)
	assert.Equal(t, first, stored)
}

func TestReadFailureBeforeFirstIDIsStoredLater(t *testing.T) {
	store := &flakyStore{MemoryStore: NewMemoryStore(), failReads: true}
	sessions := NewSessions(store, nil, nil)
	first := sessions.GetOrCreate()
	assert.Zero(t, store.writes)

	store.failReads = false
	assert.Equal(t, first, sessions.GetOrCreate())
	stored, ok, _ := store.MemoryStore.Get(StorageKey)
	assert.True(t, ok)
	assert.Equal(t, first, stored)
}
