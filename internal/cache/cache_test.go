package cache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/agenthands/truthseeker/internal/core/model"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type countingStore struct {
	mu    sync.Mutex
	saves int
	last  Snapshot
	err   error
	init  Snapshot
}

func (s *countingStore) Load(ctx context.Context) (Snapshot, error) {
	return s.init, nil
}

func (s *countingStore) Save(ctx context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saves++
	s.last = snap
	return nil
}

func (s *countingStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func sampleResults() []model.SearchResult {
	return []model.SearchResult{{Title: "A", Description: "d", URL: "https://a.example", QueryTime: 0.5}}
}

func TestKeyNormalization(t *testing.T) {
	assert.Equal(t, Key("Foo", 5, "en"), Key(" foo ", 5, "en"))
	assert.NotEqual(t, Key("Foo", 5, "en"), Key("Foo", 6, "en"))
	assert.NotEqual(t, Key("Foo", 5, "en"), Key("Foo", 5, "de"))
	assert.Equal(t, "foo::count=5::lang=en", Key("Foo", 5, "en"))
}

func TestGetHonorsTTL(t *testing.T) {
	clock := newFakeClock()
	c := New(context.Background(), Options{TTL: 300 * time.Second, Now: clock.Now})

	c.Set("k", sampleResults())

	clock.Advance(300 * time.Second)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, sampleResults(), got)

	clock.Advance(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry is evicted on read")
}

func TestEntriesAreNotAliased(t *testing.T) {
	c := New(context.Background(), Options{TTL: time.Minute})

	in := sampleResults()
	c.Set("k", in)
	in[0].Title = "changed by producer"

	got, ok := c.Get("k")
	require.True(t, ok)
	got[0].Title = "changed by consumer"

	again, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, sampleResults(), again)
}

func TestLoadDiscardsStaleEntries(t *testing.T) {
	clock := newFakeClock()
	now := epoch(clock.Now())
	store := &countingStore{init: Snapshot{
		"fresh": {Timestamp: now - 10, Results: sampleResults()},
		"stale": {Timestamp: now - 301, Results: sampleResults()},
	}}

	c := New(context.Background(), Options{TTL: 300 * time.Second, Store: store, Now: clock.Now})

	_, ok := c.Get("fresh")
	assert.True(t, ok)
	_, ok = c.Get("stale")
	assert.False(t, ok)
}

func TestWritesAreDebounced(t *testing.T) {
	store := &countingStore{}
	c := New(context.Background(), Options{TTL: time.Minute, Store: store, Debounce: 50 * time.Millisecond})

	for i := 0; i < 20; i++ {
		c.Set(Key("q", i, "en"), sampleResults())
	}

	require.Eventually(t, func() bool { return store.Saves() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, store.Saves())
	assert.Len(t, store.last, 20)
}

func TestFlushWritesPendingImmediately(t *testing.T) {
	store := &countingStore{}
	c := New(context.Background(), Options{TTL: time.Minute, Store: store, Debounce: time.Hour})

	c.Set("k", sampleResults())
	assert.Equal(t, 0, store.Saves())

	require.NoError(t, c.Flush(context.Background()))
	assert.Equal(t, 1, store.Saves())

	// nothing dirty, nothing written
	require.NoError(t, c.Flush(context.Background()))
	assert.Equal(t, 1, store.Saves())
}

func TestCloseStopsPersistence(t *testing.T) {
	store := &countingStore{}
	c := New(context.Background(), Options{TTL: time.Minute, Store: store, Debounce: 10 * time.Millisecond})

	c.Set("a", sampleResults())
	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, 1, store.Saves())

	c.Set("b", sampleResults())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, store.Saves())

	_, ok := c.Get("b")
	assert.True(t, ok, "cache keeps serving after close")
}

func TestFailedSaveIsLoggedAndRetried(t *testing.T) {
	logger, hook := test.NewNullLogger()
	store := &countingStore{err: errors.New("disk full")}
	c := New(context.Background(), Options{TTL: time.Minute, Store: store, Debounce: 10 * time.Millisecond, Logger: logger})

	c.Set("a", sampleResults())
	require.Eventually(t, func() bool {
		for _, e := range hook.AllEntries() {
			if e.Level == logrus.WarnLevel {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	store.mu.Lock()
	store.err = nil
	store.mu.Unlock()

	require.NoError(t, c.Flush(context.Background()))
	assert.Equal(t, 1, store.Saves())
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.json")
	store := NewFileStore(path)

	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap)

	in := Snapshot{"k": {Timestamp: 123.5, Results: sampleResults()}}
	require.NoError(t, store.Save(context.Background(), in))

	out, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, in, out)

	var raw map[string]map[string]any
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, 123.5, raw["k"]["ts"])

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFileStoreLenientLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	content := `{
		"good": {"ts": 10, "results": [
			{"title": "ok", "description": "", "url": "https://ok.example", "query_time": 0},
			{"title": "bad", "url": "not-a-url"},
			42
		]},
		"badts": {"ts": "yesterday", "results": []}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	snap, err := NewFileStore(path).Load(context.Background())
	require.NoError(t, err)
	require.Contains(t, snap, "good")
	assert.NotContains(t, snap, "badts")
	assert.Len(t, snap["good"].Results, 1)
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Load(context.Background())
	assert.Error(t, err)

	c := New(context.Background(), Options{TTL: time.Minute, Store: NewFileStore(path)})
	assert.Equal(t, 0, c.Len())
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisStore(client, "ts:cache", time.Hour)
	in := Snapshot{
		"a": {Timestamp: 1, Results: sampleResults()},
		"b": {Timestamp: 2, Results: []model.SearchResult{}},
	}
	require.NoError(t, store.Save(context.Background(), in))
	assert.True(t, mr.Exists("ts:cache"))
	assert.Equal(t, time.Hour, mr.TTL("ts:cache"))

	out, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, in, out)

	require.NoError(t, store.Save(context.Background(), Snapshot{"a": in["a"]}))
	out, err = store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, out, 1)
}
