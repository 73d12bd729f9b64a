package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/models"
)

// memCache implements cache.Cache in memory
type memCache struct {
	data   map[string][]byte
	getErr error
	setErr error
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (m *memCache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if m.getErr != nil {
		return false, m.getErr
	}
	b, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (m *memCache) SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	m.data[key] = b
	return nil
}

// countingRetriever implements Retriever with a fixed answer
type countingRetriever struct {
	calls int
	hits  []models.SourceHit
	err   error
}

func (c *countingRetriever) Retrieve(ctx context.Context, query string) ([]models.SourceHit, error) {
	c.calls++
	return c.hits, c.err
}

func TestCachedRetriever_HitSkipsBackend(t *testing.T) {
	backend := &countingRetriever{hits: []models.SourceHit{{Label: "a.pdf", Content: "x", SimilarityScore: 0.3}}}
	r := NewCachedRetriever(backend, newMemCache(), time.Minute)

	first, err := r.Retrieve(context.Background(), "What is the refund policy")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := r.Retrieve(context.Background(), "  what is the   REFUND policy ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if backend.calls != 1 {
		t.Errorf("expected 1 backend call, got %d", backend.calls)
	}
	if len(second) != 1 || second[0] != first[0] {
		t.Errorf("expected cached hits %+v, got %+v", first, second)
	}
}

func TestCachedRetriever_ErrorsNotCached(t *testing.T) {
	backend := &countingRetriever{err: errors.New("backend down")}
	c := newMemCache()
	r := NewCachedRetriever(backend, c, time.Minute)

	if _, err := r.Retrieve(context.Background(), "q"); err == nil {
		t.Fatal("expected backend error")
	}
	if len(c.data) != 0 {
		t.Errorf("expected nothing cached on error, got %d keys", len(c.data))
	}
}

func TestCachedRetriever_CacheFailuresAreIgnored(t *testing.T) {
	backend := &countingRetriever{hits: []models.SourceHit{{Label: "a"}}}
	c := newMemCache()
	c.getErr = errors.New("redis unavailable")
	c.setErr = errors.New("redis unavailable")
	r := NewCachedRetriever(backend, c, time.Minute)

	hits, err := r.Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("cache failure must not fail the query: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("expected backend hits, got %+v", hits)
	}
}

func TestCacheKey_Normalizes(t *testing.T) {
	if cacheKey("Hello  World") != cacheKey("hello world") {
		t.Error("expected case and whitespace insensitive keys")
	}
	if cacheKey("hello") == cacheKey("world") {
		t.Error("expected distinct keys for distinct queries")
	}
}
