package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/cache"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/models"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/observability/logging"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/observability/metrics"
)

const cacheKeyPrefix = "voice:retrieval:"

// CachedRetriever memoizes successful results per normalized query text.
// Cache failures never fail a query.
type CachedRetriever struct {
	next    Retriever
	cache   cache.Cache
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewCachedRetriever wraps next with c.
func NewCachedRetriever(next Retriever, c cache.Cache, ttl time.Duration) *CachedRetriever {
	return &CachedRetriever{
		next:    next,
		cache:   c,
		ttl:     ttl,
		metrics: metrics.DefaultMetrics,
		logger:  logging.WithComponent("retrieval-cache"),
	}
}

// Retrieve implements Retriever.
func (r *CachedRetriever) Retrieve(ctx context.Context, query string) ([]models.SourceHit, error) {
	key := cacheKey(query)

	var cached []models.SourceHit
	hit, err := r.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("Cache lookup failed")
	}
	r.metrics.RecordCacheLookup(hit)
	if hit {
		return cached, nil
	}

	hits, err := r.next.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}

	if err := r.cache.SetJSON(ctx, key, hits, r.ttl); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("Cache store failed")
	}
	return hits, nil
}

func cacheKey(query string) string {
	norm := strings.ToLower(strings.Join(strings.Fields(query), " "))
	sum := sha256.Sum256([]byte(norm))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
