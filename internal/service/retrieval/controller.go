// Package retrieval dispatches one retrieval query per distinct finalized
// user utterance and tracks the live query's state.
package retrieval

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/apperr"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/models"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/observability/logging"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/observability/metrics"
)

// DefaultTimeout bounds a single retrieval request.
const DefaultTimeout = 10 * time.Second

// Retriever is the retrieval backend.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]models.SourceHit, error)
}

// Subscriber receives the live query after every state change.
type Subscriber func(q models.RetrievalQuery)

// Controller watches transcript snapshots and owns the live RetrievalQuery.
//
// Only one query is live. A newer dispatch supersedes the previous one:
// every dispatch takes a new token and a completion whose token is no
// longer current is discarded.
type Controller struct {
	retriever Retriever
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	mu             sync.Mutex
	token          uint64
	lastDispatched string
	query          models.RetrievalQuery
	subscribers    []Subscriber

	inflight sync.WaitGroup
}

// NewController creates a controller. A zero timeout selects DefaultTimeout.
func NewController(retriever Retriever, timeout time.Duration) *Controller {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Controller{
		retriever: retriever,
		timeout:   timeout,
		metrics:   metrics.DefaultMetrics,
		logger:    logging.WithComponent("retrieval"),
		query:     models.RetrievalQuery{Status: models.QueryIdle},
	}
}

// Subscribe registers fn for every subsequent query state change.
func (c *Controller) Subscribe(fn Subscriber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// OnTranscriptUpdate inspects a transcript snapshot and dispatches a query
// when the most recently updated final user entry carries text that differs
// from the last dispatched query.
func (c *Controller) OnTranscriptUpdate(log models.TranscriptLog) {
	entry, ok := log.MostRecentFinal(models.SpeakerUser)
	if !ok || entry.Text == "" {
		return
	}

	c.mu.Lock()
	if entry.Text == c.lastDispatched {
		c.mu.Unlock()
		return
	}
	c.token++
	token := c.token
	c.lastDispatched = entry.Text
	c.query = models.RetrievalQuery{QueryText: entry.Text, Status: models.QueryLoading}
	snap := c.snapshotLocked()
	c.notifyLocked(snap)
	c.inflight.Add(1)
	c.mu.Unlock()

	c.metrics.RecordRetrievalDispatched()
	c.logger.Info().
		Uint64("token", token).
		Str("entryId", entry.ID).
		Str("query", entry.Text).
		Msg("Retrieval dispatched")

	go c.run(token, entry.Text)
}

func (c *Controller) run(token uint64, text string) {
	defer c.inflight.Done()

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	hits, err := c.retriever.Retrieve(ctx, text)
	cancel()
	latency := time.Since(start)

	c.mu.Lock()
	defer c.mu.Unlock()

	if token != c.token {
		c.metrics.RecordRetrievalStale()
		c.logger.Debug().
			Uint64("token", token).
			Uint64("current", c.token).
			Msg("Stale retrieval result discarded")
		return
	}

	if err != nil {
		err = apperr.E(apperr.KindRetrieval, "retrieval.dispatch", "query_failed", err)
		c.logger.Warn().Err(err).Str("query", text).Dur("latency", latency).Msg("Retrieval failed")
		c.query = models.RetrievalQuery{QueryText: text, Status: models.QueryFailed, Results: []models.SourceHit{}}
		c.metrics.RecordRetrievalOutcome(string(models.QueryFailed), 0, latency.Seconds())
	} else {
		ranked := rank(hits)
		c.query = models.RetrievalQuery{QueryText: text, Status: models.QuerySucceeded, Results: ranked}
		c.metrics.RecordRetrievalOutcome(string(models.QuerySucceeded), len(ranked), latency.Seconds())
		c.logger.Info().Str("query", text).Int("results", len(ranked)).Dur("latency", latency).Msg("Retrieval succeeded")
	}
	c.notifyLocked(c.snapshotLocked())
}

// Query returns a copy of the live query.
func (c *Controller) Query() models.RetrievalQuery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Reset returns the controller to idle. In-flight requests are left
// running and their results are discarded on completion.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token++
	c.lastDispatched = ""
	c.query = models.RetrievalQuery{Status: models.QueryIdle}
	c.notifyLocked(c.snapshotLocked())
}

// Wait blocks until every dispatched request has completed.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// snapshotLocked copies the live query. Results is never nil, so an
// empty result set encodes as [].
func (c *Controller) snapshotLocked() models.RetrievalQuery {
	q := c.query
	q.Results = append(make([]models.SourceHit, 0, len(q.Results)), q.Results...)
	return q
}

func (c *Controller) notifyLocked(q models.RetrievalQuery) {
	for _, fn := range c.subscribers {
		fn(q)
	}
}

// rank orders hits closest first.
func rank(hits []models.SourceHit) []models.SourceHit {
	out := append([]models.SourceHit{}, hits...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SimilarityScore < out[j].SimilarityScore
	})
	return out
}
