package usecase

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
	domservice "SignalFuse/internal/domain/service"
	"SignalFuse/internal/service/events"
	"SignalFuse/pkg/logger"
)

const defaultAnalysisConcurrency = 2

// typeBonus orders alert types within the same severity band.
func typeBonus(t models.AlertType) float64 {
	switch t {
	case models.AlertPriceAnomaly, models.AlertBreakingNews:
		return 10
	case models.AlertInsiderTrade:
		return 8
	case models.AlertCombinedSignal:
		return 7
	case models.AlertEarnings:
		return 6
	default:
		return 5
	}
}

// JobPriority computes an alert's analysis priority.
func JobPriority(a *models.Alert) float64 {
	return models.SeverityWeight(a.Severity) + a.Metadata.Confidence*20 + typeBonus(a.Type)
}

type jobHeap []*models.AnalysisJob

func (h jobHeap) Len() int { return len(h) }
func (h jobHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].EnqueuedAt.Before(h[j].EnqueuedAt)
}
func (h jobHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *jobHeap) Push(x interface{}) { *h = append(*h, x.(*models.AnalysisJob)) }
func (h *jobHeap) Pop() interface{} {
	old := *h
	n := len(old)
	job := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return job
}

// AnalysisQueue runs queued alerts through the analysis engine, highest
// priority first, never more than the configured concurrency at once. An
// alert already queued or running is not enqueued twice.
type AnalysisQueue struct {
	engine   domservice.AnalysisEngine
	store    domrepo.AlertStore
	dispatch NotificationDispatcher
	bus      *events.Bus
	logger   *logger.Logger
	metrics  domrepo.Metrics
	limit    int
	now      func() time.Time

	mu       sync.Mutex
	jobs     jobHeap
	inFlight map[string]struct{}
	running  int

	wake chan struct{}
	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// QueueOption configures AnalysisQueue.
type QueueOption func(*AnalysisQueue)

// WithConcurrency caps how many analyses run at once.
func WithConcurrency(n int) QueueOption {
	return func(q *AnalysisQueue) {
		if n > 0 {
			q.limit = n
		}
	}
}

// WithQueueClock overrides the queue clock.
func WithQueueClock(now func() time.Time) QueueOption {
	return func(q *AnalysisQueue) { q.now = now }
}

// NewAnalysisQueue creates the queue. Call Start to begin dispatching.
func NewAnalysisQueue(engine domservice.AnalysisEngine, store domrepo.AlertStore, dispatch NotificationDispatcher, bus *events.Bus, lgr *logger.Logger, m domrepo.Metrics, opts ...QueueOption) *AnalysisQueue {
	q := &AnalysisQueue{
		engine:   engine,
		store:    store,
		dispatch: dispatch,
		bus:      bus,
		logger:   lgr,
		metrics:  m,
		limit:    defaultAnalysisConcurrency,
		now:      time.Now,
		inFlight: make(map[string]struct{}),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	heap.Init(&q.jobs)
	return q
}

// EnqueueAlert queues an alert for analysis. Duplicate alert IDs are dropped.
func (q *AnalysisQueue) EnqueueAlert(a *models.Alert, modules []string) {
	q.mu.Lock()
	if _, dup := q.inFlight[a.ID]; dup {
		q.mu.Unlock()
		return
	}
	q.inFlight[a.ID] = struct{}{}
	heap.Push(&q.jobs, &models.AnalysisJob{
		Alert:      a,
		Priority:   JobPriority(a),
		Modules:    modules,
		EnqueuedAt: q.now(),
	})
	depth := q.jobs.Len()
	q.mu.Unlock()

	q.metrics.RecordQueueDepth(depth)
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Depth returns the number of jobs waiting (not running).
func (q *AnalysisQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.jobs.Len()
}

// Running returns how many analyses are executing right now.
func (q *AnalysisQueue) Running() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Start launches the dispatch loop.
func (q *AnalysisQueue) Start(ctx context.Context) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-q.stop:
				return
			case <-q.wake:
				q.drain(ctx)
			}
		}
	}()
}

// Stop halts dispatching and waits for running analyses to finish.
func (q *AnalysisQueue) Stop() {
	q.once.Do(func() { close(q.stop) })
	q.wg.Wait()
}

// drain launches jobs until the queue empties or the concurrency cap is hit.
func (q *AnalysisQueue) drain(ctx context.Context) {
	for {
		q.mu.Lock()
		if q.running >= q.limit || q.jobs.Len() == 0 {
			q.mu.Unlock()
			return
		}
		job := heap.Pop(&q.jobs).(*models.AnalysisJob)
		q.running++
		running := q.running
		depth := q.jobs.Len()
		q.mu.Unlock()

		q.metrics.RecordQueueDepth(depth)
		q.metrics.RecordInFlight(running)

		q.wg.Add(1)
		go func(job *models.AnalysisJob) {
			defer q.wg.Done()
			q.run(ctx, job)

			q.mu.Lock()
			q.running--
			delete(q.inFlight, job.Alert.ID)
			q.metrics.RecordInFlight(q.running)
			q.mu.Unlock()

			select {
			case q.wake <- struct{}{}:
			default:
			}
		}(job)
	}
}

func (q *AnalysisQueue) run(ctx context.Context, job *models.AnalysisJob) {
	a := job.Alert
	started := q.now()

	a.Status = models.StatusAnalysisRunning
	q.persist(ctx, a)
	q.logger.Info("analysis started",
		logger.String("alert", a.ID),
		logger.String("symbol", a.Symbol),
		logger.Any("priority", job.Priority))

	res, err := q.engine.Orchestrate(ctx, models.AnalysisRequest{
		SessionID:         a.AnalysisSessionID,
		Symbol:            a.Symbol,
		RequestedModules:  job.Modules,
		Priority:          job.Priority,
		AllowFallbacks:    true,
		RequireValidation: a.Severity == models.SeverityCritical || a.Severity == models.SeverityHigh,
		Inputs:            a.TriggerData,
	})
	q.metrics.RecordLatency("analysis", q.now().Sub(started).Seconds())

	if err != nil || !res.Success {
		a.Status = models.StatusAnalysisFailed
		q.persist(ctx, a)
		q.metrics.RecordError("analysis")
		q.logger.Warn("analysis failed",
			logger.String("alert", a.ID), logger.Error(err))
		return
	}

	a.Status = models.StatusAnalysisCompleted
	a.AnalysisCompleted = true
	a.AnalysisResults = res.Results
	q.persist(ctx, a)
	q.logger.Info("analysis completed",
		logger.String("alert", a.ID),
		logger.Duration("took", q.now().Sub(started)))

	if q.bus != nil {
		q.bus.Publish(events.KindAnalysisFinished, a)
	}
	if q.dispatch != nil && significantResult(res.Results) {
		channels := a.NotificationsSent
		if len(channels) == 0 {
			channels = []string{"console"}
		}
		q.dispatch.Dispatch(ctx, a, channels)
		q.persist(ctx, a)
	}
}

func (q *AnalysisQueue) persist(ctx context.Context, a *models.Alert) {
	if err := q.store.SaveAlert(ctx, a); err != nil {
		q.logger.Warn("alert persist failed",
			logger.String("alert", a.ID), logger.Error(err))
		q.metrics.RecordError("persist_alert")
	}
}

// significantResult reports whether an analysis outcome warrants a follow-up
// notification.
func significantResult(results map[string]interface{}) bool {
	if v, ok := results["significant"].(bool); ok && v {
		return true
	}
	if v, ok := results["risk_level"].(string); ok && v == string(models.RiskHigh) {
		return true
	}
	if v, ok := results["confidence"].(float64); ok && v >= 0.85 {
		return true
	}
	return false
}
