package trust

import (
	"context"
	"sync"
	"time"

	"github.com/go-kit/kit/metrics"

	"github.com/decentrust/decentrust/libs/log"
	tmmath "github.com/decentrust/decentrust/libs/math"
	"github.com/decentrust/decentrust/libs/service"
)

// Store shares one Tracker between goroutines. Every call holds the store
// mutex for its whole duration, normalization included, so callers never
// observe a raw view without its matching normalized view.
//
// Store itself satisfies Tracker. Sequences that must be atomic, such as
// read-then-write, go through Update.
type Store[K comparable, V tmmath.Value] struct {
	service.BaseService

	logger  log.Logger
	metrics *Metrics

	reportInterval time.Duration

	// Mutex that protects the tracker
	mtx     sync.Mutex
	tracker Tracker[K, V]
}

var _ Tracker[string, float64] = (*Store[string, float64])(nil)

// StoreOption sets an optional parameter on the Store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	metrics        *Metrics
	reportInterval time.Duration
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) StoreOption {
	return func(o *storeOptions) { o.metrics = metrics }
}

// WithReportInterval makes the running store refresh its peer gauges and
// log a summary every interval. Zero disables reporting.
func WithReportInterval(interval time.Duration) StoreOption {
	return func(o *storeOptions) { o.reportInterval = interval }
}

// NewStore returns a store wrapping tracker. Use Start to begin periodic
// reporting; the store serves calls whether or not it is running.
func NewStore[K comparable, V tmmath.Value](logger log.Logger, tracker Tracker[K, V], options ...StoreOption) *Store[K, V] {
	o := storeOptions{metrics: NopMetrics()}
	for _, opt := range options {
		opt(&o)
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	s := &Store[K, V]{
		logger:         logger,
		metrics:        o.metrics,
		reportInterval: o.reportInterval,
		tracker:        tracker,
	}
	s.BaseService = *service.NewBaseService(logger, "TrustStore", s)
	return s
}

// OnStart implements service.Service.
func (s *Store[K, V]) OnStart(ctx context.Context) error {
	s.mtx.Lock()
	s.refreshGauges()
	s.mtx.Unlock()

	if s.reportInterval > 0 {
		go s.reportRoutine(ctx)
	}
	return nil
}

// OnStop implements service.Service.
func (s *Store[K, V]) OnStop() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.report()
}

// Update runs fn with exclusive access to the tracker and refreshes the
// peer gauges afterwards.
func (s *Store[K, V]) Update(fn func(Tracker[K, V]) error) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	defer s.refreshGauges()
	return fn(s.tracker)
}

// View runs fn with exclusive access to the tracker. Unlike Update it does
// not refresh the peer gauges.
func (s *Store[K, V]) View(fn func(Tracker[K, V]) error) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return fn(s.tracker)
}

func (s *Store[K, V]) Mode() Mode { return s.tracker.Mode() }

func (s *Store[K, V]) InitLocal(key K, value V) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.mutate("init local", key, Increment, s.metrics.LocalUpdates, func() error {
		return s.tracker.InitLocal(key, value)
	})
}

func (s *Store[K, V]) UpdateLocal(key K, delta V, dir Direction) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.mutate("update local", key, dir, s.metrics.LocalUpdates, func() error {
		return s.tracker.UpdateLocal(key, delta, dir)
	})
}

func (s *Store[K, V]) InitGlobal(sender, key K, value V) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.mutate("init global", key, Increment, s.metrics.GlobalUpdates, func() error {
		return s.tracker.InitGlobal(sender, key, value)
	}, "sender", sender)
}

func (s *Store[K, V]) UpdateGlobal(sender, key K, delta V, dir Direction) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.mutate("update global", key, dir, s.metrics.GlobalUpdates, func() error {
		return s.tracker.UpdateGlobal(sender, key, delta, dir)
	}, "sender", sender)
}

func (s *Store[K, V]) RawLocal(key K) (V, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.tracker.RawLocal(key)
}

func (s *Store[K, V]) NormalizedLocal(key K) (V, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.tracker.NormalizedLocal(key)
}

func (s *Store[K, V]) RawGlobal(key K) (V, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.tracker.RawGlobal(key)
}

func (s *Store[K, V]) NormalizedGlobal(key K) (V, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.tracker.NormalizedGlobal(key)
}

func (s *Store[K, V]) RawLocalMap() View[K, V] {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.tracker.RawLocalMap()
}

func (s *Store[K, V]) NormalizedLocalMap() View[K, V] {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.tracker.NormalizedLocalMap()
}

func (s *Store[K, V]) RawGlobalMap() View[K, V] {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.tracker.RawGlobalMap()
}

func (s *Store[K, V]) NormalizedGlobalMap() View[K, V] {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.tracker.NormalizedGlobalMap()
}

func (s *Store[K, V]) NormalizeLocal() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.tracker.NormalizeLocal()
}

func (s *Store[K, V]) NormalizeGlobal() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.tracker.NormalizeGlobal()
}

func (s *Store[K, V]) LocalRawLen() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.tracker.LocalRawLen()
}

func (s *Store[K, V]) LocalNormalizedLen() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.tracker.LocalNormalizedLen()
}

func (s *Store[K, V]) GlobalRawLen() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.tracker.GlobalRawLen()
}

func (s *Store[K, V]) GlobalNormalizedLen() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.tracker.GlobalNormalizedLen()
}

/* Private methods */
/* All of them assume the mutex has been acquired */

// mutate runs fn, recording its outcome in the logs and metrics.
func (s *Store[K, V]) mutate(
	op string,
	key K,
	dir Direction,
	counter metrics.Counter,
	fn func() error,
	keyvals ...interface{},
) error {
	start := time.Now()
	if err := fn(); err != nil {
		s.metrics.RejectedUpdates.Add(1)
		s.logger.Error("rejected trust update", append([]interface{}{"op", op, "peer", key, "err", err}, keyvals...)...)
		return err
	}
	s.metrics.NormalizationSeconds.Observe(time.Since(start).Seconds())
	counter.With("direction", dir.String()).Add(1)
	s.refreshGauges()

	s.logger.Debug("applied trust update", append([]interface{}{"op", op, "peer", key, "direction", dir.String()}, keyvals...)...)
	return nil
}

func (s *Store[K, V]) refreshGauges() {
	s.metrics.LocalPeers.Set(float64(s.tracker.LocalRawLen()))
	s.metrics.GlobalPeers.Set(float64(s.tracker.GlobalRawLen()))
}

func (s *Store[K, V]) report() {
	s.refreshGauges()
	s.logger.Info("trust summary",
		"mode", string(s.tracker.Mode()),
		"local_peers", s.tracker.LocalRawLen(),
		"global_peers", s.tracker.GlobalRawLen(),
	)
}

// Periodically refreshes the peer gauges and logs a summary
func (s *Store[K, V]) reportRoutine(ctx context.Context) {
	t := time.NewTicker(s.reportInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.mtx.Lock()
			s.report()
			s.mtx.Unlock()
		case <-ctx.Done():
			return
		case <-s.Quit():
			return
		}
	}
}
