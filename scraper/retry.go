package scraper

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// retryManager re-issues failed requests after a fixed delay, at most maxRetries
// times per URL. It tracks pending timers so callers can wait for them.
type retryManager struct {
	maxRetries int
	delay      time.Duration
	metrics    *Metrics
	ctx        context.Context

	mu           sync.Mutex
	idle         *sync.Cond
	attempts     map[string]int
	timers       map[string]*time.Timer
	pending      int
	totalRetries int
	stopped      bool
}

func newRetryManager(maxRetries int, delay time.Duration, metrics *Metrics) *retryManager {
	rm := &retryManager{
		maxRetries: maxRetries,
		delay:      delay,
		metrics:    metrics,
		ctx:        context.Background(),
		attempts:   make(map[string]int),
		timers:     make(map[string]*time.Timer),
	}
	rm.idle = sync.NewCond(&rm.mu)
	return rm
}

// Schedule arranges for retry to run after the retry delay. It returns false
// when url has used up its retries or the manager is stopped.
func (rm *retryManager) Schedule(url string, retry func() error) bool {
	if rm.maxRetries <= 0 {
		return false
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.stopped || rm.ctx.Err() != nil {
		return false
	}
	attempt := rm.attempts[url]
	if attempt >= rm.maxRetries {
		return false
	}

	attempt++
	rm.attempts[url] = attempt
	rm.totalRetries++
	rm.pending++
	rm.metrics.IncRetries()

	rm.timers[url] = time.AfterFunc(rm.delay, func() {
		rm.fire(url, attempt, retry)
	})
	return true
}

func (rm *retryManager) fire(url string, attempt int, retry func() error) {
	defer rm.done()

	rm.mu.Lock()
	delete(rm.timers, url)
	stopped := rm.stopped || rm.ctx.Err() != nil
	rm.mu.Unlock()
	if stopped {
		return
	}

	if err := retry(); err != nil {
		slog.Debug("retry request failed", slog.String("url", url), slog.Int("attempt", attempt), slog.Any("error", err))
	}
}

func (rm *retryManager) done() {
	rm.mu.Lock()
	rm.pending--
	if rm.pending <= 0 {
		rm.pending = 0
		rm.idle.Broadcast()
	}
	rm.mu.Unlock()
}

// Wait blocks until no retry timer is pending.
func (rm *retryManager) Wait() {
	rm.mu.Lock()
	for rm.pending > 0 {
		rm.idle.Wait()
	}
	rm.mu.Unlock()
}

// Scheduled returns how many retries have been scheduled so far.
func (rm *retryManager) Scheduled() int {
	return rm.TotalRetries()
}

// Stop cancels every pending timer. Retries scheduled afterwards are refused.
func (rm *retryManager) Stop() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.stopped {
		return
	}
	rm.stopped = true
	for url, timer := range rm.timers {
		if timer.Stop() {
			rm.pending--
		}
		delete(rm.timers, url)
	}
	if rm.pending <= 0 {
		rm.pending = 0
		rm.idle.Broadcast()
	}
}

func (rm *retryManager) TotalRetries() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.totalRetries
}

func (rm *retryManager) SetContext(ctx context.Context) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if ctx == nil {
		rm.ctx = context.Background()
		return
	}
	rm.ctx = ctx
}
