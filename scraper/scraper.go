package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"

	"github.com/aluiziolira/go-fashion-etl/config"
	"github.com/aluiziolira/go-fashion-etl/models"
	"github.com/aluiziolira/go-fashion-etl/parser"
)

const pageKey = "page"

// Extractor fetches the paginated catalog and turns every product card into a RawRecord.
type Extractor struct {
	cfg       *config.Config
	collector *colly.Collector
	parser    *parser.CardParser
	limiter   *rate.Limiter
	retry     *retryManager
	Metrics   *Metrics

	requestCount int64
	errorCount   int64

	mu           sync.Mutex
	pages        map[int][]models.RawRecord
	failed       map[int]error
	failedURLs   []string
	errorsByType map[string]int

	handlersOnce sync.Once
}

// NewExtractor builds an extractor configured from cfg. metrics may be nil.
func NewExtractor(cfg *config.Config, cards *parser.CardParser, metrics *Metrics) (*Extractor, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}
	if cards == nil {
		return nil, fmt.Errorf("card parser is required")
	}

	collector := colly.NewCollector(
		colly.Async(true),
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	parallelism := cfg.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: parallelism,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	// One limiter for the whole run: every request, retries included, takes a token.
	every := rate.Inf
	if cfg.Delay > 0 {
		every = rate.Every(cfg.Delay)
	}

	e := &Extractor{
		cfg:          cfg,
		collector:    collector,
		parser:       cards,
		limiter:      rate.NewLimiter(every, 1),
		Metrics:      metrics,
		pages:        make(map[int][]models.RawRecord),
		failed:       make(map[int]error),
		errorsByType: make(map[string]int),
	}
	e.retry = newRetryManager(cfg.MaxRetries, cfg.RetryDelay, metrics)
	return e, nil
}

// PageURL returns the address of the given 1-based catalog page.
func (e *Extractor) PageURL(page int) (string, error) {
	if page <= 1 {
		return e.cfg.BaseURL, nil
	}
	return url.JoinPath(e.cfg.BaseURL, fmt.Sprintf(e.cfg.PagePathFormat, page))
}

// Extract fetches pages 1..MaxPages and returns their cards in page order.
// Page 1 is fetched on its own first: when it cannot be reached at all the run
// fails with ErrSourceUnreachable. Any other page that exhausts its retries is
// skipped and reported in the result.
func (e *Extractor) Extract(ctx context.Context) (*models.ExtractResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.cfg.MaxPages <= 0 {
		return nil, ErrNoPages
	}

	e.retry.SetContext(ctx)
	e.configureHandlers(ctx)

	start := time.Now()
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			e.retry.Stop()
		case <-done:
		}
	}()

	if err := e.visit(1); err != nil {
		return nil, fmt.Errorf("visit first page: %w", err)
	}
	e.wait()

	if err := e.pageError(1); err != nil && isConnectionError(err) {
		e.retry.Stop()
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnreachable, e.cfg.BaseURL, err)
	}

	for page := 2; page <= e.cfg.MaxPages; page++ {
		if ctx.Err() != nil {
			break
		}
		if err := e.visit(page); err != nil {
			slog.Error("page visit rejected", slog.Int("page", page), slog.Any("error", err))
			e.markFailed(page, "", err)
		}
	}
	e.wait()
	e.retry.Stop()

	result := e.buildResult(start)
	slog.Info("extraction finished",
		slog.Int("pages_requested", result.PagesRequested),
		slog.Int("pages_scraped", result.PagesScraped),
		slog.Int("records", len(result.Records)),
		slog.Int("retries", result.RetryCount),
	)
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("extraction interrupted: %w", err)
	}
	return result, nil
}

// wait blocks until no request is in flight and no retry is pending. A retry
// timer may fire after the collector drained, so both are waited on until the
// number of scheduled retries stops changing.
func (e *Extractor) wait() {
	for {
		e.collector.Wait()
		before := e.retry.Scheduled()
		e.retry.Wait()
		e.collector.Wait()
		if e.retry.Scheduled() == before {
			return
		}
	}
}

func (e *Extractor) visit(page int) error {
	target, err := e.PageURL(page)
	if err != nil {
		return fmt.Errorf("build page %d url: %w", page, err)
	}
	ctx := colly.NewContext()
	ctx.Put(pageKey, page)
	return e.collector.Request(http.MethodGet, target, nil, ctx, nil)
}

func (e *Extractor) configureHandlers(ctx context.Context) {
	e.handlersOnce.Do(func() {
		e.collector.OnRequest(func(r *colly.Request) {
			if err := e.limiter.Wait(ctx); err != nil {
				slog.Debug("request aborted", slog.String("url", r.URL.String()), slog.Any("error", err))
				r.Abort()
				return
			}
			r.Ctx.Put("start", time.Now())
			current := atomic.AddInt64(&e.requestCount, 1)
			e.Metrics.IncRequest("started")
			slog.Debug("fetching page",
				slog.Int("page", pageOf(r.Ctx)),
				slog.Int64("requests", current),
				slog.String("url", r.URL.String()),
			)
		})

		e.collector.OnResponse(func(r *colly.Response) {
			if start, ok := r.Ctx.GetAny("start").(time.Time); ok {
				e.Metrics.ObserveDuration(time.Since(start))
			}
			page := pageOf(r.Ctx)
			doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
			if err != nil {
				slog.Error("parse page", slog.Int("page", page), slog.Any("error", err))
				e.markFailed(page, r.Request.URL.String(), err)
				return
			}
			records := e.parser.ParseDocument(doc, e.cfg.CardSelector, page)
			e.Metrics.IncRequest("succeeded")
			e.Metrics.AddCards(len(records))

			e.mu.Lock()
			e.pages[page] = records
			delete(e.failed, page)
			e.mu.Unlock()

			slog.Debug("page scraped", slog.Int("page", page), slog.Int("cards", len(records)))
		})

		e.collector.OnError(func(r *colly.Response, err error) {
			atomic.AddInt64(&e.errorCount, 1)
			classified := classifyError(err, r.StatusCode)
			category := errorTypeLabel(classified)
			page := pageOf(r.Ctx)

			e.mu.Lock()
			e.errorsByType[category]++
			e.mu.Unlock()
			e.Metrics.IncError(category)
			e.Metrics.IncRequest("failed")

			target := ""
			if r.Request != nil && r.Request.URL != nil {
				target = r.Request.URL.String()
			}

			if r.Request != nil && e.retry.Schedule(target, r.Request.Retry) {
				slog.Warn("request failed, retrying",
					slog.Int("page", page),
					slog.String("url", target),
					slog.String("category", category),
					slog.Any("error", err),
				)
				return
			}
			slog.Error("page skipped",
				slog.Int("page", page),
				slog.String("url", target),
				slog.String("category", category),
				slog.Any("error", err),
			)
			e.markFailed(page, target, classified)
		})
	})
}

func (e *Extractor) markFailed(page int, target string, err error) {
	e.mu.Lock()
	e.failed[page] = err
	if target != "" {
		e.failedURLs = append(e.failedURLs, target)
	}
	e.mu.Unlock()
	e.Metrics.IncSkipped()
}

func (e *Extractor) pageError(page int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failed[page]
}

func (e *Extractor) buildResult(start time.Time) *models.ExtractResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := &models.ExtractResult{
		StartTime:      start,
		EndTime:        time.Now(),
		PagesRequested: e.cfg.MaxPages,
		PagesScraped:   len(e.pages),
		FailedURLs:     append([]string(nil), e.failedURLs...),
		ErrorsByType:   make(map[string]int, len(e.errorsByType)),
		ErrorCount:     int(atomic.LoadInt64(&e.errorCount)),
		RetryCount:     e.retry.TotalRetries(),
		RequestCount:   int(atomic.LoadInt64(&e.requestCount)),
	}
	for k, v := range e.errorsByType {
		result.ErrorsByType[k] = v
	}

	indexes := make([]int, 0, len(e.pages))
	for page := range e.pages {
		indexes = append(indexes, page)
	}
	sort.Ints(indexes)
	for _, page := range indexes {
		result.Records = append(result.Records, e.pages[page]...)
	}

	for page := 1; page <= e.cfg.MaxPages; page++ {
		if _, ok := e.pages[page]; !ok {
			result.SkippedPages = append(result.SkippedPages, page)
		}
	}
	return result
}

func pageOf(ctx *colly.Context) int {
	if ctx == nil {
		return 0
	}
	page, _ := ctx.GetAny(pageKey).(int)
	return page
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return ErrConnection{Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch {
		case statusCode == http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case statusCode == http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case statusCode == http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		case statusCode >= http.StatusInternalServerError:
			return ErrServerError{StatusCode: statusCode, Err: wrapped}
		}
	}

	if err == nil {
		return nil
	}
	return err
}
