package search

import (
	"context"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"torrenthive/metasearch/internal/domain"
	"torrenthive/metasearch/internal/metrics"
)

// maxConcurrentAdapters bounds how many sources are searched at once so a
// large registry cannot overwhelm the host or the remote sites.
const maxConcurrentAdapters = 10

const (
	defaultSafetyNet      = 5
	defaultResolveWorkers = 10
	defaultTimeout        = 15 * time.Second
)

var illegalNameChars = strings.NewReplacer(
	`\`, "", `/`, "", `*`, "", `?`, "", `:`, "", `"`, "", `<`, "", `>`, "", `|`, "",
)

// Engine coordinates the whole metasearch: query normalization, the two-pass
// fetch against every registered adapter, per-source deduplication, relevance
// scoring, candidate selection, and the parallel link-resolution step that
// streams resolved records to the caller's sink.
//
// An Engine holds no per-search state; Search may be called concurrently.
type Engine struct {
	adapters []Adapter
	byName   map[string]Adapter

	safetyNet      int
	resolveWorkers int64
	timeout        time.Duration
	logger         *slog.Logger

	healthMu sync.Mutex
	health   map[string]*adapterHealth
}

type Option func(*Engine)

// WithSafetyNet sets how many below-top-tier candidates are still resolved.
func WithSafetyNet(count int) Option {
	return func(e *Engine) {
		if count >= 0 {
			e.safetyNet = count
		}
	}
}

// WithResolveWorkers bounds the concurrency of the link-resolution pool.
func WithResolveWorkers(workers int) Option {
	return func(e *Engine) {
		if workers > 0 {
			e.resolveWorkers = int64(workers)
		}
	}
}

// WithTimeout caps one whole search run when the caller's context carries no
// deadline of its own.
func WithTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func NewEngine(adapters []Adapter, opts ...Option) *Engine {
	engine := &Engine{
		byName:         make(map[string]Adapter, len(adapters)),
		safetyNet:      defaultSafetyNet,
		resolveWorkers: defaultResolveWorkers,
		timeout:        defaultTimeout,
		logger:         slog.Default(),
		health:         make(map[string]*adapterHealth),
	}
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(adapter.Name()))
		if name == "" {
			continue
		}
		if _, exists := engine.byName[name]; exists {
			continue
		}
		engine.byName[name] = adapter
		engine.adapters = append(engine.adapters, adapter)
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

func (e *Engine) Adapters() []domain.AdapterInfo {
	items := make([]domain.AdapterInfo, 0, len(e.adapters))
	for _, adapter := range e.adapters {
		categories := make([]string, 0, len(adapter.Categories()))
		for cat := range adapter.Categories() {
			categories = append(categories, string(cat))
		}
		sort.Strings(categories)
		items = append(items, domain.AdapterInfo{
			Name:       adapter.Name(),
			Label:      adapter.Label(),
			BaseURL:    adapter.BaseURL(),
			Categories: categories,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})
	return items
}

// Adapter returns the registered adapter with the given name, if any.
func (e *Engine) Adapter(name string) (Adapter, bool) {
	adapter, ok := e.byName[strings.ToLower(strings.TrimSpace(name))]
	return adapter, ok
}

// Search runs the full metasearch for one query and streams zero or more
// resolved records to sink. Source failures are absorbed and surface only as
// an empty (or thinner) emission stream; the returned error covers the two
// cases where no search could start at all.
func (e *Engine) Search(ctx context.Context, rawQuery, category string, sink Sink) error {
	if len(e.adapters) == 0 {
		return ErrNoAdapters
	}
	if sink == nil {
		sink = func(domain.ResolvedRecord) {}
	}

	runCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	decoded := decodeQuery(rawQuery)
	keywords := ExtractKeywords(decoded)
	conservative := ConservativeClean(decoded)
	if conservative == "" {
		e.logger.Debug("search skipped: query empty after cleaning",
			slog.String("rawQuery", rawQuery))
		return ErrEmptyQuery
	}
	aggressive := AggressiveClean(decoded)
	cat := domain.NormalizeCategory(category)

	startedAt := time.Now()
	e.logger.Info("search started",
		slog.String("query", conservative),
		slog.String("category", string(cat)),
		slog.Int("adapters", len(e.adapters)),
	)

	// Emission is serialized so the sink never sees concurrent calls.
	var emitMu sync.Mutex
	emitted := 0
	emit := func(record domain.ResolvedRecord) {
		emitMu.Lock()
		defer emitMu.Unlock()
		emitted++
		sink(record)
	}

	sem := semaphore.NewWeighted(maxConcurrentAdapters)
	var wg sync.WaitGroup
	for _, adapter := range e.adapters {
		if _, supported := adapter.Categories()[cat]; !supported {
			continue
		}
		wg.Add(1)
		go func(a Adapter) {
			defer wg.Done()
			if err := sem.Acquire(runCtx, 1); err != nil {
				return
			}
			defer sem.Release(1)
			e.searchAdapter(runCtx, a, conservative, aggressive, keywords, cat, emit)
		}(adapter)
	}
	wg.Wait()

	e.logger.Info("search completed",
		slog.String("query", conservative),
		slog.Int("emitted", emitted),
		slog.Int64("elapsedMs", time.Since(startedAt).Milliseconds()),
	)
	return nil
}

// searchAdapter runs the complete per-source pipeline: both cleaning passes,
// dedup, scoring, selection, and parallel link resolution.
func (e *Engine) searchAdapter(ctx context.Context, adapter Adapter, conservative, aggressive string, keywords KeywordSet, cat domain.Category, emit Sink) {
	name := adapter.Name()

	passOne := e.runPass(ctx, adapter, conservative, cat)

	// Pass 2 only buys anything when the aggressive form actually differs;
	// an identical second pass would waste a full round of fetches.
	var passTwo []domain.Candidate
	if !strings.EqualFold(aggressive, conservative) {
		passTwo = e.runPass(ctx, adapter, aggressive, cat)
	}

	merged := mergeByKey(passOne, passTwo)
	if len(merged) == 0 {
		e.logger.Debug("no candidates from source",
			slog.String("adapter", name),
			slog.String("query", conservative),
		)
		return
	}

	scored := scoreCandidates(merged, keywords)
	sortByRelevance(scored)
	selected := selectForResolution(scored, e.safetyNet)

	e.logger.Debug("candidates selected for resolution",
		slog.String("adapter", name),
		slog.Int("candidates", len(merged)),
		slog.Int("selected", len(selected)),
	)

	sem := semaphore.NewWeighted(e.resolveWorkers)
	var wg sync.WaitGroup
	for _, candidate := range selected {
		wg.Add(1)
		go func(c domain.ScoredCandidate) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)

			var link string
			err := retryWithBackoff(ctx, defaultRetryConfig(), func() error {
				var resolveErr error
				link, resolveErr = adapter.ResolveLink(ctx, c.Candidate)
				return resolveErr
			})
			if err != nil || strings.TrimSpace(link) == "" {
				// Partial success is expected; unresolvable candidates are
				// dropped, never emitted with a placeholder link.
				metrics.LinkResolutionsTotal.WithLabelValues(name, "failed").Inc()
				return
			}
			metrics.LinkResolutionsTotal.WithLabelValues(name, "ok").Inc()
			metrics.RecordsEmittedTotal.WithLabelValues(name).Inc()
			emit(buildRecord(adapter, c, link))
		}(candidate)
	}
	wg.Wait()
}

// runPass fetches every budgeted page of one cleaned query concurrently and
// pools the candidates. Individual page failures yield zero candidates from
// that page only.
func (e *Engine) runPass(ctx context.Context, adapter Adapter, query string, cat domain.Category) []domain.Candidate {
	if query == "" {
		return nil
	}
	name := adapter.Name()
	if e.isAdapterBlocked(name, time.Now()) {
		e.logger.Debug("adapter temporarily blocked", slog.String("adapter", name))
		return nil
	}

	budget := adapter.PageBudget(cat)
	if budget < 1 {
		budget = 1
	}

	var mu sync.Mutex
	var pooled []domain.Candidate
	var wg sync.WaitGroup
	for page := 1; page <= budget; page++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()

			var candidates []domain.Candidate
			fetchStartedAt := time.Now()
			err := retryWithBackoff(ctx, defaultRetryConfig(), func() error {
				var fetchErr error
				candidates, fetchErr = adapter.FetchPage(ctx, query, cat, page)
				return fetchErr
			})
			e.recordFetchResult(name, query, err, time.Since(fetchStartedAt))
			if err != nil {
				e.logger.Warn("page fetch failed",
					slog.String("adapter", name),
					slog.String("query", query),
					slog.Int("page", page),
					slog.String("error", err.Error()),
				)
				return
			}

			mu.Lock()
			pooled = append(pooled, candidates...)
			mu.Unlock()
		}(page)
	}
	wg.Wait()
	return pooled
}

// ResolveDownload turns a search result link into a downloadable one. Magnet
// and .torrent links pass straight through; anything else is treated as a
// detail-page URL and resolved once more via the adapter that owns its host.
// An empty string (with ErrNoLink) means resolution failed softly.
func (e *Engine) ResolveDownload(ctx context.Context, rawLink string) (string, error) {
	link := strings.TrimSpace(rawLink)
	if link == "" {
		return "", ErrNoLink
	}
	if strings.HasPrefix(link, "magnet:") || strings.HasSuffix(link, ".torrent") {
		return link, nil
	}

	parsed, err := url.Parse(link)
	if err != nil {
		return "", ErrNoLink
	}
	for _, adapter := range e.adapters {
		base, baseErr := url.Parse(adapter.BaseURL())
		if baseErr != nil || !strings.EqualFold(base.Host, parsed.Host) {
			continue
		}
		resolved, resolveErr := adapter.ResolveLink(ctx, domain.Candidate{DetailLink: link})
		if resolveErr != nil || strings.TrimSpace(resolved) == "" {
			return "", ErrNoLink
		}
		return resolved, nil
	}
	return "", ErrNoLink
}

func buildRecord(adapter Adapter, candidate domain.ScoredCandidate, link string) domain.ResolvedRecord {
	pubDate := candidate.PubDate
	if pubDate == 0 {
		pubDate = -1
	}
	return domain.ResolvedRecord{
		Link:      link,
		Name:      SanitizeTitle(candidate.Title),
		Size:      candidate.Size,
		Seeds:     candidate.Seeds,
		Leech:     candidate.Leeches,
		EngineURL: adapter.BaseURL(),
		DescLink:  candidate.DetailLink,
		PubDate:   pubDate,
	}
}

// SanitizeTitle strips characters that are illegal in filesystem paths, since
// hosts commonly use the record name as a download file name.
func SanitizeTitle(title string) string {
	return strings.TrimSpace(illegalNameChars.Replace(title))
}

// decodeQuery percent-decodes a caller-supplied query, falling back to the
// raw form when it is not valid percent-encoding.
func decodeQuery(raw string) string {
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}
