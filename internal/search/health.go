package search

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"torrenthive/metasearch/internal/domain"
	"torrenthive/metasearch/internal/metrics"
)

const (
	adapterFailureThreshold = 3
	adapterBlockBase        = 2 * time.Minute
	adapterBlockMax         = 15 * time.Minute
)

// adapterHealth tracks per-adapter fetch outcomes for the circuit breaker and
// the diagnostics endpoint. An adapter whose page fetches keep failing is
// blocked for an exponentially growing window instead of burning a slice of
// every search's timeout.
type adapterHealth struct {
	consecutiveFailures int
	blockedUntil        time.Time
	lastError           string
	lastLatency         time.Duration
	lastQuery           string
	totalFetches        int64
	totalFailures       int64
	timeoutCount        int64
}

func (e *Engine) isAdapterBlocked(name string, now time.Time) bool {
	e.healthMu.Lock()
	defer e.healthMu.Unlock()

	state := e.health[name]
	if state == nil {
		return false
	}
	return !state.blockedUntil.IsZero() && now.Before(state.blockedUntil)
}

func (e *Engine) recordFetchResult(name, query string, err error, latency time.Duration) {
	e.healthMu.Lock()
	defer e.healthMu.Unlock()

	state := e.health[name]
	if state == nil {
		state = &adapterHealth{}
		e.health[name] = state
	}
	state.totalFetches++
	state.lastQuery = strings.TrimSpace(query)
	if latency > 0 {
		state.lastLatency = latency
		metrics.PageFetchDuration.WithLabelValues(name).Observe(latency.Seconds())
	}

	if err == nil {
		state.consecutiveFailures = 0
		state.blockedUntil = time.Time{}
		state.lastError = ""
		metrics.PageFetchesTotal.WithLabelValues(name, "ok").Inc()
		metrics.AdapterAvailable.WithLabelValues(name).Set(1)
		return
	}

	state.consecutiveFailures++
	state.totalFailures++
	state.lastError = err.Error()

	status := "error"
	if isTimeoutLikeError(err) {
		state.timeoutCount++
		status = "timeout"
	}
	metrics.PageFetchesTotal.WithLabelValues(name, status).Inc()

	if state.consecutiveFailures >= adapterFailureThreshold {
		state.blockedUntil = time.Now().Add(blockDuration(state.consecutiveFailures))
		metrics.AdapterAvailable.WithLabelValues(name).Set(0)
	}
}

// blockDuration grows the block window as failures pile up:
// base × 2^(failures - threshold), capped at adapterBlockMax.
func blockDuration(consecutiveFailures int) time.Duration {
	exponent := consecutiveFailures - adapterFailureThreshold
	if exponent < 0 {
		exponent = 0
	}
	d := adapterBlockBase
	for i := 0; i < exponent; i++ {
		d *= 2
		if d > adapterBlockMax {
			return adapterBlockMax
		}
	}
	return d
}

func isTimeoutLikeError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "timeout") || strings.Contains(value, "deadline exceeded")
}

func (e *Engine) AdapterDiagnostics() []domain.AdapterDiagnostics {
	e.healthMu.Lock()
	defer e.healthMu.Unlock()

	items := make([]domain.AdapterDiagnostics, 0, len(e.adapters))
	for _, adapter := range e.adapters {
		name := adapter.Name()
		item := domain.AdapterDiagnostics{
			Name:  name,
			Label: adapter.Label(),
		}
		if state := e.health[name]; state != nil {
			item.ConsecutiveFailures = state.consecutiveFailures
			if !state.blockedUntil.IsZero() {
				item.BlockedUntil = state.blockedUntil.UTC().Format(time.RFC3339)
			}
			item.LastError = state.lastError
			item.LastLatencyMS = state.lastLatency.Milliseconds()
			item.LastQuery = state.lastQuery
			item.TotalFetches = state.totalFetches
			item.TotalFailures = state.totalFailures
			item.TimeoutCount = state.timeoutCount
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})
	return items
}
