package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"torrenthive/metasearch/internal/domain"
	"torrenthive/metasearch/internal/providers/mirrors"
	"torrenthive/metasearch/internal/search"
)

type SearchEngine interface {
	Search(ctx context.Context, rawQuery, category string, sink search.Sink) error
	ResolveDownload(ctx context.Context, rawLink string) (string, error)
	Adapters() []domain.AdapterInfo
	AdapterDiagnostics() []domain.AdapterDiagnostics
	Adapter(name string) (search.Adapter, bool)
}

const maxQueryLength = 500

type Server struct {
	engine      SearchEngine
	mirrorStore mirrors.Store
	logger      *slog.Logger

	rateLimitRPS   float64
	rateLimitBurst int
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMirrorStore enables the adapter endpoint settings API backed by the
// given store.
func WithMirrorStore(store mirrors.Store) ServerOption {
	return func(s *Server) {
		s.mirrorStore = store
	}
}

func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		if rps > 0 && burst > 0 {
			s.rateLimitRPS = rps
			s.rateLimitBurst = burst
		}
	}
}

func NewServer(engine SearchEngine, options ...ServerOption) *Server {
	server := &Server{
		engine:         engine,
		logger:         slog.Default(),
		rateLimitRPS:   20,
		rateLimitBurst: 40,
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/search/adapters", s.handleAdapters)
	mux.HandleFunc("/search/adapters/health", s.handleAdaptersHealth)
	mux.HandleFunc("/search/settings/adapters", s.handleAdapterSettings)
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/download", s.handleDownload)
	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "metasearch",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	return recoveryMiddleware(s.logger, rateLimitMiddleware(s.rateLimitRPS, s.rateLimitBurst, metricsMiddleware(traced)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// handleSearch streams resolved records as NDJSON, one record per line, in
// whatever order resolution completes. A search that finds nothing produces
// an empty 200 body; source failures never surface as HTTP errors.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.engine == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search engine is not configured")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}
	if len(query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "query too long (max 500 characters)")
		return
	}
	category := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("category")))

	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "application/x-ndjson; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	encoder := json.NewEncoder(w)
	err := s.engine.Search(r.Context(), query, category, func(record domain.ResolvedRecord) {
		if encodeErr := encoder.Encode(record); encodeErr != nil {
			return // Client disconnected
		}
		if flusher != nil {
			flusher.Flush()
		}
	})
	if err != nil && !errors.Is(err, search.ErrEmptyQuery) {
		// Headers are gone; the empty body is the only answer left.
		s.logger.Warn("search did not start",
			slog.String("query", truncate(query, 80)),
			slog.String("error", err.Error()),
		)
	}
}

// handleDownload resolves one search result link into a downloadable one.
// Magnet and .torrent links echo back unchanged.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/download" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.engine == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search engine is not configured")
		return
	}

	link := strings.TrimSpace(r.URL.Query().Get("link"))
	if link == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "link is required")
		return
	}

	resolved, err := s.engine.ResolveDownload(r.Context(), link)
	if err != nil {
		if errors.Is(err, search.ErrNoLink) {
			writeError(w, http.StatusNotFound, "not_found", "no downloadable link found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "download resolution failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"link": resolved})
}

func (s *Server) handleAdapters(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search/adapters" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.engine == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search engine is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": s.engine.Adapters(),
	})
}

func (s *Server) handleAdaptersHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search/adapters/health" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.engine == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search engine is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"checkedAt": time.Now().UTC(),
		"items":     s.engine.AdapterDiagnostics(),
	})
}

// handleAdapterSettings reads and updates per-adapter endpoint overrides used
// for mirror rotation. PATCH with an empty endpoint clears the override.
func (s *Server) handleAdapterSettings(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search/settings/adapters" {
		http.NotFound(w, r)
		return
	}
	if s.engine == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search engine is not configured")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"items": s.adapterSettings(),
		})
	case http.MethodPatch:
		var payload struct {
			Adapter  string `json:"adapter"`
			Endpoint string `json:"endpoint"`
		}
		if err := decodeJSONBody(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		name := strings.ToLower(strings.TrimSpace(payload.Adapter))
		if name == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "adapter is required")
			return
		}
		adapter, ok := s.engine.Adapter(name)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_request", "unknown adapter")
			return
		}
		setter, ok := adapter.(search.EndpointSetter)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_request", "adapter endpoint is not configurable")
			return
		}

		endpoint := strings.TrimSpace(payload.Endpoint)
		if endpoint != "" {
			setter.SetEndpoint(endpoint)
		}
		if s.mirrorStore != nil {
			if err := s.mirrorStore.Save(r.Context(), name, mirrors.State{Endpoint: endpoint}); err != nil {
				s.logger.Warn("mirror override not persisted",
					slog.String("adapter", name),
					slog.String("error", err.Error()),
				)
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"adapter":  name,
			"endpoint": adapter.BaseURL(),
		})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type adapterSetting struct {
	Name         string `json:"name"`
	Label        string `json:"label"`
	Endpoint     string `json:"endpoint"`
	Configurable bool   `json:"configurable"`
}

func (s *Server) adapterSettings() []adapterSetting {
	infos := s.engine.Adapters()
	items := make([]adapterSetting, 0, len(infos))
	for _, info := range infos {
		configurable := false
		if adapter, ok := s.engine.Adapter(info.Name); ok {
			_, configurable = adapter.(search.EndpointSetter)
		}
		items = append(items, adapterSetting{
			Name:         info.Name,
			Label:        info.Label,
			Endpoint:     info.BaseURL,
			Configurable: configurable,
		})
	}
	return items
}

func decodeJSONBody(r *http.Request, dest any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
