package piratebay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"net/http"

	"torrenthive/metasearch/internal/domain"
	"torrenthive/metasearch/internal/providers/common"
)

const (
	defaultEndpoint  = "https://apibay.org"
	defaultSiteURL   = "https://thepiratebay.org"
	defaultUserAgent = "torrenthive-metasearch/1.0"
)

var defaultTrackers = []string{
	"udp://tracker.opentrackr.org:1337/announce",
	"udp://open.stealth.si:80/announce",
	"udp://tracker.torrent.eu.org:451/announce",
	"udp://exodus.desync.com:6969/announce",
}

var categories = map[domain.Category]string{
	domain.CategoryAll:      "0",
	domain.CategoryMusic:    "100",
	domain.CategoryMovies:   "200",
	domain.CategorySoftware: "300",
	domain.CategoryGames:    "400",
}

type Config struct {
	Endpoint  string
	SiteURL   string
	UserAgent string
	Trackers  []string
	Client    *http.Client
}

// Adapter talks to the apibay JSON API. The API publishes the info hash with
// every listing, so link resolution builds the magnet locally instead of
// fetching a detail page.
type Adapter struct {
	client    *http.Client
	endpoint  string
	siteURL   string
	userAgent string
	trackers  []string
}

type apiItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	InfoHash string `json:"info_hash"`
	Size     string `json:"size"`
	Seeders  string `json:"seeders"`
	Leechers string `json:"leechers"`
	Added    string `json:"added"`
	Category string `json:"category"`
}

func New(cfg Config) *Adapter {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	siteURL := strings.TrimSpace(cfg.SiteURL)
	if siteURL == "" {
		siteURL = defaultSiteURL
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	trackers := cfg.Trackers
	if len(trackers) == 0 {
		trackers = append([]string(nil), defaultTrackers...)
	}
	return &Adapter{
		client:    client,
		endpoint:  strings.TrimRight(endpoint, "/"),
		siteURL:   strings.TrimRight(siteURL, "/"),
		userAgent: userAgent,
		trackers:  trackers,
	}
}

func (a *Adapter) Name() string    { return "piratebay" }
func (a *Adapter) Label() string   { return "The Pirate Bay" }
func (a *Adapter) BaseURL() string { return a.siteURL }

func (a *Adapter) Categories() map[domain.Category]string {
	return categories
}

// PageBudget is 1: the API returns its full top slice in a single response.
func (a *Adapter) PageBudget(domain.Category) int { return 1 }

func (a *Adapter) FetchPage(ctx context.Context, query string, cat domain.Category, page int) ([]domain.Candidate, error) {
	if page > 1 {
		return nil, nil
	}

	searchURL := fmt.Sprintf("%s/q.php?q=%s&cat=%s",
		a.endpoint, url.QueryEscape(strings.TrimSpace(query)), categories[cat])
	payload, err := common.FetchText(ctx, a.client, searchURL, a.userAgent)
	if err != nil {
		return nil, err
	}

	items, err := parseAPIItems([]byte(payload))
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.Candidate, 0, len(items))
	for _, item := range items {
		candidate, ok := a.toCandidate(item)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

func parseAPIItems(payload []byte) ([]apiItem, error) {
	var items []apiItem
	if err := json.Unmarshal(payload, &items); err == nil {
		return items, nil
	}

	// The API answers some errors with a bare object instead of a list.
	var single map[string]any
	if err := json.Unmarshal(payload, &single); err == nil {
		return nil, nil
	}
	return nil, fmt.Errorf("unexpected apibay payload")
}

func (a *Adapter) toCandidate(item apiItem) (domain.Candidate, bool) {
	name := strings.TrimSpace(item.Name)
	infoHash := common.NormalizeInfoHash(item.InfoHash)
	if name == "" || infoHash == "" || infoHash == strings.Repeat("0", 40) {
		return domain.Candidate{}, false
	}
	if strings.Contains(strings.ToLower(name), "no results returned") {
		return domain.Candidate{}, false
	}

	sizeBytes, _ := strconv.ParseInt(strings.TrimSpace(item.Size), 10, 64)
	pubDate := int64(-1)
	if added, err := strconv.ParseInt(strings.TrimSpace(item.Added), 10, 64); err == nil && added > 0 {
		pubDate = added
	}

	detailLink := ""
	if id := strings.TrimSpace(item.ID); id != "" {
		detailLink = a.siteURL + "/description.php?id=" + url.QueryEscape(id)
	}

	return domain.Candidate{
		Title:          name,
		DetailLink:     detailLink,
		Seeds:          common.ParseIntOrDefault(item.Seeders, 0),
		Leeches:        common.ParseIntOrDefault(item.Leechers, 0),
		Size:           common.FormatSize(sizeBytes),
		SourceCategory: strings.TrimSpace(item.Category),
		InfoHash:       infoHash,
		PubDate:        pubDate,
	}, true
}

// ResolveLink builds the magnet from the listing's info hash. Candidates
// arriving without one (the bare detail-link path used by download
// resolution) get a single API lookup by torrent id.
func (a *Adapter) ResolveLink(ctx context.Context, candidate domain.Candidate) (string, error) {
	if candidate.InfoHash != "" {
		return common.BuildMagnet(candidate.InfoHash, candidate.Title, a.trackers), nil
	}

	id, err := torrentID(candidate.DetailLink)
	if err != nil {
		return "", err
	}
	payload, err := common.FetchText(ctx, a.client,
		fmt.Sprintf("%s/t.php?id=%s", a.endpoint, url.QueryEscape(id)), a.userAgent)
	if err != nil {
		return "", err
	}

	var detail struct {
		Name     string `json:"name"`
		InfoHash string `json:"info_hash"`
	}
	if err := json.Unmarshal([]byte(payload), &detail); err != nil {
		return "", fmt.Errorf("unexpected torrent detail payload: %w", err)
	}
	hash := common.NormalizeInfoHash(detail.InfoHash)
	if hash == "" {
		return "", fmt.Errorf("torrent detail carries no info hash")
	}
	return common.BuildMagnet(hash, detail.Name, a.trackers), nil
}

func torrentID(detailLink string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(detailLink))
	if err != nil {
		return "", fmt.Errorf("invalid detail link: %w", err)
	}
	id := strings.TrimSpace(parsed.Query().Get("id"))
	if id == "" {
		return "", fmt.Errorf("detail link carries no torrent id")
	}
	return id, nil
}
