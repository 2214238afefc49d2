package leetx

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"torrenthive/metasearch/internal/domain"
	"torrenthive/metasearch/internal/providers/common"
)

const (
	defaultEndpoint  = "https://1337x.to"
	defaultUserAgent = "torrenthive-metasearch/1.0"
)

var categories = map[domain.Category]string{
	domain.CategoryAll:      "All",
	domain.CategoryMovies:   "Movies",
	domain.CategoryTV:       "TV",
	domain.CategoryMusic:    "Music",
	domain.CategoryGames:    "Games",
	domain.CategoryAnime:    "Anime",
	domain.CategorySoftware: "Apps",
}

type Config struct {
	Endpoint  string
	UserAgent string
	Client    *http.Client
}

// Adapter scrapes the 1337x result tables. Listing pages carry name, seeds,
// leeches and size; the magnet link only appears on the detail page.
type Adapter struct {
	client    *http.Client
	userAgent string

	mu       sync.RWMutex
	endpoint string
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
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Adapter{
		client:    client,
		userAgent: userAgent,
		endpoint:  strings.TrimRight(endpoint, "/"),
	}
}

func (a *Adapter) Name() string  { return "leetx" }
func (a *Adapter) Label() string { return "1337x" }

func (a *Adapter) BaseURL() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.endpoint
}

func (a *Adapter) SetEndpoint(endpoint string) {
	value := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if value == "" {
		return
	}
	a.mu.Lock()
	a.endpoint = value
	a.mu.Unlock()
}

func (a *Adapter) Categories() map[domain.Category]string {
	return categories
}

// PageBudget gives video categories an extra page; they are by far the
// largest on this site.
func (a *Adapter) PageBudget(cat domain.Category) int {
	if cat == domain.CategoryMovies || cat == domain.CategoryTV {
		return 3
	}
	return 2
}

func (a *Adapter) FetchPage(ctx context.Context, query string, cat domain.Category, page int) ([]domain.Candidate, error) {
	base := a.BaseURL()
	searchURL := a.buildSearchURL(base, query, cat, page)

	payload, err := common.FetchText(ctx, a.client, searchURL, a.userAgent)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("parse result page: %w", err)
	}

	var candidates []domain.Candidate
	doc.Find("table.table-list tbody tr").Each(func(_ int, row *goquery.Selection) {
		nameLink := row.Find(`td.name a[href^="/torrent/"]`).First()
		href, ok := nameLink.Attr("href")
		if !ok || strings.TrimSpace(nameLink.Text()) == "" {
			return
		}

		// The size cell nests the seeder count in a span; only the bare
		// text nodes belong to the size.
		sizeText := row.Find("td.size").First().Contents().Not("span").Text()

		candidates = append(candidates, domain.Candidate{
			Title:          strings.TrimSpace(nameLink.Text()),
			DetailLink:     base + href,
			Seeds:          common.ParseIntOrDefault(row.Find("td.seeds").First().Text(), 0),
			Leeches:        common.ParseIntOrDefault(row.Find("td.leeches").First().Text(), 0),
			Size:           common.NormalizeSizeLabel(sizeText),
			SourceCategory: categories[cat],
			PubDate:        -1,
		})
	})
	return candidates, nil
}

func (a *Adapter) buildSearchURL(base, query string, cat domain.Category, page int) string {
	encoded := url.PathEscape(strings.TrimSpace(query))
	if cat == domain.CategoryAll {
		return fmt.Sprintf("%s/search/%s/%d/", base, encoded, page)
	}
	return fmt.Sprintf("%s/category-search/%s/%s/%d/", base, encoded, categories[cat], page)
}

// ResolveLink pulls the magnet URI from the candidate's detail page.
func (a *Adapter) ResolveLink(ctx context.Context, candidate domain.Candidate) (string, error) {
	if strings.TrimSpace(candidate.DetailLink) == "" {
		return "", fmt.Errorf("candidate has no detail link")
	}
	payload, err := common.FetchText(ctx, a.client, candidate.DetailLink, a.userAgent)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("parse detail page: %w", err)
	}

	magnet, ok := doc.Find(`a[href^="magnet:"]`).First().Attr("href")
	if !ok || strings.TrimSpace(magnet) == "" {
		return "", fmt.Errorf("no magnet link on detail page")
	}
	return strings.TrimSpace(magnet), nil
}
