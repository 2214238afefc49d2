package bitsearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"torrenthive/metasearch/internal/domain"
	"torrenthive/metasearch/internal/providers/common"
)

const (
	defaultEndpoint  = "https://bitsearch.to"
	defaultUserAgent = "torrenthive-metasearch/1.0"
)

var categories = map[domain.Category]string{
	domain.CategoryAll:      "",
	domain.CategoryMovies:   "1",
	domain.CategoryTV:       "2",
	domain.CategoryGames:    "3",
	domain.CategoryMusic:    "4",
	domain.CategorySoftware: "5",
	domain.CategoryAnime:    "6",
}

// The site renders each result as one <li class="search-result"> card. The
// markup is too irregular for a DOM walk to buy much, so the card is mined
// with targeted regexes instead.
var (
	titlePattern    = regexp.MustCompile(`(?s)<h5[^>]*>\s*<a\s+href="(/torrents/[^"]+)"[^>]*>(.*?)</a>`)
	statPattern     = regexp.MustCompile(`(?s)<img[^>]*>\s*([^<]+?)\s*</div>`)
	magnetPattern   = regexp.MustCompile(`href="(magnet:\?[^"]+)"`)
	infoHashPattern = regexp.MustCompile(`btih:([0-9a-fA-F]{40})`)
)

type Config struct {
	Endpoint  string
	UserAgent string
	Client    *http.Client
}

type Adapter struct {
	client    *http.Client
	endpoint  string
	userAgent string
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
		endpoint:  strings.TrimRight(endpoint, "/"),
		userAgent: userAgent,
	}
}

func (a *Adapter) Name() string    { return "bitsearch" }
func (a *Adapter) Label() string   { return "BitSearch" }
func (a *Adapter) BaseURL() string { return a.endpoint }

func (a *Adapter) Categories() map[domain.Category]string {
	return categories
}

func (a *Adapter) PageBudget(domain.Category) int { return 2 }

func (a *Adapter) FetchPage(ctx context.Context, query string, cat domain.Category, page int) ([]domain.Candidate, error) {
	searchURL := fmt.Sprintf("%s/search?q=%s&page=%d",
		a.endpoint, url.QueryEscape(strings.TrimSpace(query)), page)
	if id := categories[cat]; id != "" {
		searchURL += "&category=" + id
	}

	payload, err := common.FetchText(ctx, a.client, searchURL, a.userAgent)
	if err != nil {
		return nil, err
	}

	var candidates []domain.Candidate
	blocks := strings.Split(payload, `<li class="search-result`)
	for _, block := range blocks[1:] {
		candidate, ok := a.parseCard(block, cat)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

// parseCard extracts one candidate from a result card. The stats row lists
// category, size, seeders, leechers and date in that order, each as an icon
// followed by its value.
func (a *Adapter) parseCard(block string, cat domain.Category) (domain.Candidate, bool) {
	title := titlePattern.FindStringSubmatch(block)
	if title == nil {
		return domain.Candidate{}, false
	}
	name := common.CleanHTMLText(title[2])
	if name == "" {
		return domain.Candidate{}, false
	}

	stats := statPattern.FindAllStringSubmatch(block, -1)
	sourceCategory, size := "", ""
	seeds, leeches := 0, 0
	if len(stats) >= 4 {
		sourceCategory = common.CleanHTMLText(stats[0][1])
		size = common.NormalizeSizeLabel(stats[1][1])
		seeds = common.ParseIntOrDefault(stripThousands(stats[2][1]), 0)
		leeches = common.ParseIntOrDefault(stripThousands(stats[3][1]), 0)
	}
	if sourceCategory == "" {
		sourceCategory = string(cat)
	}

	infoHash := ""
	if magnet := magnetPattern.FindStringSubmatch(block); magnet != nil {
		if hash := infoHashPattern.FindStringSubmatch(magnet[1]); hash != nil {
			infoHash = common.NormalizeInfoHash(hash[1])
		}
	}

	return domain.Candidate{
		Title:          name,
		DetailLink:     a.endpoint + title[1],
		Seeds:          seeds,
		Leeches:        leeches,
		Size:           size,
		SourceCategory: sourceCategory,
		InfoHash:       infoHash,
		PubDate:        -1,
	}, true
}

// ResolveLink prefers the info hash captured from the listing card. Cards
// without one (and bare detail links from download resolution) fall back to
// one detail-page fetch.
func (a *Adapter) ResolveLink(ctx context.Context, candidate domain.Candidate) (string, error) {
	if candidate.InfoHash != "" {
		return common.BuildMagnet(candidate.InfoHash, candidate.Title, nil), nil
	}
	if strings.TrimSpace(candidate.DetailLink) == "" {
		return "", fmt.Errorf("candidate has no detail link")
	}

	payload, err := common.FetchText(ctx, a.client, candidate.DetailLink, a.userAgent)
	if err != nil {
		return "", err
	}
	magnet := magnetPattern.FindStringSubmatch(payload)
	if magnet == nil {
		return "", fmt.Errorf("no magnet link on detail page")
	}
	return magnet[1], nil
}

func stripThousands(raw string) string {
	return strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
}
