package ytsmx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"torrenthive/metasearch/internal/domain"
	"torrenthive/metasearch/internal/providers/common"
)

const (
	defaultEndpoint  = "https://yts.mx"
	defaultUserAgent = "torrenthive-metasearch/1.0"
	pageLimit        = 50
)

var defaultTrackers = []string{
	"udp://open.demonii.com:1337/announce",
	"udp://tracker.openbittorrent.com:80",
	"udp://tracker.opentrackr.org:1337/announce",
	"udp://p4p.arenabg.com:1337/announce",
}

// YTS only indexes movies.
var categories = map[domain.Category]string{
	domain.CategoryAll:    "0",
	domain.CategoryMovies: "1",
}

type Config struct {
	Endpoint  string
	UserAgent string
	Trackers  []string
	Client    *http.Client
}

// Adapter queries the YTS JSON API. Every movie entry ships one torrent per
// release quality, each with its own info hash.
type Adapter struct {
	client    *http.Client
	endpoint  string
	userAgent string
	trackers  []string
}

type apiResponse struct {
	Status string `json:"status"`
	Data   struct {
		MovieCount int        `json:"movie_count"`
		Movies     []apiMovie `json:"movies"`
	} `json:"data"`
}

type apiMovie struct {
	URL       string       `json:"url"`
	Title     string       `json:"title"`
	TitleLong string       `json:"title_long"`
	Torrents  []apiTorrent `json:"torrents"`
}

type apiTorrent struct {
	Hash             string `json:"hash"`
	Quality          string `json:"quality"`
	Type             string `json:"type"`
	VideoCodec       string `json:"video_codec"`
	Size             string `json:"size"`
	Seeds            int    `json:"seeds"`
	Peers            int    `json:"peers"`
	DateUploadedUnix int64  `json:"date_uploaded_unix"`
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
	trackers := cfg.Trackers
	if len(trackers) == 0 {
		trackers = append([]string(nil), defaultTrackers...)
	}
	return &Adapter{
		client:    client,
		endpoint:  strings.TrimRight(endpoint, "/"),
		userAgent: userAgent,
		trackers:  trackers,
	}
}

func (a *Adapter) Name() string    { return "ytsmx" }
func (a *Adapter) Label() string   { return "YTS.MX" }
func (a *Adapter) BaseURL() string { return a.endpoint }

func (a *Adapter) Categories() map[domain.Category]string {
	return categories
}

func (a *Adapter) PageBudget(domain.Category) int { return 2 }

func (a *Adapter) FetchPage(ctx context.Context, query string, _ domain.Category, page int) ([]domain.Candidate, error) {
	searchURL := fmt.Sprintf("%s/api/v2/list_movies.json?query_term=%s&limit=%d&page=%d",
		a.endpoint, url.QueryEscape(strings.TrimSpace(query)), pageLimit, page)

	payload, err := common.FetchText(ctx, a.client, searchURL, a.userAgent)
	if err != nil {
		return nil, err
	}

	var response apiResponse
	if err := json.Unmarshal([]byte(payload), &response); err != nil {
		return nil, fmt.Errorf("unexpected yts payload: %w", err)
	}
	if response.Status != "ok" || response.Data.MovieCount == 0 {
		return nil, nil
	}

	var candidates []domain.Candidate
	for _, movie := range response.Data.Movies {
		title := strings.TrimSpace(movie.TitleLong)
		if title == "" {
			title = strings.TrimSpace(movie.Title)
		}
		if title == "" {
			continue
		}
		for _, torrent := range movie.Torrents {
			hash := common.NormalizeInfoHash(torrent.Hash)
			if hash == "" {
				continue
			}
			candidates = append(candidates, domain.Candidate{
				Title:          releaseName(title, torrent),
				DetailLink:     strings.TrimSpace(movie.URL),
				Seeds:          maxInt(torrent.Seeds, 0),
				Leeches:        maxInt(torrent.Peers, 0),
				Size:           common.NormalizeSizeLabel(torrent.Size),
				SourceCategory: "movies",
				InfoHash:       hash,
				PubDate:        pubDate(torrent.DateUploadedUnix),
			})
		}
	}
	return candidates, nil
}

// ResolveLink never touches the network: the listing already carried the
// info hash.
func (a *Adapter) ResolveLink(_ context.Context, candidate domain.Candidate) (string, error) {
	if candidate.InfoHash == "" {
		return "", fmt.Errorf("candidate carries no info hash")
	}
	return common.BuildMagnet(candidate.InfoHash, candidate.Title, a.trackers), nil
}

func releaseName(title string, torrent apiTorrent) string {
	parts := []string{title}
	for _, tag := range []string{torrent.Quality, torrent.VideoCodec, torrent.Type} {
		if value := strings.TrimSpace(tag); value != "" {
			parts = append(parts, "["+value+"]")
		}
	}
	parts = append(parts, "[YTS.MX]")
	return strings.Join(parts, " ")
}

func pubDate(unix int64) int64 {
	if unix <= 0 {
		return -1
	}
	return unix
}

func maxInt(value, floor int) int {
	if value < floor {
		return floor
	}
	return value
}
