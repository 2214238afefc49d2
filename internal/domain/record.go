package domain

// Category is the generic category taxonomy requested by callers. Each source
// adapter declares its own mapping from these values to the site's native
// category identifiers; unsupported categories make the adapter sit a search out.
type Category string

const (
	CategoryAll      Category = "all"
	CategoryMovies   Category = "movies"
	CategoryTV       Category = "tv"
	CategoryMusic    Category = "music"
	CategoryGames    Category = "games"
	CategorySoftware Category = "software"
	CategoryAnime    Category = "anime"
)

func NormalizeCategory(raw string) Category {
	switch Category(raw) {
	case CategoryMovies, CategoryTV, CategoryMusic, CategoryGames, CategorySoftware, CategoryAnime:
		return Category(raw)
	default:
		return CategoryAll
	}
}

// Candidate is one unresolved search result from one source, before its
// download link has been fetched.
type Candidate struct {
	Title          string
	DetailLink     string
	Seeds          int
	Leeches        int
	Size           string
	SourceCategory string
	// InfoHash is an optional resolution hint for API-backed sources that
	// publish it on the listing itself, sparing a detail-page round trip.
	InfoHash string
	// PubDate is a Unix timestamp, -1 when the source does not provide one.
	PubDate int64
}

// Key is the identity used to recognize the same result across search passes.
// Sources that publish an info hash get the most stable key; HTML sources fall
// back to the detail link, then to title+size. Identity is scoped per source;
// keys from different adapters never meet.
func (c Candidate) Key() string {
	if c.InfoHash != "" {
		return "hash:" + c.InfoHash
	}
	if c.DetailLink != "" {
		return c.DetailLink
	}
	return c.Title + "|" + c.Size
}

// ScoredCandidate pairs a candidate with its relevance score.
type ScoredCandidate struct {
	Candidate
	Score int
}

// ResolvedRecord is the final record handed to the output sink, one per
// candidate whose download link resolved.
type ResolvedRecord struct {
	Link      string `json:"link"`
	Name      string `json:"name"`
	Size      string `json:"size"`
	Seeds     int    `json:"seeds"`
	Leech     int    `json:"leech"`
	EngineURL string `json:"engine_url"`
	DescLink  string `json:"desc_link"`
	PubDate   int64  `json:"pub_date"`
}

type AdapterInfo struct {
	Name       string   `json:"name"`
	Label      string   `json:"label"`
	BaseURL    string   `json:"baseUrl"`
	Categories []string `json:"categories"`
}

type AdapterDiagnostics struct {
	Name                string `json:"name"`
	Label               string `json:"label"`
	ConsecutiveFailures int    `json:"consecutiveFailures"`
	BlockedUntil        string `json:"blockedUntil,omitempty"`
	LastError           string `json:"lastError,omitempty"`
	LastLatencyMS       int64  `json:"lastLatencyMs,omitempty"`
	LastQuery           string `json:"lastQuery,omitempty"`
	TotalFetches        int64  `json:"totalFetches,omitempty"`
	TotalFailures       int64  `json:"totalFailures,omitempty"`
	TimeoutCount        int64  `json:"timeoutCount,omitempty"`
}
