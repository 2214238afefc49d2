package bitsearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"torrenthive/metasearch/internal/domain"
)

const listingPage = `<!doctype html>
<html><body>
<ul>
<li class="search-result card">
  <h5 class="title w-100"><a href="/torrents/cool-movie-2020/111">Cool Movie 2020 1080p</a></h5>
  <div class="stats">
    <div><img src="/icons/category.svg" alt="">Movies</div>
    <div><img src="/icons/database.svg" alt="">1.4 GB</div>
    <div><img src="/icons/arrow-up.svg" alt="">1,245</div>
    <div><img src="/icons/arrow-down.svg" alt="">87</div>
    <div><img src="/icons/calendar.svg" alt="">Aug 2020</div>
  </div>
  <a class="dl-magnet" href="magnet:?xt=urn:btih:C9E15763F722F23E98A29DECDFAE341B98D53056&amp;dn=Cool+Movie">magnet</a>
</li>
<li class="search-result card">
  <h5 class="title w-100"><a href="/torrents/other-release/222">Other Release</a></h5>
  <div class="stats">
    <div><img src="/icons/category.svg" alt="">TV</div>
    <div><img src="/icons/database.svg" alt="">700 MB</div>
    <div><img src="/icons/arrow-up.svg" alt="">12</div>
    <div><img src="/icons/arrow-down.svg" alt="">4</div>
    <div><img src="/icons/calendar.svg" alt="">Jul 2020</div>
  </div>
</li>
</ul>
</body></html>`

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(Config{
		Endpoint: server.URL,
		Client:   server.Client(),
	})
}

func TestFetchPageParsesCards(t *testing.T) {
	var gotQuery string
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(listingPage))
	})

	candidates, err := adapter.FetchPage(context.Background(), "cool movie", domain.CategoryMovies, 1)
	if err != nil {
		t.Fatalf("FetchPage returned %v", err)
	}
	if !strings.Contains(gotQuery, "q=cool+movie") || !strings.Contains(gotQuery, "category=1") {
		t.Fatalf("request query = %q", gotQuery)
	}
	if len(candidates) != 2 {
		t.Fatalf("parsed %d candidates, want 2", len(candidates))
	}

	first := candidates[0]
	if first.Title != "Cool Movie 2020 1080p" {
		t.Fatalf("title = %q", first.Title)
	}
	if !strings.HasSuffix(first.DetailLink, "/torrents/cool-movie-2020/111") {
		t.Fatalf("detail link = %q", first.DetailLink)
	}
	if first.Seeds != 1245 || first.Leeches != 87 {
		t.Fatalf("stats = %d/%d, want thousands separator handled", first.Seeds, first.Leeches)
	}
	if first.Size != "1.4 GB" {
		t.Fatalf("size = %q", first.Size)
	}
	if first.SourceCategory != "Movies" {
		t.Fatalf("source category = %q", first.SourceCategory)
	}
	if first.InfoHash != "c9e15763f722f23e98a29decdfae341b98d53056" {
		t.Fatalf("info hash = %q, want hash mined from the card magnet", first.InfoHash)
	}
	if candidates[1].InfoHash != "" {
		t.Fatalf("card without a magnet should have no info hash, got %q", candidates[1].InfoHash)
	}
}

func TestFetchPageAllCategoryOmitsParam(t *testing.T) {
	var gotQuery string
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(listingPage))
	})
	if _, err := adapter.FetchPage(context.Background(), "anything", domain.CategoryAll, 1); err != nil {
		t.Fatalf("FetchPage returned %v", err)
	}
	if strings.Contains(gotQuery, "category=") {
		t.Fatalf("all-category search must omit the category param, query = %q", gotQuery)
	}
}

func TestFetchPageEmptyListing(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>0 results</p></body></html>`))
	})
	candidates, err := adapter.FetchPage(context.Background(), "nothing", domain.CategoryAll, 1)
	if err != nil {
		t.Fatalf("FetchPage returned %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("parsed %d candidates, want 0", len(candidates))
	}
}

func TestResolveLinkPrefersCardHash(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("resolution with an info hash must not hit the network")
	})
	link, err := adapter.ResolveLink(context.Background(), domain.Candidate{
		Title:    "Cool Movie",
		InfoHash: "c9e15763f722f23e98a29decdfae341b98d53056",
	})
	if err != nil {
		t.Fatalf("ResolveLink returned %v", err)
	}
	if !strings.HasPrefix(link, "magnet:?xt=urn:btih:c9e15763") {
		t.Fatalf("link = %q", link)
	}
}

func TestResolveLinkFallsBackToDetailPage(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/torrents/other-release/") {
			t.Fatalf("unexpected detail path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`<a href="magnet:?xt=urn:btih:AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAB&dn=Other">magnet</a>`))
	})
	link, err := adapter.ResolveLink(context.Background(), domain.Candidate{
		DetailLink: adapter.BaseURL() + "/torrents/other-release/222",
	})
	if err != nil {
		t.Fatalf("ResolveLink returned %v", err)
	}
	if !strings.Contains(link, "btih:AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAB") {
		t.Fatalf("link = %q", link)
	}
}
