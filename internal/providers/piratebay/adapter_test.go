package piratebay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"torrenthive/metasearch/internal/domain"
)

const listingPayload = `[
  {"id":"101","name":"Cool Movie 2020 1080p","info_hash":"C9E15763F722F23E98A29DECDFAE341B98D53056","seeders":"120","leechers":"30","size":"1503238553","added":"1600000000","category":"207"},
  {"id":"102","name":"Another Release","info_hash":"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA","seeders":"7","leechers":"1","size":"734003200","added":"0","category":"205"}
]`

const noResultsPayload = `[
  {"id":"0","name":"No results returned","info_hash":"0000000000000000000000000000000000000000","seeders":"0","leechers":"0","size":"0","added":"0","category":"0"}
]`

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(Config{
		Endpoint: server.URL,
		SiteURL:  "https://thepiratebay.example",
		Client:   server.Client(),
	})
}

func TestFetchPageParsesListing(t *testing.T) {
	var gotPath, gotQuery string
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(listingPayload))
	})

	candidates, err := adapter.FetchPage(context.Background(), "cool movie", domain.CategoryMovies, 1)
	if err != nil {
		t.Fatalf("FetchPage returned %v", err)
	}
	if gotPath != "/q.php" {
		t.Fatalf("request path = %q, want /q.php", gotPath)
	}
	if !strings.Contains(gotQuery, "q=cool+movie") || !strings.Contains(gotQuery, "cat=200") {
		t.Fatalf("request query = %q, want encoded query and movies category", gotQuery)
	}
	if len(candidates) != 2 {
		t.Fatalf("parsed %d candidates, want 2", len(candidates))
	}

	first := candidates[0]
	if first.Title != "Cool Movie 2020 1080p" {
		t.Fatalf("title = %q", first.Title)
	}
	if first.InfoHash != "c9e15763f722f23e98a29decdfae341b98d53056" {
		t.Fatalf("info hash = %q, want lowered listing hash", first.InfoHash)
	}
	if first.Seeds != 120 || first.Leeches != 30 {
		t.Fatalf("stats = %d/%d, want 120/30", first.Seeds, first.Leeches)
	}
	if first.Size != "1.4 GB" {
		t.Fatalf("size = %q, want 1.4 GB", first.Size)
	}
	if first.DetailLink != "https://thepiratebay.example/description.php?id=101" {
		t.Fatalf("detail link = %q", first.DetailLink)
	}
	if first.PubDate != 1600000000 {
		t.Fatalf("pub date = %d, want 1600000000", first.PubDate)
	}
	if candidates[1].PubDate != -1 {
		t.Fatalf("missing added timestamp should map to -1, got %d", candidates[1].PubDate)
	}
}

func TestFetchPageSkipsNoResultsSentinel(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(noResultsPayload))
	})

	candidates, err := adapter.FetchPage(context.Background(), "nothing here", domain.CategoryAll, 1)
	if err != nil {
		t.Fatalf("FetchPage returned %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("parsed %d candidates from the no-results sentinel, want 0", len(candidates))
	}
}

func TestFetchPageToleratesBareObjectPayload(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":"over capacity"}`))
	})

	candidates, err := adapter.FetchPage(context.Background(), "anything", domain.CategoryAll, 1)
	if err != nil {
		t.Fatalf("FetchPage returned %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("parsed %d candidates, want 0", len(candidates))
	}
}

func TestFetchPageSecondPageIsEmpty(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("page 2 must not hit the network")
	})
	candidates, err := adapter.FetchPage(context.Background(), "anything", domain.CategoryAll, 2)
	if err != nil || candidates != nil {
		t.Fatalf("page 2 = %v, %v; want nil, nil", candidates, err)
	}
}

func TestResolveLinkBuildsMagnetLocally(t *testing.T) {
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
	if !strings.HasPrefix(link, "magnet:?xt=urn:btih:c9e15763f722f23e98a29decdfae341b98d53056") {
		t.Fatalf("link = %q, want magnet built from the listing hash", link)
	}
	if !strings.Contains(link, "&tr=") {
		t.Fatalf("link = %q, want default trackers attached", link)
	}
}

func TestResolveLinkFallsBackToDetailLookup(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/t.php" || r.URL.Query().Get("id") != "101" {
			t.Fatalf("unexpected detail request %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"name":"Cool Movie","info_hash":"C9E15763F722F23E98A29DECDFAE341B98D53056"}`))
	})

	link, err := adapter.ResolveLink(context.Background(), domain.Candidate{
		DetailLink: "https://thepiratebay.example/description.php?id=101",
	})
	if err != nil {
		t.Fatalf("ResolveLink returned %v", err)
	}
	if !strings.Contains(link, "btih:c9e15763f722f23e98a29decdfae341b98d53056") {
		t.Fatalf("link = %q, want hash from detail lookup", link)
	}
}
