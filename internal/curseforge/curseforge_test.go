package curseforge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mrnavastar/launchcore/internal/httpclient"
)

func withTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	original := apiBase
	apiBase = srv.URL
	t.Cleanup(func() { apiBase = original })
	return New(httpclient.New(), "test-key")
}

func TestCategoriesParsesResponse(t *testing.T) {
	client := withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("x-api-key header = %q, want test-key", r.Header.Get("x-api-key"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":1,"name":"Adventure","iconUrl":"https://icon/1.png","classId":4471}]}`))
	})

	categories, err := client.Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(categories) != 1 || categories[0].Name != "Adventure" {
		t.Errorf("Categories() = %+v, want a single Adventure category", categories)
	}
}

func TestCategoriesReturnsErrorOnServerFailure(t *testing.T) {
	client := withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	if _, err := client.Categories(context.Background()); err == nil {
		t.Error("Categories() on a 500 response succeeded, want error")
	}
}

func TestSearchBuildsQueryAndParsesResults(t *testing.T) {
	var gotQuery map[string][]string
	client := withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string][]string(r.URL.Query())
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":42,"slug":"better-nether","name":"Better Nether","summary":"adds stuff",
			"logo":{"url":"https://icon/42.png"},"downloadCount":9001,"authors":[{"name":"someone"}]}]}`))
	})

	results, err := client.Search(context.Background(), SearchParams{Page: 2, SearchFilter: "nether", SelectedSort: SortPopularity})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	got := results[0]
	if got.ID != 42 || got.Slug != "better-nether" || got.Author != "someone" || got.DownloadCount != 9001 {
		t.Errorf("results[0] = %+v", got)
	}
	if gotQuery["index"][0] != "40" {
		t.Errorf("index query param = %v, want 40 (page 2 * pageSize 20)", gotQuery["index"])
	}
	if gotQuery["sortField"][0] != "Popularity" {
		t.Errorf("sortField query param = %v, want Popularity", gotQuery["sortField"])
	}
}

func TestSearchOmitsOptionalParamsWhenUnset(t *testing.T) {
	var gotQuery map[string][]string
	client := withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string][]string(r.URL.Query())
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[]}`))
	})
	if _, err := client.Search(context.Background(), SearchParams{}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, key := range []string{"gameVersion", "categoryId", "sortField"} {
		if _, ok := gotQuery[key]; ok {
			t.Errorf("query param %q present with default SearchParams, want omitted", key)
		}
	}
}

func TestFileDownloadURLReturnsResolvedURL(t *testing.T) {
	client := withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		wantPath := "/mods/123/files/456/download-url"
		if r.URL.Path != wantPath {
			t.Errorf("request path = %q, want %q", r.URL.Path, wantPath)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":"https://cdn.curseforge.com/files/123/456/mod.jar"}`))
	})

	url, err := client.FileDownloadURL(context.Background(), 123, 456)
	if err != nil {
		t.Fatalf("FileDownloadURL: %v", err)
	}
	if url != "https://cdn.curseforge.com/files/123/456/mod.jar" {
		t.Errorf("url = %q", url)
	}
}
