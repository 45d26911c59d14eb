package wikipedia

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"wiki-quiz/internal/domain"
	"wiki-quiz/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	otterURL   = "https://en.wikipedia.org/wiki/Otter"
	otterPage  = "/wiki/Otter"
	otterREST  = "/api/rest_v1/page/summary/Otter"
	otterProse = "Otters are carnivorous mammals in the subfamily Lutrinae. The 14 extant otter species are all semiaquatic."
)

// routedTransport sends every request to the test server while recording the
// path that was originally requested.
type routedTransport struct {
	target    *url.URL
	failPaths map[string]bool

	mu     sync.Mutex
	calls  map[string]int
	agents []string
}

func newRoutedTransport(t *testing.T, handler http.Handler) *routedTransport {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	target, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return &routedTransport{target: target, failPaths: map[string]bool{}, calls: map[string]int{}}
}

func (rt *routedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.mu.Lock()
	rt.calls[req.URL.Path]++
	rt.agents = append(rt.agents, req.Header.Get("User-Agent"))
	fail := rt.failPaths[req.URL.Path]
	rt.mu.Unlock()

	if fail {
		return nil, errors.New("connection refused")
	}
	out := req.Clone(req.Context())
	out.URL.Scheme = rt.target.Scheme
	out.URL.Host = rt.target.Host
	out.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(out)
}

func (rt *routedTransport) callCount(path string) int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.calls[path]
}

func newTestFetcher(rt http.RoundTripper) *Fetcher {
	return NewFetcher(Config{
		SummaryBaseURL: "https://en.wikipedia.org/api/rest_v1/page/summary",
		UserAgent:      "wiki-quiz-test/1.0",
	}, zap.NewNop(), metrics.Nop(), WithTransport(rt))
}

func writeHTML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

func TestFetchArticle_SummaryHitSkipsPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(otterREST, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"Otter","extract":"` + otterProse + `"}`))
	})
	mux.HandleFunc(otterPage, func(w http.ResponseWriter, r *http.Request) {
		writeHTML(w, "<html></html>")
	})
	rt := newRoutedTransport(t, mux)

	article, err := newTestFetcher(rt).FetchArticle(context.Background(), otterURL)
	require.NoError(t, err)

	assert.Equal(t, "Otter", article.Title)
	assert.Equal(t, otterProse, article.Text)
	assert.Equal(t, domain.ArticleSourceSummary, article.Source)
	assert.Equal(t, 1, rt.callCount(otterREST))
	assert.Equal(t, 0, rt.callCount(otterPage), "page must not be fetched when the summary suffices")
	assert.Equal(t, []string{"wiki-quiz-test/1.0"}, rt.agents)
}

func TestFetchArticle_SummaryWithoutTitleUsesFragment(t *testing.T) {
	rt := newRoutedTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/api/rest_v1/page/summary/Caf%C3%A9" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"extract":"` + otterProse + `"}`))
	}))

	article, err := newTestFetcher(rt).FetchArticle(context.Background(), "https://en.wikipedia.org/wiki/Caf%C3%A9")
	require.NoError(t, err)
	assert.Equal(t, "Café", article.Title)
}

const otterHTML = `<!DOCTYPE html>
<html><body>
<h1 id="firstHeading">Otter</h1>
<p>Navigation text outside the article.</p>
<div id="mw-content-text">
  <table class="infobox"><tr><td><p>Infobox paragraph</p></td></tr></table>
  <p>Otters are   carnivorous mammals<sup>[1]</sup> in the subfamily Lutrinae.</p>
  <style>.x { color: red }</style>
  <script>var tracking = 1;</script>
  <aside><p>Sidebar paragraph</p></aside>
  <figure><p>Figure paragraph</p><figcaption>An otter</figcaption></figure>
  <p>
    They are found on every continent except Australia and Antarctica.
  </p>
  <p>   </p>
</div>
</body></html>`

func TestFetchArticle_SummaryNotFoundFallsBackToPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(otterREST, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc(otterPage, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Accept"), "text/html")
		assert.Equal(t, acceptLanguage, r.Header.Get("Accept-Language"))
		writeHTML(w, otterHTML)
	})
	rt := newRoutedTransport(t, mux)

	article, err := newTestFetcher(rt).FetchArticle(context.Background(), otterURL)
	require.NoError(t, err)

	assert.Equal(t, "Otter", article.Title)
	assert.Equal(t, domain.ArticleSourceHTML, article.Source)
	assert.Equal(t,
		"Otters are carnivorous mammals in the subfamily Lutrinae.\n\n"+
			"They are found on every continent except Australia and Antarctica.",
		article.Text)
	for _, stripped := range []string{"[1]", "Infobox", "Sidebar", "Figure", "tracking", "color", "Navigation"} {
		assert.NotContains(t, article.Text, stripped)
	}
	assert.Equal(t, 1, rt.callCount(otterREST))
	assert.Equal(t, 1, rt.callCount(otterPage))
}

func TestFetchArticle_SummaryUnusableFallsBack(t *testing.T) {
	tests := []struct {
		name    string
		summary http.HandlerFunc
		fail    bool
	}{
		{
			name: "short extract",
			summary: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"title":"Otter","extract":"Otters are mammals."}`))
			},
		},
		{
			name: "malformed json",
			summary: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"title":`))
			},
		},
		{
			name: "server error",
			summary: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
		},
		{
			name: "transport error",
			fail: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			if tt.summary != nil {
				mux.HandleFunc(otterREST, tt.summary)
			}
			mux.HandleFunc(otterPage, func(w http.ResponseWriter, r *http.Request) {
				writeHTML(w, otterHTML)
			})
			rt := newRoutedTransport(t, mux)
			if tt.fail {
				rt.failPaths[otterREST] = true
			}

			article, err := newTestFetcher(rt).FetchArticle(context.Background(), otterURL)
			require.NoError(t, err)
			assert.Equal(t, domain.ArticleSourceHTML, article.Source)
			assert.Equal(t, 1, rt.callCount(otterPage))
		})
	}
}

func TestFetchArticle_ContentUnavailable(t *testing.T) {
	tests := []struct {
		name string
		page string
	}{
		{
			name: "only noise inside container",
			page: `<html><body><h1 id="firstHeading">Otter</h1>
<div id="mw-content-text"><table><tr><td><p>cell</p></td></tr></table><aside><p>aside</p></aside></div>
</body></html>`,
		},
		{
			name: "no container and no paragraphs",
			page: `<html><body><h1 id="firstHeading">Otter</h1><div>loose text</div></body></html>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc(otterREST, http.NotFound)
			mux.HandleFunc(otterPage, func(w http.ResponseWriter, r *http.Request) {
				writeHTML(w, tt.page)
			})
			rt := newRoutedTransport(t, mux)

			article, err := newTestFetcher(rt).FetchArticle(context.Background(), otterURL)
			assert.Nil(t, article)
			require.Error(t, err)
			assert.True(t, domain.HasCode(err, domain.CodeContentUnavailable))
		})
	}
}

func TestFetchArticle_NoContainerUsesAllParagraphs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(otterREST, http.NotFound)
	mux.HandleFunc(otterPage, func(w http.ResponseWriter, r *http.Request) {
		writeHTML(w, `<html><body><p>First paragraph.</p><div><p>Second paragraph.</p></div></body></html>`)
	})
	rt := newRoutedTransport(t, mux)

	article, err := newTestFetcher(rt).FetchArticle(context.Background(), otterURL)
	require.NoError(t, err)
	assert.Equal(t, "Otter", article.Title, "title falls back to the URL fragment")
	assert.Equal(t, "First paragraph.\n\nSecond paragraph.", article.Text)
}

func TestFetchArticle_PageHTTPError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(otterREST, http.NotFound)
	mux.HandleFunc(otterPage, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	rt := newRoutedTransport(t, mux)

	_, err := newTestFetcher(rt).FetchArticle(context.Background(), otterURL)
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
	assert.Equal(t, otterURL, httpErr.URL)
}

func TestFetchArticle_InvalidInput(t *testing.T) {
	f := NewFetcher(Config{}, zap.NewNop(), nil)

	for _, raw := range []string{"", "https://example.com/wiki/Otter"} {
		_, err := f.FetchArticle(context.Background(), raw)
		require.Error(t, err, raw)
		assert.True(t, domain.HasCode(err, domain.CodeInvalidInput), raw)
	}
}

func TestArticleFragment(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://en.wikipedia.org/wiki/Otter", "Otter"},
		{"https://en.wikipedia.org/wiki/Caf%C3%A9", "Caf%C3%A9"},
		{"https://en.wikipedia.org/wiki/Sea_otter", "Sea_otter"},
		{"https://en.wikipedia.org/Otter/", "Otter"},
		{"https://en.m.wikipedia.org/wiki/wiki/Otter", "Otter"},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.raw)
		require.NoError(t, err)
		assert.Equal(t, tt.want, articleFragment(u), tt.raw)
		assert.False(t, strings.Contains(decodeFragment(tt.want), "%"), tt.raw)
	}
}
