package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"wiki-quiz/internal/domain"
	"wiki-quiz/internal/metrics"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	tierSummary = "summary"
	tierHTML    = "html"

	acceptHTML     = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptLanguage = "en-US,en;q=0.9"
)

// noiseSelector matches elements that are not article prose: infoboxes,
// footnote markers, embedded styles and scripts, sidebars and figures.
const noiseSelector = "table, sup, style, script, aside, figure"

// Config controls both retrieval tiers.
type Config struct {
	SummaryBaseURL string
	UserAgent      string
	SummaryTimeout time.Duration
	PageTimeout    time.Duration
	MinExtractLen  int
}

// HTTPError is returned when the article page answers with a failure status.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.StatusCode, e.URL)
}

type summaryResponse struct {
	Title   string `json:"title"`
	Extract string `json:"extract"`
}

// Fetcher implements domain.ArticleFetcher. It prefers the REST summary
// endpoint and falls back to scraping the article page.
type Fetcher struct {
	cfg           Config
	summaryClient *http.Client
	pageClient    *http.Client
	logger        *zap.Logger
	metrics       *metrics.Metrics
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithTransport routes both tiers through rt, keeping their timeouts.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Fetcher) {
		f.summaryClient.Transport = rt
		f.pageClient.Transport = rt
	}
}

// NewFetcher creates a Fetcher.
func NewFetcher(cfg Config, logger *zap.Logger, m *metrics.Metrics, opts ...Option) *Fetcher {
	if cfg.SummaryTimeout <= 0 {
		cfg.SummaryTimeout = 10 * time.Second
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = 15 * time.Second
	}
	if cfg.MinExtractLen <= 0 {
		cfg.MinExtractLen = 50
	}
	if m == nil {
		m = metrics.Nop()
	}
	f := &Fetcher{
		cfg:           cfg,
		summaryClient: &http.Client{Timeout: cfg.SummaryTimeout},
		pageClient:    &http.Client{Timeout: cfg.PageTimeout},
		logger:        logger,
		metrics:       m,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchArticle returns the title and plain text of a Wikipedia article.
func (f *Fetcher) FetchArticle(ctx context.Context, rawURL string) (*domain.Article, error) {
	if rawURL == "" || !strings.Contains(rawURL, "wikipedia.org") {
		return nil, domain.NewInvalidInputError("URL must be a Wikipedia article URL")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("malformed URL: %v", err))
	}

	fragment := articleFragment(u)
	if article := f.fetchSummary(ctx, rawURL, fragment); article != nil {
		return article, nil
	}
	return f.fetchPage(ctx, rawURL, fragment)
}

// fetchSummary returns nil whenever the summary tier cannot answer; the
// caller then falls back to the page.
func (f *Fetcher) fetchSummary(ctx context.Context, rawURL, fragment string) *domain.Article {
	endpoint := strings.TrimRight(f.cfg.SummaryBaseURL, "/") + "/" + fragment

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		f.summaryMiss("bad_request", endpoint, err)
		return nil
	}
	f.setHeaders(req)

	resp, err := f.summaryClient.Do(req)
	if err != nil {
		f.summaryMiss("error", endpoint, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.summaryMiss("status", endpoint, fmt.Errorf("status %d", resp.StatusCode))
		return nil
	}

	var payload summaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		f.summaryMiss("decode", endpoint, err)
		return nil
	}

	extract := strings.TrimSpace(payload.Extract)
	if utf8.RuneCountInString(extract) <= f.cfg.MinExtractLen {
		f.summaryMiss("too_short", endpoint, fmt.Errorf("extract has %d characters", utf8.RuneCountInString(extract)))
		return nil
	}

	title := payload.Title
	if title == "" {
		title = decodeFragment(fragment)
	}
	f.metrics.ArticleFetches.WithLabelValues(tierSummary, "ok").Inc()
	return &domain.Article{URL: rawURL, Title: title, Text: extract, Source: domain.ArticleSourceSummary}
}

func (f *Fetcher) summaryMiss(outcome, endpoint string, err error) {
	f.metrics.ArticleFetches.WithLabelValues(tierSummary, outcome).Inc()
	f.logger.Debug("Summary endpoint unusable, falling back to article page",
		zap.String("endpoint", endpoint),
		zap.String("reason", outcome),
		zap.Error(err),
	)
}

func (f *Fetcher) fetchPage(ctx context.Context, rawURL, fragment string) (*domain.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("malformed URL: %v", err))
	}
	f.setHeaders(req)
	req.Header.Set("Accept", acceptHTML)

	resp, err := f.pageClient.Do(req)
	if err != nil {
		f.metrics.ArticleFetches.WithLabelValues(tierHTML, "error").Inc()
		return nil, fmt.Errorf("fetching article page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		f.metrics.ArticleFetches.WithLabelValues(tierHTML, "status").Inc()
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: rawURL}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		f.metrics.ArticleFetches.WithLabelValues(tierHTML, "error").Inc()
		return nil, fmt.Errorf("parsing article page: %w", err)
	}

	title := collapseSpace(doc.Find("h1#firstHeading").First().Text())
	if title == "" {
		title = decodeFragment(fragment)
	}

	text := extractProse(doc)
	if text == "" {
		f.metrics.ArticleFetches.WithLabelValues(tierHTML, "empty").Inc()
		return nil, domain.NewContentUnavailableError(rawURL)
	}

	f.metrics.ArticleFetches.WithLabelValues(tierHTML, "ok").Inc()
	return &domain.Article{URL: rawURL, Title: title, Text: text, Source: domain.ArticleSourceHTML}, nil
}

func (f *Fetcher) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept-Language", acceptLanguage)
}

// extractProse joins the paragraphs of the main content container. Pages
// without the container degrade to every paragraph in the document.
func extractProse(doc *goquery.Document) string {
	content := doc.Find("div#mw-content-text").First()
	if content.Length() == 0 {
		return joinParagraphs(doc.Find("p"))
	}
	content.Find(noiseSelector).Remove()
	return joinParagraphs(content.Find("p"))
}

func joinParagraphs(sel *goquery.Selection) string {
	var paragraphs []string
	sel.Each(func(_ int, p *goquery.Selection) {
		if txt := collapseSpace(p.Text()); txt != "" {
			paragraphs = append(paragraphs, txt)
		}
	})
	return strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// articleFragment returns the escaped path segment after the last "/wiki/",
// or the last non-empty path segment when the URL has no "/wiki/".
func articleFragment(u *url.URL) string {
	path := u.EscapedPath()
	if i := strings.LastIndex(path, "/wiki/"); i >= 0 {
		return path[i+len("/wiki/"):]
	}
	segments := strings.Split(strings.TrimRight(path, "/"), "/")
	return segments[len(segments)-1]
}

func decodeFragment(fragment string) string {
	decoded, err := url.PathUnescape(fragment)
	if err != nil {
		return fragment
	}
	return decoded
}

var _ domain.ArticleFetcher = (*Fetcher)(nil)
