// Package webapp derives window metadata for browser-hosted applications.
//
// Catalog records for web apps often omit WindowTitle; the browser names
// its window after the page. The prober fetches the app URL and extracts
// the likely title from the document title, Open Graph metadata, or the
// web app manifest, so staged correlation has something to match on.
package webapp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/microcosm-cc/bluemonday"
	"github.com/saintfish/chardet"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/logging"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
)

const (
	// maxProbeBody caps the HTML read; pages beyond this are truncated.
	maxProbeBody = 1 << 20
	// maxManifestBody caps web app manifest reads.
	maxManifestBody = 256 << 10
	// maxTitleLen bounds extracted titles.
	maxTitleLen = 120

	probeTimeout = 5 * time.Second
	cacheTTL     = 10 * time.Minute
)

// Prober resolves expected window titles for web apps. Results are
// cached with a TTL; probe failures degrade to the catalog name.
type Prober struct {
	http      *resty.Client
	sanitizer *bluemonday.Policy
	logger    *logging.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	title   string
	expires time.Time
}

// NewProber creates a prober with its own HTTP client.
func NewProber(logger *logging.Logger) *Prober {
	httpClient := resty.New().
		SetTimeout(probeTimeout).
		SetHeader("User-Agent", "launcherd/1.0").
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))

	return &Prober{
		http:      httpClient,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.Component("webapp-prober"),
		cache:     make(map[string]cacheEntry),
	}
}

// ExpectedTitle returns the title to correlate app's window against.
// Explicit catalog hints win; otherwise the app URL is probed, and on
// failure the display name is used.
func (p *Prober) ExpectedTitle(ctx context.Context, app types.Application) string {
	if app.WindowTitle != "" {
		return app.WindowTitle
	}

	title, err := p.Probe(ctx, app.Path)
	if err != nil || title == "" {
		if err != nil {
			p.logger.Debug("probe failed, using display name",
				zap.String("app_id", app.ID),
				zap.Error(err),
			)
		}
		return app.Name
	}
	return title
}

// Probe fetches rawURL and extracts its window title.
func (p *Prober) Probe(ctx context.Context, rawURL string) (string, error) {
	if cached, ok := p.cached(rawURL); ok {
		return cached, nil
	}

	doc, node, base, err := p.fetchDocument(ctx, rawURL)
	if err != nil {
		return "", err
	}

	title := p.titleFromDocument(doc)
	if title == "" {
		title = p.titleFromManifest(ctx, node, base)
	}
	if title == "" {
		return "", fmt.Errorf("no title in %s", rawURL)
	}

	p.store(rawURL, title)
	return title, nil
}

func (p *Prober) cached(key string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.cache[key]
	if !ok || time.Now().After(entry.expires) {
		return "", false
	}
	return entry.title, true
}

func (p *Prober) store(key, title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache[key] = cacheEntry{title: title, expires: time.Now().Add(cacheTTL)}
}

// fetchDocument downloads the page and parses it twice: goquery for CSS
// selection and htmlquery for xpath. Charset is detected with chardet
// and converted through x/net charset, falling back to direct parsing.
func (p *Prober) fetchDocument(ctx context.Context, rawURL string) (*goquery.Document, *html.Node, *url.URL, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse url: %w", err)
	}

	resp, err := p.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(rawURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fetch: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() >= 400 {
		return nil, nil, nil, fmt.Errorf("fetch: status %d", resp.StatusCode())
	}

	data, err := io.ReadAll(io.LimitReader(body, maxProbeBody))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read body: %w", err)
	}

	utf8Data := toUTF8(data)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(utf8Data))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse html: %w", err)
	}

	node, err := htmlquery.Parse(bytes.NewReader(utf8Data))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse html: %w", err)
	}

	return doc, node, base, nil
}

// toUTF8 converts data to UTF-8 using detected charset, returning the
// input unchanged when detection or conversion fails.
func toUTF8(data []byte) []byte {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return data
	}

	reader, err := charset.NewReaderLabel(strings.ToLower(result.Charset), bytes.NewReader(data))
	if err != nil {
		return data
	}

	converted, err := io.ReadAll(io.LimitReader(reader, maxProbeBody))
	if err != nil {
		return data
	}
	return converted
}

// titleFromDocument tries the document title, then Open Graph metadata.
func (p *Prober) titleFromDocument(doc *goquery.Document) string {
	if title := p.clean(doc.Find("title").First().Text()); title != "" {
		return title
	}

	for _, property := range []string{"og:site_name", "og:title"} {
		selector := fmt.Sprintf(`meta[property=%q]`, property)
		if content, ok := doc.Find(selector).First().Attr("content"); ok {
			if title := p.clean(content); title != "" {
				return title
			}
		}
	}
	return ""
}

// titleFromManifest follows the manifest link and reads its name.
func (p *Prober) titleFromManifest(ctx context.Context, node *html.Node, base *url.URL) string {
	link := htmlquery.FindOne(node, "//link[@rel='manifest']/@href")
	if link == nil {
		return ""
	}

	ref, err := url.Parse(htmlquery.InnerText(link))
	if err != nil {
		return ""
	}
	manifestURL := base.ResolveReference(ref).String()

	resp, err := p.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(manifestURL)
	if err != nil {
		return ""
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() >= 400 {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(body, maxManifestBody))
	if err != nil {
		return ""
	}

	var manifest struct {
		Name      string `json:"name"`
		ShortName string `json:"short_name"`
	}
	if err := sonic.Unmarshal(data, &manifest); err != nil {
		return ""
	}

	if title := p.clean(manifest.Name); title != "" {
		return title
	}
	return p.clean(manifest.ShortName)
}

// clean sanitizes extracted text down to plain title material.
func (p *Prober) clean(raw string) string {
	text := p.sanitizer.Sanitize(raw)
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > maxTitleLen {
		text = text[:maxTitleLen]
	}
	return strings.TrimSpace(text)
}
