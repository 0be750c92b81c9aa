// Package content turns a URL into plain text suitable for summarization.
package content

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"kmares/pkg/runtime"
	"kmares/pkg/x/htmlutil"
)

const (
	DefaultMaxRunes = 12000
	DefaultMaxItems = 10
	maxBodyBytes    = 5 * 1024 * 1024
	userAgent       = "kmares-content/1.0 (+https://kma.edu.vn)"
)

type Kind string

const (
	KindFeed Kind = "feed"
	KindHTML Kind = "html"
	KindText Kind = "text"
)

type Document struct {
	URL   string
	Kind  Kind
	Title string
	Text  string
}

type Loader struct {
	httpClient *http.Client
	parser     *gofeed.Parser

	// MaxRunes caps Document.Text. Zero means DefaultMaxRunes.
	MaxRunes int
	// MaxItems caps the number of feed items included.
	MaxItems int
}

func NewLoader(httpClient *http.Client) *Loader {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Loader{httpClient: httpClient, parser: gofeed.NewParser()}
}

// Load fetches rawURL and extracts its readable text. Feeds yield the
// newest items; HTML pages yield the title plus headings and paragraphs.
func (l *Loader) Load(ctx context.Context, rawURL string) (Document, error) {
	rawURL = strings.TrimSpace(rawURL)
	if err := runtime.ValidateHTTPURL(rawURL); err != nil {
		return Document{}, fmt.Errorf("content url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Document{}, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/rss+xml,application/atom+xml,text/plain;q=0.8,*/*;q=0.5")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(b))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return Document{}, fmt.Errorf("fetch %s: status=%d: %s", rawURL, resp.StatusCode, msg)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", rawURL, err)
	}

	var doc Document
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	switch {
	case gofeed.DetectFeedType(bytes.NewReader(body)) != gofeed.FeedTypeUnknown:
		doc, err = l.fromFeed(body)
	case strings.Contains(contentType, "html") || looksLikeHTML(body):
		doc, err = fromHTML(body)
	default:
		doc = Document{Kind: KindText, Text: strings.TrimSpace(string(body))}
	}
	if err != nil {
		return Document{}, fmt.Errorf("parse %s: %w", rawURL, err)
	}

	doc.URL = rawURL
	doc.Text = htmlutil.TruncateRunes(doc.Text, l.maxRunes())
	return doc, nil
}

func (l *Loader) maxRunes() int {
	if l.MaxRunes > 0 {
		return l.MaxRunes
	}
	return DefaultMaxRunes
}

func (l *Loader) maxItems() int {
	if l.MaxItems > 0 {
		return l.MaxItems
	}
	return DefaultMaxItems
}

func (l *Loader) fromFeed(body []byte) (Document, error) {
	feed, err := l.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return Document{}, err
	}

	items := append([]*gofeed.Item(nil), feed.Items...)
	sort.SliceStable(items, func(i, j int) bool {
		return itemTime(items[i]).After(itemTime(items[j]))
	})
	if len(items) > l.maxItems() {
		items = items[:l.maxItems()]
	}

	var b strings.Builder
	for _, it := range items {
		if it == nil {
			continue
		}
		title := htmlutil.CleanText(it.Title)
		desc := htmlutil.CleanText(it.Description)
		if desc == "" {
			desc = htmlutil.CleanText(it.Content)
		}
		if title == "" && desc == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("- ")
		b.WriteString(title)
		if desc != "" {
			if title != "" {
				b.WriteString(": ")
			}
			b.WriteString(desc)
		}
	}
	return Document{Kind: KindFeed, Title: strings.TrimSpace(feed.Title), Text: b.String()}, nil
}

func itemTime(it *gofeed.Item) time.Time {
	if it == nil {
		return time.Time{}
	}
	if it.PublishedParsed != nil {
		return *it.PublishedParsed
	}
	if it.UpdatedParsed != nil {
		return *it.UpdatedParsed
	}
	return time.Time{}
}

func fromHTML(body []byte) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Document{}, err
	}
	doc.Find("script, style, noscript, nav, footer, header, form").Remove()

	title := htmlutil.CleanText(doc.Find("title").First().Text())

	var parts []string
	doc.Find("h1, h2, h3, h4, p, li, blockquote, pre").Each(func(i int, s *goquery.Selection) {
		// Nested matches (p inside li) would repeat text.
		if s.ParentsFiltered("p, li, blockquote, pre").Length() > 0 {
			return
		}
		if t := htmlutil.CleanText(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		if t := htmlutil.CleanText(doc.Find("body").Text()); t != "" {
			parts = append(parts, t)
		}
	}
	return Document{Kind: KindHTML, Title: title, Text: strings.Join(parts, "\n")}, nil
}

func looksLikeHTML(body []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(body[:min(len(body), 512)]))
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html")) || bytes.Contains(head, []byte("<body"))
}

// ForPrompt renders the document as prompt input.
func (d Document) ForPrompt() string {
	if d.Title == "" {
		return d.Text
	}
	return d.Title + "\n\n" + d.Text
}
