// Package docfetch retrieves campaign documents over HTTP and turns them
// into prompt-ready excerpts.
//
// Supported formats:
//   - .pdf   — PDF page text (pdfcpu content streams)
//   - .docx  — Microsoft Word (archive/zip → word/document.xml)
//   - .html  — sanitized and converted to markdown, plain-text fallback
//   - .md    — passthrough with whitespace normalization
//   - .txt   — passthrough with whitespace normalization
//
// Every fetch is SSRF-checked, size-bounded, and truncated to the excerpt
// budget before it reaches a prompt.
package docfetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/figurant/horosafe"
)

// Kind labels what a fetched document is used for downstream.
type Kind string

const (
	// KindComplaint marks case material (legal complaints, filings).
	KindComplaint Kind = "complaint"
	// KindResearch marks uploaded research material.
	KindResearch Kind = "research_upload"
)

// Format identifies a document type.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDocx Format = "docx"
	FormatHTML Format = "html"
	FormatMD   Format = "md"
	FormatTXT  Format = "txt"
)

// Excerpt is the prompt-ready text of one fetched document.
type Excerpt struct {
	URL       string `json:"url"`
	Kind      Kind   `json:"kind"`
	Format    Format `json:"format"`
	Title     string `json:"title,omitempty"`
	Text      string `json:"text"`
	Truncated bool   `json:"truncated,omitempty"`
}

// Config configures the Fetcher.
type Config struct {
	// Timeout is the HTTP timeout. Default: 30s.
	Timeout time.Duration
	// MaxBytes is the maximum document size to download. Default: 20MB.
	MaxBytes int64
	// MaxExcerpt is the excerpt budget in runes. Default: 4000.
	MaxExcerpt int
	// UserAgent sent with requests.
	UserAgent string
	// URLValidator validates URLs before fetch (SSRF prevention).
	// Default: horosafe.ValidateURL.
	URLValidator func(string) error
	// Logger for debug/warn messages.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 20 * 1024 * 1024
	}
	if c.MaxExcerpt <= 0 {
		c.MaxExcerpt = 4000
	}
	if c.UserAgent == "" {
		c.UserAgent = "figurant-docfetch/1.0"
	}
	if c.URLValidator == nil {
		c.URLValidator = horosafe.ValidateURL
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Fetcher downloads documents and extracts excerpt text.
type Fetcher struct {
	client   *http.Client
	cfg      Config
	md       *converter.Converter
	sanitize *bluemonday.Policy
}

// New creates a Fetcher with SSRF protection on redirects.
func New(cfg Config) *Fetcher {
	cfg.defaults()
	validate := cfg.URLValidator
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				if err := validate(req.URL.String()); err != nil {
					return fmt.Errorf("redirect blocked (SSRF): %w", err)
				}
				return nil
			},
		},
		cfg: cfg,
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		sanitize: bluemonday.UGCPolicy(),
	}
}

// FetchExcerpt downloads rawURL, extracts its text, and truncates it to
// the excerpt budget.
func (f *Fetcher) FetchExcerpt(ctx context.Context, rawURL string, kind Kind) (*Excerpt, error) {
	if err := f.cfg.URLValidator(rawURL); err != nil {
		return nil, fmt.Errorf("URL blocked (SSRF): %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d fetching document", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.cfg.MaxBytes {
		return nil, fmt.Errorf("document too large: exceeds %d bytes", f.cfg.MaxBytes)
	}

	format := DetectFormat(rawURL, resp.Header.Get("Content-Type"), body)
	f.cfg.Logger.Debug("extracting document", "url", rawURL, "format", format, "bytes", len(body))

	var title, text string
	switch format {
	case FormatPDF:
		title, text, err = extractPDF(body)
	case FormatDocx:
		title, text, err = extractDocx(body)
	case FormatHTML:
		title, text, err = f.extractHTML(body, rawURL)
	case FormatMD, FormatTXT:
		title, text = extractPlain(body)
	default:
		return nil, fmt.Errorf("unsupported format: %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("extract %s (%s): %w", rawURL, format, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text content in document (%s)", format)
	}

	text, truncated := truncate(text, f.cfg.MaxExcerpt)
	return &Excerpt{
		URL:       rawURL,
		Kind:      kind,
		Format:    format,
		Title:     title,
		Text:      text,
		Truncated: truncated,
	}, nil
}

// DetectFormat resolves a document format from the URL extension, the
// Content-Type header, and magic bytes, in that order.
func DetectFormat(rawURL, contentType string, body []byte) Format {
	if u, err := url.Parse(rawURL); err == nil {
		switch strings.ToLower(path.Ext(u.Path)) {
		case ".pdf":
			return FormatPDF
		case ".docx":
			return FormatDocx
		case ".html", ".htm":
			return FormatHTML
		case ".md", ".markdown":
			return FormatMD
		case ".txt", ".text":
			return FormatTXT
		}
	}

	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "application/pdf"):
		return FormatPDF
	case strings.Contains(ct, "wordprocessingml"):
		return FormatDocx
	case strings.HasPrefix(ct, "text/html"):
		return FormatHTML
	case strings.HasPrefix(ct, "text/markdown"):
		return FormatMD
	case strings.HasPrefix(ct, "text/plain"):
		return FormatTXT
	}

	switch {
	case len(body) >= 5 && string(body[:5]) == "%PDF-":
		return FormatPDF
	case len(body) >= 4 && string(body[:4]) == "PK\x03\x04":
		return FormatDocx
	case strings.Contains(strings.ToLower(string(firstBytes(body, 512))), "<html"):
		return FormatHTML
	}
	return FormatTXT
}

func firstBytes(b []byte, n int) []byte {
	if len(b) < n {
		return b
	}
	return b[:n]
}

// extractPlain handles txt and md bodies: line endings normalized, blank
// runs collapsed, first line kept as title.
func extractPlain(data []byte) (string, string) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var out []string
	blank := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	joined := strings.TrimSpace(strings.Join(out, "\n"))
	return firstLine(joined), joined
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	text = strings.TrimSpace(strings.TrimLeft(text, "# "))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

// truncate cuts text to at most budget runes, marking the cut.
func truncate(text string, budget int) (string, bool) {
	runes := []rune(text)
	if len(runes) <= budget {
		return text, false
	}
	return strings.TrimSpace(string(runes[:budget])) + "...", true
}
