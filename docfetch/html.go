package docfetch

import (
	"bytes"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// extractHTML sanitizes the page and converts it to markdown. When the
// conversion fails or comes back empty, the visible-text walk of the raw
// DOM is the fallback.
func (f *Fetcher) extractHTML(data []byte, sourceURL string) (string, string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", "", err
	}
	title := findHTMLTitle(doc)

	clean := f.sanitize.Sanitize(string(data))
	md, err := f.md.ConvertString(clean, converter.WithDomain(sourceURL))
	if err == nil && strings.TrimSpace(md) != "" {
		return title, strings.TrimSpace(md), nil
	}

	text := collectHTMLText(doc)
	if title == "" {
		title = firstLine(text)
	}
	return title, text, nil
}

// findHTMLTitle extracts the <title> text.
func findHTMLTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		if n.FirstChild != nil {
			return strings.TrimSpace(n.FirstChild.Data)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findHTMLTitle(c); t != "" {
			return t
		}
	}
	return ""
}

// collectHTMLText extracts all visible text from a node subtree,
// skipping script, style, and noscript content.
func collectHTMLText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
