package docfetch

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// maxXMLDepth bounds element nesting in word/document.xml. Word documents
// nest shallowly; anything deeper is a malformed or hostile file.
const maxXMLDepth = 256

// extractDocx reads word/document.xml out of a .docx archive. The title
// is the first heading-styled paragraph, falling back to the first line.
func extractDocx(data []byte) (string, string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", "", fmt.Errorf("open zip: %w", err)
	}

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", "", fmt.Errorf("word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", "", fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var paragraphs []string
	var title string
	var current strings.Builder
	var inParagraph bool
	var paragraphStyle string
	depth := 0

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth > maxXMLDepth {
				return "", "", fmt.Errorf("xml nesting depth exceeds %d", maxXMLDepth)
			}
			switch {
			case t.Name.Local == "p":
				inParagraph = true
				current.Reset()
				paragraphStyle = ""
			case t.Name.Local == "pStyle" && inParagraph:
				for _, attr := range t.Attr {
					if attr.Name.Local == "val" {
						paragraphStyle = attr.Value
					}
				}
			}

		case xml.CharData:
			if inParagraph {
				current.Write(t)
			}

		case xml.EndElement:
			depth--
			if t.Name.Local == "p" && inParagraph {
				inParagraph = false
				text := strings.TrimSpace(current.String())
				if text == "" {
					continue
				}
				if title == "" && docxIsHeading(paragraphStyle) {
					title = text
				}
				paragraphs = append(paragraphs, text)
			}
		}
	}

	if len(paragraphs) == 0 {
		return "", "", fmt.Errorf("no text content found in document")
	}
	text := strings.Join(paragraphs, "\n")
	if title == "" {
		title = firstLine(text)
	}
	return title, text, nil
}

// docxIsHeading reports whether a paragraph style names a title or
// heading ("Title", "Heading1", "Titre2", ...).
func docxIsHeading(style string) bool {
	lower := strings.ToLower(style)
	if lower == "title" || lower == "subtitle" {
		return true
	}
	for _, prefix := range []string{"heading", "titre"} {
		if rest, ok := strings.CutPrefix(lower, prefix); ok {
			if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
				return true
			}
		}
	}
	return false
}
