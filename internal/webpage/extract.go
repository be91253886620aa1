package webpage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"
	"github.com/ledongthuc/pdf"
)

const (
	maxPreviewDescriptionRunes = 300
	minFallbackParagraphRunes  = 40
)

var spaceRuns = regexp.MustCompile(`\s+`)

// Preview is the title/description pair shown next to a source URL.
type Preview struct {
	Title       string
	Description string
}

// ExtractPreview pulls a preview out of an HTML page: Open Graph metadata
// first, then plain document structure when a site doesn't carry it. A page
// with neither yields an empty Preview, never an error.
func ExtractPreview(page *Page) Preview {
	og := opengraph.NewOpenGraph()
	var preview Preview
	if err := og.ProcessHTML(bytes.NewReader(page.Body)); err == nil {
		preview.Title = collapseSpace(og.Title)
		preview.Description = collapseSpace(og.Description)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		preview.Description = clipRunes(preview.Description, maxPreviewDescriptionRunes)
		return preview
	}
	if preview.Title == "" {
		preview.Title = fallbackTitle(doc)
	}
	if preview.Description == "" {
		preview.Description = fallbackDescription(doc)
	}
	preview.Description = clipRunes(preview.Description, maxPreviewDescriptionRunes)
	return preview
}

func fallbackTitle(doc *goquery.Document) string {
	if title := collapseSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if h1 := collapseSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return collapseSpace(doc.Find("h2").First().Text())
}

func fallbackDescription(doc *goquery.Document) string {
	if content, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		if desc := collapseSpace(content); desc != "" {
			return desc
		}
	}
	var firstLong string
	doc.Find("p").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := collapseSpace(sel.Text())
		if len([]rune(text)) >= minFallbackParagraphRunes {
			firstLong = text
			return false
		}
		return true
	})
	return firstLong
}

// ExtractText returns the readable text of a page as blank-line separated
// paragraphs: the <p> elements of an HTML document, or the plain text of a
// PDF. Anything else is an error.
func ExtractText(page *Page) (string, error) {
	switch {
	case page.IsHTML():
		return htmlText(page.Body)
	case page.IsPDF():
		return pdfText(page.Body)
	default:
		return "", fmt.Errorf("unsupported content type %q", page.ContentType)
	}
}

func htmlText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	var paragraphs []string
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		if text := collapseSpace(sel.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) == 0 {
		return "", errors.New("no paragraph text found")
	}
	return strings.Join(paragraphs, "\n\n"), nil
}

func pdfText(body []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var builder strings.Builder
	if _, err := io.Copy(&builder, textReader); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	text := collapseSpace(builder.String())
	if text == "" {
		return "", errors.New("pdf contained no text")
	}
	return text, nil
}

func collapseSpace(s string) string {
	return strings.TrimSpace(spaceRuns.ReplaceAllString(s, " "))
}

func clipRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
