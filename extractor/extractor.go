// Package extractor turns raw page markup into structured content:
// sanitized text, paragraph/heading lists, element counts, and the
// capped structured payload used in nerd mode.
package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/uselens/pagelens/models"
)

// Caps on the structured payload. Extras are dropped in document order
// (first N kept), never errored.
const (
	MaxHeadings = 20
	MaxLinks    = 50
	MaxImages   = 30
)

// Fallbacks when the page carries no usable title or description.
const (
	NoTitle       = "No title found"
	NoDescription = "No description available"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Extraction is the raw structured output for one sanitized page.
type Extraction struct {
	Title       string
	Description string

	// BodyText is all text under <body> with whitespace runs collapsed
	// to single spaces and the ends trimmed.
	BodyText string

	// Paragraphs holds the trimmed text of every <p>, in document order.
	Paragraphs []string

	// Headings holds the trimmed text of every h1-h6, in document order,
	// uncapped. The structured payload caps its own copy.
	Headings []string

	ImageCount int
	LinkCount  int

	// Structured is materialized only when requested (nerd mode).
	Structured *models.ExtractedData
}

// WordCount counts whitespace-separated tokens in the extraction's body
// text. Empty content reports zero words.
func (e *Extraction) WordCount() int {
	return len(strings.Fields(e.BodyText))
}

// Extractor derives structured content from sanitized markup.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Run sanitizes rawHTML and extracts title, description, body text,
// paragraphs, headings and counts. The structured payload is built only
// when structured is true.
func (x *Extractor) Run(rawHTML []byte, structured bool) (*Extraction, error) {
	root, err := Sanitize(rawHTML)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeExtraction, "failed to parse page markup", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	ext := &Extraction{
		Title:       extractTitle(doc),
		Description: extractDescription(doc),
		BodyText:    collapseWhitespace(doc.Find("body").Text()),
		ImageCount:  doc.Find("img").Length(),
		LinkCount:   doc.Find("a").Length(),
	}

	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		ext.Paragraphs = append(ext.Paragraphs, strings.TrimSpace(s.Text()))
	})
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		ext.Headings = append(ext.Headings, strings.TrimSpace(s.Text()))
	})

	if structured {
		ext.Structured = extractStructured(doc, ext.Headings)
	}

	return ext, nil
}

// extractTitle falls back from <title> to the first <h1>, then to the
// literal NoTitle placeholder.
func extractTitle(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	if h := strings.TrimSpace(doc.Find("h1").First().Text()); h != "" {
		return h
	}
	return NoTitle
}

// extractDescription falls back from meta[name=description] to
// meta[property=og:description], then to the NoDescription placeholder.
func extractDescription(doc *goquery.Document) string {
	if d, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok && d != "" {
		return d
	}
	if d, ok := doc.Find(`meta[property="og:description"]`).First().Attr("content"); ok && d != "" {
		return d
	}
	return NoDescription
}

// extractStructured builds the capped nerd-mode payload in document
// order: first 20 headings, first 50 links, first 30 images.
func extractStructured(doc *goquery.Document, headings []string) *models.ExtractedData {
	data := &models.ExtractedData{
		Headings: capStrings(headings, MaxHeadings),
		Links:    []models.Link{},
		Images:   []models.Image{},
	}

	doc.Find("a").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= MaxLinks {
			return false
		}
		href, _ := s.Attr("href")
		data.Links = append(data.Links, models.Link{
			Text: strings.TrimSpace(s.Text()),
			Href: href,
		})
		return true
	})

	doc.Find("img").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= MaxImages {
			return false
		}
		src, _ := s.Attr("src")
		alt, _ := s.Attr("alt")
		data.Images = append(data.Images, models.Image{Src: src, Alt: alt})
		return true
	})

	return data
}

func capStrings(in []string, n int) []string {
	if len(in) > n {
		in = in[:n]
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
