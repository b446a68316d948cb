package models

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Storage provenance for a persisted result. "durable" means the store
// assigned the ID; "local" means the store write failed and the ID is a
// synthesized local-<timestamp> fallback.
const (
	StorageDurable = "durable"
	StorageLocal   = "local"
)

// ScrapeResult is the normalized record produced by one scrape request.
// It is created fresh per request and never mutated after assembly;
// persistence is append-only.
type ScrapeResult struct {
	// ID is the durable store-assigned identifier, or a "local-" prefixed
	// fallback when the store write failed.
	ID string `json:"id"`

	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`

	// Content is the flattened body text, truncated to the first 5000
	// characters.
	Content string `json:"content"`

	// ExtractedData is populated only in nerd mode.
	ExtractedData *ExtractedData `json:"extractedData,omitempty"`

	// AIAnalysis is populated only in nerd mode. On analysis failure it
	// degrades to a fixed placeholder rather than failing the request.
	AIAnalysis string `json:"aiAnalysis,omitempty"`

	// Timestamp is the assembly time in epoch milliseconds.
	Timestamp int64 `json:"timestamp"`

	// Status is "success" or "error". On error, ErrorMessage is set and
	// all metadata counts except ScrapeDuration are zero.
	Status       string `json:"status"`
	ErrorMessage string `json:"errorMessage,omitempty"`

	// Storage records persistence provenance: "durable" or "local".
	Storage string `json:"storage,omitempty"`

	Metadata ScrapeMetadata `json:"metadata"`
}

// ExtractedData is the capped structured payload attached in nerd mode.
// Caps are hard invariants: extras are dropped in document order
// (first-N kept), never errored.
type ExtractedData struct {
	Headings []string `json:"headings"` // first 20
	Links    []Link   `json:"links"`    // first 50
	Images   []Image  `json:"images"`   // first 30
}

// Link is a hyperlink extracted from the page.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href,omitempty"`
}

// Image is an image element extracted from the page.
type Image struct {
	Src string `json:"src,omitempty"`
	Alt string `json:"alt,omitempty"`
}

// ScrapeMetadata carries counts and timing for one scrape.
type ScrapeMetadata struct {
	WordCount      int `json:"wordCount"`
	ImageCount     int `json:"imageCount"`
	LinkCount      int `json:"linkCount"`
	ParagraphCount int `json:"paragraphCount"`

	// ScrapeDuration is wall-clock milliseconds from request receipt to
	// result assembly, inclusive of fetch, extraction and analysis.
	ScrapeDuration int64 `json:"scrapeDuration"`
}

// ErrorResponse is the body for client errors (HTTP 400) and
// middleware rejections.
type ErrorResponse struct {
	Error string `json:"error"`
}
