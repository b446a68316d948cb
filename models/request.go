package models

import "net/url"

// Scrape modes.
const (
	// ModeBasic extracts page content without AI analysis.
	ModeBasic = "basic"

	// ModeNerd additionally runs AI analysis and attaches the
	// structured extraction payload (headings/links/images).
	ModeNerd = "nerd"
)

// ScrapeRequest is the payload for POST /api/v1/scrape.
type ScrapeRequest struct {
	// URL is the target page to scrape. Required, http or https only.
	URL string `json:"url" binding:"required"`

	// Mode selects the scrape depth: "basic" (default) or "nerd".
	Mode string `json:"mode,omitempty" binding:"omitempty,oneof=basic nerd"`

	// CustomPrompt overrides the default AI analysis prompt.
	// Only used in nerd mode.
	CustomPrompt string `json:"customPrompt,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *ScrapeRequest) Defaults() {
	if r.Mode == "" {
		r.Mode = ModeBasic
	}
}

// ValidScrapeURL reports whether candidate is a syntactically valid
// http or https URL. This is the single input gate for the pipeline:
// anything else (other schemes, malformed syntax, empty string) must
// be rejected before any network access happens.
func ValidScrapeURL(candidate string) bool {
	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
