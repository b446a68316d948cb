// Package pipeline orchestrates one scrape request end to end:
// validate → fetch → sanitize → extract → analyze (nerd mode only) →
// assemble → persist. Every stage after validation still produces a
// well-formed error record on failure rather than aborting without
// output.
package pipeline

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/uselens/pagelens/extractor"
	"github.com/uselens/pagelens/models"
)

// Content truncation points. Both are independent first-N-character cuts
// over the same body text: one bounds what is stored, the other bounds
// what the analyzer sees.
const (
	MaxContentChars  = 5000
	MaxAnalysisChars = 10000
)

// AnalysisUnavailable is substituted when the analysis call fails or no
// analyzer is configured. Analysis failure never fails the request.
const AnalysisUnavailable = "AI analysis unavailable"

// DefaultPrompt is the analysis prompt used when the request carries no
// custom prompt.
const DefaultPrompt = `Analyze this webpage content and provide:
1. Main topic and purpose
2. Key information and insights
3. Content quality assessment
4. Notable patterns or structure
5. Sentiment analysis

Keep the analysis concise but comprehensive.`

// Fetcher retrieves raw markup for a URL with a single bounded attempt.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Annotator produces an AI analysis of pre-truncated page content.
type Annotator interface {
	Annotate(ctx context.Context, content, prompt string) (string, error)
}

// Recorder persists one assembled result and returns its durable ID.
type Recorder interface {
	Save(ctx context.Context, result *models.ScrapeResult) (string, error)
}

// Options tunes a Pipeline. The zero value gets sane defaults.
type Options struct {
	// Budget is the overall wall-clock ceiling for one request.
	// Default: 60s.
	Budget time.Duration

	// Now supplies the clock. Default: time.Now. Injected so duration
	// fields are testable deterministically.
	Now func() time.Time
}

// Pipeline runs scrape requests. It holds no per-request state and is
// safe for concurrent use; within one request all stages are strictly
// sequential.
type Pipeline struct {
	fetcher   Fetcher
	extractor *extractor.Extractor
	annotator Annotator // nil when analysis is not configured
	recorder  Recorder
	budget    time.Duration
	now       func() time.Time
}

// New creates a Pipeline. annotator may be nil, in which case nerd-mode
// requests report analysis as unavailable.
func New(f Fetcher, x *extractor.Extractor, a Annotator, r Recorder, opts Options) *Pipeline {
	if opts.Budget <= 0 {
		opts.Budget = 60 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		fetcher:   f,
		extractor: x,
		annotator: a,
		recorder:  r,
		budget:    opts.Budget,
		now:       opts.Now,
	}
}

// Run executes one scrape request.
//
// On success it returns the persisted result and a nil error. On
// pipeline failure (fetch or extraction) it returns the persisted
// error-shaped record together with the coded error, so the caller can
// map it to a status code. Invalid input returns (nil, error) — nothing
// is fetched or persisted.
//
// Analysis and persistence failures are absorbed: the former degrades to
// a placeholder string, the latter to a locally synthesized ID.
func (p *Pipeline) Run(ctx context.Context, req *models.ScrapeRequest) (*models.ScrapeResult, error) {
	start := p.now()

	if !models.ValidScrapeURL(req.URL) {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "Invalid URL provided", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, p.budget)
	defer cancel()

	rawHTML, err := p.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		return p.fail(ctx, req.URL, start, err)
	}

	nerd := req.Mode == models.ModeNerd
	ext, err := p.extractor.Run(rawHTML, nerd)
	if err != nil {
		return p.fail(ctx, req.URL, start, err)
	}

	var analysis string
	if nerd {
		analysis, err = p.analyze(ctx, ext.BodyText, req.CustomPrompt)
		if err != nil {
			return p.fail(ctx, req.URL, start, err)
		}
	}

	result := p.assemble(req.URL, ext, analysis, start)
	p.persist(ctx, result)
	return result, nil
}

// analyze runs the annotator over the truncated body text, degrading to
// the fixed placeholder on annotator failure. The one failure that does
// propagate is the overall request budget expiring mid-analysis: past
// the budget the pipeline must abandon the request, not degrade.
func (p *Pipeline) analyze(ctx context.Context, bodyText, customPrompt string) (string, error) {
	prompt := customPrompt
	if prompt == "" {
		prompt = DefaultPrompt
	}

	if p.annotator == nil {
		slog.Warn("analysis requested but no annotator configured")
		return AnalysisUnavailable, nil
	}

	analysis, err := p.annotator.Annotate(ctx, truncate(bodyText, MaxAnalysisChars), prompt)
	if err != nil {
		if ctx.Err() != nil {
			return "", models.NewScrapeError(models.ErrCodeTimeout, "request exceeded time budget", err)
		}
		slog.Warn("AI analysis failed, degrading to placeholder", "error", err)
		return AnalysisUnavailable, nil
	}
	return analysis, nil
}

// assemble merges extraction output, optional analysis and timing
// metadata into the final record. Performs no I/O.
func (p *Pipeline) assemble(url string, ext *extractor.Extraction, analysis string, start time.Time) *models.ScrapeResult {
	finish := p.now()
	return &models.ScrapeResult{
		URL:           url,
		Title:         ext.Title,
		Description:   ext.Description,
		Content:       truncate(ext.BodyText, MaxContentChars),
		ExtractedData: ext.Structured,
		AIAnalysis:    analysis,
		Timestamp:     finish.UnixMilli(),
		Status:        models.StatusSuccess,
		Metadata: models.ScrapeMetadata{
			WordCount:      ext.WordCount(),
			ImageCount:     ext.ImageCount,
			LinkCount:      ext.LinkCount,
			ParagraphCount: len(ext.Paragraphs),
			ScrapeDuration: finish.Sub(start).Milliseconds(),
		},
	}
}

// fail builds, persists and returns the error-shaped record for a
// pipeline failure. Counts are zeroed; only the duration up to the
// failure point is kept.
func (p *Pipeline) fail(ctx context.Context, url string, start time.Time, cause error) (*models.ScrapeResult, error) {
	finish := p.now()
	result := &models.ScrapeResult{
		URL:          url,
		Timestamp:    finish.UnixMilli(),
		Status:       models.StatusError,
		ErrorMessage: models.ErrorMessage(cause),
		Metadata: models.ScrapeMetadata{
			ScrapeDuration: finish.Sub(start).Milliseconds(),
		},
	}
	p.persist(ctx, result)
	return result, cause
}

// persist writes the record, substituting a local fallback ID when the
// store write fails. Persistence never fails the request. The write is
// detached from the request context so that error records assembled
// after a budget expiry still get a real persistence attempt.
func (p *Pipeline) persist(ctx context.Context, result *models.ScrapeResult) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	id, err := p.recorder.Save(ctx, result)
	if err != nil {
		slog.Warn("store write failed, using local fallback ID", "error", err)
		result.ID = "local-" + strconv.FormatInt(p.now().UnixMilli(), 10)
		result.Storage = models.StorageLocal
		return
	}
	result.ID = id
	result.Storage = models.StorageDurable
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
