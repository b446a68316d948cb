package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uselens/pagelens/extractor"
	"github.com/uselens/pagelens/models"
	"github.com/uselens/pagelens/pipeline"
)

// stepClock returns a clock that advances by step on every call.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	now := start
	return func() time.Time {
		t := now
		now = now.Add(step)
		return t
	}
}

type fakeFetcher struct {
	html string
	err  error
	urls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.html), nil
}

type fakeAnnotator struct {
	analysis string
	err      error
	content  string
	prompt   string
	calls    int
}

func (a *fakeAnnotator) Annotate(_ context.Context, content, prompt string) (string, error) {
	a.calls++
	a.content = content
	a.prompt = prompt
	return a.analysis, a.err
}

type fakeRecorder struct {
	id    string
	err   error
	saved []*models.ScrapeResult
}

func (r *fakeRecorder) Save(_ context.Context, result *models.ScrapeResult) (string, error) {
	r.saved = append(r.saved, result)
	if r.err != nil {
		return "", r.err
	}
	return r.id, nil
}

const pageHTML = `<html><head>
	<title>Example Domain</title>
	<meta name="description" content="An example page.">
</head><body>
	<h1>Example Domain</h1>
	<p>first paragraph</p>
	<p>second paragraph</p>
	<a href="/more">more</a>
	<img src="/logo.png" alt="logo">
</body></html>`

func newPipeline(f pipeline.Fetcher, a pipeline.Annotator, r pipeline.Recorder, opts pipeline.Options) *pipeline.Pipeline {
	return pipeline.New(f, extractor.New(), a, r, opts)
}

func TestRun_BasicMode(t *testing.T) {
	t.Parallel()

	ff := &fakeFetcher{html: pageHTML}
	fr := &fakeRecorder{id: "stored-1"}
	fa := &fakeAnnotator{analysis: "should not run"}
	p := newPipeline(ff, fa, fr, pipeline.Options{})

	result, err := p.Run(context.Background(), &models.ScrapeRequest{
		URL:  "https://example.com",
		Mode: models.ModeBasic,
	})

	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, result.Status)
	assert.Empty(t, result.ErrorMessage)
	assert.Equal(t, "stored-1", result.ID)
	assert.Equal(t, models.StorageDurable, result.Storage)
	assert.Equal(t, "https://example.com", result.URL)
	assert.Equal(t, "Example Domain", result.Title)
	assert.Equal(t, "An example page.", result.Description)
	assert.Nil(t, result.ExtractedData)
	assert.Empty(t, result.AIAnalysis)
	assert.Equal(t, 2, result.Metadata.ParagraphCount)
	assert.Equal(t, 1, result.Metadata.LinkCount)
	assert.Equal(t, 1, result.Metadata.ImageCount)
	assert.Positive(t, result.Metadata.WordCount)
	assert.Zero(t, fa.calls)
	require.Len(t, fr.saved, 1)
}

func TestRun_NerdMode(t *testing.T) {
	t.Parallel()

	ff := &fakeFetcher{html: pageHTML}
	fa := &fakeAnnotator{analysis: "insightful analysis"}
	p := newPipeline(ff, fa, &fakeRecorder{id: "stored-2"}, pipeline.Options{})

	result, err := p.Run(context.Background(), &models.ScrapeRequest{
		URL:  "https://example.com",
		Mode: models.ModeNerd,
	})

	require.NoError(t, err)
	assert.Equal(t, "insightful analysis", result.AIAnalysis)
	require.NotNil(t, result.ExtractedData)
	assert.Equal(t, []string{"Example Domain"}, result.ExtractedData.Headings)
	require.Len(t, result.ExtractedData.Links, 1)
	assert.Equal(t, "/more", result.ExtractedData.Links[0].Href)

	assert.Equal(t, 1, fa.calls)
	assert.Equal(t, pipeline.DefaultPrompt, fa.prompt)
	assert.Contains(t, fa.content, "first paragraph")
}

func TestRun_NerdModeCustomPrompt(t *testing.T) {
	t.Parallel()

	fa := &fakeAnnotator{analysis: "ok"}
	p := newPipeline(&fakeFetcher{html: pageHTML}, fa, &fakeRecorder{id: "x"}, pipeline.Options{})

	_, err := p.Run(context.Background(), &models.ScrapeRequest{
		URL:          "https://example.com",
		Mode:         models.ModeNerd,
		CustomPrompt: "Summarize in one line.",
	})

	require.NoError(t, err)
	assert.Equal(t, "Summarize in one line.", fa.prompt)
}

func TestRun_AnnotatorInputIsTruncated(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("word ", 5000) // 25000 chars of body text
	fa := &fakeAnnotator{analysis: "ok"}
	p := newPipeline(&fakeFetcher{html: "<body><p>" + long + "</p></body>"}, fa, &fakeRecorder{id: "x"}, pipeline.Options{})

	result, err := p.Run(context.Background(), &models.ScrapeRequest{
		URL:  "https://example.com",
		Mode: models.ModeNerd,
	})

	require.NoError(t, err)
	assert.Len(t, []rune(fa.content), pipeline.MaxAnalysisChars)
	assert.Len(t, []rune(result.Content), pipeline.MaxContentChars)
	// The two truncation points are independent cuts over the same text.
	assert.True(t, strings.HasPrefix(fa.content, result.Content))
}

func TestRun_AnnotatorFailureDegrades(t *testing.T) {
	t.Parallel()

	fa := &fakeAnnotator{err: errors.New("quota exceeded")}
	fr := &fakeRecorder{id: "stored-3"}
	p := newPipeline(&fakeFetcher{html: pageHTML}, fa, fr, pipeline.Options{})

	result, err := p.Run(context.Background(), &models.ScrapeRequest{
		URL:  "https://example.com",
		Mode: models.ModeNerd,
	})

	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, result.Status)
	assert.Equal(t, pipeline.AnalysisUnavailable, result.AIAnalysis)
	// Structured payload is attached regardless of analysis outcome.
	assert.NotNil(t, result.ExtractedData)
	require.Len(t, fr.saved, 1)
}

func TestRun_NoAnnotatorConfigured(t *testing.T) {
	t.Parallel()

	p := newPipeline(&fakeFetcher{html: pageHTML}, nil, &fakeRecorder{id: "x"}, pipeline.Options{})

	result, err := p.Run(context.Background(), &models.ScrapeRequest{
		URL:  "https://example.com",
		Mode: models.ModeNerd,
	})

	require.NoError(t, err)
	assert.Equal(t, pipeline.AnalysisUnavailable, result.AIAnalysis)
}

func TestRun_InvalidURLShortCircuits(t *testing.T) {
	t.Parallel()

	ff := &fakeFetcher{html: pageHTML}
	fr := &fakeRecorder{id: "x"}
	p := newPipeline(ff, nil, fr, pipeline.Options{})

	result, err := p.Run(context.Background(), &models.ScrapeRequest{
		URL:  "javascript:alert(1)",
		Mode: models.ModeBasic,
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, models.ErrCodeInvalidInput, models.ErrorCode(err))
	assert.Empty(t, ff.urls, "no fetch may happen for invalid input")
	assert.Empty(t, fr.saved, "no persistence may happen for invalid input")
}

func TestRun_FetchFailureProducesErrorRecord(t *testing.T) {
	t.Parallel()

	cause := models.NewScrapeError(models.ErrCodeFetch, "website returned status 503", nil)
	fr := &fakeRecorder{id: "err-1"}
	p := newPipeline(&fakeFetcher{err: cause}, nil, fr, pipeline.Options{})

	result, err := p.Run(context.Background(), &models.ScrapeRequest{
		URL:  "https://example.com",
		Mode: models.ModeBasic,
	})

	require.Error(t, err)
	assert.Equal(t, models.ErrCodeFetch, models.ErrorCode(err))
	require.NotNil(t, result)
	assert.Equal(t, models.StatusError, result.Status)
	assert.Equal(t, "website returned status 503", result.ErrorMessage)
	assert.Zero(t, result.Metadata.WordCount)
	assert.Zero(t, result.Metadata.ImageCount)
	assert.Zero(t, result.Metadata.LinkCount)
	assert.Zero(t, result.Metadata.ParagraphCount)
	// The error record is still persisted.
	require.Len(t, fr.saved, 1)
	assert.Equal(t, "err-1", result.ID)
}

func TestRun_StoreFailureFallsBackToLocalID(t *testing.T) {
	t.Parallel()

	fr := &fakeRecorder{err: errors.New("disk full")}
	p := newPipeline(&fakeFetcher{html: pageHTML}, nil, fr, pipeline.Options{})

	result, err := p.Run(context.Background(), &models.ScrapeRequest{
		URL:  "https://example.com",
		Mode: models.ModeBasic,
	})

	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, result.Status)
	assert.True(t, strings.HasPrefix(result.ID, "local-"), "id = %q", result.ID)
	assert.Equal(t, models.StorageLocal, result.Storage)
}

// blockingAnnotator never answers; it waits out the request context the
// way a hung upstream call would.
type blockingAnnotator struct {
	calls int
}

func (a *blockingAnnotator) Annotate(ctx context.Context, _, _ string) (string, error) {
	a.calls++
	<-ctx.Done()
	return "", ctx.Err()
}

func TestRun_BudgetExpiryAbandonsAnalysis(t *testing.T) {
	t.Parallel()

	fa := &blockingAnnotator{}
	fr := &fakeRecorder{id: "err-budget"}
	p := newPipeline(&fakeFetcher{html: pageHTML}, fa, fr, pipeline.Options{
		Budget: 20 * time.Millisecond,
	})

	result, err := p.Run(context.Background(), &models.ScrapeRequest{
		URL:  "https://example.com",
		Mode: models.ModeNerd,
	})

	require.Error(t, err)
	assert.Equal(t, models.ErrCodeTimeout, models.ErrorCode(err))
	assert.Equal(t, 1, fa.calls)

	// Past the budget the pipeline fails, it does not degrade to the
	// analysis placeholder.
	require.NotNil(t, result)
	assert.Equal(t, models.StatusError, result.Status)
	assert.NotEqual(t, pipeline.AnalysisUnavailable, result.AIAnalysis)
	assert.Empty(t, result.AIAnalysis)
	assert.NotEmpty(t, result.ErrorMessage)
	assert.Zero(t, result.Metadata.WordCount)

	// The error record still gets a real persistence attempt, on a
	// context detached from the expired request context.
	require.Len(t, fr.saved, 1)
	assert.Equal(t, "err-budget", result.ID)
	assert.Equal(t, models.StorageDurable, result.Storage)
}

func TestRun_BudgetExpiryDuringFetch(t *testing.T) {
	t.Parallel()

	// The fetcher reports the expired budget the way the real one does.
	ff := &fakeFetcher{err: models.NewScrapeError(models.ErrCodeTimeout, "request timed out", context.DeadlineExceeded)}
	fr := &fakeRecorder{id: "err-fetch"}
	p := newPipeline(ff, nil, fr, pipeline.Options{})

	result, err := p.Run(context.Background(), &models.ScrapeRequest{
		URL:  "https://example.com",
		Mode: models.ModeBasic,
	})

	require.Error(t, err)
	assert.Equal(t, models.ErrCodeTimeout, models.ErrorCode(err))
	assert.Equal(t, models.StatusError, result.Status)
	require.Len(t, fr.saved, 1)
}

func TestRun_DurationFromInjectedClock(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	// now() is read at request start and again at assembly.
	clock := stepClock(start, 250*time.Millisecond)
	p := newPipeline(&fakeFetcher{html: pageHTML}, nil, &fakeRecorder{id: "x"}, pipeline.Options{
		Now: clock,
	})

	result, err := p.Run(context.Background(), &models.ScrapeRequest{
		URL:  "https://example.com",
		Mode: models.ModeBasic,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(250), result.Metadata.ScrapeDuration)
	assert.Equal(t, start.Add(250*time.Millisecond).UnixMilli(), result.Timestamp)
}
