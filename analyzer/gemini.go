// Package analyzer provides the AI analysis step used in nerd mode,
// backed by Google Gemini.
package analyzer

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/uselens/pagelens/models"
)

// Gemini analyzes webpage content using the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini analyzer.
func NewGemini(client *genai.Client, model string) *Gemini {
	return &Gemini{client: client, model: model}
}

// Annotate runs the prompt against the given content and returns the
// analysis text. Content is expected to be pre-truncated by the caller.
func (g *Gemini) Annotate(ctx context.Context, content, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{
			Parts: []*genai.Part{{Text: BuildPrompt(content, prompt)}},
		}},
		BuildConfig(),
	)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", models.NewScrapeError(models.ErrCodeInternal, "gemini returned nil result", nil)
	}
	return result.Text(), nil
}

// BuildConfig returns the GenerateContentConfig for analysis calls.
func BuildConfig() *genai.GenerateContentConfig {
	temp := float32(0.4)
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{
				Text: "You are a webpage content analyst. Base your analysis only on the content provided.",
			}},
		},
		Temperature: &temp,
	}
}

// BuildPrompt combines the analysis instructions with the page content.
func BuildPrompt(content, prompt string) string {
	var sb strings.Builder
	sb.WriteString(prompt)
	sb.WriteString("\n\n<content>\n")
	fmt.Fprintf(&sb, "%s\n", content)
	sb.WriteString("</content>")
	return sb.String()
}
