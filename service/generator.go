package service

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"google.golang.org/genai"
)

//go:embed prompt.tmpl
var promptText string

var promptTemplate = template.Must(template.New("prompt").Parse(promptText))

// Generator writes a structured report from a transcript.
type Generator interface {
	Generate(ctx context.Context, transcript string) (string, error)
}

// PromptData fills the instruction template.
type PromptData struct {
	Date       string // DD/MM/YYYY
	Transcript string
}

// RenderPrompt renders the report instructions for transcript dictated at t.
func RenderPrompt(t time.Time, transcript string) (string, error) {
	var buf bytes.Buffer
	err := promptTemplate.Execute(&buf, PromptData{
		Date:       t.Format("02/01/2006"),
		Transcript: transcript,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// contentGenerator is the part of *genai.Models the generator calls.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator generates reports with a Gemini model.
type GeminiGenerator struct {
	models contentGenerator
	model  string
	now    func() time.Time
}

// NewGemini connects to the Gemini API with apiKey.
func NewGemini(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing API key", ErrGeneration)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return newGeminiGenerator(client.Models, model, time.Now), nil
}

func newGeminiGenerator(models contentGenerator, model string, now func() time.Time) *GeminiGenerator {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiGenerator{models: models, model: model, now: now}
}

// Generate renders the prompt for transcript and returns the model's text.
func (g *GeminiGenerator) Generate(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", fmt.Errorf("%w: empty transcript", ErrBadRequest)
	}
	prompt, err := RenderPrompt(g.now(), transcript)
	if err != nil {
		return "", fmt.Errorf("%w: render prompt: %w", ErrGeneration, err)
	}
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: model returned no text", ErrGeneration)
	}
	return text, nil
}
