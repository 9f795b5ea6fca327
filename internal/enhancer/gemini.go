package enhancer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

const systemInstruction = `You are a prompt engineer for cinematic influencer photography.
Rewrite the user's idea as a single JSON object with exactly these keys:
subject, setting, wardrobe, lighting, camera (object with shot, lens, angle),
style, mood, color_grade, negative (array of strings), aspect_ratio.
Every value is concise English. Keep the user's subject and intent. Do not add
commentary or markdown; respond with the JSON object only.`

// GeminiGenerator generates specs with the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a Gemini-backed generator.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiGenerator{client: client, model: model}, nil
}

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (*PromptSpec, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(userMessage(req), genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("gemini generate failed: %w", err)
	}

	return parseModelOutput(resp.Text())
}

func userMessage(req Request) string {
	if req.IsRefine {
		return "Current prompt:\n" + req.PreviousPrompt + "\n\nApply this change and return the full updated prompt:\n" + req.Prompt
	}
	return "Idea:\n" + req.Prompt
}

// parseModelOutput decodes the model's JSON, tolerating a markdown fence.
func parseModelOutput(text string) (*PromptSpec, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	var spec PromptSpec
	if err := json.Unmarshal([]byte(text), &spec); err != nil {
		return nil, fmt.Errorf("failed to decode model output: %w", err)
	}
	spec.Normalize()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}
