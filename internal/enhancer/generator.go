package enhancer

import "context"

// Request is one enhancement or refinement.
type Request struct {
	// Prompt is the user's idea, or the change they want when refining.
	Prompt string
	// PreviousPrompt is the XML of the prompt being refined.
	PreviousPrompt string
	IsRefine       bool
}

// Generator produces a PromptSpec for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (*PromptSpec, error)
}
