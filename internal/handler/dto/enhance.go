package dto

import "github.com/reelprompt/reelprompt/internal/model"

// EnhanceRequest is the body of POST /api/enhance-prompt.
type EnhanceRequest struct {
	Prompt         string `json:"prompt"`
	PreviousPrompt string `json:"previousPrompt,omitempty"`
	IsRefine       bool   `json:"isRefine,omitempty"`
}

// EnhanceResponse carries the XML and JSON renderings of one prompt.
type EnhanceResponse struct {
	EnhancedPrompt string        `json:"enhancedPrompt"`
	JSONOutput     string        `json:"jsonOutput"`
	Credits        model.Credits `json:"credits"`
}
