package model

// PromptRequest is the body accepted by the generative-text passthrough.
type PromptRequest struct {
	Prompt string `json:"prompt" validate:"required"`
	APIKey string `json:"api_key,omitempty"`
}
