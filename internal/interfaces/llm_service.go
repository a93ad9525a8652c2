package interfaces

import "context"

// GenerateRequest is a provider-agnostic structured-generation request.
// The response text is expected, but not guaranteed, to contain JSON;
// callers own all parsing and fallback logic.
type GenerateRequest struct {
	SystemInstruction string
	UserInstruction   string
	MaxTokens         int
	Temperature       float32
	Model             string // empty = provider default
}

// GenerateResponse carries the raw model text plus provenance.
type GenerateResponse struct {
	Text     string
	Provider string
	Model    string
}

// Provider is the external structured-generation interface consumed by
// the analysis pipeline and the narrative service.
type Provider interface {
	GenerateContent(ctx context.Context, request *GenerateRequest) (*GenerateResponse, error)
	Close() error
}
