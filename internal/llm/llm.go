// Package llm defines the model port the pipelines speak to, a Gemini
// adapter on the official genai SDK, and a deterministic fake for tests.
package llm

import "context"

// ProposalRequest carries everything the model needs to draft a
// multi-file proposal.
type ProposalRequest struct {
	// Instructions describe the intent of this call (ingest vs. fix).
	Instructions string
	// Body is the raw note content being worked on.
	Body string
	// Context is the aggregated vault context (system instructions,
	// tag glossary, code registry).
	Context string
	// Skeleton lists existing notes as valid link targets.
	Skeleton string
}

// Model is the generative-model port. Both calls return the raw text
// response; parsing is the caller's job.
type Model interface {
	// Generate answers a free-form prompt.
	Generate(ctx context.Context, prompt string) (string, error)
	// GenerateProposal asks for a %%FILE%%-delimited proposal.
	GenerateProposal(ctx context.Context, req ProposalRequest) (string, error)
}
