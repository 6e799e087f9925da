package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/starford/librarian/internal/prompt"
)

// DefaultModel is the Gemini model used when the config names none.
const DefaultModel = "gemini-2.5-flash"

// GeminiConfig configures the Gemini adapter.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Gemini implements Model on the official genai SDK. Generation is
// pinned to deterministic settings (temperature 0) because the output
// is machine-parsed, not read by a human.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini creates the adapter. The API key is required.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: GEMINI_API_KEY is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Gemini{client: client, model: model, timeout: timeout}, nil
}

// Generate answers a free-form prompt.
func (g *Gemini) Generate(ctx context.Context, promptText string) (string, error) {
	return g.call(ctx, promptText, nil)
}

// GenerateProposal asks for a %%FILE%%-delimited proposal under the
// architect system prompt.
func (g *Gemini) GenerateProposal(ctx context.Context, req ProposalRequest) (string, error) {
	system := genai.NewContentFromText(prompt.ArchitectSystem, genai.RoleUser)
	user := prompt.Proposal(req.Instructions, req.Body, req.Context, req.Skeleton)
	return g.call(ctx, user, system)
}

func (g *Gemini) call(ctx context.Context, text string, system *genai.Content) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr[float32](0),
		TopP:              genai.Ptr[float32](0.95),
		TopK:              genai.Ptr[float32](40),
		MaxOutputTokens:   8192,
		SystemInstruction: system,
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(text), cfg)
	if err != nil {
		return "", fmt.Errorf("llm: generate: %w", err)
	}
	out := resp.Text()
	if out == "" {
		return "", fmt.Errorf("llm: empty response from %s", g.model)
	}
	return out, nil
}
