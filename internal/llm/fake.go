package llm

import (
	"context"
	"sync"
)

// Fake is a deterministic Model for tests. Responses are served in
// order; the last one repeats once the queue drains.
type Fake struct {
	mu        sync.Mutex
	responses []string
	next      int

	Err error // returned by every call when set

	// Calls records each proposal request for assertions.
	Calls []ProposalRequest
	// Prompts records each free-form prompt.
	Prompts []string
}

// NewFake builds a fake serving the given responses.
func NewFake(responses ...string) *Fake {
	return &Fake{responses: responses}
}

func (f *Fake) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Prompts = append(f.Prompts, prompt)
	if f.Err != nil {
		return "", f.Err
	}
	return f.take(), nil
}

func (f *Fake) GenerateProposal(_ context.Context, req ProposalRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, req)
	if f.Err != nil {
		return "", f.Err
	}
	return f.take(), nil
}

func (f *Fake) take() string {
	if len(f.responses) == 0 {
		return ""
	}
	r := f.responses[f.next]
	if f.next < len(f.responses)-1 {
		f.next++
	}
	return r
}

var _ Model = (*Fake)(nil)
