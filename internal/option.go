package internal

import "github.com/starford/librarian/internal/llm"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	model  llm.Model
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithModel overrides the generative model. Used by tests and by
// commands that want to run against a stub.
func WithModel(m llm.Model) Option {
	return func(a *application) {
		a.model = m
	}
}
