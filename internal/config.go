package internal

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/librarian/internal/llm"
	"github.com/starford/librarian/internal/prompt"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig `yaml:"app"`
	Vault       VaultConfig       `yaml:"vault"`
	SQLite      SQLiteConfig      `yaml:"sqlite"`
	LLM         LLMConfig         `yaml:"llm"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Git         GitConfig         `yaml:"git"`
	Auth        AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if err := c.Maintenance.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration for serve mode.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig describes the vault layout: where captures arrive, where
// proposals wait for review, which subtrees maintenance scans, and
// which notes feed the model's context.
type VaultConfig struct {
	Path             string   `yaml:"path"`
	CaptureDir       string   `yaml:"capture_dir"`
	ReviewDir        string   `yaml:"review_dir"`
	ScanDirs         []string `yaml:"scan_dirs"`
	ExcludedDirs     []string `yaml:"excluded_dirs"`
	InstructionsNote string   `yaml:"instructions_note"`
	GlossaryNote     string   `yaml:"glossary_note"`
	RegistryNote     string   `yaml:"registry_note"`
}

// Sources returns the prompt context note locations.
func (c *VaultConfig) Sources() prompt.Sources {
	return prompt.Sources{
		Instructions: c.InstructionsNote,
		Glossary:     c.GlossaryNote,
		Registry:     c.RegistryNote,
	}
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.CaptureDir, validation.Required),
		validation.Field(&c.ReviewDir, validation.Required),
		validation.Field(&c.ScanDirs, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration for the note index.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// LLMConfig holds generative-model settings. The API key is normally
// injected through env expansion (${GEMINI_API_KEY}) by the config
// loader.
type LLMConfig struct {
	Model          string `yaml:"model"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the per-request timeout.
func (c *LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Gemini returns the adapter configuration. The API key is expanded
// so the ${GEMINI_API_KEY} default works even without a config file.
func (c *LLMConfig) Gemini() llm.GeminiConfig {
	return llm.GeminiConfig{APIKey: os.ExpandEnv(c.APIKey), Model: c.Model, Timeout: c.Timeout()}
}

// Validate validates the LLM configuration. The API key is checked at
// client construction rather than here so that read-only commands work
// without one.
func (c *LLMConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.TimeoutSeconds, validation.Min(0)),
	)
}

// MaintenanceConfig tunes the periodic vault audit.
type MaintenanceConfig struct {
	CooldownDays int    `yaml:"cooldown_days"`
	TopN         int    `yaml:"top_n"`
	LedgerPath   string `yaml:"ledger_path"`
	Schedule     string `yaml:"schedule"` // cron spec used in serve mode
}

// Validate validates the maintenance configuration.
func (c *MaintenanceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.CooldownDays, validation.Min(0)),
		validation.Field(&c.TopN, validation.Min(0)),
		validation.Field(&c.LedgerPath, validation.Required),
	)
}

// GitConfig controls the commit/push step after mutating runs.
type GitConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Push        bool   `yaml:"push"`
	Remote      string `yaml:"remote"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
// The vault layout defaults follow the standard numbered-folder vault.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path:             "./vault",
			CaptureDir:       "00. Inbox/0. Capture",
			ReviewDir:        "00. Inbox/1. Review Queue",
			ScanDirs:         []string{"20. Projects", "30. Areas"},
			ExcludedDirs:     []string{"99. System", "00. Inbox", ".git", ".obsidian", ".trash"},
			InstructionsNote: "30. Areas/4. Personal Management/Obsidian/Obsidian System Instructions.md",
			GlossaryNote:     "00. Inbox/00. Tag Glossary.md",
			RegistryNote:     "99. System/Manual/02. Code Registry.md",
		},
		SQLite: SQLiteConfig{
			Path: "./librarian.db",
		},
		LLM: LLMConfig{
			Model:          llm.DefaultModel,
			APIKey:         "${GEMINI_API_KEY}",
			TimeoutSeconds: 120,
		},
		Maintenance: MaintenanceConfig{
			CooldownDays: 7,
			TopN:         20,
			LedgerPath:   "99. System/maintenance_history.json",
			Schedule:     "0 3 * * *",
		},
		Git: GitConfig{
			Enabled: false,
			Push:    false,
			Remote:  "origin",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
