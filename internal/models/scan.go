package models

// ScanCandidate is one vault file flagged by the maintenance scanner.
// Ephemeral: produced by a scan pass, consumed by cooldown filtering
// and fix generation within the same pass.
type ScanCandidate struct {
	Path    string   `json:"path"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`

	// ExpectedCode is set when the project-code rule fired, so the fix
	// prompt can name the code the file should carry.
	ExpectedCode string `json:"expected_code,omitempty"`
}
