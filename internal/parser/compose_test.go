package parser

import (
	"strings"
	"testing"

	"github.com/starford/librarian/internal/models"
)

func TestCompose_ProposalRoundTrip(t *testing.T) {
	meta := models.ProposalMeta{
		Librarian:  models.StateReview,
		TargetFile: "30. Areas/Foo/untitled.md",
		Type:       models.TypeFileChange,
		Score:      80,
		Reason:     "Missing aliases/tags, Generic Filename",
	}
	out, err := Compose(meta, "%%EXPLANATION%%\nwhy\n")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	r, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := models.ProposalMetaFromMap(r.Frontmatter)
	if got.Librarian != models.StateReview {
		t.Errorf("librarian = %q, want %q", got.Librarian, models.StateReview)
	}
	if got.TargetFile != meta.TargetFile {
		t.Errorf("target-file = %q, want %q", got.TargetFile, meta.TargetFile)
	}
	if got.Score != 80 {
		t.Errorf("score = %d, want 80", got.Score)
	}
	if !strings.Contains(string(out), "%%EXPLANATION%%") {
		t.Errorf("body missing from output:\n%s", out)
	}
}

func TestCompose_ExtraFieldsInline(t *testing.T) {
	meta := models.ProposalMeta{
		Librarian: models.StateReview,
		Extra:     map[string]any{"confidence": "high"},
	}
	out, err := Compose(meta, "body")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, "confidence: high") {
		t.Errorf("inline extra field missing:\n%s", s)
	}
	// Extra keys must not nest under a struct field.
	if strings.Contains(s, "extra:") {
		t.Errorf("extra map leaked as its own key:\n%s", s)
	}
}

func TestCompose_BodyNewlineTerminated(t *testing.T) {
	out, err := Compose(models.ProposalMeta{Librarian: models.StateReview}, "no trailing newline")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !strings.HasSuffix(string(out), "no trailing newline\n") {
		t.Errorf("output should end with newline: %q", out)
	}
}
