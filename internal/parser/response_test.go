package parser

import (
	"testing"
)

func TestParseResponse_TwoFiles(t *testing.T) {
	raw := "%%FILE: a.md%%\nhello\n%%FILE: b.md%%\nworld"
	r := ParseResponse(raw)
	if len(r.Files) != 2 {
		t.Fatalf("len(files) = %d, want 2", len(r.Files))
	}
	if r.Files[0].Path != "a.md" || r.Files[0].Content != "hello" {
		t.Errorf("files[0] = %+v", r.Files[0])
	}
	if r.Files[1].Path != "b.md" || r.Files[1].Content != "world" {
		t.Errorf("files[1] = %+v", r.Files[1])
	}
}

func TestParseResponse_ExplanationAndFile(t *testing.T) {
	raw := "%%EXPLANATION%%\nFiled under projects because of the PROJ code.\n\n" +
		"%%FILE: 20. Projects/PROJ/PROJ - Kickoff.md%%\n---\ntags:\n  - meeting\n---\n# Kickoff\n"
	r := ParseResponse(raw)
	if r.Explanation != "Filed under projects because of the PROJ code." {
		t.Errorf("explanation = %q", r.Explanation)
	}
	if len(r.Files) != 1 {
		t.Fatalf("len(files) = %d, want 1", len(r.Files))
	}
	want := "---\ntags:\n  - meeting\n---\n# Kickoff"
	if r.Files[0].Content != want {
		t.Errorf("content = %q, want %q", r.Files[0].Content, want)
	}
}

func TestParseResponse_NoMarkersWholeTextIsExplanation(t *testing.T) {
	raw := "The model refused to answer\nin the expected format."
	r := ParseResponse(raw)
	if len(r.Files) != 0 {
		t.Errorf("expected no files, got %v", r.Files)
	}
	if r.Explanation != raw {
		t.Errorf("explanation = %q, want full input", r.Explanation)
	}
}

func TestParseResponse_ContentPreservesInnerBlankLines(t *testing.T) {
	raw := "%%FILE: a.md%%\nline one\n\nline three\n"
	r := ParseResponse(raw)
	if len(r.Files) != 1 {
		t.Fatalf("len(files) = %d, want 1", len(r.Files))
	}
	if r.Files[0].Content != "line one\n\nline three" {
		t.Errorf("content = %q", r.Files[0].Content)
	}
}

func TestParseResponse_EmptyPathSkipped(t *testing.T) {
	raw := "%%FILE: %%\nlost content\n%%FILE: kept.md%%\nkept"
	r := ParseResponse(raw)
	if len(r.Files) != 1 || r.Files[0].Path != "kept.md" {
		t.Fatalf("files = %+v, want only kept.md", r.Files)
	}
	if len(r.Skipped) != 1 {
		t.Errorf("skipped = %v, want one entry", r.Skipped)
	}
}

func TestParseResponse_UnterminatedMarkerSkipped(t *testing.T) {
	raw := "%%FILE: broken.md\ncontent under broken marker\n%%FILE: ok.md%%\nfine"
	r := ParseResponse(raw)
	if len(r.Files) != 1 || r.Files[0].Path != "ok.md" {
		t.Fatalf("files = %+v, want only ok.md", r.Files)
	}
	if r.Files[0].Content != "fine" {
		t.Errorf("content = %q, want %q", r.Files[0].Content, "fine")
	}
	if len(r.Skipped) != 1 {
		t.Errorf("skipped = %v, want one entry", r.Skipped)
	}
}

func TestParseResponse_PreambleBeforeFirstMarkerDropped(t *testing.T) {
	raw := "Sure! Here is the result:\n%%FILE: a.md%%\nbody"
	r := ParseResponse(raw)
	if len(r.Files) != 1 || r.Files[0].Content != "body" {
		t.Fatalf("files = %+v", r.Files)
	}
	if r.Explanation != "" {
		t.Errorf("explanation = %q, want empty", r.Explanation)
	}
}

func TestParseResponse_MarkersAreCaseSensitive(t *testing.T) {
	raw := "%%file: a.md%%\nnot a marker"
	r := ParseResponse(raw)
	if len(r.Files) != 0 {
		t.Errorf("lowercase marker must not match, got %v", r.Files)
	}
	if r.Explanation != raw {
		t.Errorf("explanation = %q, want full input", r.Explanation)
	}
}

func TestParseResponse_PathWhitespaceTrimmed(t *testing.T) {
	raw := "%%FILE:   spaced/out.md  %%\nx"
	r := ParseResponse(raw)
	if len(r.Files) != 1 || r.Files[0].Path != "spaced/out.md" {
		t.Fatalf("files = %+v, want path %q", r.Files, "spaced/out.md")
	}
}
