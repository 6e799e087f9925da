package models

// Proposal lifecycle states, stored in the `librarian` frontmatter key.
// The filer only ever acts on StateFile; everything else is inert.
const (
	StateReview = "review"
	StateFile   = "file"
)

// Proposal types, stored in the `type` frontmatter key. Informational.
const (
	TypeIngestion  = "note_ingestion"
	TypeFileChange = "file_change_proposal"
)

// ProposalMeta is the frontmatter of a proposal note. The statically
// known fields drive the filer; anything else a producer writes is
// carried through Extra untouched.
type ProposalMeta struct {
	Librarian  string         `yaml:"librarian,omitempty"`
	TargetFile string         `yaml:"target-file,omitempty"`
	Type       string         `yaml:"type,omitempty"`
	Source     string         `yaml:"source,omitempty"`
	Score      int            `yaml:"score,omitempty"`
	Reason     string         `yaml:"reason,omitempty"`
	Extra      map[string]any `yaml:",inline"`
}

// Approved reports whether a human has flipped the proposal to the
// actionable state.
func (m ProposalMeta) Approved() bool { return m.Librarian == StateFile }

// IsFix reports whether the proposal targets an existing file rather
// than describing brand-new notes.
func (m ProposalMeta) IsFix() bool { return m.TargetFile != "" }

// ProposalMetaFromMap builds a ProposalMeta from generic parsed
// frontmatter. Unknown keys land in Extra; missing keys stay zero.
func ProposalMetaFromMap(fm map[string]interface{}) ProposalMeta {
	var m ProposalMeta
	for k, v := range fm {
		switch k {
		case "librarian":
			m.Librarian = asString(v)
		case "target-file":
			m.TargetFile = asString(v)
		case "type":
			m.Type = asString(v)
		case "source":
			m.Source = asString(v)
		case "score":
			m.Score = asInt(v)
		case "reason":
			m.Reason = asString(v)
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]any)
			}
			m.Extra[k] = v
		}
	}
	return m
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// FileBlock is one (path, content) pair extracted from a proposal body.
type FileBlock struct {
	Path    string
	Content string
}

// ParsedResponse is the structured form of a raw model response:
// free-text explanation plus file blocks in source order.
type ParsedResponse struct {
	Explanation string
	Files       []FileBlock

	// Skipped holds marker lines that opened no block (empty or
	// unterminated path). Callers decide whether to log them.
	Skipped []string
}
