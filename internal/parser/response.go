package parser

import (
	"strings"

	"github.com/starford/librarian/internal/models"
)

// Markers the model is instructed to emit. Matching is case-sensitive
// and happens on line boundaries only.
const (
	ExplanationMarker = "%%EXPLANATION%%"
	FileMarkerPrefix  = "%%FILE:"
	markerClose       = "%%"
)

// ParseResponse splits one raw model response into an explanation and
// ordered file blocks. It is a single forward scan over lines: a
// marker line ends the previous section and opens the next one.
// Content keeps everything between two markers with one trailing
// newline trimmed. Responses with no file markers at all put the whole
// text into Explanation.
func ParseResponse(raw string) models.ParsedResponse {
	var out models.ParsedResponse

	type section int
	const (
		secPreamble section = iota
		secExplanation
		secFile
		secSkipped
	)

	cur := secPreamble
	curPath := ""
	var buf []string
	sawMarker := false

	flush := func() {
		text := joinBlock(buf)
		buf = buf[:0]
		switch cur {
		case secExplanation:
			if out.Explanation == "" {
				out.Explanation = text
			}
		case secFile:
			out.Files = append(out.Files, models.FileBlock{Path: curPath, Content: text})
		}
	}

	for _, line := range strings.Split(raw, "\n") {
		switch {
		case strings.HasPrefix(line, ExplanationMarker):
			flush()
			cur = secExplanation
			sawMarker = true
		case strings.HasPrefix(line, FileMarkerPrefix):
			flush()
			sawMarker = true
			path, ok := fileMarkerPath(line)
			if !ok {
				out.Skipped = append(out.Skipped, strings.TrimSpace(line))
				cur = secSkipped
				break
			}
			cur = secFile
			curPath = path
		default:
			buf = append(buf, line)
		}
	}
	flush()

	if !sawMarker {
		out.Explanation = raw
	}
	return out
}

// fileMarkerPath extracts the path from a "%%FILE: <path>%%" line.
// Returns ok=false for unterminated markers and empty paths.
func fileMarkerPath(line string) (string, bool) {
	rest := line[len(FileMarkerPrefix):]
	end := strings.Index(rest, markerClose)
	if end < 0 {
		return "", false
	}
	path := strings.TrimSpace(rest[:end])
	if path == "" {
		return "", false
	}
	return path, true
}

// joinBlock reassembles accumulated lines, dropping the single empty
// trailing element that line-splitting leaves when content ended with
// a newline.
func joinBlock(lines []string) string {
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return strings.Join(lines, "\n")
}
