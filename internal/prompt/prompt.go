// Package prompt builds the text the model sees: the architect system
// prompt, per-call user prompts, the aggregated vault context and the
// vault skeleton of valid link targets.
package prompt

import (
	"fmt"
	"strings"
)

// ArchitectSystem is the system instruction for proposal generation.
// The %%FILE%% output schema here is the contract the response parser
// relies on.
const ArchitectSystem = `You are an Obsidian Assistant. Your goal is to organize notes and create structured knowledge.

INPUT:
1. User Instructions (Intent)
2. Raw Note Content
3. Vault Skeleton (Existing paths for deep linking)

OUTPUT FORMAT:
You must output a single text blob using these delimiters:

%%EXPLANATION%%
(Short reasoning: why you chose these folders/files)

%%FILE: <suggested_folder>/<suggested_filename>.md%%
---
title: <Title>
tags: [<tag1>, <tag2>]
folder: <folder_path>
---
<Content with [[Deep Links]] to Skeleton>

%%FILE: <another_folder>/<another_file>.md%%
...

RULES:
1. Always use the %%FILE: path%% delimiter.
2. Ensure frontmatter is valid YAML.
3. Do NOT invent links. Only link to items in the Vault Skeleton.
4. If the user asks to split a note, create multiple %%FILE%% blocks.
5. Extract folder paths from the suggested file paths.`

// IngestInstructions is the intent block for capture-note ingestion.
const IngestInstructions = `Organize this raw captured note into the vault.
Classify it (meeting, idea, task, reference), enrich the frontmatter with a
descriptive title and tags from the glossary only, and file it under the
correct Areas/Projects folder. Split into multiple files when the note
clearly covers separate topics.`

// Maintenance builds the intent block for a quality-fix proposal. The
// detected issues are named so the model fixes exactly those.
func Maintenance(reasons []string, expectedCode string) string {
	var b strings.Builder
	b.WriteString("MAINTENANCE MODE. This note has failed quality checks.\n")
	fmt.Fprintf(&b, "Detected Issues: %s.\n", strings.Join(reasons, ", "))
	if expectedCode != "" {
		fmt.Fprintf(&b, "Expected Project Code: %s.\n", expectedCode)
	}
	b.WriteString(`
Task:
1. Fix the frontmatter (add missing aliases, tags, or other required metadata).
2. Rename the file if it violates project code conventions (the filename should start with the expected project code).
3. Do NOT rewrite the body text unless essential for formatting.
4. Preserve all existing content and structure.
5. Output the result using the %%FILE%% schema with the corrected path if renaming is needed.`)
	return b.String()
}

// Proposal assembles the user prompt for one proposal call.
func Proposal(instructions, body, context, skeleton string) string {
	var b strings.Builder
	b.WriteString("=== USER INSTRUCTIONS ===\n")
	b.WriteString(instructions)
	b.WriteString("\n\n=== RAW NOTE CONTENT ===\n")
	b.WriteString(body)
	b.WriteString("\n\n=== VAULT CONTEXT ===\n")
	b.WriteString(context)
	b.WriteString("\n\n=== VAULT SKELETON ===\n")
	b.WriteString(skeleton)
	b.WriteString("\n\nPlease generate a multi-file proposal following the output format.\n")
	return b.String()
}
