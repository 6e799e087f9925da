package mcpserver

// ProposalFormatContract describes the review-queue proposal format
// and lifecycle for LLM consumers.
const ProposalFormatContract = `# Librarian Proposal Format Contract

Every note in the Review Queue that the pipeline acts on MUST follow
this structure.

## Lifecycle

1. The ingest pass (or maintenance) writes a proposal with
   ` + "`" + `librarian: review` + "`" + ` in its frontmatter. Proposals in this state are
   never touched by the pipeline.
2. A human (or the approve_proposal tool) flips the key to
   ` + "`" + `librarian: file` + "`" + `.
3. The next filing pass executes the proposal and deletes it from the
   queue. Anything else in the queue folder is left alone.

## Structure

` + "```" + `markdown
---
librarian: review                  # REQUIRED – "review" or "file"
type: note_ingestion               # OPTIONAL – or "file_change_proposal"
source: capture-note.md            # OPTIONAL – origin capture, ingestion only
target-file: 20. Projects/x.md     # fix proposals only – file being repaired
score: 80                          # fix proposals only – audit score
reason: Missing Project Code       # fix proposals only – comma-joined reasons
---
%%EXPLANATION%%
Why the files below are organized this way.

%%FILE: 20. Projects/Pepsi/PEPS - Standup Notes.md%%
---
aliases: [Pepsi standup]
tags: [meeting]
---
File content in standard Markdown.
` + "```" + `

## Rules

1. **The ` + "`" + `librarian` + "`" + ` key is the only gate.** A proposal executes if and
   only if its value is exactly ` + "`" + `file` + "`" + `.
2. **The explanation block is for the reviewer** and is never written to
   the vault.
3. **Each ` + "`" + `%%FILE: path%%` + "`" + ` marker starts one output file.** Everything up
   to the next marker is that file's content, frontmatter included.
4. **Paths are vault-relative**, use forward slashes, end with ` + "`" + `.md` + "`" + `,
   and must not escape the vault (no ` + "`" + `..` + "`" + `).
5. **New files never overwrite.** On a name collision the filer appends
   ` + "`" + `-1` + "`" + `, ` + "`" + `-2` + "`" + `, ... to the stem. Only a fix proposal whose block path
   equals ` + "`" + `target-file` + "`" + ` rewrites in place.
6. **Fix proposals with a different block path rename**: the original
   ` + "`" + `target-file` + "`" + ` is deleted after the new file lands.
`
