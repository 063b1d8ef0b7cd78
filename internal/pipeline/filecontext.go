package pipeline

import (
	"fmt"
	"strings"

	"github.com/futig/chat-backend/internal/entity"
)

// fileContextFoldedKey marks a context whose file content has already been
// folded into the message sequence, so later consumers do not fold twice.
const fileContextFoldedKey = "file_context_folded"

// FileContextFolded reports whether the ingested file content has already
// been rendered into the message sequence.
func FileContextFolded(c entity.ChatContext) bool {
	if c.Processed == nil || c.Processed.Metadata == nil {
		return false
	}
	folded, _ := c.Processed.Metadata[fileContextFoldedKey].(bool)
	return folded
}

// FoldFileContext renders ingested file content (inline documents,
// summaries, transcripts) into a single system message prepended to the
// active message sequence. Calling it on a context with no file content,
// or one already folded, returns the context unchanged.
func FoldFileContext(c entity.ChatContext) entity.ChatContext {
	if FileContextFolded(c) {
		return c
	}
	block := renderFileContext(c.Processed)
	if block == "" {
		return c
	}

	active := c.ActiveMessages()
	enriched := make([]entity.Message, 0, len(active)+1)
	enriched = append(enriched, entity.Message{Role: entity.RoleSystem, Content: block})
	enriched = append(enriched, active...)

	out := c.EnsureProcessed().WithEnriched(enriched)
	if out.Processed.Metadata == nil {
		out.Processed.Metadata = map[string]any{}
	} else {
		meta := make(map[string]any, len(out.Processed.Metadata)+1)
		for k, v := range out.Processed.Metadata {
			meta[k] = v
		}
		out.Processed.Metadata = meta
	}
	out.Processed.Metadata[fileContextFoldedKey] = true
	return out
}

// renderFileContext formats the processed file content as one text block.
// Documents appear before summaries, transcripts last.
func renderFileContext(pc *entity.ProcessedContent) string {
	if pc == nil {
		return ""
	}
	var b strings.Builder
	for _, f := range pc.InlineFiles {
		fmt.Fprintf(&b, "Attached document %q:\n%s\n\n", f.Filename, f.Content)
	}
	for _, f := range pc.FileSummaries {
		fmt.Fprintf(&b, "Summary of attached document %q:\n%s\n\n", f.Filename, f.Summary)
	}
	for _, t := range pc.Transcripts {
		fmt.Fprintf(&b, "Transcript of attached audio %q:\n%s\n\n", t.Filename, t.Transcript)
	}
	if b.Len() == 0 {
		return ""
	}
	return "The user attached the following files.\n\n" + strings.TrimRight(b.String(), "\n")
}
