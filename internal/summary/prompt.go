package summary

import "strings"

// Section headers the model must emit, in order. The parser keys on these
// exact names (decorations tolerated), so prompt and parser move together.
var sectionHeaders = []string{
	"Overview",
	"Main Points",
	"Key Insights",
	"Action Items",
	"Open Questions",
	"Conclusions",
}

const systemPrompt = `You are an assistant that turns meeting and talk transcripts into concise, actionable minutes.
Work only from the transcript. Never invent facts, names, dates, or figures that are not present.
Keep names, owners, deadlines, amounts, and technical values exactly as stated.
If something is unclear or missing, say so instead of guessing.`

// BuildPrompt embeds the full transcript into a single-pass summarization
// request. The whole text goes in at once; fidelity over scalability.
func BuildPrompt(transcript string) string {
	var b strings.Builder
	b.WriteString("Summarize the transcript below into exactly these six sections, in this order:\n\n")
	for _, h := range sectionHeaders {
		b.WriteString(h)
		b.WriteString(":\n")
	}
	b.WriteString("\nStart each section with its header followed by a colon on its own line.\n")
	b.WriteString("Under each header, write bullet lines starting with \"- \". Keep bullets short and concrete.\n")
	b.WriteString("Every section must appear, even if its only bullet is \"- none\".\n\n")
	b.WriteString("Transcript:\n\n")
	b.WriteString(transcript)
	return b.String()
}

// BuildRepairPrompt is the single corrective retry after a malformed
// response: same transcript, stricter formatting instruction.
func BuildRepairPrompt(transcript string, missing []string) string {
	var b strings.Builder
	b.WriteString("Your previous answer did not use the required structure")
	if len(missing) > 0 {
		b.WriteString(" (missing: ")
		b.WriteString(strings.Join(missing, ", "))
		b.WriteString(")")
	}
	b.WriteString(".\nRespond again using exactly these six headers, each on its own line, each followed by a colon:\n\n")
	for _, h := range sectionHeaders {
		b.WriteString(h)
		b.WriteString(":\n")
	}
	b.WriteString("\nNo other headers. No prose outside the sections. Bullet lines start with \"- \".\n\n")
	b.WriteString("Transcript:\n\n")
	b.WriteString(transcript)
	return b.String()
}
