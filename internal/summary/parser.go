package summary

import (
	"strings"

	"github.com/recaplabs/recapd/internal/job"
)

// ParseStatus is the outcome of structuring one raw model response.
type ParseStatus int

const (
	// ParsedSix means all six sections were recognized.
	ParsedSix ParseStatus = iota
	// NeedsRepair means some but not all sections were recognized; a
	// corrective retry may fix the format.
	NeedsRepair
	// Unparsable means no section structure was found at all.
	Unparsable
)

// ParseResult is the tagged outcome of parsing. A partially recognized
// document is never silently promoted to a summary; the caller decides
// whether to repair or fail.
type ParseResult struct {
	Status  ParseStatus
	Summary job.StructuredSummary
	Missing []string
}

// Parse structures a free-form model response into the six fixed sections.
// It tolerates markdown decoration around headers (###, **, numbering) but
// requires the section names themselves.
func Parse(raw string) ParseResult {
	sections := make(map[string][]string, len(sectionHeaders))
	seen := make(map[string]bool, len(sectionHeaders))

	current := ""
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if name, rest, ok := matchHeader(line); ok {
			current = name
			seen[name] = true
			if rest != "" {
				sections[name] = append(sections[name], rest)
			}
			continue
		}
		if current == "" {
			continue // preamble before the first header
		}
		sections[current] = append(sections[current], stripBullet(line))
	}

	var missing []string
	for _, h := range sectionHeaders {
		if !seen[h] {
			missing = append(missing, h)
		}
	}

	result := ParseResult{
		Missing: missing,
		Summary: job.StructuredSummary{
			Overview:      emptyNotNil(sections["Overview"]),
			MainPoints:    emptyNotNil(sections["Main Points"]),
			KeyInsights:   emptyNotNil(sections["Key Insights"]),
			ActionItems:   emptyNotNil(sections["Action Items"]),
			OpenQuestions: emptyNotNil(sections["Open Questions"]),
			Conclusions:   emptyNotNil(sections["Conclusions"]),
			Raw:           raw,
		},
	}
	switch {
	case len(missing) == 0:
		result.Status = ParsedSix
	case len(missing) == len(sectionHeaders):
		result.Status = Unparsable
	default:
		result.Status = NeedsRepair
	}
	return result
}

// matchHeader recognizes a section header line, returning the canonical
// name and any text that followed the colon on the same line.
func matchHeader(line string) (name, rest string, ok bool) {
	cleaned := strings.TrimLeft(line, "#*-1234567890. \t")
	cleaned = strings.TrimSpace(cleaned)
	for _, h := range sectionHeaders {
		if len(cleaned) < len(h) {
			continue
		}
		if !strings.EqualFold(cleaned[:len(h)], h) {
			continue
		}
		tail := strings.TrimSpace(cleaned[len(h):])
		tail = strings.TrimLeft(tail, "*") // closing markdown bold
		if tail == "" {
			// bare header without colon, still accepted
			return h, "", true
		}
		if strings.HasPrefix(tail, ":") {
			remainder := strings.TrimSpace(strings.TrimPrefix(tail, ":"))
			remainder = strings.Trim(remainder, "*")
			return h, strings.TrimSpace(remainder), true
		}
	}
	return "", "", false
}

func stripBullet(line string) string {
	trimmed := strings.TrimSpace(strings.TrimLeft(line, "-*• \t"))
	if trimmed == "" {
		return line
	}
	return trimmed
}

func emptyNotNil(lines []string) []string {
	if lines == nil {
		return []string{}
	}
	return lines
}
