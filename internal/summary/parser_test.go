package summary

import (
	"strings"
	"testing"
)

const wellFormed = `Overview:
- Weekly planning sync for the rollout.
Main Points:
- Migration is on track.
- Two services still need load testing.
Key Insights:
- Capacity headroom is thinner than expected.
Action Items:
- Dana runs the load test by Friday.
Open Questions:
- Who owns the fallback plan?
Conclusions:
- Proceed with the staged rollout.`

func TestParseWellFormed(t *testing.T) {
	res := Parse(wellFormed)
	if res.Status != ParsedSix {
		t.Fatalf("status = %v, missing = %v", res.Status, res.Missing)
	}
	if len(res.Summary.MainPoints) != 2 {
		t.Fatalf("main points = %v", res.Summary.MainPoints)
	}
	if res.Summary.ActionItems[0] != "Dana runs the load test by Friday." {
		t.Fatalf("action item = %q", res.Summary.ActionItems[0])
	}
	if res.Summary.Raw != wellFormed {
		t.Fatal("raw text not retained")
	}
}

func TestParseMarkdownDecoration(t *testing.T) {
	raw := `### 1. **Overview:**
The quarterly review covered revenue.
## Main Points:
* Revenue grew 8%.
**Key Insights:**
- Churn is concentrated in one segment.
#### Action Items:
- none
Open Questions
- none
**Conclusions**
- Solid quarter overall.`

	res := Parse(raw)
	if res.Status != ParsedSix {
		t.Fatalf("status = %v, missing = %v", res.Status, res.Missing)
	}
	if len(res.Summary.Overview) == 0 || !strings.Contains(res.Summary.Overview[0], "quarterly review") {
		t.Fatalf("overview = %v", res.Summary.Overview)
	}
	if res.Summary.Conclusions[0] != "Solid quarter overall." {
		t.Fatalf("conclusions = %v", res.Summary.Conclusions)
	}
}

func TestParseInlineHeaderText(t *testing.T) {
	raw := `Overview: a short catch-up call
Main Points:
- one thing
Key Insights:
Action Items:
Open Questions:
Conclusions:`

	res := Parse(raw)
	if res.Status != ParsedSix {
		t.Fatalf("status = %v, missing = %v", res.Status, res.Missing)
	}
	if res.Summary.Overview[0] != "a short catch-up call" {
		t.Fatalf("overview = %v", res.Summary.Overview)
	}
	// Recognized-but-empty sections are empty slices, never nil.
	if res.Summary.KeyInsights == nil || len(res.Summary.KeyInsights) != 0 {
		t.Fatalf("key insights = %#v", res.Summary.KeyInsights)
	}
}

func TestParseMissingSections(t *testing.T) {
	raw := `Overview:
- something happened
Main Points:
- a point`

	res := Parse(raw)
	if res.Status != NeedsRepair {
		t.Fatalf("status = %v, want NeedsRepair", res.Status)
	}
	if len(res.Missing) != 4 {
		t.Fatalf("missing = %v", res.Missing)
	}
}

func TestParseUnparsable(t *testing.T) {
	for _, raw := range []string{
		"",
		"The meeting went well and everyone agreed to follow up next week.",
		"# Notes\nsome free-form prose without any of the agreed structure",
	} {
		res := Parse(raw)
		if res.Status != Unparsable {
			t.Fatalf("status for %q = %v, want Unparsable", raw, res.Status)
		}
	}
}

func TestParseDoesNotMistakeBulletsForHeaders(t *testing.T) {
	raw := wellFormed + "\n- Overview of next steps will follow by mail."
	res := Parse(raw)
	if res.Status != ParsedSix {
		t.Fatalf("status = %v", res.Status)
	}
	last := res.Summary.Conclusions[len(res.Summary.Conclusions)-1]
	if last != "Overview of next steps will follow by mail." {
		t.Fatalf("trailing bullet = %q", last)
	}
}
