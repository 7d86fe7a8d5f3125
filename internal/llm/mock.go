package llm

import (
	"context"
	"strings"
	"time"
)

type mockGenerator struct{}

func NewMockGenerator() Generator { return &mockGenerator{} }

// Generate answers with a well-formed six-section document so the full
// pipeline can run end to end without a model server.
func (m *mockGenerator) Generate(ctx context.Context, req Request) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(20 * time.Millisecond):
	}
	var b strings.Builder
	b.WriteString("Overview:\n- mock summary of the provided transcript\n")
	b.WriteString("Main Points:\n- mock main point\n")
	b.WriteString("Key Insights:\n- mock insight\n")
	b.WriteString("Action Items:\n- mock action item\n")
	b.WriteString("Open Questions:\n- mock open question\n")
	b.WriteString("Conclusions:\n- mock conclusion\n")
	return b.String(), nil
}

func (m *mockGenerator) Probe(context.Context) error { return nil }
