package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/recaplabs/recapd/internal/job"
)

type ollamaGenerator struct {
	endpoint string
	model    string
	numCtx   int
	client   *http.Client
}

// NewOllamaGenerator talks to a locally hosted Ollama server. The server is
// assumed already running and model-loaded; its lifecycle is not ours.
func NewOllamaGenerator(endpoint, model string, numCtx int) Generator {
	return &ollamaGenerator{
		endpoint: endpoint,
		model:    model,
		numCtx:   numCtx,
		client:   http.DefaultClient,
	}
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
	NumCtx      int     `json:"num_ctx,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (g *ollamaGenerator) Generate(ctx context.Context, req Request) (string, error) {
	payload := ollamaRequest{
		Model:  g.model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
		Options: ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
			NumCtx:      g.numCtx,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%w: ollama call interrupted: %v", job.ErrTimeout, ctxErr)
		}
		return "", fmt.Errorf("%w: reach ollama: %v", job.ErrSummaryUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: ollama returned status %s", job.ErrSummaryUnavailable, resp.Status)
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode ollama response: %v", job.ErrSummaryUnavailable, err)
	}
	return out.Response, nil
}

// Probe checks that the server answers /api/tags. Used for readiness only;
// a cold-starting server is expected to fail this for a while.
func (g *ollamaGenerator) Probe(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", job.ErrSummaryUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: ollama returned status %s", job.ErrSummaryUnavailable, resp.Status)
	}
	return nil
}
