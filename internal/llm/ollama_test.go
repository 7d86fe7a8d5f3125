package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/recaplabs/recapd/internal/job"
)

func TestOllamaGenerate(t *testing.T) {
	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ollamaResponse{Response: "Overview:\n- ok", Done: true})
	}))
	defer srv.Close()

	gen := NewOllamaGenerator(srv.URL, "phi3.5", 4096)
	out, err := gen.Generate(context.Background(), Request{Prompt: "summarize this", Temperature: 0.7})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "Overview:\n- ok" {
		t.Fatalf("response = %q", out)
	}
	if got.Model != "phi3.5" || got.Stream {
		t.Fatalf("request = %+v", got)
	}
	if got.Options.NumCtx != 4096 {
		t.Fatalf("num_ctx = %d", got.Options.NumCtx)
	}
}

func TestOllamaUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	gen := NewOllamaGenerator(srv.URL, "phi3.5", 0)
	if _, err := gen.Generate(context.Background(), Request{Prompt: "x"}); !errors.Is(err, job.ErrSummaryUnavailable) {
		t.Fatalf("error = %v, want ErrSummaryUnavailable", err)
	}
}

func TestOllamaServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	gen := NewOllamaGenerator(srv.URL, "phi3.5", 0)
	if _, err := gen.Generate(context.Background(), Request{Prompt: "x"}); !errors.Is(err, job.ErrSummaryUnavailable) {
		t.Fatalf("error = %v, want ErrSummaryUnavailable", err)
	}
}

func TestOllamaProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	gen := NewOllamaGenerator(srv.URL, "phi3.5", 0).(Prober)
	if err := gen.Probe(context.Background()); err != nil {
		t.Fatalf("probe: %v", err)
	}
}
