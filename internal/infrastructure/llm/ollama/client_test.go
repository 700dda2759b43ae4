package ollama

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeneratePassesPromptThrough(t *testing.T) {
	var capturedPrompt string
	var capturedFormat string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		capturedPrompt, _ = payload["prompt"].(string)
		capturedFormat, _ = payload["format"].(string)
		_, _ = w.Write([]byte(`{"response":"Your deductible is $1,500."}`))
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "gen", "embed", nil))

	text, err := gen.Generate(context.Background(), "What is my deductible?")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "Your deductible is $1,500." {
		t.Errorf("unexpected text %q", text)
	}
	if capturedPrompt != "What is my deductible?" {
		t.Errorf("prompt not passed through, got %q", capturedPrompt)
	}
	if capturedFormat != "" {
		t.Errorf("plain generation must not force a format, got %q", capturedFormat)
	}

	if _, err := gen.GenerateJSON(context.Background(), "{}"); err != nil {
		t.Fatalf("GenerateJSON() error = %v", err)
	}
	if capturedFormat != "json" {
		t.Errorf("json generation must request format=json, got %q", capturedFormat)
	}
}

func TestVerifierParsesJudgeResponse(t *testing.T) {
	response := "FAITHFUL: YES\nCONFIDENCE: 0.9"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := json.Marshal(map[string]string{"response": response})
		_, _ = w.Write(body)
	}))
	defer server.Close()

	verifier := NewVerifier(New(server.URL, "gen", "embed", nil))

	score, err := verifier.Verify(context.Background(), "answer", "context")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if math.Abs(score-0.9) > 1e-9 {
		t.Errorf("score = %f, want 0.9", score)
	}

	response = "FAITHFUL: PARTIAL\nCONFIDENCE: 0.8"
	score, err = verifier.Verify(context.Background(), "answer", "context")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if math.Abs(score-0.4) > 1e-9 {
		t.Errorf("partial verdict should halve the score, got %f", score)
	}

	response = "I think it looks fine."
	if _, err = verifier.Verify(context.Background(), "answer", "context"); err == nil {
		t.Fatal("unparseable judge response must surface an error")
	}
}

func TestParseVerificationResponse(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"FAITHFUL: YES\nCONFIDENCE: 1.0", 1.0, false},
		{"faithful: no\nconfidence: 0.7", 0.0, false},
		{"FAITHFUL: YES\nCONFIDENCE: 1.7", 1.0, false},
		{"CONFIDENCE: 0.5", 0, true},
		{"FAITHFUL: YES", 0, true},
	}
	for _, tc := range tests {
		got, err := parseVerificationResponse(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseVerificationResponse(%q) error = %v", tc.in, err)
			continue
		}
		if !tc.wantErr && math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("parseVerificationResponse(%q) = %f, want %f", tc.in, got, tc.want)
		}
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed", nil))

	_, err := embedder.Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestEmbedChecksVectorCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2]]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed", nil))

	if _, err := embedder.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("mismatched vector count must error")
	}
	vec, err := embedder.EmbedQuery(context.Background(), "a")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vec) != 2 {
		t.Errorf("vector length = %d", len(vec))
	}
}
