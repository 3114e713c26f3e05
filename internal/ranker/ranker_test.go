package ranker

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			name:     "simple words",
			text:     "Rocket Launch Today",
			expected: []string{"rocket", "launch", "today"},
		},
		{
			name:     "short tokens dropped",
			text:     "go to the moon",
			expected: []string{"the", "moon"},
		},
		{
			name:     "punctuation splits",
			text:     "rocket-launch, SpaceX!",
			expected: []string{"rocket", "launch", "spacex"},
		},
		{
			name:     "url surface",
			text:     "https://www.pexels.com/video/rocket-liftoff-12345/",
			expected: []string{"https", "www", "pexels", "com", "video", "rocket", "liftoff", "12345"},
		},
		{
			name:     "digits kept",
			text:     "falcon 9 at pad 39a",
			expected: []string{"falcon", "pad", "39a"},
		},
		{
			name:     "empty",
			text:     "",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			if len(got) == 0 && len(tt.expected) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.text, got, tt.expected)
			}
		})
	}
}

func TestTokenHit(t *testing.T) {
	tests := []struct {
		name     string
		tokens   []string
		surfaces []string
		expected bool
	}{
		{
			name:     "single hit is enough",
			tokens:   []string{"rocket", "launch"},
			surfaces: []string{"https://www.pexels.com/video/a-rocket-in-the-sky-1/"},
			expected: true,
		},
		{
			name:     "no overlap",
			tokens:   []string{"election", "results"},
			surfaces: []string{"https://www.pexels.com/video/ocean-waves-2/"},
			expected: false,
		},
		{
			name:     "case insensitive surfaces",
			tokens:   []string{"spacex"},
			surfaces: []string{"SpaceX Media Team"},
			expected: true,
		},
		{
			name:     "no tokens",
			tokens:   nil,
			surfaces: []string{"anything"},
			expected: false,
		},
		{
			name:     "no surfaces",
			tokens:   []string{"rocket"},
			surfaces: nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TokenHit(tt.tokens, tt.surfaces); got != tt.expected {
				t.Errorf("TokenHit(%v, %v) = %v, want %v", tt.tokens, tt.surfaces, got, tt.expected)
			}
		})
	}
}

func TestLexicalScore(t *testing.T) {
	lex := NewLexical()
	ctx := context.Background()

	tests := []struct {
		name     string
		query    string
		surfaces []string
		min, max float64
	}{
		{
			name:     "identical text scores 1",
			query:    "rocket launch",
			surfaces: []string{"rocket launch"},
			min:      0.999,
			max:      1.001,
		},
		{
			name:     "partial overlap",
			query:    "rocket launch",
			surfaces: []string{"rocket over ocean"},
			min:      0.01,
			max:      0.99,
		},
		{
			name:     "no overlap scores 0",
			query:    "rocket launch",
			surfaces: []string{"cute cats sleeping"},
			min:      0,
			max:      0,
		},
		{
			name:     "empty surfaces score 0",
			query:    "rocket launch",
			surfaces: nil,
			min:      0,
			max:      0,
		},
		{
			name:     "max over surfaces",
			query:    "rocket launch",
			surfaces: []string{"cute cats", "rocket launch pad"},
			min:      0.5,
			max:      1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := lex.Score(ctx, tt.query, tt.surfaces)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got < tt.min || got > tt.max {
				t.Errorf("Score(%q, %v) = %v, want in [%v, %v]", tt.query, tt.surfaces, got, tt.min, tt.max)
			}
		})
	}
}

func TestLexicalAccept(t *testing.T) {
	lex := NewLexical()
	if lex.Accept(0) {
		t.Error("expected zero score to be rejected")
	}
	if !lex.Accept(0.1) {
		t.Error("expected positive score to be accepted")
	}
}

// embedStub serves deterministic unit vectors so cosine similarity is exact:
// texts containing "rocket" map to e1, everything else to e2.
func embedStub(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		type item struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		resp := struct {
			Data []item `json:"data"`
		}{}
		for i, text := range req.Input {
			vec := []float32{0, 1}
			if strings.Contains(text, "rocket") {
				vec = []float32{1, 0}
			}
			resp.Data = append(resp.Data, item{Embedding: vec, Index: i})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestSemanticScore(t *testing.T) {
	srv := embedStub(t)
	defer srv.Close()

	sem := NewSemantic(&SemanticConfig{
		Model:     "test-model",
		APIKey:    "test-key",
		BaseURL:   srv.URL,
		Threshold: 0.56,
	})

	ctx := context.Background()

	if !sem.Detect(ctx) {
		t.Fatal("expected probe to succeed against stub server")
	}

	score, err := sem.Score(ctx, "rocket launch", []string{"ocean waves", "rocket liftoff video"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(score-1.0) > 1e-6 {
		t.Errorf("expected max similarity 1.0, got %v", score)
	}
	if !sem.Accept(score) {
		t.Error("expected score above threshold to be accepted")
	}

	score, err = sem.Score(ctx, "rocket launch", []string{"ocean waves"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score > 1e-6 {
		t.Errorf("expected orthogonal vectors to score 0, got %v", score)
	}
	if sem.Accept(score) {
		t.Error("expected score below threshold to be rejected")
	}
}

func TestSemanticScoreEmptySurfaces(t *testing.T) {
	sem := NewSemantic(&SemanticConfig{BaseURL: "http://127.0.0.1:1", Threshold: 0.56})
	score, err := sem.Score(context.Background(), "anything", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score != 0 {
		t.Errorf("expected 0 for empty surfaces, got %v", score)
	}
}

func TestSemanticDetectFailure(t *testing.T) {
	sem := NewSemantic(&SemanticConfig{
		Model:     "test-model",
		BaseURL:   "http://127.0.0.1:1",
		Threshold: 0.56,
	})
	if sem.Detect(context.Background()) {
		t.Error("expected probe to fail for unreachable endpoint")
	}

	sem = NewSemantic(&SemanticConfig{Threshold: 0.56})
	if sem.Detect(context.Background()) {
		t.Error("expected probe to fail with no endpoint configured")
	}
}
