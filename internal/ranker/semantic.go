package ranker

import (
	"context"
	"fmt"
	"math"

	"github.com/go-resty/resty/v2"
	"github.com/penstream/broadcast/internal/logger"
)

// SemanticConfig holds configuration for the embedding-backed scorer.
type SemanticConfig struct {
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
	Threshold  float64
}

// Semantic scores candidates by cosine similarity between the query
// embedding and each surface embedding, using a Jina-style embeddings
// endpoint. The score is the maximum similarity across surfaces.
type Semantic struct {
	client     *resty.Client
	endpoint   string
	model      string
	dimensions int
	threshold  float64
}

// NewSemantic creates the semantic scorer.
func NewSemantic(cfg *SemanticConfig) *Semantic {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")

	return &Semantic{
		client:     client,
		endpoint:   cfg.BaseURL,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		threshold:  cfg.Threshold,
	}
}

func (s *Semantic) Name() string { return "semantic" }

// Embedding API request/response structures
type embedRequest struct {
	Model         string   `json:"model"`
	Task          string   `json:"task,omitempty"`
	Dimensions    int      `json:"dimensions,omitempty"`
	Input         []string `json:"input"`
	EmbeddingType string   `json:"embedding_type,omitempty"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Detail string `json:"detail,omitempty"`
}

// Detect probes the embedding endpoint once at startup. A scorer that fails
// the probe is left out of the decision chain for the process lifetime.
func (s *Semantic) Detect(ctx context.Context) bool {
	if s.endpoint == "" {
		return false
	}
	_, err := s.embed(ctx, "retrieval.query", []string{"probe"})
	if err != nil {
		logger.CtxWarn(ctx, "Semantic scoring unavailable, falling back to lexical: %v", err)
		return false
	}
	return true
}

// Score embeds the query and every surface, returning the maximum cosine
// similarity.
func (s *Semantic) Score(ctx context.Context, query string, surfaces []string) (float64, error) {
	if len(surfaces) == 0 {
		return 0, nil
	}

	qVecs, err := s.embed(ctx, "retrieval.query", []string{query})
	if err != nil {
		return 0, err
	}
	sVecs, err := s.embed(ctx, "retrieval.passage", surfaces)
	if err != nil {
		return 0, err
	}

	best := 0.0
	for _, v := range sVecs {
		sim := cosineSimilarity(qVecs[0], v)
		if sim > best {
			best = sim
		}
	}
	return best, nil
}

// Accept applies the semantic accept threshold.
func (s *Semantic) Accept(score float64) bool {
	return score >= s.threshold
}

func (s *Semantic) embed(ctx context.Context, task string, texts []string) ([][]float32, error) {
	req := embedRequest{
		Model:         s.model,
		Task:          task,
		Dimensions:    s.dimensions,
		Input:         texts,
		EmbeddingType: "float",
	}

	var resp embedResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(s.endpoint)

	if err != nil {
		return nil, fmt.Errorf("failed to call embedding API: %w", err)
	}
	if httpResp.StatusCode() != 200 {
		if resp.Detail != "" {
			return nil, fmt.Errorf("embedding API error: %s", resp.Detail)
		}
		return nil, fmt.Errorf("embedding API error: status %d", httpResp.StatusCode())
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("unexpected number of embeddings: got %d, expected %d", len(resp.Data), len(texts))
	}

	// Sort by index to ensure correct order
	vecs := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < len(vecs) {
			vecs[item.Index] = item.Embedding
		}
	}
	return vecs, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
