package embed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	embedDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "veritas",
		Subsystem: "embedding",
		Name:      "request_duration_seconds",
		Help:      "Duration of embedding provider requests",
	}, []string{"model"})

	embedFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "veritas",
		Subsystem: "embedding",
		Name:      "request_failures_total",
		Help:      "Number of failed embedding provider requests",
	}, []string{"model"})

	embedChunks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "veritas",
		Subsystem: "embedding",
		Name:      "chunks_total",
		Help:      "Number of text chunks sent to the embedding provider",
	}, []string{"model"})
)

// Long documents exceed the provider's per-request size limit, so text is
// split into sequential chunks of roughly 7,500 tokens at 4 chars/token.
const defaultMaxChunkChars = 30000

// OpenAIConfig defines configuration options for the OpenAI embedder.
type OpenAIConfig struct {
	APIKey        string
	Model         string
	MaxChunkChars int
	Timeout       time.Duration
	Logger        zerolog.Logger
}

// OpenAIEmbedder implements Embedder against the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIEmbedder builds a new embedder using the provided configuration.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = string(openai.SmallEmbedding3)
	}

	if cfg.MaxChunkChars <= 0 {
		cfg.MaxChunkChars = defaultMaxChunkChars
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	tracer := otel.Tracer("github.com/veritas-lms/veritas-go-api/pkg/embed/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	client := openai.NewClientWithConfig(config)

	return &OpenAIEmbedder{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger,
	}, nil
}

// Embed requests one embedding per chunk of the text and averages the chunk
// vectors element-wise into a single document fingerprint. Chunks that are
// blank after trimming are skipped.
func (e *OpenAIEmbedder) Embed(parent context.Context, text string) ([]float64, error) {
	ctx, span := e.tracer.Start(parent, "openai.embed", trace.WithAttributes(
		attribute.String("model", e.cfg.Model),
		attribute.Int("text_chars", len(text)),
	))
	defer span.End()

	chunks := splitChunks(text, e.cfg.MaxChunkChars)
	if len(chunks) == 0 {
		err := fmt.Errorf("no embeddable text")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	vectors := make([][]float64, 0, len(chunks))
	for _, chunk := range chunks {
		vector, err := e.embedChunk(ctx, chunk)
		if err != nil {
			embedFailures.WithLabelValues(e.cfg.Model).Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		vectors = append(vectors, vector)
	}

	span.SetAttributes(attribute.Int("chunks", len(vectors)))
	return average(vectors), nil
}

func (e *OpenAIEmbedder) embedChunk(parent context.Context, chunk string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(parent, e.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{chunk},
		Model: openai.EmbeddingModel(e.cfg.Model),
	})
	embedDuration.WithLabelValues(e.cfg.Model).Observe(time.Since(start).Seconds())
	embedChunks.WithLabelValues(e.cfg.Model).Inc()
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("no embedding returned from openai")
	}

	raw := resp.Data[0].Embedding
	vector := make([]float64, len(raw))
	for i, v := range raw {
		vector[i] = float64(v)
	}
	return vector, nil
}

// splitChunks cuts text into sequential non-overlapping rune chunks of at
// most maxChars, dropping chunks that are blank after trimming.
func splitChunks(text string, maxChars int) []string {
	runes := []rune(text)
	chunks := make([]string, 0, len(runes)/maxChars+1)
	for start := 0; start < len(runes); start += maxChars {
		end := start + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		chunk := string(runes[start:end])
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}
