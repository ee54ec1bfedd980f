package openai

import (
	"math"
	"sync"

	"github.com/accredmap/backend/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

// EmbedOpenAIClient implements ai.EmbeddingClient against an OpenAI-compatible
// embeddings endpoint.
//
// An EmbedOpenAIClient should be created using NewEmbedOpenAIClient.
type EmbedOpenAIClient struct {
	embeddingModel string
	timeoutMin     int

	embeddingLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	EmbeddingClient *openai.Client
}

// NewEmbedOpenAIClientParams defines the configuration parameters for
// creating a new EmbedOpenAIClient.
type NewEmbedOpenAIClientParams struct {
	EmbeddingModel string

	EmbeddingURL string
	EmbeddingKey string

	MaxConcurrentRequests int64
	TimeoutMin            int
}

// NewEmbedOpenAIClient creates and returns a new embedding client configured
// with the provided parameters.
//
// Example:
//
//	client := openai.NewEmbedOpenAIClient(openai.NewEmbedOpenAIClientParams{
//		EmbeddingModel: "text-embedding-3-small",
//		EmbeddingURL:   "https://api.openai.com/v1",
//		EmbeddingKey:   os.Getenv("OPENAI_API_KEY"),
//	})
func NewEmbedOpenAIClient(params NewEmbedOpenAIClientParams) *EmbedOpenAIClient {
	maxRequests := params.MaxConcurrentRequests
	if maxRequests <= 0 {
		maxRequests = 8
	}
	timeoutMin := params.TimeoutMin
	if timeoutMin <= 0 {
		timeoutMin = 2
	}

	return &EmbedOpenAIClient{
		embeddingModel: params.EmbeddingModel,
		timeoutMin:     timeoutMin,

		embeddingLock: semaphore.NewWeighted(maxRequests),

		metricsLock: sync.Mutex{},
		metrics:     ai.ModelMetrics{},

		EmbeddingClient: newOpenaiClient(params.EmbeddingURL, params.EmbeddingKey),
	}
}

func newOpenaiClient(baseURL string, apiKey string) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}

// ResetMetrics clears all accumulated token and timing metrics to zero.
func (c *EmbedOpenAIClient) ResetMetrics() {
	c.metricsLock.Lock()
	c.metrics = ai.ModelMetrics{}
	c.metricsLock.Unlock()
}

// GetMetrics returns the accumulated usage metrics since the last reset.
func (c *EmbedOpenAIClient) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}

func (c *EmbedOpenAIClient) modifyMetrics(m ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics.InputTokens += m.InputTokens
	c.metrics.TotalTokens += m.TotalTokens
	c.metrics.DurationMs += m.DurationMs

	if c.metrics.DurationMs > 0 {
		tokensPerSecond := (float64(c.metrics.TotalTokens) * 1000.0) / float64(c.metrics.DurationMs)
		c.metrics.TokenPerSecond = float32(math.Round(tokensPerSecond*100) / 100)
	}
}
