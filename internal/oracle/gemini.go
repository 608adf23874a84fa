// File: internal/oracle/gemini.go
package oracle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/xkilldash9x/remedy-cli/internal/config"
)

const defaultGeminiModel = "gemini-2.5-pro"

// GeminiOracle proposes fixes through the Gemini API.
type GeminiOracle struct {
	client    *genai.Client
	model     string
	maxTokens int32
	timeout   time.Duration
	logger    *zap.Logger
}

// NewGeminiOracle initializes the client.
func NewGeminiOracle(ctx context.Context, cfg config.OracleConfig, logger *zap.Logger) (*GeminiOracle, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiOracle{
		client:    client,
		model:     model,
		maxTokens: int32(cfg.MaxTokens),
		timeout:   cfg.Timeout,
		logger:    logger.Named("oracle.gemini"),
	}, nil
}

// Propose sends one batch to the oracle. Failures are wrapped in NetworkError
// and not retried.
func (o *GeminiOracle) Propose(ctx context.Context, req Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	resp, err := o.client.Models.GenerateContent(callCtx, o.model,
		genai.Text(BuildPrompt(req)),
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
			Temperature:       genai.Ptr[float32](0.2),
			MaxOutputTokens:   o.maxTokens,
		})
	if err != nil {
		return "", &NetworkError{Provider: "gemini", Err: err}
	}

	reply := resp.Text()
	o.logger.Info("Oracle reply received.",
		zap.Duration("duration", time.Since(start)),
		zap.Int("batch_index", req.Batch.Index),
		zap.Int("reply_bytes", len(reply)))
	return reply, nil
}
