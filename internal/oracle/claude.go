// File: internal/oracle/claude.go
package oracle

import (
	"context"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/xkilldash9x/remedy-cli/internal/config"
)

const defaultClaudeModel = "claude-sonnet-4-5-20250929"

// ClaudeOracle proposes fixes through the Anthropic Messages API.
type ClaudeOracle struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	logger    *zap.Logger
}

// NewClaudeOracle initializes the client. The API key must already be present
// in the config; the factory rejects a missing credential before reaching
// here.
func NewClaudeOracle(cfg config.OracleConfig, logger *zap.Logger) *ClaudeOracle {
	model := cfg.Model
	if model == "" {
		model = defaultClaudeModel
	}
	return &ClaudeOracle{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     model,
		maxTokens: int64(cfg.MaxTokens),
		timeout:   cfg.Timeout,
		logger:    logger.Named("oracle.claude"),
	}
}

// Propose sends one batch to the oracle. A transport or API failure is
// wrapped in NetworkError and not retried; the batch is abandoned.
func (o *ClaudeOracle) Propose(ctx context.Context, req Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	msg, err := o.client.Messages.New(callCtx, anthropic.MessageNewParams{
		Model:     anthropic.Model(o.model),
		MaxTokens: o.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(BuildPrompt(req))),
		},
	})
	if err != nil {
		return "", &NetworkError{Provider: "claude", Err: err}
	}

	var reply string
	for _, block := range msg.Content {
		if block.Type == "text" {
			reply += block.Text
		}
	}

	o.logger.Info("Oracle reply received.",
		zap.Duration("duration", time.Since(start)),
		zap.Int("batch_index", req.Batch.Index),
		zap.Int("reply_bytes", len(reply)))
	return reply, nil
}
