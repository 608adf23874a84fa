// File: internal/oracle/factory.go
package oracle

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/remedy-cli/internal/config"
)

// New is a factory function that creates an Oracle based on the configuration.
// A missing credential is a structured configuration failure, not a crash.
func New(ctx context.Context, cfg config.OracleConfig, logger *zap.Logger) (Oracle, error) {
	if cfg.APIKey == "" {
		return nil, &config.ConfigurationError{
			Setting: "oracle.api_key",
			Reason: fmt.Sprintf("no API key configured for provider %q "+
				"(set REMEDY_ORACLE_API_KEY or the provider's native variable)", cfg.Provider),
		}
	}

	switch cfg.Provider {
	case config.ProviderClaude:
		return NewClaudeOracle(cfg, logger), nil
	case config.ProviderGemini:
		return NewGeminiOracle(ctx, cfg, logger)
	default:
		return nil, &config.ConfigurationError{
			Setting: "oracle.provider",
			Reason:  fmt.Sprintf("unknown or unsupported provider %q", cfg.Provider),
		}
	}
}
