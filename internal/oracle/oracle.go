// Package oracle wraps the text-completion backend used by the audit stages.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// Usage reports token counters for one completion.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

// Completion is the raw text returned by the oracle plus its usage.
type Completion struct {
	Text  string
	Usage Usage
}

// Client completes a prompt. Implementations must be safe for concurrent use.
type Client interface {
	Complete(ctx context.Context, prompt string) (Completion, error)
}

// ErrEmptyCompletion is returned when the backend produced no choice.
var ErrEmptyCompletion = errors.New("oracle returned no content")

// Config selects and configures a langchaingo backend.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// LLM implements Client on top of a langchaingo model in JSON mode.
type LLM struct {
	model   llms.Model
	timeout time.Duration
	logger  *zap.Logger
}

// NewLLM wraps an existing langchaingo model.
func NewLLM(model llms.Model, timeout time.Duration, logger *zap.Logger) *LLM {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLM{model: model, timeout: timeout, logger: logger}
}

// New builds the backend named by cfg.Provider.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*LLM, error) {
	var (
		model llms.Model
		err   error
	)
	switch cfg.Provider {
	case "googleai", "":
		model, err = googleai.New(ctx,
			googleai.WithAPIKey(cfg.APIKey),
			googleai.WithDefaultModel(cfg.Model),
		)
	case "openai":
		opts := []openai.Option{openai.WithToken(cfg.APIKey), openai.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		model, err = ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s oracle: %w", cfg.Provider, err)
	}
	return NewLLM(model, cfg.Timeout, logger), nil
}

// Complete sends prompt as a single human message and returns the first choice.
func (c *LLM) Complete(ctx context.Context, prompt string) (Completion, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	resp, err := c.model.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)},
		llms.WithJSONMode(),
	)
	if err != nil {
		return Completion{}, fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return Completion{}, ErrEmptyCompletion
	}
	choice := resp.Choices[0]
	usage := usageFrom(choice.GenerationInfo)
	c.logger.Debug("oracle completion",
		zap.Int("prompt_chars", len(prompt)),
		zap.Int("response_chars", len(choice.Content)),
		zap.Int64("total_tokens", usage.TotalTokens),
	)
	return Completion{Text: choice.Content, Usage: usage}, nil
}

// usageFrom reads token counters from provider-specific generation info keys.
func usageFrom(info map[string]any) Usage {
	u := Usage{
		PromptTokens:     firstInt(info, "input_tokens", "PromptTokens", "prompt_tokens"),
		CompletionTokens: firstInt(info, "output_tokens", "CompletionTokens", "completion_tokens"),
		TotalTokens:      firstInt(info, "total_tokens", "TotalTokens"),
	}
	if u.TotalTokens == 0 {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}
	return u
}

func firstInt(info map[string]any, keys ...string) int64 {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return int64(v)
		case int32:
			return int64(v)
		case int64:
			return v
		case float64:
			return int64(v)
		}
	}
	return 0
}
