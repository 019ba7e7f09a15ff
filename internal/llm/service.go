package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/quantfold/deepstock/internal/config"
)

// ErrModelDisabled is returned when no language model is configured.
// Callers fall back to deterministic scoring.
var ErrModelDisabled = errors.New("language model disabled")

// Service is the narrow completion surface stages and synthesis talk to.
// Implementations must honor the context deadline.
type Service interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Enabled() bool
}

// ChatService adapts an eino chat model to the Service interface.
type ChatService struct {
	chatModel model.BaseChatModel
	provider  string
	timeout   time.Duration
	log       zerolog.Logger
}

var _ Service = (*ChatService)(nil)

// NewService builds a Service from configuration. Provider "none" yields
// a disabled service rather than an error so pipelines can run dry.
func NewService(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (Service, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	componentLog := logger.With().Str("component", "llm").Str("provider", provider).Logger()

	switch provider {
	case "", "none":
		return &disabledService{}, nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, &config.ConfigError{Field: "OPENAI_API_KEY", Reason: "required for provider openai"}
		}
		maxTokens := 8192
		chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:   cfg.BackendURL,
			APIKey:    cfg.OpenAIAPIKey,
			Model:     cfg.Model,
			MaxTokens: &maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("create openai chat model: %w", err)
		}
		return &ChatService{
			chatModel: chatModel,
			provider:  provider,
			timeout:   cfg.LLMTimeout,
			log:       componentLog,
		}, nil
	case "deepseek":
		if cfg.DeepSeekAPIKey == "" {
			return nil, &config.ConfigError{Field: "DEEPSEEK_API_KEY", Reason: "required for provider deepseek"}
		}
		chatModel, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:    cfg.DeepSeekAPIKey,
			Model:     cfg.Model,
			MaxTokens: 4096,
		})
		if err != nil {
			return nil, fmt.Errorf("create deepseek chat model: %w", err)
		}
		return &ChatService{
			chatModel: chatModel,
			provider:  provider,
			timeout:   cfg.LLMTimeout,
			log:       componentLog,
		}, nil
	default:
		return nil, &config.ConfigError{Field: "LLM_PROVIDER", Reason: "unknown provider " + cfg.LLMProvider}
	}
}

func (s *ChatService) Enabled() bool { return true }

// Complete runs one system+user exchange and returns the raw text reply.
func (s *ChatService) Complete(ctx context.Context, system, user string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	messages := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}

	started := time.Now()
	reply, err := s.chatModel.Generate(ctx, messages)
	if err != nil {
		s.log.Warn().Err(err).Dur("elapsed", time.Since(started)).Msg("completion failed")
		return "", fmt.Errorf("generate: %w", err)
	}
	if reply == nil || strings.TrimSpace(reply.Content) == "" {
		return "", errors.New("empty model reply")
	}

	s.log.Debug().
		Dur("elapsed", time.Since(started)).
		Int("reply_chars", len(reply.Content)).
		Msg("completion ok")
	return reply.Content, nil
}

// disabledService satisfies Service when no provider is configured.
type disabledService struct{}

func (d *disabledService) Enabled() bool { return false }

func (d *disabledService) Complete(ctx context.Context, system, user string) (string, error) {
	return "", ErrModelDisabled
}
