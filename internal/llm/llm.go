// Package llm talks to the language-model providers used for planning and
// content generation: Anthropic Claude on AWS Bedrock, the Anthropic API,
// and the OpenAI API. Every provider implements Completer.
//
// Calls are made once. Errors are wrapped in domain.ErrUpstream and callers
// surface them to the user, who may retry by resubmitting.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/letteros/letteros/internal/config"
	"github.com/letteros/letteros/internal/domain"
	"github.com/letteros/letteros/internal/pkg/awsconf"
)

// Role of a message in a conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn sent to the model.
type Message struct {
	Role Role
	Text string
}

// Request is a provider-neutral completion request.
type Request struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Completer returns the model's text reply to a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// New builds the Completer selected by cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig) (Completer, error) {
	defaults := Request{MaxTokens: cfg.MaxTokens, Temperature: cfg.Temperature}
	httpClient := &http.Client{Timeout: cfg.Timeout()}

	switch cfg.Provider {
	case "bedrock":
		awsCfg, err := awsconf.Load(ctx, cfg.Region, "")
		if err != nil {
			return nil, err
		}
		return NewBedrock(bedrockruntime.NewFromConfig(awsCfg), cfg.Model, defaults), nil
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, fmt.Errorf("llm: anthropic_api_key is required")
		}
		return NewAnthropic(httpClient, cfg.BaseURL, cfg.AnthropicKey, cfg.Model, defaults), nil
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("llm: openai_api_key is required")
		}
		return NewOpenAI(httpClient, cfg.BaseURL, cfg.OpenAIKey, cfg.Model, defaults), nil
	}
	return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
}

func upstream(provider string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrUpstream, provider, err)
}

func withDefaults(req, defaults Request) Request {
	if req.MaxTokens <= 0 {
		req.MaxTokens = defaults.MaxTokens
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = 4000
	}
	if req.Temperature == 0 {
		req.Temperature = defaults.Temperature
	}
	return req
}

// defaultTimeout bounds HTTP providers built without a client.
const defaultTimeout = 60 * time.Second
