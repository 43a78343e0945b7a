// Package ai implements the rule-driven auto-responder.
//
// AI rules carry a system prompt as their action. When an inbound message
// matches one under first-match-wins policy, the responder feeds the prompt,
// recent channel history, and the message to an OpenAI-compatible endpoint
// and returns the completion as the reply text.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	openai "github.com/sashabaranov/go-openai"
)

// Config configures the responder.
type Config struct {
	// Enabled is the initial enabled state.
	Enabled bool
	// Model is the model name requested from the endpoint.
	Model string
	// Endpoint overrides the API base URL. Empty means the default
	// OpenAI endpoint.
	Endpoint string
	// Token is the API token.
	Token string
	// MaxTokens bounds completion length. Zero means the endpoint default.
	MaxTokens int
}

// Responder generates replies for matched AI rules.
type Responder struct {
	client    *openai.Client
	model     string
	maxTokens int
	enabled   atomic.Bool
	log       *slog.Logger
}

// New creates a responder. The returned responder is usable even when
// disabled; Reply fails fast in that case.
func New(cfg Config, log *slog.Logger) *Responder {
	if log == nil {
		log = slog.Default()
	}
	c := openai.DefaultConfig(cfg.Token)
	if cfg.Endpoint != "" {
		c.BaseURL = cfg.Endpoint
	}
	r := &Responder{
		client:    openai.NewClientWithConfig(c),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		log:       log,
	}
	r.enabled.Store(cfg.Enabled)
	return r
}

// Enabled reports whether the responder is on.
func (r *Responder) Enabled() bool { return r.enabled.Load() }

// SetEnabled turns the responder on or off.
func (r *Responder) SetEnabled(on bool) { r.enabled.Store(on) }

// Reply generates a response to text under the given system prompt.
// history is recent channel context, oldest first, attributed lines like
// "name: text".
func (r *Responder) Reply(ctx context.Context, system string, history []string, text string) (string, error) {
	if !r.Enabled() {
		return "", fmt.Errorf("responder is disabled")
	}
	msgs := make([]openai.ChatCompletionMessage, 0, 3)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	if len(history) > 0 {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: "Recent conversation:\n" + strings.Join(history, "\n"),
		})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     r.model,
		Messages:  msgs,
		MaxTokens: r.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("couldn't generate response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
