// Package responder implements the generative-response collaborator: it
// turns the engine's structured signals into the chat prose shown to the
// parent. The orchestration core never calls this package directly.
package responder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/carebridge/intakepipe/internal/engine"
	"github.com/carebridge/intakepipe/internal/models"
)

const systemPrompt = `You are a warm, plain-spoken intake assistant for a pediatric mental-health service, talking with a parent. You are given structured signals about the conversation state. Write the next short message to the parent. Never diagnose. Never mention internal state names. If a clarification prompt is provided, deliver it gently. If a next question is provided, ask exactly that question. If escalation is triggered, let the parent know a member of the care team will reach out shortly.`

// Opts holds configuration options for the responder.
type Opts struct {
	APIKey string
	Model  string
}

// Option defines a configuration option for the responder.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the chat model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// Client composes parent-facing prose with the OpenAI chat API, falling
// back to deterministic templates when no API key is configured.
type Client struct {
	api      *openai.Client
	model    string
	fallback Template
}

// Verify interface compliance.
var _ engine.Responder = (*Client)(nil)

// NewClient builds a responder. With no API key (option or OPENAI_API_KEY),
// the client composes from templates only.
func NewClient(opts ...Option) *Client {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = openai.ChatModelGPT4oMini
	}

	c := &Client{model: cfg.Model}
	if cfg.APIKey != "" {
		api := openai.NewClient(option.WithAPIKey(cfg.APIKey))
		c.api = &api
	} else {
		slog.Info("responder running in template-only mode (no API key)")
	}
	return c
}

// Compose produces the next assistant message for the given signals.
func (c *Client) Compose(ctx context.Context, signals engine.ResponseSignals) (string, error) {
	if c.api == nil {
		return c.fallback.Compose(signals), nil
	}

	userPrompt, err := signalsPrompt(signals)
	if err != nil {
		return "", err
	}

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	})
	if err != nil {
		slog.Warn("responder generation failed, using template fallback", "error", err)
		return c.fallback.Compose(signals), nil
	}
	if len(resp.Choices) == 0 {
		return c.fallback.Compose(signals), nil
	}
	return resp.Choices[0].Message.Content, nil
}

// signalsPrompt flattens the signals into a compact prompt block.
func signalsPrompt(signals engine.ResponseSignals) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "mode: %s\nphase: %s\nintent: %s\n", signals.Mode, signals.Phase, signals.Intent)
	if signals.HelpField != "" {
		fmt.Fprintf(&b, "parent needs help with field: %s\n", signals.HelpField)
	}
	if signals.HelpQuestion != "" {
		fmt.Fprintf(&b, "question they were asked: %s\n", signals.HelpQuestion)
	}
	if signals.OffTopicTopic != "" {
		fmt.Fprintf(&b, "off-topic topic: %s\n", signals.OffTopicTopic)
	}
	if signals.EscalationTriggered {
		b.WriteString("escalation: a human will follow up\n")
	}
	if signals.ClarificationPrompt != "" {
		fmt.Fprintf(&b, "clarification to deliver: %s\n", signals.ClarificationPrompt)
	}
	if signals.NextQuestionText != "" {
		fmt.Fprintf(&b, "next question to ask: %s\n", signals.NextQuestionText)
	}
	if signals.AssessmentProgress > 0 {
		fmt.Fprintf(&b, "assessment progress: %d%%\n", signals.AssessmentProgress)
	}
	return b.String(), nil
}

// Template is the deterministic fallback composer.
type Template struct{}

// Compose renders a serviceable message without any generative call.
func (Template) Compose(signals engine.ResponseSignals) string {
	var parts []string

	if signals.EscalationTriggered {
		parts = append(parts, "Of course — a member of our care team will reach out to you shortly.")
	}

	switch signals.Mode {
	case models.ModeHelp:
		parts = append(parts, "No problem, let me explain.")
		if signals.HelpQuestion != "" {
			parts = append(parts, fmt.Sprintf("We were asking: %s", signals.HelpQuestion))
		}
	case models.ModeOffTopic:
		switch signals.OffTopicTopic {
		case models.TopicCostConcern:
			parts = append(parts, "Good question — our team will go over costs and coverage with you before anything is scheduled.")
		case models.TopicTimelineConcern:
			parts = append(parts, "Good question — we'll share expected timelines once intake is complete.")
		case models.TopicLocationConcern:
			parts = append(parts, "Good question — we'll confirm location details with you soon.")
		default:
			parts = append(parts, "Happy to help with that a bit later.")
		}
		parts = append(parts, "For now, let's pick up where we left off.")
	}

	if signals.ClarificationPrompt != "" {
		parts = append(parts, signals.ClarificationPrompt)
	}
	if signals.NextQuestionText != "" {
		parts = append(parts, signals.NextQuestionText)
	}
	if len(parts) == 0 {
		parts = append(parts, "Thank you — got it.")
	}
	return strings.Join(parts, " ")
}
