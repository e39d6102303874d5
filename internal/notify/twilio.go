// Package notify delivers human-escalation alerts to the on-call care
// team. The engine decides WHEN to notify; this package only carries the
// message out.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Opts holds configuration options for the Twilio notifier.
type Opts struct {
	AccountSID string
	AuthToken  string
	From       string
	To         string
}

// Option defines a configuration option for the Twilio notifier.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFrom sets the sending phone number.
func WithFrom(from string) Option {
	return func(o *Opts) { o.From = from }
}

// WithTo sets the on-call destination phone number.
func WithTo(to string) Option {
	return func(o *Opts) { o.To = to }
}

// TwilioNotifier sends escalation alerts over SMS via the Twilio REST API.
type TwilioNotifier struct {
	client *twilio.RestClient
	from   string
	to     string
}

// NewTwilioNotifier validates the options and builds a client.
func NewTwilioNotifier(opts ...Option) (*TwilioNotifier, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("twilio credentials not set")
	}
	if cfg.From == "" || cfg.To == "" {
		return nil, fmt.Errorf("twilio from/to numbers not set")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	slog.Debug("TwilioNotifier initialized", "from", cfg.From)
	return &TwilioNotifier{client: client, from: cfg.From, to: cfg.To}, nil
}

// NotifyEscalation sends one SMS alert for the session. The message names
// the session and the matched phrases only, never conversation content.
func (n *TwilioNotifier) NotifyEscalation(ctx context.Context, sessionID string, matchedPhrases []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body := fmt.Sprintf("Escalation requested in intake session %s (matched: %s). Please follow up with the parent.",
		sessionID, strings.Join(matchedPhrases, ", "))

	params := &twilioapi.CreateMessageParams{}
	params.SetFrom(n.from)
	params.SetTo(n.to)
	params.SetBody(body)

	resp, err := n.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send escalation SMS for session %s: %w", sessionID, err)
	}
	if resp.Sid != nil {
		slog.Info("escalation SMS sent", "session", sessionID, "message_sid", *resp.Sid)
	}
	return nil
}

// MockNotifier records escalation calls for tests.
type MockNotifier struct {
	mu    sync.Mutex
	Calls []MockCall
	Err   error
}

// MockCall captures one NotifyEscalation invocation.
type MockCall struct {
	SessionID      string
	MatchedPhrases []string
}

// NotifyEscalation records the call and returns the configured error.
func (m *MockNotifier) NotifyEscalation(_ context.Context, sessionID string, matchedPhrases []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{SessionID: sessionID, MatchedPhrases: matchedPhrases})
	return m.Err
}

// CallCount returns how many alerts were recorded.
func (m *MockNotifier) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
