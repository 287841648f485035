// Package completion talks to an OpenAI-compatible chat-completion endpoint.
package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ashureev/learnerbot/internal/domain"
	"github.com/sashabaranov/go-openai"
)

// SystemPrompt is sent as the first message of every request.
const SystemPrompt = `You are LearnerBot, an advanced AI learning assistant created to help users learn, understand complex concepts, and grow their knowledge across various subjects.

Your personality:
- Friendly, encouraging, and patient
- Enthusiastic about learning and teaching
- Clear and concise in explanations
- Supportive and motivating

Your capabilities:
- Explain complex topics in simple terms
- Provide step-by-step guidance
- Offer examples and analogies
- Help with homework, coding, science, math, languages, and more
- Adapt explanations to the user's level of understanding

Always format your responses with markdown when appropriate for better readability. Use code blocks for code examples, bullet points for lists, and emphasis for important concepts.`

// Defaults used when Config leaves a field empty.
const (
	DefaultBaseURL   = "https://openrouter.ai/api/v1"
	DefaultModel     = "openai/gpt-4o"
	DefaultMaxTokens = 1500
	DefaultTimeout   = 60 * time.Second
	DefaultSiteURL   = "https://learnerbot.ai"
	DefaultSiteName  = "LearnerBot AI Assistant"
)

// Config holds completion client settings.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	SiteURL   string
	SiteName  string
}

// Client sends one non-streaming chat completion per call. It never retries.
type Client struct {
	api *openai.Client
	cfg Config
}

// New creates a client. A missing API key is not an error here; every
// request then fails with a configuration error.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.SiteURL == "" {
		cfg.SiteURL = DefaultSiteURL
	}
	if cfg.SiteName == "" {
		cfg.SiteName = DefaultSiteName
	}
	if cfg.APIKey == "" {
		slog.Warn("Completion API key not found; completion requests will fail until OPENROUTER_API_KEY is set")
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	oc.HTTPClient = &http.Client{
		Timeout: cfg.Timeout,
		Transport: &headerTransport{
			base:     http.DefaultTransport,
			referer:  cfg.SiteURL,
			siteName: cfg.SiteName,
		},
	}

	return &Client{api: openai.NewClientWithConfig(oc), cfg: cfg}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

// Model returns the model requests are sent to.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Complete sends the system prompt, history and userText and returns the
// trimmed reply text. Failures are always *Error.
func (c *Client) Complete(ctx context.Context, userText string, history []domain.HistoryEntry) (string, error) {
	if !c.Configured() {
		return "", &Error{Kind: KindConfiguration, Message: msgNoCredential}
	}

	resp, err := c.api.CreateChatCompletion(ctx, c.buildRequest(userText, history))
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Kind: KindProtocol, Message: msgInvalidFormat}
	}
	msg := resp.Choices[0].Message
	if msg.Content == "" {
		return "", &Error{Kind: KindProtocol, Message: msgInvalidFormat}
	}
	return strings.TrimSpace(msg.Content), nil
}

// ListModels returns the ids of the models offered by the endpoint.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	list, err := c.api.ListModels(ctx)
	if err != nil {
		return nil, classify(err)
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (c *Client) buildRequest(userText string, history []domain.HistoryEntry) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt})
	for _, h := range history {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: string(h.Role), Content: h.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: userText})

	return openai.ChatCompletionRequest{
		Model:            c.cfg.Model,
		Messages:         msgs,
		MaxTokens:        c.cfg.MaxTokens,
		Temperature:      0.7,
		TopP:             0.9,
		FrequencyPenalty: 0.1,
		PresencePenalty:  0.1,
	}
}

// classify maps go-openai and net/http failures onto Error kinds.
func classify(err error) *Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = fmt.Sprintf(msgStatusTemplate, apiErr.HTTPStatusCode)
		}
		return &Error{Kind: KindTransport, Message: msg, StatusCode: apiErr.HTTPStatusCode, Err: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &Error{
			Kind:       KindTransport,
			Message:    fmt.Sprintf(msgStatusTemplate, reqErr.HTTPStatusCode),
			StatusCode: reqErr.HTTPStatusCode,
			Err:        err,
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		msg := urlErr.Error()
		if msg == "" {
			msg = msgUnexpected
		}
		return &Error{Kind: KindTransport, Message: msg, Err: err}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return &Error{Kind: KindProtocol, Message: msgInvalidFormat, Err: err}
	}

	msg := err.Error()
	if msg == "" {
		msg = msgUnexpected
	}
	return &Error{Kind: KindTransport, Message: msg, Err: err}
}

// headerTransport adds the attribution headers OpenRouter uses for rankings.
type headerTransport struct {
	base     http.RoundTripper
	referer  string
	siteName string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("HTTP-Referer", t.referer)
	r.Header.Set("X-Title", t.siteName)
	return t.base.RoundTrip(r)
}
