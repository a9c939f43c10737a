// Package gemini is a client for the Gemini generateContent REST API that
// reports every outcome as a tutor.GenerationResult.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ashureev/tutorly/internal/tutor"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.0-flash-exp"
	DefaultTimeout = 30 * time.Second

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 4 << 20
	// maxErrorSnippet bounds the upstream error text kept for logging.
	maxErrorSnippet = 512
)

// Generation parameters sent with every request.
const (
	temperature     = 0.7
	topP            = 0.95
	topK            = 40
	maxOutputTokens = 2048
	blockThreshold  = "BLOCK_MEDIUM_AND_ABOVE"
)

var safetyCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

var (
	errNoAPIKey     = errors.New("no API key configured")
	errNoCandidates = errors.New("response has no candidates")
	errNoContent    = errors.New("first candidate has no content parts")
	errEmptyText    = errors.New("first candidate text is empty")
)

// Observer records the outcome and latency of each generation call.
type Observer interface {
	ObserveGeneration(outcome string, elapsed time.Duration)
}

// Client calls a single Gemini model. It is safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	observer   Observer
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithModel selects the model name.
func WithModel(m string) Option {
	return func(c *Client) {
		if m != "" {
			c.model = m
		}
	}
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithObserver reports call outcomes to o.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client. An empty apiKey is allowed: every call then
// reports tutor.FailureNoCredential without touching the network.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		timeout:    DefaultTimeout,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Enabled returns true if the client has a credential.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Ensure Client implements tutor.Generator.
var _ tutor.Generator = (*Client)(nil)

// Generate sends req in a single call bounded by the client timeout. It
// never retries and never returns partial text.
func (c *Client) Generate(ctx context.Context, req tutor.GenerationRequest) tutor.GenerationResult {
	if !c.Enabled() {
		return tutor.Failed(tutor.FailureNoCredential, errNoAPIKey)
	}

	start := time.Now()
	result := c.generate(ctx, req)
	if c.observer != nil {
		outcome := "success"
		if !result.Succeeded {
			outcome = result.Failure.String()
		}
		c.observer.ObserveGeneration(outcome, time.Since(start))
	}
	return result
}

func (c *Client) generate(ctx context.Context, req tutor.GenerationRequest) tutor.GenerationResult {
	body, err := json.Marshal(buildRequest(req))
	if err != nil {
		return tutor.Failed(tutor.FailureMalformedResponse, fmt.Errorf("encode request: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return tutor.Failed(tutor.FailureNetwork, fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return tutor.Failed(classifyTransportError(ctx, err), err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close gemini response body", "error", closeErr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return tutor.Failed(classifyTransportError(ctx, err), fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return tutor.Failed(tutor.FailureUpstream, upstreamError(resp.StatusCode, data))
	}

	return parseResponse(data)
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
}

func buildRequest(req tutor.GenerationRequest) generateRequest {
	prompt := req.Prompt
	parts := []part{{Text: &prompt}}
	if req.Image != nil && len(req.Image.Data) > 0 {
		parts = append(parts, part{InlineData: &inlineData{
			MIMEType: req.Image.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(req.Image.Data),
		}})
	}

	safety := make([]safetySetting, 0, len(safetyCategories))
	for _, category := range safetyCategories {
		safety = append(safety, safetySetting{Category: category, Threshold: blockThreshold})
	}

	return generateRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			Temperature:     temperature,
			TopK:            topK,
			TopP:            topP,
			MaxOutputTokens: maxOutputTokens,
			StopSequences:   append([]string(nil), tutor.StopSequences...),
		},
		SafetySettings: safety,
	}
}

func parseResponse(data []byte) tutor.GenerationResult {
	var parsed generateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return tutor.Failed(tutor.FailureMalformedResponse, fmt.Errorf("decode response: %w", err))
	}
	if len(parsed.Candidates) == 0 {
		return tutor.Failed(tutor.FailureEmptyGeneration, errNoCandidates)
	}

	first := parsed.Candidates[0]
	if first.Content == nil || len(first.Content.Parts) == 0 || first.Content.Parts[0].Text == nil {
		return tutor.Failed(tutor.FailureMalformedResponse, errNoContent)
	}

	text := strings.TrimSpace(*first.Content.Parts[0].Text)
	if text == "" {
		return tutor.Failed(tutor.FailureEmptyGeneration, errEmptyText)
	}
	return tutor.GenerationResult{Text: text, Succeeded: true}
}

func classifyTransportError(ctx context.Context, err error) tutor.FailureKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return tutor.FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return tutor.FailureTimeout
	}
	return tutor.FailureNetwork
}

func upstreamError(status int, body []byte) error {
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return fmt.Errorf("gemini returned status %d: %s", status, parsed.Error.Message)
	}
	snippet := strings.TrimSpace(string(body))
	if len(snippet) > maxErrorSnippet {
		snippet = snippet[:maxErrorSnippet]
	}
	return fmt.Errorf("gemini returned status %d: %s", status, snippet)
}
