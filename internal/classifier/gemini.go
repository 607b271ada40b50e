package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/calloway/papergraph/internal/paper"
)

const (
	// BaseURL is the Gemini generateContent API base URL.
	BaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultModel is the generation model used for pair classification.
	DefaultModel = "gemini-2.5-pro"

	// DefaultTimeout is the per-call HTTP timeout. A call that exceeds it is
	// a classifier failure, not a fatal error.
	DefaultTimeout = 60 * time.Second

	// requestsPerSecond smooths outgoing requests below typical API limits.
	// The detection engine's rolling-window limiter is the actual call
	// budget; this only prevents instantaneous bursts.
	requestsPerSecond = 2.0

	// maxAuthorsInPrompt caps the author list included per paper.
	maxAuthorsInPrompt = 3
)

// GeminiClient is a rate-limited HTTP client for the Gemini API that
// implements PairClassifier.
type GeminiClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	baseURL    string
	model      string
}

// GeminiOption configures a GeminiClient.
type GeminiOption func(*GeminiClient)

// WithAPIKey sets the API key.
func WithAPIKey(key string) GeminiOption {
	return func(c *GeminiClient) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) GeminiOption {
	return func(c *GeminiClient) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) GeminiOption {
	return func(c *GeminiClient) {
		c.baseURL = url
	}
}

// WithModel sets the generation model.
func WithModel(model string) GeminiOption {
	return func(c *GeminiClient) {
		c.model = model
	}
}

// NewGeminiClient creates a new Gemini classification client.
func NewGeminiClient(opts ...GeminiOption) *GeminiClient {
	c := &GeminiClient{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		baseURL:    BaseURL,
		model:      DefaultModel,
	}

	// Check for API key in environment
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.apiKey = key
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// instruction primes the model for pair classification. The output contract
// (JSON with relationship_type, confidence, evidence) is what parseOutcome
// expects.
const instruction = `You are an expert at analyzing research papers and identifying relationships between them.

Given two papers (Paper A and Paper B), determine if there is a meaningful relationship.

Relationship Types:
1. extends: Paper A builds upon or extends Paper B's work (method reuse, new domain, addressing stated limitations)
2. supports: Paper A has similar findings to Paper B (independent validation, similar conclusions via different approaches)
3. contradicts: Paper A has conflicting findings with Paper B. Only use if the conflict is clear and direct.
4. none: Papers are unrelated or the relationship is too weak.

Your task:
1. Read the abstracts and key findings from both papers carefully.
2. Identify the relationship type (extends/supports/contradicts/none).
3. Assign a confidence score (0.0-1.0).
4. Provide brief evidence (1-2 sentences) referencing specific findings from both papers.

Output Format (JSON only, no other text):
{"relationship_type": "extends", "confidence": 0.75, "evidence": "..."}`

// Request/response shapes for the generateContent endpoint.
type geminiRequest struct {
	SystemInstruction *geminiContent `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  *geminiGenCfg   `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenCfg struct {
	Temperature float64 `json:"temperature"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// Classify judges the relationship between source and target. Transport
// failures are returned as errors; an unusable model response is a
// ParseFailure outcome.
func (c *GeminiClient) Classify(ctx context.Context, source, target *paper.Paper) (Outcome, error) {
	text, err := c.generate(ctx, buildPairPrompt(source, target))
	if err != nil {
		return Outcome{}, err
	}
	return parseOutcome(text), nil
}

// generate sends one generateContent call and returns the model's text.
func (c *GeminiClient) generate(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	req := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: instruction}}},
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: &geminiGenCfg{Temperature: 0.2},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("x-goog-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(resp); err != nil {
		return "", err
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var gr geminiResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if gr.Error != nil {
		return "", &APIError{StatusCode: gr.Error.Code, Code: gr.Error.Status, Message: gr.Error.Message}
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrInvalidResponse)
	}

	return gr.Candidates[0].Content.Parts[0].Text, nil
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(resp *http.Response) error {
	if resp.StatusCode == 401 || resp.StatusCode == 403 {
		return fmt.Errorf("%w: status %d", ErrAuthError, resp.StatusCode)
	}
	if resp.StatusCode == 429 {
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       "api_error",
			Message:    fmt.Sprintf("HTTP %d", resp.StatusCode),
		}
	}
	return nil
}

// buildPairPrompt formats the two papers for comparison. Source is Paper A,
// the paper making the prospective claim.
func buildPairPrompt(source, target *paper.Paper) string {
	return fmt.Sprintf(`Compare these two papers and identify their relationship:

Paper A:
Title: %s
Authors: %s
Abstract: %s
Key Finding: %s

Paper B:
Title: %s
Authors: %s
Abstract: %s
Key Finding: %s

Analyze the relationship between Paper A and Paper B.`,
		orUnknown(source.Title), authorList(source.Authors),
		orUnknown(source.Abstract), orUnknown(source.KeyFinding),
		orUnknown(target.Title), authorList(target.Authors),
		orUnknown(target.Abstract), orUnknown(target.KeyFinding))
}

func authorList(authors []string) string {
	if len(authors) > maxAuthorsInPrompt {
		authors = authors[:maxAuthorsInPrompt]
	}
	if len(authors) == 0 {
		return "Unknown"
	}
	return strings.Join(authors, ", ")
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
