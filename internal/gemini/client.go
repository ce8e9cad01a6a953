package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ai-artist-backend/internal/logger"
	"ai-artist-backend/internal/media"
)

// ErrCredentialRejected is returned when the API refuses the configured key.
var ErrCredentialRejected = errors.New("credential rejected")

// HTTPError is a non-2xx response from the API.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("status %d, body: %s", e.StatusCode, e.Body)
}

// Temporary reports whether retrying the same request may succeed.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// BlockedError means the request was refused by content policy.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return "generation blocked: " + e.Reason
}

// FriendlyMessage renders the block reason for end users.
func (e *BlockedError) FriendlyMessage() string {
	switch e.Reason {
	case "SAFETY":
		return "Generation was blocked by safety settings. Try a safer prompt."
	case "OTHER":
		return "Generation was blocked for an unknown reason. Adjust the prompt slightly and try again."
	default:
		return fmt.Sprintf("Generation was blocked (reason: %s).", e.Reason)
	}
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
}

func NewClient(baseURL, apiKey string, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/") + "/",
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		log: log,
	}
}

// WithAPIKey returns a copy of the client that authenticates with key.
func (c *Client) WithAPIKey(key string) *Client {
	clone := *c
	clone.apiKey = key
	return &clone
}

type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type GenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
	ResponseMimeType   string   `json:"responseMimeType,omitempty"`
}

type GenerateContentRequest struct {
	Contents         []Content         `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type GenerateContentResponse struct {
	Candidates     []Candidate `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
}

// Text concatenates the text parts of the first candidate.
func (r *GenerateContentResponse) Text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// BlockReason returns the prompt-level block reason, if any.
func (r *GenerateContentResponse) BlockReason() string {
	if r.PromptFeedback == nil {
		return ""
	}
	return r.PromptFeedback.BlockReason
}

func userContent(prompt string, images []media.Upload) []Content {
	parts := make([]Part, 0, len(images)+1)
	if prompt != "" {
		parts = append(parts, Part{Text: prompt})
	}
	for _, img := range images {
		parts = append(parts, Part{InlineData: &InlineData{MimeType: img.MimeType, Data: img.Data}})
	}
	return []Content{{Role: "user", Parts: parts}}
}

// GenerateContent calls models/{model}:generateContent.
func (c *Client) GenerateContent(ctx context.Context, model string, req GenerateContentRequest) (*GenerateContentResponse, error) {
	var resp GenerateContentResponse
	if err := c.doJSON(ctx, http.MethodPost, "models/"+model+":generateContent", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GenerateText sends a prompt with optional images and returns the text reply.
func (c *Client) GenerateText(ctx context.Context, model, prompt string, images []media.Upload) (string, error) {
	resp, err := c.GenerateContent(ctx, model, GenerateContentRequest{Contents: userContent(prompt, images)})
	if err != nil {
		return "", err
	}
	if reason := resp.BlockReason(); reason != "" {
		return "", &BlockedError{Reason: reason}
	}
	return strings.TrimSpace(resp.Text()), nil
}

// GenerateJSON asks for a JSON reply and decodes it into out.
func (c *Client) GenerateJSON(ctx context.Context, model, prompt string, images []media.Upload, out any) error {
	resp, err := c.GenerateContent(ctx, model, GenerateContentRequest{
		Contents:         userContent(prompt, images),
		GenerationConfig: &GenerationConfig{ResponseMimeType: "application/json"},
	})
	if err != nil {
		return err
	}
	if reason := resp.BlockReason(); reason != "" {
		return &BlockedError{Reason: reason}
	}
	text := strings.TrimSpace(resp.Text())
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("failed to decode JSON reply: %w, body: %s", err, text)
	}
	return nil
}

// GenerateImages sends a prompt plus images and returns every image in the
// reply. Candidates that did not finish with STOP are skipped. When nothing
// usable comes back and the prompt was blocked, a *BlockedError is returned.
func (c *Client) GenerateImages(ctx context.Context, model, prompt string, images []media.Upload) ([]media.Upload, error) {
	resp, err := c.GenerateContent(ctx, model, GenerateContentRequest{
		Contents:         userContent(prompt, images),
		GenerationConfig: &GenerationConfig{ResponseModalities: []string{"IMAGE"}},
	})
	if err != nil {
		return nil, err
	}

	var out []media.Upload
	for i, cand := range resp.Candidates {
		if cand.FinishReason != "" && cand.FinishReason != "STOP" {
			c.log.Warn("candidate stopped early", "index", i, "finish_reason", cand.FinishReason)
			continue
		}
		for _, p := range cand.Content.Parts {
			if p.InlineData != nil && p.InlineData.Data != "" {
				out = append(out, media.Upload{MimeType: p.InlineData.MimeType, Data: p.InlineData.Data})
				break
			}
		}
	}

	if len(out) == 0 {
		if reason := resp.BlockReason(); reason != "" {
			return nil, &BlockedError{Reason: reason}
		}
	}
	return out, nil
}

type imagenRequest struct {
	Instances  []imagenInstance `json:"instances"`
	Parameters imagenParameters `json:"parameters"`
}

type imagenInstance struct {
	Prompt string `json:"prompt"`
}

type imagenParameters struct {
	SampleCount    int    `json:"sampleCount"`
	AspectRatio    string `json:"aspectRatio,omitempty"`
	OutputMimeType string `json:"outputMimeType,omitempty"`
}

type imagenResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
		RAIFilteredReason  string `json:"raiFilteredReason,omitempty"`
	} `json:"predictions"`
}

// Imagen generates one image from a text prompt via models/{model}:predict.
func (c *Client) Imagen(ctx context.Context, model, prompt, aspectRatio string) ([]media.Upload, error) {
	req := imagenRequest{
		Instances: []imagenInstance{{Prompt: prompt}},
		Parameters: imagenParameters{
			SampleCount:    1,
			AspectRatio:    aspectRatio,
			OutputMimeType: "image/png",
		},
	}
	var resp imagenResponse
	if err := c.doJSON(ctx, http.MethodPost, "models/"+model+":predict", req, &resp); err != nil {
		return nil, err
	}

	var (
		out      []media.Upload
		filtered string
	)
	for _, p := range resp.Predictions {
		if p.BytesBase64Encoded == "" {
			if p.RAIFilteredReason != "" && filtered == "" {
				filtered = p.RAIFilteredReason
			}
			continue
		}
		mt := p.MimeType
		if mt == "" {
			mt = "image/png"
		}
		out = append(out, media.Upload{MimeType: mt, Data: p.BytesBase64Encoded})
	}
	if len(out) == 0 && filtered != "" {
		return nil, &BlockedError{Reason: "SAFETY"}
	}
	return out, nil
}

// RetryWithBackoff executes a function with exponential backoff retry logic.
// Only temporary HTTP failures are retried.
func (c *Client) RetryWithBackoff(ctx context.Context, fn func() error, maxRetries int) error {
	backoffs := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		var httpErr *HTTPError
		if !errors.As(err, &httpErr) || !httpErr.Temporary() {
			return err
		}
		if i == maxRetries-1 {
			break
		}
		wait := backoffs[len(backoffs)-1]
		if i < len(backoffs) {
			wait = backoffs[i]
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classify(&HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)})
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + strings.TrimPrefix(path, "/")
}

// classify wraps credential failures so callers can match ErrCredentialRejected.
func classify(err *HTTPError) error {
	switch {
	case err.StatusCode == http.StatusUnauthorized,
		err.StatusCode == http.StatusForbidden,
		err.StatusCode == http.StatusNotFound && strings.Contains(err.Body, "Requested entity was not found"):
		return fmt.Errorf("%w: %w", ErrCredentialRejected, err)
	case err.StatusCode == http.StatusBadRequest && strings.Contains(err.Body, "API_KEY_INVALID"):
		return fmt.Errorf("%w: %w", ErrCredentialRejected, err)
	}
	return err
}
