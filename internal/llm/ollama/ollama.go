package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/visionrelay/visionrelay/internal/config"
	"github.com/visionrelay/visionrelay/internal/llm"
)

var _ llm.Client = (*Client)(nil)

const (
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"

	endpointGenerate = "api/generate"

	defaultTimeout    = 2 * time.Minute
	errorSnippetLimit = 400

	// Individual stream lines are normally small, but a model can emit a
	// long delta in one fragment.
	maxLineSize = 1 << 20
)

// Client implements llm.Client against Ollama's streaming generate API.
type Client struct {
	httpClient *http.Client
	log        *slog.Logger
	baseURL    string
	model      string
	timeout    time.Duration
}

// New creates an Ollama client from settings.
func New(logger *slog.Logger, cfg config.OllamaSettings) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		httpClient: &http.Client{},
		log:        logger,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		timeout:    timeout,
	}
}

// generateRequest is the Ollama /api/generate request body.
type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"` // base64-encoded
	Stream bool     `json:"stream"`
}

// generateChunk is one decoded unit of the newline-delimited JSON stream.
// Fields beyond the text delta and the completion flag are ignored.
type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate opens a streaming generate request and accumulates the response
// text until the model signals completion or the connection closes. A line
// that fails to decode is skipped; it never aborts the rest of the stream.
func (c *Client) Generate(ctx context.Context, prompt string, image []byte) (string, error) {
	reqBody := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: true,
	}
	if len(image) > 0 {
		reqBody.Images = []string{base64.StdEncoding.EncodeToString(image)}
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	u, err := url.JoinPath(c.baseURL, endpointGenerate)
	if err != nil {
		return "", fmt.Errorf("join url: %w", err)
	}

	// The overall stream is bounded by a single timeout; generation of a
	// long document can take a while, so this is minutes, not seconds.
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set(headerContentType, contentTypeJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", llm.ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorSnippetLimit))
		return "", fmt.Errorf("%w: status %d: %s", llm.ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	text, err := c.accumulate(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read stream: %v", llm.ErrUnavailable, err)
	}
	return text, nil
}

// accumulate reduces the chunked stream to the full response text. Reading is
// incremental, one fragment at a time, so arbitrarily long generations never
// get buffered whole.
func (c *Client) accumulate(body io.Reader) (string, error) {
	var text strings.Builder
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		// Raw model output is mirrored to the log for debugging only.
		c.log.Debug("ollama chunk", "raw", string(line))

		var chunk generateChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			// A malformed fragment is dropped; later valid fragments
			// must still be accumulated.
			c.log.Debug("skipping undecodable chunk", "err", err)
			continue
		}
		text.WriteString(chunk.Response)
		if chunk.Done {
			c.log.Debug("generation complete")
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return text.String(), nil
}
