package mock

import (
	"context"
	"fmt"
	"time"

	"github.com/visionrelay/visionrelay/internal/config"
	"github.com/visionrelay/visionrelay/internal/llm"
)

var _ llm.Client = (*Client)(nil)

// Client is a canned-response llm.Client for local runs and tests.
type Client struct {
	delay time.Duration
	text  string
}

func New(cfg config.MockSettings) *Client {
	return &Client{delay: cfg.Delay, text: cfg.Text}
}

func (c *Client) Generate(ctx context.Context, prompt string, image []byte) (string, error) {
	if c.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.delay):
		}
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if c.text != "" {
		return c.text, nil
	}
	return fmt.Sprintf("mock response for prompt %q (%d image bytes)", prompt, len(image)), nil
}
