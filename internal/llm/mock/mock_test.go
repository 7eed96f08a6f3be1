package mock

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/visionrelay/visionrelay/internal/config"
)

func TestMockLLM_Generate(t *testing.T) {
	c := New(config.MockSettings{Delay: 0})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	out, err := c.Generate(ctx, "describe", []byte("fakeimagedata"))
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if !strings.Contains(out, "describe") {
		t.Fatalf("Generate missing prompt echo, got: %q", out)
	}
}

func TestMockLLM_CannedText(t *testing.T) {
	c := New(config.MockSettings{Text: "Hello [[0,0,1000,1000]]"})
	out, err := c.Generate(context.Background(), "p", []byte("x"))
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if out != "Hello [[0,0,1000,1000]]" {
		t.Fatalf("got %q", out)
	}
}

func TestMockLLM_RespectsContextCancel(t *testing.T) {
	c := New(config.MockSettings{Delay: 200 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	if _, err := c.Generate(ctx, "p", []byte("x")); err == nil {
		t.Fatalf("expected context cancellation error")
	}
}
