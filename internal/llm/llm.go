package llm

import (
	"context"
	"errors"
)

// ErrUnavailable marks failures talking to the inference backend: connection
// errors, timeouts, and non-2xx statuses. Callers match it with errors.Is to
// tell an unreachable upstream apart from internal processing errors.
var ErrUnavailable = errors.New("upstream unavailable")

// Client defines the capability to run a vision-language prompt over an image.
type Client interface {
	// Generate sends the prompt together with the raw image bytes to the
	// model and returns the fully accumulated response text. The image is
	// forwarded as-is; encoding for transport is the implementation's job.
	Generate(ctx context.Context, prompt string, image []byte) (string, error)
}
