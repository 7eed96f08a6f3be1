// Package relay wires the streamed model response and the box renderer into
// one request-scoped pipeline.
package relay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/visionrelay/visionrelay/internal/annotate"
	"github.com/visionrelay/visionrelay/internal/llm"
)

// Result is the outcome of one relay run. Annotated is nil when rendering
// failed; Text is always populated on success.
type Result struct {
	Text      string
	Annotated []byte // PNG bytes, nil if no annotation was produced
}

// Service runs the OCR pipeline: generate text, then annotate the image.
type Service struct {
	log *slog.Logger
	llm llm.Client
}

func New(log *slog.Logger, client llm.Client) *Service {
	return &Service{log: log, llm: client}
}

// Process forwards the image and prompt to the model, accumulates the full
// response text, and renders any recognized bounding boxes onto the image.
// An inference failure fails the whole request; a rendering failure only
// drops the annotated image, the text is still returned.
func (s *Service) Process(ctx context.Context, image []byte, prompt string) (Result, error) {
	text, err := s.llm.Generate(ctx, prompt, image)
	if err != nil {
		return Result{}, fmt.Errorf("generate: %w", err)
	}

	annotated, err := annotate.Render(image, text)
	if err != nil {
		if s.log != nil {
			s.log.Warn("annotation failed, returning text only", "err", err)
		}
		annotated = nil
	}
	return Result{Text: text, Annotated: annotated}, nil
}
