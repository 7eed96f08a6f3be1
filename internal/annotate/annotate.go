// Package annotate draws the bounding boxes a vision model embeds in its
// text output back onto the source image.
package annotate

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"  // decode support
	_ "image/jpeg" // decode support
	"image/png"
	"regexp"
	"strconv"
)

// Models express box corners in a fixed 0-1000 space regardless of the
// actual image resolution.
const coordSpace = 1000

const strokeWidth = 3

var outline = color.RGBA{G: 0xff, A: 0xff} // #00ff00

// boxPattern matches [[x1, y1, x2, y2]] with four unsigned integers.
var boxPattern = regexp.MustCompile(`\[\[(\d+),\s*(\d+),\s*(\d+),\s*(\d+)\]\]`)

// Box is one coordinate tuple in normalized space, as it appeared in the text.
type Box struct {
	X1, Y1, X2, Y2 int
}

// ExtractBoxes returns every non-overlapping coordinate tuple in text, in
// order of appearance. Values are taken verbatim: no clamping, no
// reordering of inverted corners.
func ExtractBoxes(text string) []Box {
	matches := boxPattern.FindAllStringSubmatch(text, -1)
	boxes := make([]Box, 0, len(matches))
	for _, m := range matches {
		x1, _ := strconv.Atoi(m[1])
		y1, _ := strconv.Atoi(m[2])
		x2, _ := strconv.Atoi(m[3])
		y2, _ := strconv.Atoi(m[4])
		boxes = append(boxes, Box{X1: x1, Y1: y1, X2: x2, Y2: y2})
	}
	return boxes
}

// Render decodes imageData, draws a rectangle for every coordinate tuple
// found in text, and returns the result re-encoded as PNG. Any failure is
// returned to the caller, which is expected to degrade to a text-only
// result rather than fail the request.
func Render(imageData []byte, text string) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	bounds := src.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, src, bounds.Min, draw.Src)

	w := float64(bounds.Dx())
	h := float64(bounds.Dy())
	for _, box := range ExtractBoxes(text) {
		left := float64(box.X1) * w / coordSpace
		top := float64(box.Y1) * h / coordSpace
		right := float64(box.X2) * w / coordSpace
		bottom := float64(box.Y2) * h / coordSpace
		strokeRect(canvas, int(left), int(top), int(right), int(bottom))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// strokeRect draws an unfilled rectangle between (left,top) and
// (right,bottom), both corners inclusive. Pixels outside the image are
// skipped, and an inverted or zero-area rectangle simply draws nothing.
func strokeRect(img *image.RGBA, left, top, right, bottom int) {
	b := img.Bounds()
	set := func(x, y int) {
		if (image.Point{X: x, Y: y}).In(b) {
			img.SetRGBA(x, y, outline)
		}
	}
	for i := 0; i < strokeWidth; i++ {
		for x := left; x <= right; x++ {
			set(x, top+i)
			set(x, bottom-i)
		}
		for y := top; y <= bottom; y++ {
			set(left+i, y)
			set(right-i, y)
		}
	}
}
