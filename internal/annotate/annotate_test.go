package annotate

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func whitePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func isGreen(img image.Image, x, y int) bool {
	r, g, b, _ := img.At(x, y).RGBA()
	return r == 0 && g == 0xffff && b == 0
}

func TestExtractBoxes_OrderAndValues(t *testing.T) {
	text := "intro [[1, 2, 3, 4]] middle [[100,200,300,400]] end"
	boxes := ExtractBoxes(text)
	require.Len(t, boxes, 2)
	assert.Equal(t, Box{X1: 1, Y1: 2, X2: 3, Y2: 4}, boxes[0])
	assert.Equal(t, Box{X1: 100, Y1: 200, X2: 300, Y2: 400}, boxes[1])
}

func TestExtractBoxes_NoMatches(t *testing.T) {
	assert.Empty(t, ExtractBoxes("no coordinates here, not even [1,2,3,4] or [[1,2,3]]"))
}

func TestExtractBoxes_PassesThroughOutOfRangeValues(t *testing.T) {
	boxes := ExtractBoxes("[[1500, 0, 2000, 4]]")
	require.Len(t, boxes, 1)
	assert.Equal(t, Box{X1: 1500, Y1: 0, X2: 2000, Y2: 4}, boxes[0])
}

func TestRender_NoMatchesKeepsPixels(t *testing.T) {
	src := whitePNG(t, 32, 24)
	out, err := Render(src, "nothing to draw")
	require.NoError(t, err)

	got := decodePNG(t, out)
	want := decodePNG(t, src)
	require.Equal(t, want.Bounds(), got.Bounds())
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			assert.Equal(t, want.At(x, y), got.At(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestRender_DrawsBoxAtScaledCorners(t *testing.T) {
	src := whitePNG(t, 1000, 1000)
	out, err := Render(src, "found [[100, 200, 300, 400]] here")
	require.NoError(t, err)

	img := decodePNG(t, out)
	// Corners of the drawn rectangle.
	assert.True(t, isGreen(img, 100, 200), "top-left corner")
	assert.True(t, isGreen(img, 300, 200), "top-right corner")
	assert.True(t, isGreen(img, 100, 400), "bottom-left corner")
	assert.True(t, isGreen(img, 300, 400), "bottom-right corner")
	// Edge midpoints.
	assert.True(t, isGreen(img, 200, 200), "top edge")
	assert.True(t, isGreen(img, 100, 300), "left edge")
	// Interior stays unfilled, outside stays untouched.
	assert.False(t, isGreen(img, 200, 300), "interior")
	assert.False(t, isGreen(img, 99, 300), "left of box")
	assert.False(t, isGreen(img, 200, 199), "above box")
}

func TestRender_ScalesToImageDimensions(t *testing.T) {
	// 500x500 canvas, normalized box [[0,0,500,1000]] maps to (0,0)-(250,500).
	src := whitePNG(t, 500, 500)
	out, err := Render(src, "Hello [[0,0,500,1000]] World")
	require.NoError(t, err)

	img := decodePNG(t, out)
	assert.True(t, isGreen(img, 0, 0), "top-left")
	assert.True(t, isGreen(img, 250, 100), "right edge at x=250")
	assert.True(t, isGreen(img, 100, 499), "bottom edge clipped into frame")
	assert.False(t, isGreen(img, 254, 100), "right of box")
	assert.False(t, isGreen(img, 100, 100), "interior")
}

func TestRender_MultipleBoxes(t *testing.T) {
	src := whitePNG(t, 1000, 1000)
	out, err := Render(src, "[[0,0,100,100]] and [[500,500,900,900]]")
	require.NoError(t, err)

	img := decodePNG(t, out)
	assert.True(t, isGreen(img, 0, 0))
	assert.True(t, isGreen(img, 500, 500))
	assert.True(t, isGreen(img, 900, 900))
}

func TestRender_DegenerateBoxesDoNotPanic(t *testing.T) {
	src := whitePNG(t, 100, 100)
	for _, text := range []string{
		"[[500,500,500,500]]",     // zero area
		"[[800,800,100,100]]",     // inverted corners
		"[[0,0,0,0]]",             // zero at origin
		"[[999,999,1000,1000]]",   // touches bottom-right boundary
		"[[2000,2000,3000,3000]]", // entirely out of frame
	} {
		out, err := Render(src, text)
		require.NoError(t, err, "text %q", text)
		decodePNG(t, out)
	}
}

func TestRender_UndecodableImage(t *testing.T) {
	_, err := Render([]byte("definitely not an image"), "[[1,2,3,4]]")
	require.Error(t, err)
}

func TestRender_AcceptsJPEGInput(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))

	out, err := Render(buf.Bytes(), "")
	require.NoError(t, err)
	decoded := decodePNG(t, out) // output format is always PNG
	assert.Equal(t, image.Rect(0, 0, 10, 10), decoded.Bounds())
}
