package screenshot

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anxuanzi/bua-dom/dom"
)

func whitePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func box(x, y, w, h float64) *dom.CoordinateSet {
	return &dom.CoordinateSet{
		TopLeft: dom.Coordinates{X: x, Y: y},
		Width:   w,
		Height:  h,
	}
}

func pixel(t *testing.T, data []byte, x, y int) color.RGBA {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func TestAnnotate_DrawsBoxes(t *testing.T) {
	idx := 0
	m := dom.SelectorMap{
		0: {TagName: "button", HighlightIndex: &idx, ViewportCoordinates: box(40, 40, 40, 40)},
	}
	cfg := DefaultAnnotationConfig()
	cfg.ShowLabels = false

	out, err := Annotate(whitePNG(t, 120, 120), m, cfg)
	require.NoError(t, err)

	left := pixel(t, out, 40, 60)
	assert.Less(t, int(left.R), 128, "border should be blue, got %v", left)
	assert.Greater(t, int(left.B), 200, "border should be blue, got %v", left)

	inside := pixel(t, out, 60, 60)
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, inside)
}

func TestAnnotate_NewElementsUseNewColor(t *testing.T) {
	idx, isNew := 3, true
	m := dom.SelectorMap{
		3: {TagName: "button", HighlightIndex: &idx, IsNew: &isNew, ViewportCoordinates: box(40, 40, 40, 40)},
	}
	cfg := DefaultAnnotationConfig()
	cfg.ShowLabels = false

	out, err := Annotate(whitePNG(t, 120, 120), m, cfg)
	require.NoError(t, err)

	left := pixel(t, out, 40, 60)
	assert.Greater(t, int(left.R), 200, "border should be pink, got %v", left)
	assert.Less(t, int(left.G), 100, "border should be pink, got %v", left)
}

func TestAnnotate_ScalesByViewport(t *testing.T) {
	idx := 0
	m := dom.SelectorMap{
		0: {
			TagName:             "a",
			HighlightIndex:      &idx,
			ViewportCoordinates: box(20, 20, 20, 20),
			ViewportInfo:        &dom.ViewportInfo{Width: 60, Height: 60},
		},
	}
	cfg := DefaultAnnotationConfig()
	cfg.ShowLabels = false

	out, err := Annotate(whitePNG(t, 120, 120), m, cfg)
	require.NoError(t, err)

	// The box lands at (40,40)-(80,80) on a 2x screenshot.
	edge := pixel(t, out, 40, 60)
	assert.Less(t, int(edge.R), 150, "border should be green, got %v", edge)
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, pixel(t, out, 20, 30))
}

func TestAnnotate_SkipsElementsWithoutCoordinates(t *testing.T) {
	idx := 0
	m := dom.SelectorMap{0: {TagName: "button", HighlightIndex: &idx}}

	out, err := Annotate(whitePNG(t, 10, 10), m, DefaultAnnotationConfig())
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, pixel(t, out, 5, 5))
}

func TestAnnotate_EmptyMapReturnsInput(t *testing.T) {
	in := []byte("not even an image")
	out, err := Annotate(in, nil, DefaultAnnotationConfig())
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestAnnotate_BadImage(t *testing.T) {
	idx := 0
	m := dom.SelectorMap{0: {TagName: "button", HighlightIndex: &idx, ViewportCoordinates: box(1, 1, 2, 2)}}

	_, err := Annotate([]byte("garbage"), m, DefaultAnnotationConfig())
	require.Error(t, err)
}

func TestElementColor_ByRole(t *testing.T) {
	cfg := DefaultAnnotationConfig()
	el := &dom.ElementNode{TagName: "div", Attributes: dom.Attributes{{Name: "role", Value: "tab"}}}
	assert.Equal(t, cfg.ButtonColor, elementColor(el, cfg))
	assert.Equal(t, cfg.DefaultColor, elementColor(&dom.ElementNode{TagName: "div"}, cfg))
}
