// Package screenshot draws the selector map of a snapshot onto a page
// screenshot.
package screenshot

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"strconv"

	"github.com/fogleman/gg"

	"github.com/anxuanzi/bua-dom/dom"
)

// AnnotationConfig configures how annotations are drawn.
type AnnotationConfig struct {
	// BorderWidth is the width of bounding box borders in pixels.
	BorderWidth float64

	// ShowLabels draws the highlight index next to each box.
	ShowLabels bool

	// Colors by element kind. NewColor wins for elements the differ
	// flagged as new.
	LinkColor      color.RGBA
	ButtonColor    color.RGBA
	InputColor     color.RGBA
	DefaultColor   color.RGBA
	NewColor       color.RGBA
	LabelTextColor color.RGBA
}

// DefaultAnnotationConfig returns sensible defaults for annotations.
func DefaultAnnotationConfig() AnnotationConfig {
	return AnnotationConfig{
		BorderWidth:    2,
		ShowLabels:     true,
		LinkColor:      color.RGBA{R: 76, G: 175, B: 80, A: 255},  // green
		ButtonColor:    color.RGBA{R: 33, G: 150, B: 243, A: 255}, // blue
		InputColor:     color.RGBA{R: 255, G: 152, B: 0, A: 255},  // orange
		DefaultColor:   color.RGBA{R: 156, G: 39, B: 176, A: 255}, // purple
		NewColor:       color.RGBA{R: 233, G: 30, B: 99, A: 255},  // pink
		LabelTextColor: color.RGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

// Annotate draws a box and index label for every element of selectorMap
// that has viewport coordinates. The result is always PNG. An empty map
// returns imgData unchanged.
func Annotate(imgData []byte, selectorMap dom.SelectorMap, cfg AnnotationConfig) ([]byte, error) {
	if len(selectorMap) == 0 {
		return imgData, nil
	}

	img, _, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}

	dc := gg.NewContextForImage(img)
	dc.SetLineWidth(cfg.BorderWidth)

	for _, idx := range selectorMap.Indices() {
		el := selectorMap[idx]
		box := el.ViewportCoordinates
		if box == nil || box.Width <= 0 || box.Height <= 0 {
			continue
		}

		scale := scaleFor(el, img.Bounds().Dx())
		x, y := box.TopLeft.X*scale, box.TopLeft.Y*scale
		w, h := box.Width*scale, box.Height*scale

		c := elementColor(el, cfg)
		dc.SetColor(c)
		dc.DrawRectangle(x, y, w, h)
		dc.Stroke()

		if cfg.ShowLabels {
			drawLabel(dc, strconv.Itoa(idx), x, y, w, c, cfg.LabelTextColor)
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode annotated screenshot: %w", err)
	}
	return buf.Bytes(), nil
}

// scaleFor maps CSS pixels to image pixels when the screenshot was taken
// at a device pixel ratio other than 1.
func scaleFor(el *dom.ElementNode, imgWidth int) float64 {
	if el.ViewportInfo == nil || el.ViewportInfo.Width <= 0 {
		return 1
	}
	return float64(imgWidth) / el.ViewportInfo.Width
}

func elementColor(el *dom.ElementNode, cfg AnnotationConfig) color.RGBA {
	if el.New() {
		return cfg.NewColor
	}
	switch el.TagName {
	case "a":
		return cfg.LinkColor
	case "button":
		return cfg.ButtonColor
	case "input", "textarea", "select":
		return cfg.InputColor
	}
	switch role, _ := el.Attributes.Get("role"); role {
	case "link":
		return cfg.LinkColor
	case "button", "menuitem", "tab":
		return cfg.ButtonColor
	case "textbox", "searchbox", "combobox":
		return cfg.InputColor
	}
	return cfg.DefaultColor
}

// drawLabel puts the index in a filled tag at the top right corner of the
// box, above it when there is room.
func drawLabel(dc *gg.Context, text string, x, y, w float64, bg, fg color.RGBA) {
	const pad = 2.0
	tw, th := dc.MeasureString(text)
	lw, lh := tw+2*pad, th+2*pad

	lx := x + w - lw
	if lx < 0 {
		lx = 0
	}
	ly := y - lh
	if ly < 0 {
		ly = y
	}

	dc.SetColor(bg)
	dc.DrawRectangle(lx, ly, lw, lh)
	dc.Fill()

	dc.SetColor(fg)
	dc.DrawStringAnchored(text, lx+lw/2, ly+lh/2, 0.5, 0.5)
}
