package browser

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

//go:embed walker.js
var walkerJS string

const removeHighlightsJS = `() => {
	const el = document.getElementById("bua-highlight-container");
	if (el) el.remove();
}`

// walkArgs is passed to walker.js.
type walkArgs struct {
	DoHighlightElements bool `json:"doHighlightElements"`
	FocusHighlightIndex int  `json:"focusHighlightIndex"`
	ViewportExpansion   int  `json:"viewportExpansion"`
	DebugMode           bool `json:"debugMode"`
}

// pageDriver is what a Session needs from a live page.
type pageDriver interface {
	Info(ctx context.Context) (url, title string, err error)
	// Walk runs the page walker and returns its JSON output verbatim.
	Walk(ctx context.Context, args walkArgs) ([]byte, error)
	Screenshot(ctx context.Context) ([]byte, error)
	RemoveHighlights(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	// Locate resolves a frame chain: every selector but the last names an
	// iframe to enter.
	Locate(ctx context.Context, chain []string) (*rod.Element, error)
}

// rodDriver implements pageDriver on a rod page.
type rodDriver struct {
	page *rod.Page
}

func (d *rodDriver) Info(ctx context.Context) (string, string, error) {
	info, err := d.page.Context(ctx).Info()
	if err != nil {
		return "", "", fmt.Errorf("page info: %w", err)
	}
	return info.URL, info.Title, nil
}

func (d *rodDriver) Walk(ctx context.Context, args walkArgs) ([]byte, error) {
	res, err := d.page.Context(ctx).Eval(walkerJS, args)
	if err != nil {
		return nil, fmt.Errorf("evaluate page walker: %w", err)
	}
	// The walker returns a JSON string so key order survives the trip;
	// decoding the remote object would go through unordered maps.
	return []byte(res.Value.Str()), nil
}

func (d *rodDriver) Screenshot(ctx context.Context) ([]byte, error) {
	img, err := d.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return img, nil
}

func (d *rodDriver) RemoveHighlights(ctx context.Context) error {
	_, err := d.page.Context(ctx).Eval(removeHighlightsJS)
	return err
}

func (d *rodDriver) Navigate(ctx context.Context, url string) error {
	page := d.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

func (d *rodDriver) Locate(ctx context.Context, chain []string) (*rod.Element, error) {
	if len(chain) == 0 {
		return nil, ErrElementNotFound
	}

	scope := d.page.Context(ctx)
	last := len(chain) - 1
	for i, sel := range chain {
		found, el, err := scope.Has(sel)
		if err != nil {
			return nil, fmt.Errorf("query %q: %w", sel, err)
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrElementNotFound, sel)
		}
		if i == last {
			return el, nil
		}

		frame, err := el.Frame()
		if err != nil {
			return nil, fmt.Errorf("enter frame %q: %w", sel, err)
		}
		scope = frame.Context(ctx)
	}
	return nil, ErrElementNotFound
}
