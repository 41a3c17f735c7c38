// Package tools exposes page snapshots to ADK agents as function tools.
package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-rod/rod"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"github.com/anxuanzi/bua-dom/browser"
	"github.com/anxuanzi/bua-dom/dom"
)

// Provider is the part of *browser.Session the tools use.
type Provider interface {
	State(ctx context.Context, opts browser.StateOptions) (*browser.State, error)
	Current() *browser.State
	ElementByIndex(ctx context.Context, index int) (*rod.Element, error)
}

type PageStateInput struct {
	Highlight bool `json:"highlight" jsonschema:"Draw numbered boxes over interactive elements in the live page"`
}

type PageStateOutput struct {
	Success     bool   `json:"success"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	SnapshotID  string `json:"snapshot_id"`
	Count       int    `json:"element_count"`
	NewElements int    `json:"new_elements"`
	ElementMap  string `json:"element_map"`
	Error       string `json:"error,omitempty"`
}

type LocateInput struct {
	ElementIndex int `json:"element_index" jsonschema:"The index number of the element (shown in the element map)"`
}

type LocateOutput struct {
	Success    bool                `json:"success"`
	Found      bool                `json:"found"`
	Selector   string              `json:"selector,omitempty"`
	FrameChain []string            `json:"frame_chain,omitempty"`
	Record     *dom.HistoryElement `json:"record,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// handlers holds the tool logic independent of the ADK plumbing.
type handlers struct {
	p Provider
}

func (h handlers) pageState(ctx context.Context, in PageStateInput) (PageStateOutput, error) {
	opts := browser.DefaultStateOptions()
	opts.HighlightElements = in.Highlight

	st, err := h.p.State(ctx, opts)
	if err != nil {
		return PageStateOutput{Success: false, Error: fmt.Sprintf("Failed to get page state: %v", err)}, nil
	}
	return PageStateOutput{
		Success:     true,
		URL:         st.URL,
		Title:       st.Title,
		SnapshotID:  st.SnapshotID,
		Count:       len(st.SelectorMap),
		NewElements: st.NewElements,
		ElementMap:  st.ElementTree.ClickableElementsToString(dom.DefaultIncludeAttributes),
	}, nil
}

func (h handlers) locate(ctx context.Context, in LocateInput) (LocateOutput, error) {
	st := h.p.Current()
	if st == nil {
		return LocateOutput{Error: "No page state yet. Call get_page_state first."}, nil
	}
	node := st.SelectorMap[in.ElementIndex]
	if node == nil {
		return LocateOutput{Error: fmt.Sprintf("Element %d is not in the current element map", in.ElementIndex)}, nil
	}

	rec := dom.NewHistoryElement(node)
	out := LocateOutput{
		Success:    true,
		Selector:   rec.CSSSelector,
		FrameChain: dom.FrameChain(node, true),
		Record:     rec,
	}

	_, err := h.p.ElementByIndex(ctx, in.ElementIndex)
	switch {
	case err == nil:
		out.Found = true
	case errors.Is(err, browser.ErrElementNotFound), errors.Is(err, browser.ErrStaleIndex):
		out.Error = err.Error()
	default:
		out.Success = false
		out.Error = err.Error()
	}
	return out, nil
}

// PageStateTool snapshots the page and returns the element map.
func PageStateTool(p Provider) (tool.Tool, error) {
	h := handlers{p: p}
	t, err := functiontool.New(
		functiontool.Config{
			Name:        "get_page_state",
			Description: "Get the current page URL, title and interactive elements. Elements that appeared since the last call on the same page are marked *[n]*.",
		},
		func(tc tool.Context, in PageStateInput) (PageStateOutput, error) {
			return h.pageState(tc, in)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create page state tool: %w", err)
	}
	return t, nil
}

// LocateTool resolves an element index to its selectors and a history
// record, and checks that it can still be found in the live page.
func LocateTool(p Provider) (tool.Tool, error) {
	h := handlers{p: p}
	t, err := functiontool.New(
		functiontool.Config{
			Name:        "locate_element",
			Description: "Describe an element of the current element map: its CSS selector, the iframe selectors leading to it and a record that can find it again later.",
		},
		func(tc tool.Context, in LocateInput) (LocateOutput, error) {
			return h.locate(tc, in)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create locate tool: %w", err)
	}
	return t, nil
}

// All returns every tool in this package.
func All(p Provider) ([]tool.Tool, error) {
	var out []tool.Tool
	for _, mk := range []func(Provider) (tool.Tool, error){PageStateTool, LocateTool} {
		t, err := mk(p)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
