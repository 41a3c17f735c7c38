// Package dom materializes page-walk output into an element tree, fingerprints
// elements across snapshots and synthesizes CSS selectors to find them again.
package dom

import (
	"fmt"
	"sort"
	"strings"
)

// Node is either a *TextNode or an *ElementNode.
type Node interface {
	// Parent returns the owning element, or nil for the tree root.
	Parent() *ElementNode
	// Visible reports whether the page walker saw the node as visible.
	Visible() bool

	setParent(p *ElementNode)
}

// Coordinates is a point in CSS pixels.
type Coordinates struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CoordinateSet describes an element's box either relative to the viewport
// or to the page.
type CoordinateSet struct {
	TopLeft     Coordinates `json:"topLeft"`
	TopRight    Coordinates `json:"topRight"`
	BottomLeft  Coordinates `json:"bottomLeft"`
	BottomRight Coordinates `json:"bottomRight"`
	Center      Coordinates `json:"center"`
	Width       float64     `json:"width"`
	Height      float64     `json:"height"`
}

// ViewportInfo is the viewport size the walker measured against.
type ViewportInfo struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// TextNode is a leaf holding visible or hidden text.
type TextNode struct {
	Text      string
	IsVisible bool

	parent *ElementNode
}

func (t *TextNode) Parent() *ElementNode     { return t.parent }
func (t *TextNode) Visible() bool            { return t.IsVisible }
func (t *TextNode) setParent(p *ElementNode) { t.parent = p }

// HasParentWithHighlightIndex reports whether any ancestor is indexed.
func (t *TextNode) HasParentWithHighlightIndex() bool {
	for cur := t.parent; cur != nil; cur = cur.parent {
		if cur.HighlightIndex != nil {
			return true
		}
	}
	return false
}

// IsParentInViewport reports whether the direct parent was in the viewport.
func (t *TextNode) IsParentInViewport() bool {
	return t.parent != nil && t.parent.IsInViewport
}

// IsParentTopElement reports whether the direct parent was the topmost
// element at its center point.
func (t *TextNode) IsParentTopElement() bool {
	return t.parent != nil && t.parent.IsTopElement
}

// ElementNode is an element of the materialized tree. Children are owned by
// their element; the parent link is a lookup relation only.
type ElementNode struct {
	TagName    string
	XPath      string
	Attributes Attributes
	Children   []Node

	IsVisible     bool
	IsInteractive bool
	IsTopElement  bool
	IsInViewport  bool
	ShadowRoot    bool

	// HighlightIndex is set by the page walker for interactive elements.
	// It is only meaningful for the snapshot that produced this tree.
	HighlightIndex *int

	ViewportCoordinates *CoordinateSet
	PageCoordinates     *CoordinateSet
	ViewportInfo        *ViewportInfo

	// IsNew is set by Differ.Mark only; nil means "not compared".
	IsNew *bool

	parent *ElementNode
}

func (e *ElementNode) Parent() *ElementNode     { return e.parent }
func (e *ElementNode) Visible() bool            { return e.IsVisible }
func (e *ElementNode) setParent(p *ElementNode) { e.parent = p }

// AppendChild attaches child to e and sets its parent link.
func (e *ElementNode) AppendChild(child Node) {
	child.setParent(e)
	e.Children = append(e.Children, child)
}

// Index returns the highlight index and whether it is set.
func (e *ElementNode) Index() (int, bool) {
	if e.HighlightIndex == nil {
		return 0, false
	}
	return *e.HighlightIndex, true
}

// New reports whether the differ flagged the element as new.
func (e *ElementNode) New() bool {
	return e.IsNew != nil && *e.IsNew
}

func (e *ElementNode) String() string {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(e.TagName)
	for _, a := range e.Attributes {
		fmt.Fprintf(&b, " %s=%q", a.Name, a.Value)
	}
	b.WriteString(">")

	var extras []string
	if e.IsInteractive {
		extras = append(extras, "interactive")
	}
	if e.IsTopElement {
		extras = append(extras, "top")
	}
	if e.ShadowRoot {
		extras = append(extras, "shadow-root")
	}
	if e.HighlightIndex != nil {
		extras = append(extras, fmt.Sprintf("highlight:%d", *e.HighlightIndex))
	}
	if len(extras) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(extras, ", "))
	}
	return b.String()
}

// Walk visits e and its descendants in pre-order. Returning false from fn
// stops the walk.
func (e *ElementNode) Walk(fn func(Node) bool) bool {
	if !fn(e) {
		return false
	}
	for _, child := range e.Children {
		switch c := child.(type) {
		case *ElementNode:
			if !c.Walk(fn) {
				return false
			}
		default:
			if !fn(c) {
				return false
			}
		}
	}
	return true
}

// SelectorMap maps highlight indices to elements of one snapshot.
type SelectorMap map[int]*ElementNode

// Indices returns the map keys in ascending order.
func (m SelectorMap) Indices() []int {
	out := make([]int, 0, len(m))
	for idx := range m {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// DOMState is the result of one materialization.
type DOMState struct {
	ElementTree *ElementNode
	SelectorMap SelectorMap
}
