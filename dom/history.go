package dom

// HistoryElement is a tree-independent record of one element. It is plain
// data: it can be stored with step history and handed back to Relocate in a
// later snapshot.
type HistoryElement struct {
	TagName                string         `json:"tag_name"`
	XPath                  string         `json:"xpath"`
	HighlightIndex         *int           `json:"highlight_index,omitempty"`
	EntireParentBranchPath []string       `json:"entire_parent_branch_path"`
	Attributes             Attributes     `json:"attributes"`
	ShadowRoot             bool           `json:"shadow_root"`
	CSSSelector            string         `json:"css_selector,omitempty"`
	PageCoordinates        *CoordinateSet `json:"page_coordinates,omitempty"`
	ViewportCoordinates    *CoordinateSet `json:"viewport_coordinates,omitempty"`
	ViewportInfo           *ViewportInfo  `json:"viewport_info,omitempty"`
}

// NewHistoryElement snapshots el. The highlight index is kept for display
// only; relocation ignores it.
func NewHistoryElement(el *ElementNode) *HistoryElement {
	rec := &HistoryElement{
		TagName:                el.TagName,
		XPath:                  el.XPath,
		EntireParentBranchPath: AncestorPath(el),
		Attributes:             el.Attributes.Clone(),
		ShadowRoot:             el.ShadowRoot,
		CSSSelector:            EnhancedSelector(el, true),
		PageCoordinates:        copyCoords(el.PageCoordinates),
		ViewportCoordinates:    copyCoords(el.ViewportCoordinates),
	}
	if rec.EntireParentBranchPath == nil {
		rec.EntireParentBranchPath = []string{}
	}
	if rec.Attributes == nil {
		rec.Attributes = Attributes{}
	}
	if el.HighlightIndex != nil {
		idx := *el.HighlightIndex
		rec.HighlightIndex = &idx
	}
	if el.ViewportInfo != nil {
		vi := *el.ViewportInfo
		rec.ViewportInfo = &vi
	}
	return rec
}

// Fingerprint rebuilds the fingerprint the element had when recorded.
func (h *HistoryElement) Fingerprint() Fingerprint {
	return fingerprintOf(h.EntireParentBranchPath, h.Attributes, h.XPath)
}

// Relocate finds the first indexed element of tree, in pre-order, whose
// fingerprint equals the record's. It returns nil when the element is gone
// or changed.
func Relocate(rec *HistoryElement, tree *ElementNode) *ElementNode {
	if rec == nil || tree == nil {
		return nil
	}
	want := rec.Fingerprint()

	var found *ElementNode
	tree.Walk(func(n Node) bool {
		el, ok := n.(*ElementNode)
		if !ok || el.HighlightIndex == nil {
			return true
		}
		if HashElement(el).Equal(want) {
			found = el
			return false
		}
		return true
	})
	return found
}

func copyCoords(c *CoordinateSet) *CoordinateSet {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
