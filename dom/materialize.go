package dom

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrMaterialize is returned when a page walk cannot be turned into a tree.
// No partial tree is ever returned alongside it.
var ErrMaterialize = errors.New("dom: materialize")

// NodeID identifies an entry of the walker's node map. The walker may emit
// ids as JSON numbers or strings; both decode to the same NodeID.
type NodeID string

func (id *NodeID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = NodeID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("node id: %w", err)
	}
	*id = NodeID(n.String())
	return nil
}

// NodeData is one entry of the walker's node map.
type NodeData struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text,omitempty"`

	TagName        string         `json:"tagName,omitempty"`
	XPath          string         `json:"xpath,omitempty"`
	Attributes     Attributes     `json:"attributes,omitempty"`
	Children       []NodeID       `json:"children,omitempty"`
	IsVisible      bool           `json:"isVisible,omitempty"`
	IsInteractive  bool           `json:"isInteractive,omitempty"`
	IsTopElement   bool           `json:"isTopElement,omitempty"`
	IsInViewport   bool           `json:"isInViewport,omitempty"`
	HighlightIndex *int           `json:"highlightIndex,omitempty"`
	ShadowRoot     bool           `json:"shadowRoot,omitempty"`
	Viewport       *ViewportInfo  `json:"viewport,omitempty"`
	ViewportCoords *CoordinateSet `json:"viewportCoordinates,omitempty"`
	PageCoords     *CoordinateSet `json:"pageCoordinates,omitempty"`
}

const textNodeType = "TEXT_NODE"

// WalkEntry pairs a node id with its data, in producer order.
type WalkEntry struct {
	ID   NodeID
	Data NodeData
}

// Walk is the decoded output of the in-page serialization pass.
//
// Entries must be ordered so that every child id precedes the parent that
// references it. The materializer does a single forward pass and drops
// children it has not built yet.
type Walk struct {
	Entries     []WalkEntry
	RootID      NodeID
	PerfMetrics json.RawMessage
}

func (w *Walk) UnmarshalJSON(data []byte) error {
	var out Walk
	err := decodeObject(data, func(key string, raw json.RawMessage) error {
		switch key {
		case "map":
			return decodeObject(raw, func(id string, nodeRaw json.RawMessage) error {
				var nd NodeData
				if err := json.Unmarshal(nodeRaw, &nd); err != nil {
					return fmt.Errorf("node %s: %w", id, err)
				}
				out.Entries = append(out.Entries, WalkEntry{ID: NodeID(id), Data: nd})
				return nil
			})
		case "rootId":
			return json.Unmarshal(raw, &out.RootID)
		case "perfMetrics":
			if !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
				out.PerfMetrics = append(json.RawMessage(nil), raw...)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	*w = out
	return nil
}

// MarshalJSON writes the walk back in the producer's format, keeping entry
// order. Used for dumps that "domsnap render" can read back.
func (w Walk) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"map":{`)
	for i, e := range w.Entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(string(e.ID)))
		buf.WriteByte(':')
		nd, err := json.Marshal(e.Data)
		if err != nil {
			return nil, err
		}
		buf.Write(nd)
	}
	buf.WriteString(`},"rootId":`)
	buf.WriteString(strconv.Quote(string(w.RootID)))
	if len(w.PerfMetrics) > 0 {
		buf.WriteString(`,"perfMetrics":`)
		buf.Write(w.PerfMetrics)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ParseWalk decodes raw walker output.
func ParseWalk(raw []byte) (*Walk, error) {
	var w Walk
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: decode walk: %v", ErrMaterialize, err)
	}
	return &w, nil
}

// Materialize decodes raw walker output and builds the element tree.
func Materialize(raw []byte) (*DOMState, error) {
	w, err := ParseWalk(raw)
	if err != nil {
		return nil, err
	}
	return MaterializeWalk(w)
}

// MaterializeWalk builds the element tree and selector map from a decoded
// walk.
func MaterializeWalk(w *Walk) (*DOMState, error) {
	if w == nil {
		return nil, fmt.Errorf("%w: nil walk", ErrMaterialize)
	}

	built := make(map[NodeID]Node, len(w.Entries))
	selectorMap := make(SelectorMap)

	for _, entry := range w.Entries {
		node, children := buildNode(entry.Data)
		built[entry.ID] = node

		el, ok := node.(*ElementNode)
		if !ok {
			continue
		}
		if el.HighlightIndex != nil {
			selectorMap[*el.HighlightIndex] = el
		}
		for _, childID := range children {
			// TODO: count skipped children so producers that break the
			// ordering contract show up in logs instead of losing subtrees.
			child, ok := built[childID]
			if !ok {
				continue
			}
			el.AppendChild(child)
		}
	}

	rootNode, ok := built[w.RootID]
	if !ok {
		return nil, fmt.Errorf("%w: root %q not in node map", ErrMaterialize, w.RootID)
	}
	root, ok := rootNode.(*ElementNode)
	if !ok {
		return nil, fmt.Errorf("%w: root %q is not an element", ErrMaterialize, w.RootID)
	}

	return &DOMState{ElementTree: root, SelectorMap: selectorMap}, nil
}

func buildNode(nd NodeData) (Node, []NodeID) {
	if nd.Type == textNodeType {
		return &TextNode{Text: nd.Text, IsVisible: nd.IsVisible}, nil
	}

	el := &ElementNode{
		TagName:             nd.TagName,
		XPath:               nd.XPath,
		Attributes:          nd.Attributes.Clone(),
		Children:            []Node{},
		IsVisible:           nd.IsVisible,
		IsInteractive:       nd.IsInteractive,
		IsTopElement:        nd.IsTopElement,
		IsInViewport:        nd.IsInViewport,
		ShadowRoot:          nd.ShadowRoot,
		ViewportCoordinates: nd.ViewportCoords,
		PageCoordinates:     nd.PageCoords,
		ViewportInfo:        nd.Viewport,
	}
	if el.Attributes == nil {
		el.Attributes = Attributes{}
	}
	if nd.HighlightIndex != nil {
		idx := *nd.HighlightIndex
		el.HighlightIndex = &idx
	}
	return el, nd.Children
}

// EmptyState is what a walk of a blank page produces: a bare, invisible
// body with no indexed elements.
func EmptyState() *DOMState {
	return &DOMState{
		ElementTree: &ElementNode{
			TagName:    "body",
			XPath:      "",
			Attributes: Attributes{},
			Children:   []Node{},
		},
		SelectorMap: SelectorMap{},
	}
}
