package dom

import (
	"fmt"
	"strings"
)

// DefaultIncludeAttributes are the attributes shown next to each element in
// the prompt rendering.
var DefaultIncludeAttributes = []string{
	"title", "type", "name", "role", "aria-label", "placeholder",
	"value", "alt", "aria-expanded", "data-date-format",
}

const attributeValueCap = 15

// AllTextTillNextClickable collects the text below e, stopping at any
// nested indexed element. maxDepth < 0 means unlimited.
func (e *ElementNode) AllTextTillNextClickable(maxDepth int) string {
	var parts []string
	var collect func(n Node, depth int)
	collect = func(n Node, depth int) {
		if maxDepth >= 0 && depth > maxDepth {
			return
		}
		switch node := n.(type) {
		case *TextNode:
			parts = append(parts, node.Text)
		case *ElementNode:
			if node != e && node.HighlightIndex != nil {
				return
			}
			for _, child := range node.Children {
				collect(child, depth+1)
			}
		}
	}
	collect(e, 0)
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// ClickableElementsToString renders the interactive subset of the tree for
// the LLM prompt. Each indexed element becomes one line:
//
//	[3]<button aria-label=Close>Close />
//
// New elements are marked *[3]*. Free text that does not belong to an
// indexed element is emitted on its own line if its parent is visible and
// on top.
func (e *ElementNode) ClickableElementsToString(includeAttributes []string) string {
	var lines []string

	var process func(n Node, depth int)
	process = func(n Node, depth int) {
		indent := strings.Repeat("\t", depth)

		switch node := n.(type) {
		case *ElementNode:
			next := depth
			if node.HighlightIndex != nil {
				next++
				lines = append(lines, indent+node.renderLine(includeAttributes))
			}
			for _, child := range node.Children {
				process(child, next)
			}

		case *TextNode:
			p := node.Parent()
			if node.HasParentWithHighlightIndex() || p == nil {
				return
			}
			if p.IsVisible && p.IsTopElement {
				lines = append(lines, indent+node.Text)
			}
		}
	}

	process(e, 0)
	return strings.Join(lines, "\n")
}

func (e *ElementNode) renderLine(includeAttributes []string) string {
	text := e.AllTextTillNextClickable(-1)
	attrs := e.promptAttributes(includeAttributes, text)

	var b strings.Builder
	if e.New() {
		fmt.Fprintf(&b, "*[%d]*", *e.HighlightIndex)
	} else {
		fmt.Fprintf(&b, "[%d]", *e.HighlightIndex)
	}
	b.WriteString("<" + e.TagName)

	if attrs != "" {
		b.WriteString(" " + attrs)
	}
	if text != "" {
		if attrs == "" {
			b.WriteString(" ")
		}
		b.WriteString(">" + text)
	} else if attrs == "" {
		b.WriteString(" ")
	}
	b.WriteString(" />")
	return b.String()
}

// promptAttributes filters and shortens attributes, dropping values that
// only repeat the tag name or the element text.
func (e *ElementNode) promptAttributes(include []string, text string) string {
	if len(include) == 0 {
		return ""
	}
	wanted := make(map[string]bool, len(include))
	for _, name := range include {
		wanted[name] = true
	}

	trimmedText := strings.TrimSpace(text)
	var parts []string
	for _, a := range e.Attributes {
		if !wanted[a.Name] {
			continue
		}
		switch a.Name {
		case "role":
			if a.Value == e.TagName {
				continue
			}
		case "aria-label", "placeholder":
			if strings.TrimSpace(a.Value) == trimmedText {
				continue
			}
		}
		parts = append(parts, a.Name+"="+capText(a.Value, attributeValueCap))
	}
	return strings.Join(parts, " ")
}

func capText(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
