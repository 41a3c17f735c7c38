package dom

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// safeAttributes are attributes stable enough to use in selectors.
var safeAttributes = map[string]bool{
	"id": true, "name": true, "type": true, "placeholder": true,
	"aria-label": true, "aria-labelledby": true, "aria-describedby": true,
	"role": true, "for": true, "autocomplete": true, "required": true,
	"readonly": true, "alt": true, "title": true, "src": true,
	"href": true, "target": true,
}

// dynamicAttributes are test/automation hooks, only used when dynamic
// attributes are requested.
var dynamicAttributes = map[string]bool{
	"data-id": true, "data-qa": true, "data-cy": true, "data-testid": true,
}

var (
	validClassName = regexp.MustCompile(`^[A-Za-z_][\w-]*$`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

const unsafeValueChars = "\"'<>`\n\r\t"

// XPathToCSS converts a simple position path (as produced by the page
// walker) to a CSS child-combinator selector. Unsupported predicates are
// ignored.
func XPathToCSS(xpath string) string {
	if xpath == "" {
		return ""
	}
	xpath = strings.TrimLeft(xpath, "/")

	var parts []string
	for _, seg := range strings.Split(xpath, "/") {
		if seg == "" {
			continue
		}

		open := strings.IndexByte(seg, '[')
		if open < 0 {
			parts = append(parts, escapeColon(seg))
			continue
		}

		base := escapeColon(seg[:open])
		for _, pred := range predicates(seg[open:]) {
			switch {
			case isPositiveInt(pred):
				base += ":nth-of-type(" + pred + ")"
			case pred == "last()":
				base += ":last-of-type"
			case strings.Contains(pred, "position()"):
				if strings.Contains(pred, ">1") {
					base += ":nth-of-type(n+2)"
				}
			}
		}
		parts = append(parts, base)
	}
	return strings.Join(parts, " > ")
}

// predicates splits "[1][last()]" into its bracket contents.
func predicates(s string) []string {
	var out []string
	for _, chunk := range strings.Split(s, "]") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		out = append(out, strings.Trim(chunk, "[]"))
	}
	return out
}

func isPositiveInt(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	n, err := strconv.Atoi(s)
	return err == nil && n > 0
}

func escapeColon(s string) string {
	return strings.ReplaceAll(s, ":", `\:`)
}

// EnhancedSelector builds a CSS selector for el from its position path,
// classes (dynamic only) and a safelist of attributes. The result is
// best-effort and may match more than one element.
func EnhancedSelector(el *ElementNode, includeDynamicAttributes bool) (sel string) {
	defer func() {
		if r := recover(); r != nil {
			sel = fallbackSelector(el)
		}
	}()

	sel = XPathToCSS(el.XPath)

	if includeDynamicAttributes {
		if class, ok := el.Attributes.Get("class"); ok && class != "" {
			for _, name := range strings.Fields(class) {
				if validClassName.MatchString(name) {
					sel += "." + name
				}
			}
		}
	}

	for _, attr := range el.Attributes {
		if attr.Name == "class" || strings.TrimSpace(attr.Name) == "" {
			continue
		}
		if !safeAttributes[attr.Name] && !(includeDynamicAttributes && dynamicAttributes[attr.Name]) {
			continue
		}
		name := escapeColon(attr.Name)
		value := attr.Value

		switch {
		case value == "":
			sel += "[" + name + "]"
		case strings.ContainsAny(value, unsafeValueChars):
			sel += fmt.Sprintf(`[%s*="%s"]`, name, normalizeAttributeValue(value))
		default:
			sel += fmt.Sprintf(`[%s="%s"]`, name, value)
		}
	}
	return sel
}

// normalizeAttributeValue keeps the first line, collapses whitespace and
// escapes double quotes so the value fits a substring match.
func normalizeAttributeValue(v string) string {
	if i := strings.IndexByte(v, '\n'); i >= 0 {
		v = v[:i]
	}
	v = strings.TrimSpace(whitespaceRun.ReplaceAllString(v, " "))
	return strings.ReplaceAll(v, `"`, `\"`)
}

func fallbackSelector(el *ElementNode) string {
	tag := "*"
	idx := "None"
	if el != nil {
		if el.TagName != "" {
			tag = el.TagName
		}
		if el.HighlightIndex != nil {
			idx = strconv.Itoa(*el.HighlightIndex)
		}
	}
	return fmt.Sprintf("%s[highlight_index='%s']", tag, idx)
}

// FrameChain returns the selectors needed to reach el from the top
// document: one selector per enclosing iframe, outermost first, followed by
// the selector for el itself, which must be evaluated inside the innermost
// iframe's document.
func FrameChain(el *ElementNode, includeDynamicAttributes bool) []string {
	var frames []*ElementNode
	for cur := el.Parent(); cur != nil; cur = cur.Parent() {
		if strings.EqualFold(cur.TagName, "iframe") {
			frames = append(frames, cur)
		}
	}

	chain := make([]string, 0, len(frames)+1)
	for i := len(frames) - 1; i >= 0; i-- {
		chain = append(chain, EnhancedSelector(frames[i], includeDynamicAttributes))
	}
	return append(chain, EnhancedSelector(el, includeDynamicAttributes))
}
