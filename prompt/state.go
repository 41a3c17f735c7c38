// Package prompt turns browser snapshots into LLM message content.
package prompt

import (
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/anxuanzi/bua-dom/browser"
	"github.com/anxuanzi/bua-dom/dom"
)

// Options control StateContent.
type Options struct {
	// IncludeAttributes lists the attributes shown per element. Nil uses
	// dom.DefaultIncludeAttributes.
	IncludeAttributes []string
	// IncludeScreenshot attaches st.Screenshot as an inline PNG part.
	IncludeScreenshot bool
}

// Describe renders the text part of a state message.
func Describe(st *browser.State, include []string) string {
	if include == nil {
		include = dom.DefaultIncludeAttributes
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Current url: %s\n", st.URL)
	if st.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", st.Title)
	}

	elements := ""
	if st.ElementTree != nil {
		elements = st.ElementTree.ClickableElementsToString(include)
	}
	if elements == "" {
		b.WriteString("Interactive elements: empty page\n")
		return b.String()
	}

	b.WriteString("Interactive elements from top layer of the current page inside the viewport")
	if st.NewElements > 0 {
		fmt.Fprintf(&b, " (%d new, marked *[n]*)", st.NewElements)
	}
	b.WriteString(":\n[Start of page]\n")
	b.WriteString(elements)
	b.WriteString("\n[End of page]\n")
	return b.String()
}

// StateContent builds a user message describing st.
func StateContent(st *browser.State, opts Options) *genai.Content {
	parts := []*genai.Part{
		{Text: Describe(st, opts.IncludeAttributes)},
	}
	if opts.IncludeScreenshot && len(st.Screenshot) > 0 {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: "image/png", Data: st.Screenshot},
		})
	}
	return genai.NewContentFromParts(parts, genai.RoleUser)
}
