package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/anxuanzi/bua-dom/browser"
	"github.com/anxuanzi/bua-dom/dom"
)

const searchWalk = `{
  "map": {
    "1": {"type": "TEXT_NODE", "text": "Go", "isVisible": true},
    "2": {"tagName": "button", "xpath": "html/body/button", "attributes": {"type": "submit"},
          "children": ["1"], "isVisible": true, "isTopElement": true, "highlightIndex": 0},
    "3": {"tagName": "body", "xpath": "html/body", "attributes": {}, "children": ["2"], "isVisible": true}
  },
  "rootId": "3"
}`

func searchState(t *testing.T) *browser.State {
	t.Helper()
	ds, err := dom.Materialize([]byte(searchWalk))
	require.NoError(t, err)
	return &browser.State{
		URL:         "https://search.test/",
		Title:       "Search",
		ElementTree: ds.ElementTree,
		SelectorMap: ds.SelectorMap,
		Screenshot:  []byte{0x89, 'P', 'N', 'G'},
	}
}

func TestDescribe(t *testing.T) {
	want := "Current url: https://search.test/\n" +
		"Title: Search\n" +
		"Interactive elements from top layer of the current page inside the viewport:\n" +
		"[Start of page]\n" +
		"[0]<button type=submit>Go />\n" +
		"[End of page]\n"
	assert.Equal(t, want, Describe(searchState(t), nil))
}

func TestDescribe_NewElements(t *testing.T) {
	st := searchState(t)
	st.NewElements = 1
	assert.Contains(t, Describe(st, nil), "viewport (1 new, marked *[n]*):")
}

func TestDescribe_EmptyPage(t *testing.T) {
	empty := dom.EmptyState()
	st := &browser.State{URL: "about:blank", ElementTree: empty.ElementTree, SelectorMap: empty.SelectorMap}
	assert.Equal(t, "Current url: about:blank\nInteractive elements: empty page\n", Describe(st, nil))
}

func TestStateContent(t *testing.T) {
	st := searchState(t)

	msg := StateContent(st, Options{})
	assert.EqualValues(t, genai.RoleUser, msg.Role)
	require.Len(t, msg.Parts, 1)
	assert.Contains(t, msg.Parts[0].Text, "[0]<button")

	msg = StateContent(st, Options{IncludeScreenshot: true, IncludeAttributes: []string{}})
	require.Len(t, msg.Parts, 2)
	assert.Contains(t, msg.Parts[0].Text, "[0]<button >Go />")
	require.NotNil(t, msg.Parts[1].InlineData)
	assert.Equal(t, "image/png", msg.Parts[1].InlineData.MIMEType)
	assert.Equal(t, st.Screenshot, msg.Parts[1].InlineData.Data)
}
