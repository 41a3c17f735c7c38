package dom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// loginPage is a bottom-up walk of:
//
//	<html><body>
//	  <h1>Welcome</h1>
//	  <div><button id=login class="btn primary" type=submit>Sign in</button>
//	       <input name=q placeholder=Search></div>
//	</body></html>
const loginPage = `{
  "map": {
    "1": {"type": "TEXT_NODE", "text": "Sign in", "isVisible": true},
    "2": {"tagName": "button", "xpath": "/html/body/div[2]/button",
          "attributes": {"id": "login", "class": "btn primary", "type": "submit"},
          "children": ["1"], "isVisible": true, "isInteractive": true,
          "isTopElement": true, "isInViewport": true, "highlightIndex": 0},
    "3": {"tagName": "input", "xpath": "/html/body/div[2]/input",
          "attributes": {"name": "q", "placeholder": "Search"},
          "children": [], "isVisible": true, "isInteractive": true,
          "isTopElement": true, "isInViewport": true, "highlightIndex": 1},
    %EXTRA%
    "4": {"tagName": "div", "xpath": "/html/body/div[2]", "attributes": {},
          "children": ["2", "3"%EXTRA_CHILD%], "isVisible": true, "isTopElement": true},
    "5": {"type": "TEXT_NODE", "text": "Welcome", "isVisible": true},
    "6": {"tagName": "h1", "xpath": "/html/body/h1", "attributes": {},
          "children": ["5"], "isVisible": true, "isTopElement": true},
    "7": {"tagName": "body", "xpath": "/html/body", "attributes": {},
          "children": ["6", "4"], "isVisible": true},
    "8": {"tagName": "html", "xpath": "/html", "attributes": {},
          "children": ["7"], "isVisible": true}
  },
  "rootId": 8,
  "perfMetrics": {"nodeCount": 8}
}`

const helpLink = `"9": {"tagName": "a", "xpath": "/html/body/div[2]/a",
          "attributes": {"href": "/help"}, "children": [], "isVisible": true,
          "isInteractive": true, "isTopElement": true, "highlightIndex": 2},`

func loginWalk() string {
	r := strings.NewReplacer("%EXTRA%", "", "%EXTRA_CHILD%", "")
	return r.Replace(loginPage)
}

func loginWalkWithHelpLink() string {
	r := strings.NewReplacer("%EXTRA%", helpLink, "%EXTRA_CHILD%", `, "9"`)
	return r.Replace(loginPage)
}

func mustMaterialize(t *testing.T, raw string) *DOMState {
	t.Helper()
	state, err := Materialize([]byte(raw))
	require.NoError(t, err)
	require.NotNil(t, state)
	return state
}

func intPtr(i int) *int { return &i }
