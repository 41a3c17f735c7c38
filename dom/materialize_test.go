package dom

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterialize_BuildsTreeAndSelectorMap(t *testing.T) {
	state := mustMaterialize(t, loginWalk())

	root := state.ElementTree
	assert.Equal(t, "html", root.TagName)
	assert.Nil(t, root.Parent())
	require.Len(t, root.Children, 1)

	body := root.Children[0].(*ElementNode)
	assert.Equal(t, "body", body.TagName)
	assert.Same(t, root, body.Parent())
	require.Len(t, body.Children, 2)
	assert.Equal(t, "h1", body.Children[0].(*ElementNode).TagName)
	assert.Equal(t, "div", body.Children[1].(*ElementNode).TagName)

	assert.Equal(t, []int{0, 1}, state.SelectorMap.Indices())
	button := state.SelectorMap[0]
	assert.Equal(t, "button", button.TagName)
	assert.True(t, button.IsInteractive)
	assert.Nil(t, button.IsNew)

	text, ok := button.Children[0].(*TextNode)
	require.True(t, ok)
	assert.Equal(t, "Sign in", text.Text)
	assert.Same(t, button, text.Parent())
}

func TestMaterialize_AttributesKeepProducerOrder(t *testing.T) {
	state := mustMaterialize(t, loginWalk())

	button := state.SelectorMap[0]
	want := Attributes{
		{Name: "id", Value: "login"},
		{Name: "class", Value: "btn primary"},
		{Name: "type", Value: "submit"},
	}
	assert.Equal(t, want, button.Attributes)
}

func TestMaterialize_Deterministic(t *testing.T) {
	a := mustMaterialize(t, loginWalk())
	b := mustMaterialize(t, loginWalk())

	opts := cmpopts.IgnoreUnexported(ElementNode{}, TextNode{})
	if diff := cmp.Diff(a.ElementTree, b.ElementTree, opts); diff != "" {
		t.Fatalf("trees differ (-a +b):\n%s", diff)
	}

	for idx, el := range a.SelectorMap {
		other := b.SelectorMap[idx]
		require.NotNil(t, other)
		assert.True(t, HashElement(el).Equal(HashElement(other)), "index %d", idx)
	}
}

func TestMaterialize_MissingRoot(t *testing.T) {
	raw := `{"map": {"1": {"tagName": "div", "xpath": "/div", "attributes": {}, "children": []}}, "rootId": "42"}`

	state, err := Materialize([]byte(raw))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMaterialize))
	assert.Nil(t, state)
}

func TestMaterialize_RootMustBeElement(t *testing.T) {
	raw := `{"map": {"1": {"type": "TEXT_NODE", "text": "hi", "isVisible": true}}, "rootId": "1"}`

	state, err := Materialize([]byte(raw))
	require.ErrorIs(t, err, ErrMaterialize)
	assert.Nil(t, state)
}

func TestMaterialize_MalformedJSON(t *testing.T) {
	_, err := Materialize([]byte(`{"map": [`))
	require.ErrorIs(t, err, ErrMaterialize)
}

func TestMaterialize_SkipsChildrenEmittedAfterParent(t *testing.T) {
	// "1" references children that are only emitted after it. They are
	// dropped rather than patched in later.
	raw := `{
	  "map": {
	    "1": {"tagName": "div", "xpath": "/div", "attributes": {}, "children": ["2", "3"]},
	    "3": {"type": "TEXT_NODE", "text": "late", "isVisible": true},
	    "2": {"tagName": "span", "xpath": "/div/span", "attributes": {}, "children": [], "highlightIndex": 0}
	  },
	  "rootId": "1"
	}`
	state := mustMaterialize(t, raw)
	assert.Empty(t, state.ElementTree.Children)

	// The orphan is still indexed because the selector map is filled while
	// building, not while walking the final tree.
	require.Contains(t, state.SelectorMap, 0)
	assert.Nil(t, state.SelectorMap[0].Parent())
}

func TestParseWalk_RoundTrip(t *testing.T) {
	w, err := ParseWalk([]byte(loginWalk()))
	require.NoError(t, err)

	assert.Equal(t, NodeID("8"), w.RootID)
	require.Len(t, w.Entries, 8)
	assert.Equal(t, NodeID("1"), w.Entries[0].ID)
	assert.JSONEq(t, `{"nodeCount": 8}`, string(w.PerfMetrics))

	raw, err := json.Marshal(w)
	require.NoError(t, err)

	again, err := ParseWalk(raw)
	require.NoError(t, err)
	assert.Equal(t, w.RootID, again.RootID)
	require.Len(t, again.Entries, len(w.Entries))

	a, err := MaterializeWalk(w)
	require.NoError(t, err)
	b, err := MaterializeWalk(again)
	require.NoError(t, err)

	opts := []cmp.Option{cmpopts.IgnoreUnexported(ElementNode{}, TextNode{}), cmpopts.EquateEmpty()}
	if diff := cmp.Diff(a.ElementTree, b.ElementTree, opts...); diff != "" {
		t.Fatalf("round trip changed the tree (-before +after):\n%s", diff)
	}
}

func TestEmptyState(t *testing.T) {
	state := EmptyState()

	assert.Equal(t, "body", state.ElementTree.TagName)
	assert.Equal(t, "", state.ElementTree.XPath)
	assert.False(t, state.ElementTree.IsVisible)
	assert.Empty(t, state.ElementTree.Children)
	assert.Empty(t, state.SelectorMap)
	assert.Equal(t, "", state.ElementTree.ClickableElementsToString(DefaultIncludeAttributes))
}
