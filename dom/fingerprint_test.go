package dom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAncestorPath(t *testing.T) {
	state := mustMaterialize(t, loginWalk())

	assert.Equal(t, []string{"html", "body", "div"}, AncestorPath(state.SelectorMap[0]))
	assert.Empty(t, AncestorPath(state.ElementTree))
}

func TestHashElement_Components(t *testing.T) {
	state := mustMaterialize(t, loginWalk())
	button := state.SelectorMap[0]

	fp := HashElement(button)
	assert.Equal(t, hashString("html/body/div"), fp.BranchPathHash)
	assert.Equal(t, hashString("id=loginclass=btn primarytype=submit"), fp.AttributesHash)
	assert.Equal(t, hashString("/html/body/div[2]/button"), fp.XPathHash)
	assert.Len(t, fp.BranchPathHash, 64)

	wantDigest := hashString(fp.BranchPathHash + "-" + fp.AttributesHash + "-" + fp.XPathHash)
	assert.Equal(t, wantDigest, fp.Digest())
	assert.Equal(t, wantDigest, Digest(button))
}

func TestHashElement_AttributeChangeIsLocal(t *testing.T) {
	before := mustMaterialize(t, loginWalk())
	after := mustMaterialize(t, strings.Replace(loginWalk(), `"name": "q"`, `"name": "query"`, 1))

	inputBefore, inputAfter := HashElement(before.SelectorMap[1]), HashElement(after.SelectorMap[1])
	assert.NotEqual(t, inputBefore.AttributesHash, inputAfter.AttributesHash)
	assert.Equal(t, inputBefore.BranchPathHash, inputAfter.BranchPathHash)
	assert.Equal(t, inputBefore.XPathHash, inputAfter.XPathHash)
	assert.False(t, inputBefore.Equal(inputAfter))

	assert.True(t, HashElement(before.SelectorMap[0]).Equal(HashElement(after.SelectorMap[0])))
}

func TestHashElement_AttributeOrderMatters(t *testing.T) {
	a := &ElementNode{TagName: "input", XPath: "/input", Attributes: Attributes{{"a", "1"}, {"b", "2"}}}
	b := &ElementNode{TagName: "input", XPath: "/input", Attributes: Attributes{{"b", "2"}, {"a", "1"}}}

	require.NotEqual(t, HashElement(a).AttributesHash, HashElement(b).AttributesHash)
}

func TestFingerprint_EqualNeedsAllParts(t *testing.T) {
	base := Fingerprint{BranchPathHash: "b", AttributesHash: "a", XPathHash: "x"}

	assert.True(t, base.Equal(base))
	assert.False(t, base.Equal(Fingerprint{BranchPathHash: "B", AttributesHash: "a", XPathHash: "x"}))
	assert.False(t, base.Equal(Fingerprint{BranchPathHash: "b", AttributesHash: "A", XPathHash: "x"}))
	assert.False(t, base.Equal(Fingerprint{BranchPathHash: "b", AttributesHash: "a", XPathHash: "X"}))
}
