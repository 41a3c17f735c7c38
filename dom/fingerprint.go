package dom

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint is the structural identity of an element: where it sits
// (ancestor tags), what it carries (attributes) and its position path.
// Two fingerprints match only if all three hashes are identical.
type Fingerprint struct {
	BranchPathHash string `json:"branch_path_hash"`
	AttributesHash string `json:"attributes_hash"`
	XPathHash      string `json:"xpath_hash"`
}

// Equal compares all three components exactly.
func (f Fingerprint) Equal(o Fingerprint) bool {
	return f.BranchPathHash == o.BranchPathHash &&
		f.AttributesHash == o.AttributesHash &&
		f.XPathHash == o.XPathHash
}

// Digest folds the fingerprint into one string for set membership.
func (f Fingerprint) Digest() string {
	return hashString(f.BranchPathHash + "-" + f.AttributesHash + "-" + f.XPathHash)
}

// AncestorPath returns the tag names of every ancestor of el, root first.
// The element itself is not included.
func AncestorPath(el *ElementNode) []string {
	var path []string
	for cur := el.Parent(); cur != nil; cur = cur.Parent() {
		path = append(path, cur.TagName)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// HashElement computes the fingerprint of a live element.
func HashElement(el *ElementNode) Fingerprint {
	return fingerprintOf(AncestorPath(el), el.Attributes, el.XPath)
}

// Digest is shorthand for HashElement(el).Digest().
func Digest(el *ElementNode) string {
	return HashElement(el).Digest()
}

func fingerprintOf(branch []string, attrs Attributes, xpath string) Fingerprint {
	return Fingerprint{
		BranchPathHash: hashBranchPath(branch),
		AttributesHash: hashAttributes(attrs),
		XPathHash:      hashString(xpath),
	}
}

func hashBranchPath(path []string) string {
	return hashString(strings.Join(path, "/"))
}

func hashAttributes(attrs Attributes) string {
	var b strings.Builder
	for _, a := range attrs {
		b.WriteString(a.Name)
		b.WriteByte('=')
		b.WriteString(a.Value)
	}
	return hashString(b.String())
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
