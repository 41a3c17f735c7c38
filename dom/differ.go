package dom

// clickableCache is the digest set of the previous snapshot of one URL.
type clickableCache struct {
	url    string
	hashes map[string]struct{}
}

// Differ flags interactive elements that were not present in the previous
// snapshot of the same URL. It keeps a single slot of state and is not safe
// for concurrent use; callers serialize snapshots per page.
type Differ struct {
	cache *clickableCache
}

// NewDiffer returns a Differ with an empty cache.
func NewDiffer() *Differ {
	return &Differ{}
}

// Mark compares tree against the cached snapshot. When the cache holds the
// same URL every indexed element gets IsNew set; otherwise no element is
// touched. The cache is then replaced with tree's digests. Mark returns the
// number of elements flagged new. A nil tree caches url with no digests.
func (d *Differ) Mark(url string, tree *ElementNode) int {
	if tree == nil {
		d.cache = &clickableCache{url: url, hashes: map[string]struct{}{}}
		return 0
	}

	clickable := ClickableElements(tree)
	digests := make(map[string]struct{}, len(clickable))
	fresh := 0

	compare := d.cache != nil && d.cache.url == url
	for _, el := range clickable {
		digest := Digest(el)
		digests[digest] = struct{}{}
		if !compare {
			continue
		}
		_, seen := d.cache.hashes[digest]
		isNew := !seen
		el.IsNew = &isNew
		if isNew {
			fresh++
		}
	}

	d.cache = &clickableCache{url: url, hashes: digests}
	return fresh
}

// CachedURL returns the URL of the cached snapshot, if any.
func (d *Differ) CachedURL() (string, bool) {
	if d.cache == nil {
		return "", false
	}
	return d.cache.url, true
}

// Reset drops the cached snapshot.
func (d *Differ) Reset() {
	d.cache = nil
}

// ClickableElements returns every element of tree that carries a highlight
// index, in pre-order.
func ClickableElements(tree *ElementNode) []*ElementNode {
	var out []*ElementNode
	tree.Walk(func(n Node) bool {
		if el, ok := n.(*ElementNode); ok && el.HighlightIndex != nil {
			out = append(out, el)
		}
		return true
	})
	return out
}

// ClickableHashes returns the digest set of tree's indexed elements.
func ClickableHashes(tree *ElementNode) map[string]struct{} {
	out := make(map[string]struct{})
	for _, el := range ClickableElements(tree) {
		out[Digest(el)] = struct{}{}
	}
	return out
}
